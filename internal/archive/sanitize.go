package archive

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const noSubjectPlaceholder = "no_subject"

// illegalChars matches characters that cannot appear in a path component on
// at least one supported filesystem, plus ASCII control characters.
var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

var whitespaceRuns = regexp.MustCompile(`\s+`)

// reservedNames are device names Windows refuses as file or directory
// names regardless of extension.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// sanitizeComponent makes name safe as a single path component on every
// target filesystem: illegal characters stripped, whitespace runs
// collapsed, trailing dots and spaces trimmed, reserved device names
// escaped with a leading underscore, and the result truncated to maxLen
// runes after sanitization. Truncating on a rune boundary keeps the name
// valid UTF-8. An empty result yields the empty string; callers substitute
// their own placeholder.
func sanitizeComponent(name string, maxLen int) string {
	name = illegalChars.ReplaceAllString(name, "")
	name = whitespaceRuns.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, ". ")

	if reservedNames[strings.ToUpper(name)] || name == "." || name == ".." {
		name = "_" + name
	}

	if utf8.RuneCountInString(name) > maxLen {
		name = strings.TrimRight(string([]rune(name)[:maxLen]), ". ")
	}

	return name
}

// sanitizeSubject sanitizes a message subject for use in a folder name,
// substituting a fixed placeholder when nothing survives.
func sanitizeSubject(subject string, maxLen int) string {
	s := sanitizeComponent(subject, maxLen)
	if s == "" {
		return noSubjectPlaceholder
	}
	return s
}
