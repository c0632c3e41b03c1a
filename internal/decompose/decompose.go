// Package decompose parses raw message bytes into headers, a best-effort
// plain-text body, and attachments. It performs no I/O; the raw bytes stay
// the sole source of truth and a Message is cheap to re-derive.
package decompose

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

func init() {
	// Decode encoded-word headers and text parts declared in non-UTF-8
	// charsets (ISO-8859-*, Windows-125x, and friends).
	message.CharsetReader = charset.Reader
}

// Attachment is one extracted attachment: the header-decoded filename as
// declared by the sender (not yet sanitized for the filesystem) and payload.
type Attachment struct {
	Filename string
	Data     []byte
}

// Message is the derived view of a raw message. It is never persisted on
// its own; the raw bytes remain canonical.
type Message struct {
	From        string
	To          string
	Cc          string
	Bcc         string
	Subject     string
	Date        time.Time
	Body        string
	Attachments []Attachment
}

// Decompose parses raw bytes into a Message. It never fails: an unparsable
// message degrades to a body-only view, an undecodable header falls back to
// its raw string, and an undecodable part becomes a visible placeholder.
func Decompose(raw []byte) Message {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Not parsable as a MIME message; surface the bytes as-is.
		return Message{Body: strings.TrimSpace(string(raw))}
	}
	defer mr.Close()

	msg := Message{
		From:    headerText(&mr.Header, "From"),
		To:      headerText(&mr.Header, "To"),
		Cc:      headerText(&mr.Header, "Cc"),
		Bcc:     headerText(&mr.Header, "Bcc"),
		Subject: headerText(&mr.Header, "Subject"),
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.Date = date
	}

	var plainBody, htmlBody, otherBody string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			// Any part carrying a Content-Disposition and a filename is
			// treated as an attachment, inline disposition included.
			disp, params, _ := h.ContentDisposition()
			if disp != "" && params["filename"] != "" {
				msg.Attachments = append(msg.Attachments,
					readAttachment(params["filename"], part.Body))
				continue
			}

			contentType, _, _ := h.ContentType()
			body := readPart(part.Body)

			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				if plainBody == "" {
					plainBody = body
				}
			case strings.HasPrefix(contentType, "text/html"):
				if htmlBody == "" {
					htmlBody = body
				}
			default:
				// A message whose only payload is some other type (a bare
				// text/calendar invite, say) still surfaces it as the body.
				if otherBody == "" {
					otherBody = body
				}
			}

		case *mail.AttachmentHeader:
			filename, err := h.Filename()
			if err != nil || filename == "" {
				filename = h.Get("Content-Description")
			}
			if filename == "" {
				continue
			}
			msg.Attachments = append(msg.Attachments,
				readAttachment(filename, part.Body))
		}
	}

	switch {
	case plainBody != "":
		msg.Body = strings.TrimSpace(plainBody)
	case htmlBody != "":
		msg.Body = strings.TrimSpace(stripHTML(htmlBody))
	case otherBody != "":
		msg.Body = strings.TrimSpace(otherBody)
	}

	return msg
}

// headerText decodes a header field, falling back to the raw string when
// an encoded word cannot be decoded.
func headerText(h *mail.Header, key string) string {
	text, err := h.Text(key)
	if err != nil {
		return h.Get(key)
	}
	return text
}

// readPart reads one body part, replacing decode failures with a visible
// placeholder instead of aborting the decomposition.
func readPart(r io.Reader) string {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Sprintf("[unreadable part: %v]", err)
	}
	return string(data)
}

func readAttachment(filename string, r io.Reader) Attachment {
	data, err := io.ReadAll(r)
	if err != nil {
		data = []byte(fmt.Sprintf("[unreadable attachment: %v]", err))
	}
	return Attachment{Filename: filename, Data: data}
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes tags and decodes common entities, giving a basic
// plain-text rendering of an HTML-only message.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&amp;", "&",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
