package decompose

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// crlf converts a readable fixture into wire-format line endings.
func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestDecomposeSinglePart(t *testing.T) {
	raw := crlf(`From: Alice <alice@example.com>
To: bob@example.com
Subject: Lunch
Date: Mon, 02 Jan 2006 15:04:05 -0700
Content-Type: text/plain; charset=utf-8

See you at noon.
`)

	msg := Decompose(raw)

	if msg.From != "Alice <alice@example.com>" {
		t.Errorf("From = %q", msg.From)
	}
	if msg.To != "bob@example.com" {
		t.Errorf("To = %q", msg.To)
	}
	if msg.Subject != "Lunch" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.Date.IsZero() {
		t.Error("Date not parsed")
	}
	if msg.Body != "See you at noon." {
		t.Errorf("Body = %q", msg.Body)
	}
	if len(msg.Attachments) != 0 {
		t.Errorf("got %d attachments, want none", len(msg.Attachments))
	}
}

func TestDecomposePrefersPlainText(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: Alternative
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="XYZ"

--XYZ
Content-Type: text/html; charset=utf-8

<p>html version</p>
--XYZ
Content-Type: text/plain; charset=utf-8

plain version
--XYZ--
`)

	msg := Decompose(raw)
	if msg.Body != "plain version" {
		t.Errorf("Body = %q, want plain version", msg.Body)
	}
}

func TestDecomposeHTMLOnlyFallback(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: HTML
MIME-Version: 1.0
Content-Type: text/html; charset=utf-8

<div>Hi &amp; bye</div>
`)

	msg := Decompose(raw)
	if msg.Body != "Hi & bye" {
		t.Errorf("Body = %q, want Hi & bye", msg.Body)
	}
}

func TestDecomposeSinglePartNonTextBody(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: Invite
MIME-Version: 1.0
Content-Type: text/calendar; charset=utf-8

BEGIN:VCALENDAR
END:VCALENDAR
`)

	msg := Decompose(raw)
	if msg.Body != "BEGIN:VCALENDAR\r\nEND:VCALENDAR" {
		t.Errorf("Body = %q, want the calendar payload", msg.Body)
	}
}

func TestDecomposeEncodedSubject(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: =?UTF-8?B?SMOpbGxv?=
Content-Type: text/plain

hi
`)

	msg := Decompose(raw)
	if msg.Subject != "Héllo" {
		t.Errorf("Subject = %q, want Héllo", msg.Subject)
	}
}

func TestDecomposeBase64Attachment(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: With attachment
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="MIX"

--MIX
Content-Type: text/plain; charset=utf-8

see attached
--MIX
Content-Type: application/octet-stream
Content-Disposition: attachment; filename="data.bin"
Content-Transfer-Encoding: base64

aGVsbG8gd29ybGQ=
--MIX--
`)

	msg := Decompose(raw)
	if msg.Body != "see attached" {
		t.Errorf("Body = %q", msg.Body)
	}
	want := []Attachment{{Filename: "data.bin", Data: []byte("hello world")}}
	if diff := cmp.Diff(want, msg.Attachments); diff != "" {
		t.Errorf("attachments mismatch (-want +got):\n%s", diff)
	}
}

func TestDecomposeInlineWithFilenameIsAttachment(t *testing.T) {
	raw := crlf(`From: a@example.com
Subject: Inline image
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="MIX"

--MIX
Content-Type: text/plain; charset=utf-8

body text
--MIX
Content-Type: image/jpeg
Content-Disposition: inline; filename="photo.jpg"
Content-Transfer-Encoding: base64

/9j/AAA=
--MIX--
`)

	msg := Decompose(raw)
	if msg.Body != "body text" {
		t.Errorf("Body = %q", msg.Body)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != "photo.jpg" {
		t.Fatalf("attachments = %+v, want one named photo.jpg", msg.Attachments)
	}
}

func TestDecomposeUnparsableFallsBackToRaw(t *testing.T) {
	raw := []byte("this is not a mime message at all\r\n")

	msg := Decompose(raw)
	if msg.Body != "this is not a mime message at all" {
		t.Errorf("Body = %q", msg.Body)
	}
	if msg.Subject != "" || msg.From != "" {
		t.Errorf("headers should be empty, got Subject=%q From=%q", msg.Subject, msg.From)
	}
}

func TestStripHTML(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"<p>one</p><p>two</p>", "one\ntwo"},
		{"a<br>b<br/>c", "a\nb\nc"},
		{"x &lt;y&gt; &quot;z&quot; &#39;w&#39;", `x <y> "z" 'w'`},
		{"a&nbsp;b", "a b"},
		{"<ul><li>first</li><li>second</li></ul>", "first\nsecond"},
		{"many</p>\n</p>\n</p>blanks", "many\n\nblanks"},
	}
	for _, tc := range cases {
		if got := stripHTML(tc.in); got != tc.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
