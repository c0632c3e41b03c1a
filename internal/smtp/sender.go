// Package smtp sends outgoing mail over an implicit-TLS SMTP session
// negotiated with the same security profile as the incoming connection.
// Sending shares no state with the sync core and may run concurrently
// with a sync pass.
package smtp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/smtp"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"

	"github.com/cheaterdxd/mail-client/internal/mailbox"
	"github.com/cheaterdxd/mail-client/internal/secure"
)

// ioTimeout bounds each read and write of the SMTP conversation.
const ioTimeout = 30 * time.Second

// Sender delivers messages through one configured SMTP endpoint.
type Sender struct {
	negotiator *secure.Negotiator
	host       string
	port       int
	username   string
	password   string
	logger     zerolog.Logger
}

// NewSender returns a Sender using the given negotiator's TLS profile.
func NewSender(
	negotiator *secure.Negotiator,
	host string, port int,
	username, password string,
	logger zerolog.Logger,
) *Sender {
	return &Sender{
		negotiator: negotiator,
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		logger:     logger,
	}
}

// Send composes a plain-text message with optional file attachments and
// delivers it. Attachment paths that do not exist are skipped with a
// warning rather than failing the send. A rejected credential is reported
// as *mailbox.AuthError.
func (s *Sender) Send(
	ctx context.Context,
	to, subject, body string,
	attachmentPaths []string,
) error {
	msg, err := s.compose(to, subject, body, attachmentPaths)
	if err != nil {
		return err
	}

	conn, err := s.negotiator.Negotiate(ctx, s.host, s.port)
	if err != nil {
		return err
	}
	bounded := secure.WithIOTimeout(conn, ioTimeout)

	client, err := smtp.NewClient(bounded, s.host)
	if err != nil {
		bounded.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := client.Auth(auth); err != nil {
		return &mailbox.AuthError{Username: s.username, Message: err.Error()}
	}

	if err := client.Mail(s.username); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := writer.Write(msg); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing message body: %w", err)
	}

	s.logger.Info().Str("to", to).Str("subject", subject).Msg("message sent")
	return client.Quit()
}

// compose builds the MIME message: a text/plain body plus one base64
// attachment part per existing file.
func (s *Sender) compose(
	to, subject, body string,
	attachmentPaths []string,
) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: s.username}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	var inlineHeader mail.InlineHeader
	inlineHeader.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := mw.CreateSingleInline(inlineHeader)
	if err != nil {
		return nil, fmt.Errorf("creating body part: %w", err)
	}
	if _, err := io.WriteString(tw, body); err != nil {
		return nil, fmt.Errorf("writing body part: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing body part: %w", err)
	}

	for _, path := range attachmentPaths {
		f, err := os.Open(path)
		if err != nil {
			s.logger.Warn().Str("path", path).Err(err).Msg("skipping missing attachment")
			continue
		}

		var attHeader mail.AttachmentHeader
		attHeader.SetFilename(filepath.Base(path))
		attHeader.SetContentType("application/octet-stream", nil)

		aw, err := mw.CreateAttachment(attHeader)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating attachment part %s: %w", path, err)
		}
		if _, err := io.Copy(aw, f); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing attachment %s: %w", path, err)
		}
		f.Close()
		if err := aw.Close(); err != nil {
			return nil, fmt.Errorf("closing attachment part %s: %w", path, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}

	return buf.Bytes(), nil
}
