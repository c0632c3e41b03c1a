// Package mailbox provides read-only access to a remote mail store over
// POP3 or IMAP behind a single interface. Adapters never mutate server-side
// state: no deletion, no flag changes.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cheaterdxd/mail-client/internal/secure"
)

// ioTimeout bounds every individual read and write on an open session so a
// server that goes silent mid-conversation cannot block a sync pass
// indefinitely. A var so tests can tighten it.
var ioTimeout = 30 * time.Second

// AuthError indicates the server rejected the supplied credentials, as
// opposed to a connection or transport failure.
type AuthError struct {
	Username string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %s", e.Username, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ProtocolError indicates the server returned a malformed or unexpected
// response for one operation.
type ProtocolError struct {
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error during %s: %s", e.Op, e.Detail)
}

// IsProtocolError reports whether err (or any error in its chain) is a
// ProtocolError.
func IsProtocolError(err error) bool {
	var protoErr *ProtocolError
	return errors.As(err, &protoErr)
}

// Mailbox is the contract every protocol adapter implements. UIDs are
// opaque strings, compared but never parsed by callers; their ordering
// follows the server's listing order.
type Mailbox interface {
	// Login authenticates the session. A rejected credential is an
	// *AuthError; anything else is a transport failure.
	Login(username, password string) error

	// ListMessages enumerates every message currently visible in the
	// mailbox and returns its identifiers in server order.
	ListMessages() ([]string, error)

	// FetchRaw returns the complete unparsed bytes of one message.
	FetchRaw(uid string) ([]byte, error)

	// Close ends the session. Safe to call after a failed Login.
	Close() error
}

// Protocol identifies the wire protocol an adapter speaks.
type Protocol string

const (
	ProtocolPOP3 Protocol = "pop3"
	ProtocolIMAP Protocol = "imap"
)

// ProtocolForPort applies the port heuristic: 993 and 143 select IMAP,
// 995 and 110 select POP3. Unrecognized ports fall back to POP3 with a
// warning; callers relying on the fallback should fix their configuration
// rather than depend on it.
func ProtocolForPort(port int, logger zerolog.Logger) Protocol {
	switch port {
	case 993, 143:
		return ProtocolIMAP
	case 995, 110:
		return ProtocolPOP3
	default:
		logger.Warn().Int("port", port).Msg("unrecognized port, assuming POP3")
		return ProtocolPOP3
	}
}

// Opener negotiates a TLS session to one configured endpoint and wraps it
// in the protocol adapter selected by its port.
type Opener struct {
	Negotiator *secure.Negotiator
	Host       string
	Port       int
	Logger     zerolog.Logger
}

// Open dials the endpoint and returns a ready-to-authenticate Mailbox.
func (o *Opener) Open(ctx context.Context) (Mailbox, error) {
	conn, err := o.Negotiator.Negotiate(ctx, o.Host, o.Port)
	if err != nil {
		return nil, err
	}

	switch ProtocolForPort(o.Port, o.Logger) {
	case ProtocolIMAP:
		return newIMAPMailbox(conn, o.Logger)
	default:
		return newPOP3Mailbox(conn, o.Logger)
	}
}
