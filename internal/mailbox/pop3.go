package mailbox

import (
	"io"
	"net"
	"net/textproto"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cheaterdxd/mail-client/internal/secure"
)

// pop3Mailbox speaks POP3 (RFC 1939) over an already-negotiated TLS
// connection. Message identity comes from UIDL tokens; the message-number
// mapping UIDL reports is cached for the life of the session so FetchRaw
// can address messages by UID.
type pop3Mailbox struct {
	conn    net.Conn
	text    *textproto.Conn
	numbers map[string]string // UID -> message number, session-scoped
	order   []string
	logger  zerolog.Logger
}

func newPOP3Mailbox(conn net.Conn, logger zerolog.Logger) (Mailbox, error) {
	conn = secure.WithIOTimeout(conn, ioTimeout)
	text := textproto.NewConn(conn)

	greeting, err := text.ReadLine()
	if err != nil {
		conn.Close()
		return nil, &ProtocolError{Op: "greeting", Detail: err.Error()}
	}
	if !strings.HasPrefix(greeting, "+OK") {
		conn.Close()
		return nil, &ProtocolError{Op: "greeting", Detail: greeting}
	}

	logger.Debug().Str("greeting", greeting).Msg("POP3 session opened")

	return &pop3Mailbox{conn: conn, text: text, logger: logger}, nil
}

// cmd sends one command and reads its single status line.
func (m *pop3Mailbox) cmd(format string, args ...interface{}) (string, error) {
	if err := m.text.PrintfLine(format, args...); err != nil {
		return "", err
	}
	return m.text.ReadLine()
}

func (m *pop3Mailbox) Login(username, password string) error {
	line, err := m.cmd("USER %s", username)
	if err != nil {
		return &ProtocolError{Op: "USER", Detail: err.Error()}
	}
	if !strings.HasPrefix(line, "+OK") {
		return &AuthError{Username: username, Message: strings.TrimPrefix(line, "-ERR ")}
	}

	line, err = m.cmd("PASS %s", password)
	if err != nil {
		return &ProtocolError{Op: "PASS", Detail: err.Error()}
	}
	if !strings.HasPrefix(line, "+OK") {
		return &AuthError{Username: username, Message: strings.TrimPrefix(line, "-ERR ")}
	}
	return nil
}

// ListMessages issues UIDL and returns the server-assigned UID tokens in
// listing order.
func (m *pop3Mailbox) ListMessages() ([]string, error) {
	line, err := m.cmd("UIDL")
	if err != nil {
		return nil, &ProtocolError{Op: "UIDL", Detail: err.Error()}
	}
	if !strings.HasPrefix(line, "+OK") {
		return nil, &ProtocolError{Op: "UIDL", Detail: line}
	}

	m.numbers = make(map[string]string)
	m.order = nil

	// Multiline response, terminated by a lone dot.
	dot := m.text.DotReader()
	data, err := io.ReadAll(dot)
	if err != nil {
		return nil, &ProtocolError{Op: "UIDL", Detail: err.Error()}
	}

	for _, entry := range strings.Split(string(data), "\n") {
		fields := strings.Fields(entry)
		if len(fields) < 2 {
			continue
		}
		num, uid := fields[0], fields[1]
		m.numbers[uid] = num
		m.order = append(m.order, uid)
	}

	m.logger.Debug().Int("count", len(m.order)).Msg("POP3 UIDL complete")
	return m.order, nil
}

// FetchRaw retrieves one complete message with RETR. The returned bytes
// have line endings normalized to \n by the dot-reader.
func (m *pop3Mailbox) FetchRaw(uid string) ([]byte, error) {
	num, ok := m.numbers[uid]
	if !ok {
		return nil, &ProtocolError{Op: "RETR", Detail: "unknown UID " + uid}
	}

	line, err := m.cmd("RETR %s", num)
	if err != nil {
		return nil, &ProtocolError{Op: "RETR", Detail: err.Error()}
	}
	if !strings.HasPrefix(line, "+OK") {
		return nil, &ProtocolError{Op: "RETR", Detail: line}
	}

	raw, err := io.ReadAll(m.text.DotReader())
	if err != nil {
		return nil, &ProtocolError{Op: "RETR", Detail: err.Error()}
	}
	return raw, nil
}

func (m *pop3Mailbox) Close() error {
	// QUIT commits nothing here: this adapter never issues DELE.
	_, _ = m.cmd("QUIT")
	return m.text.Close()
}
