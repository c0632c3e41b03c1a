package mailbox

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rs/zerolog"

	"github.com/cheaterdxd/mail-client/internal/secure"
)

// imapMailbox wraps go-imap v2 over an already-negotiated TLS connection.
//
// Enumeration returns the sequence numbers of a plain SEARCH ALL, which are
// session-relative: deleting mail between runs shifts them, so a number may
// refer to a different message next session. The stable UID extension
// (UIDSearch/UIDFetch) would be the durable choice; the sequence-number
// behavior is kept for compatibility with existing seen-UID ledgers.
type imapMailbox struct {
	client *imapclient.Client
	logger zerolog.Logger
}

func newIMAPMailbox(conn net.Conn, logger zerolog.Logger) (Mailbox, error) {
	client := imapclient.New(secure.WithIOTimeout(conn, ioTimeout), nil)
	return &imapMailbox{client: client, logger: logger}, nil
}

func (m *imapMailbox) Login(username, password string) error {
	if err := m.client.Login(username, password).Wait(); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) {
			return fmt.Errorf("IMAP login transport failure: %w", err)
		}
		return &AuthError{Username: username, Message: err.Error()}
	}
	return nil
}

// ListMessages selects INBOX and searches for all messages, returning their
// sequence numbers as opaque UID strings in server order.
func (m *imapMailbox) ListMessages() ([]string, error) {
	if _, err := m.client.Select("INBOX", nil).Wait(); err != nil {
		return nil, &ProtocolError{Op: "SELECT INBOX", Detail: err.Error()}
	}

	data, err := m.client.Search(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, &ProtocolError{Op: "SEARCH ALL", Detail: err.Error()}
	}

	nums := data.AllSeqNums()
	uids := make([]string, 0, len(nums))
	for _, n := range nums {
		uids = append(uids, strconv.FormatUint(uint64(n), 10))
	}

	m.logger.Debug().Int("count", len(uids)).Msg("IMAP search complete")
	return uids, nil
}

// FetchRaw retrieves the full RFC 5322 bytes of one message. The body
// section is fetched with Peek so the \Seen flag stays untouched.
func (m *imapMailbox) FetchRaw(uid string) ([]byte, error) {
	num, err := strconv.ParseUint(uid, 10, 32)
	if err != nil {
		return nil, &ProtocolError{Op: "FETCH", Detail: "invalid message number " + uid}
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := m.client.Fetch(imap.SeqSetNum(uint32(num)), &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, &ProtocolError{Op: "FETCH", Detail: "message " + uid + " not found"}
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, &ProtocolError{Op: "FETCH", Detail: err.Error()}
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, &ProtocolError{Op: "FETCH", Detail: "no body section for message " + uid}
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, &ProtocolError{Op: "FETCH", Detail: err.Error()}
	}
	return raw, nil
}

func (m *imapMailbox) Close() error {
	return m.client.Logout().Wait()
}
