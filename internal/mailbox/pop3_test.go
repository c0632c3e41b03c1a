package mailbox

import (
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

// pop3Script serves a minimal scripted POP3 session on one end of a pipe.
type pop3Script struct {
	password string
	uids     []string          // listing order, index+1 is the message number
	messages map[string]string // UID -> raw content
}

func (s *pop3Script) serve(t *testing.T, conn net.Conn) {
	t.Helper()
	text := textproto.NewConn(conn)
	defer text.Close()

	if err := text.PrintfLine("+OK ready"); err != nil {
		return
	}

	for {
		line, err := text.ReadLine()
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(line, " ")

		switch strings.ToUpper(cmd) {
		case "USER":
			text.PrintfLine("+OK")
		case "PASS":
			if arg == s.password {
				text.PrintfLine("+OK logged in")
			} else {
				text.PrintfLine("-ERR invalid password")
			}
		case "UIDL":
			text.PrintfLine("+OK")
			w := text.DotWriter()
			for i, uid := range s.uids {
				fmt.Fprintf(w, "%d %s\r\n", i+1, uid)
			}
			w.Close()
		case "RETR":
			idx, _ := strconv.Atoi(arg)
			if idx < 1 || idx > len(s.uids) {
				text.PrintfLine("-ERR no such message")
				continue
			}
			text.PrintfLine("+OK")
			w := text.DotWriter()
			w.Write([]byte(s.messages[s.uids[idx-1]]))
			w.Close()
		case "QUIT":
			text.PrintfLine("+OK bye")
			return
		default:
			text.PrintfLine("-ERR unknown command")
		}
	}
}

func dialScript(t *testing.T, script *pop3Script) Mailbox {
	t.Helper()
	client, server := net.Pipe()
	go script.serve(t, server)

	m, err := newPOP3Mailbox(client, zerolog.Nop())
	if err != nil {
		t.Fatalf("opening session: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestPOP3LoginAndList(t *testing.T) {
	m := dialScript(t, &pop3Script{
		password: "hunter2",
		uids:     []string{"uid-a", "uid-b", "uid-c"},
		messages: map[string]string{},
	})

	if err := m.Login("alice", "hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	uids, err := m.ListMessages()
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if diff := cmp.Diff([]string{"uid-a", "uid-b", "uid-c"}, uids); diff != "" {
		t.Errorf("listing order mismatch (-want +got):\n%s", diff)
	}
}

func TestPOP3BadPassword(t *testing.T) {
	m := dialScript(t, &pop3Script{password: "right"})

	err := m.Login("alice", "wrong")
	if err == nil {
		t.Fatal("Login succeeded with a wrong password")
	}
	if !IsAuthError(err) {
		t.Errorf("error is not an AuthError: %v", err)
	}
}

func TestPOP3FetchRaw(t *testing.T) {
	content := "From: a@example.com\r\nSubject: Hi\r\n\r\nhello\r\n"
	m := dialScript(t, &pop3Script{
		password: "pw",
		uids:     []string{"msg-1"},
		messages: map[string]string{"msg-1": content},
	})

	if err := m.Login("alice", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := m.ListMessages(); err != nil {
		t.Fatalf("ListMessages: %v", err)
	}

	raw, err := m.FetchRaw("msg-1")
	if err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}
	// The dot-reader normalizes CRLF to LF.
	want := strings.ReplaceAll(content, "\r\n", "\n")
	if string(raw) != want {
		t.Errorf("raw = %q, want %q", raw, want)
	}
}

func TestPOP3FetchUnknownUID(t *testing.T) {
	m := dialScript(t, &pop3Script{password: "pw", uids: []string{"msg-1"}})

	if err := m.Login("alice", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := m.ListMessages(); err != nil {
		t.Fatalf("ListMessages: %v", err)
	}

	_, err := m.FetchRaw("never-listed")
	if err == nil {
		t.Fatal("FetchRaw succeeded for an unlisted UID")
	}
	if !IsProtocolError(err) {
		t.Errorf("error is not a ProtocolError: %v", err)
	}
}

func TestPOP3SilentServerTimesOut(t *testing.T) {
	old := ioTimeout
	ioTimeout = 100 * time.Millisecond
	t.Cleanup(func() { ioTimeout = old })

	client, server := net.Pipe()
	t.Cleanup(func() { server.Close() })
	go func() {
		// Greet, then go silent: no further reads or writes.
		text := textproto.NewConn(server)
		text.PrintfLine("+OK ready")
	}()

	m, err := newPOP3Mailbox(client, zerolog.Nop())
	if err != nil {
		t.Fatalf("opening session: %v", err)
	}
	defer m.Close()

	start := time.Now()
	err = m.Login("alice", "pw")
	if err == nil {
		t.Fatal("Login succeeded against a silent server")
	}
	if !IsProtocolError(err) {
		t.Errorf("error is not a ProtocolError: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Login blocked %v before failing", elapsed)
	}
}

func TestPOP3BadGreeting(t *testing.T) {
	client, server := net.Pipe()
	go func() {
		text := textproto.NewConn(server)
		text.PrintfLine("-ERR service unavailable")
		text.Close()
	}()

	_, err := newPOP3Mailbox(client, zerolog.Nop())
	if err == nil {
		t.Fatal("session opened on a -ERR greeting")
	}
	if !IsProtocolError(err) {
		t.Errorf("error is not a ProtocolError: %v", err)
	}
}
