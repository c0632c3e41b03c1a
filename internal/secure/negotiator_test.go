package secure

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strconv"
	"syscall"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseProfile(t *testing.T) {
	for _, s := range []string{"strict", "balanced", "legacy"} {
		p, err := ParseProfile(s)
		if err != nil {
			t.Errorf("ParseProfile(%q): %v", s, err)
		}
		if string(p) != s {
			t.Errorf("ParseProfile(%q) = %q", s, p)
		}
	}

	if _, err := ParseProfile("paranoid"); err == nil {
		t.Error("ParseProfile accepted an unknown profile")
	}
}

func TestTLSConfigStrict(t *testing.T) {
	n := NewNegotiator(ProfileStrict, zerolog.Nop())
	cfg := n.TLSConfig("mail.example.com")

	if cfg.ServerName != "mail.example.com" {
		t.Errorf("ServerName = %q", cfg.ServerName)
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", cfg.MinVersion)
	}
	if cfg.CipherSuites != nil {
		t.Error("strict profile should use the library default suites")
	}
}

func TestTLSConfigBalanced(t *testing.T) {
	n := NewNegotiator(ProfileBalanced, zerolog.Nop())
	cfg := n.TLSConfig("mail.example.com")

	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", cfg.MinVersion)
	}
	if len(cfg.CipherSuites) == 0 {
		t.Error("balanced profile resolved no cipher suites")
	}
}

func TestTLSConfigLegacy(t *testing.T) {
	n := NewNegotiator(ProfileLegacy, zerolog.Nop())
	cfg := n.TLSConfig("mail.example.com")

	if cfg.MinVersion != tls.VersionTLS10 {
		t.Errorf("MinVersion = %x, want TLS 1.0", cfg.MinVersion)
	}
	want := len(tls.CipherSuites()) + len(tls.InsecureCipherSuites())
	if len(cfg.CipherSuites) != want {
		t.Errorf("got %d suites, want all %d the library implements",
			len(cfg.CipherSuites), want)
	}
}

func TestClassifyNetErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want DialErrorKind
	}{
		{"dns", &net.DNSError{Err: "no such host", Name: "nope.invalid"}, KindDNS},
		{"timeout", os.ErrDeadlineExceeded, KindTimeout},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), KindRefused},
		{"unknown", fmt.Errorf("something else"), KindRefused},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyNetErr(tc.err); got != tc.want {
				t.Errorf("classifyNetErr = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNegotiateConnectionRefused(t *testing.T) {
	// Grab a port the kernel just released so nothing is listening on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()
	port, _ := strconv.Atoi(portStr)

	n := NewNegotiator(ProfileStrict, zerolog.Nop())
	_, err = n.Negotiate(context.Background(), "127.0.0.1", port)
	if err == nil {
		t.Fatal("Negotiate succeeded against a closed port")
	}

	de, ok := AsDialError(err)
	if !ok {
		t.Fatalf("error is not a DialError: %v", err)
	}
	if de.Kind != KindRefused {
		t.Errorf("Kind = %v, want %v", de.Kind, KindRefused)
	}
}

func TestNegotiateHandshakeFailure(t *testing.T) {
	// A listener that answers with plaintext makes every TLS client
	// handshake fail at the record layer.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		fmt.Fprint(conn, "220 definitely not tls\r\n")
		conn.Close()
	}()

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	n := NewNegotiator(ProfileStrict, zerolog.Nop())
	_, err = n.Negotiate(context.Background(), "127.0.0.1", port)
	if err == nil {
		t.Fatal("Negotiate succeeded against a plaintext server")
	}

	de, ok := AsDialError(err)
	if !ok {
		t.Fatalf("error is not a DialError: %v", err)
	}
	if de.Kind != KindHandshake {
		t.Errorf("Kind = %v, want %v", de.Kind, KindHandshake)
	}
}

func TestDialErrorMessage(t *testing.T) {
	de := &DialError{Kind: KindDNS, Addr: "mail.example.com:995", Err: fmt.Errorf("no such host")}
	got := de.Error()
	want := "connecting to mail.example.com:995: dns: no such host"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
