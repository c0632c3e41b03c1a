// Package secure establishes TLS sessions to mail endpoints under a
// configurable security profile, classifying connection failures so callers
// can react to DNS, TCP, and handshake problems differently.
package secure

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Profile selects the minimum protocol version and cipher suites used for
// every outgoing TLS connection. It is chosen once at client construction.
type Profile string

const (
	// ProfileStrict pins TLS 1.2+ with the library's modern default
	// cipher suites.
	ProfileStrict Profile = "strict"

	// ProfileBalanced pins TLS 1.2+ but broadens the suite list with
	// older CBC suites still common on shared mail hosts.
	ProfileBalanced Profile = "balanced"

	// ProfileLegacy relaxes the floor to TLS 1.0 and offers every suite
	// the library knows, including insecure ones. It exists for servers
	// with outdated stacks and must be opted into explicitly.
	ProfileLegacy Profile = "legacy"
)

// ParseProfile converts a configuration string into a Profile.
func ParseProfile(s string) (Profile, error) {
	switch Profile(s) {
	case ProfileStrict, ProfileBalanced, ProfileLegacy:
		return Profile(s), nil
	}
	return "", fmt.Errorf("unknown security profile %q", s)
}

// DialErrorKind distinguishes the stages at which establishing an encrypted
// session can fail.
type DialErrorKind int

const (
	KindDNS DialErrorKind = iota
	KindRefused
	KindTimeout
	KindHandshake
)

func (k DialErrorKind) String() string {
	switch k {
	case KindDNS:
		return "dns"
	case KindRefused:
		return "connection refused"
	case KindTimeout:
		return "timeout"
	case KindHandshake:
		return "tls handshake"
	}
	return "unknown"
}

// DialError wraps a connection failure with the stage it occurred at.
type DialError struct {
	Kind DialErrorKind
	Addr string
	Err  error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("connecting to %s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// AsDialError reports whether err (or any error in its chain) is a
// DialError, returning it if so.
func AsDialError(err error) (*DialError, bool) {
	var de *DialError
	ok := errors.As(err, &de)
	return de, ok
}

// dialTimeout bounds both the TCP connect and the TLS handshake. No network
// call in this package blocks past it.
const dialTimeout = 10 * time.Second

// balancedSuites names the cipher suites offered under ProfileBalanced, in
// preference order. Names unknown to the local TLS library are skipped; if
// none resolve, the library default set is used instead.
var balancedSuites = []string{
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256",
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256",
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384",
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384",
	"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256",
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256",
	"TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA",
	"TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA",
	"TLS_RSA_WITH_AES_128_GCM_SHA256",
	"TLS_RSA_WITH_AES_256_GCM_SHA384",
}

// Negotiator dials mail endpoints and wraps them in TLS according to a
// fixed security profile. It performs no retries; retry policy belongs to
// the caller.
type Negotiator struct {
	profile Profile
	logger  zerolog.Logger
}

// NewNegotiator returns a Negotiator pinned to the given profile.
func NewNegotiator(profile Profile, logger zerolog.Logger) *Negotiator {
	return &Negotiator{profile: profile, logger: logger}
}

// Profile returns the profile this negotiator was constructed with.
func (n *Negotiator) Profile() Profile { return n.profile }

// TLSConfig builds the tls.Config for the negotiator's profile, verifying
// the given server name. If a profile's named suites are all unsupported by
// the local library, the library default set is used and the condition is
// logged; a cipher-config failure is not a connection failure.
func (n *Negotiator) TLSConfig(serverName string) *tls.Config {
	cfg := &tls.Config{ServerName: serverName}

	switch n.profile {
	case ProfileStrict:
		cfg.MinVersion = tls.VersionTLS12
	case ProfileBalanced:
		cfg.MinVersion = tls.VersionTLS12
		cfg.CipherSuites = resolveSuites(balancedSuites)
		if cfg.CipherSuites == nil {
			n.logger.Warn().
				Str("profile", string(n.profile)).
				Msg("no requested cipher suite supported, using library defaults")
		}
	case ProfileLegacy:
		cfg.MinVersion = tls.VersionTLS10
		cfg.CipherSuites = allSuites()
	}

	return cfg
}

// Negotiate establishes an encrypted session to host:port. Failures are
// returned as *DialError with the stage they occurred at: DNS resolution,
// TCP refusal, timeout, or TLS handshake.
func (n *Negotiator) Negotiate(ctx context.Context, host string, port int) (*tls.Conn, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	dialer := &net.Dialer{Timeout: dialTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &DialError{Kind: classifyNetErr(err), Addr: addr, Err: err}
	}

	conn := tls.Client(rawConn, n.TLSConfig(host))

	hsCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := conn.HandshakeContext(hsCtx); err != nil {
		rawConn.Close()
		kind := KindHandshake
		if isTimeout(err) {
			kind = KindTimeout
		}
		return nil, &DialError{Kind: kind, Addr: addr, Err: err}
	}

	state := conn.ConnectionState()
	n.logger.Debug().
		Str("addr", addr).
		Str("profile", string(n.profile)).
		Str("version", tls.VersionName(state.Version)).
		Str("cipher", tls.CipherSuiteName(state.CipherSuite)).
		Msg("TLS session established")

	return conn, nil
}

// classifyNetErr maps a pre-handshake dial failure onto a DialErrorKind.
func classifyNetErr(err error) DialErrorKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindDNS
	}
	if isTimeout(err) {
		return KindTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindRefused
	}
	return KindRefused
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// resolveSuites maps suite names to IDs, dropping names the local library
// does not implement. Returns nil when nothing resolves.
func resolveSuites(names []string) []uint16 {
	byName := make(map[string]uint16)
	for _, s := range tls.CipherSuites() {
		byName[s.Name] = s.ID
	}
	for _, s := range tls.InsecureCipherSuites() {
		byName[s.Name] = s.ID
	}

	var ids []uint16
	for _, name := range names {
		if id, ok := byName[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// allSuites returns every suite the library implements, secure or not.
func allSuites() []uint16 {
	var ids []uint16
	for _, s := range tls.CipherSuites() {
		ids = append(ids, s.ID)
	}
	for _, s := range tls.InsecureCipherSuites() {
		ids = append(ids, s.ID)
	}
	return ids
}
