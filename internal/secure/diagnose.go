package secure

import (
	"context"

	"github.com/rs/zerolog"
)

// ProbeResult records the outcome of one profile probe against an endpoint.
type ProbeResult struct {
	Profile Profile
	Err     error
}

// Diagnose probes host:port with every profile in decreasing strictness and
// reports which ones complete a handshake. It is a connectivity aid for
// picking a workable security_profile against an unfamiliar server.
func Diagnose(ctx context.Context, host string, port int, logger zerolog.Logger) []ProbeResult {
	profiles := []Profile{ProfileStrict, ProfileBalanced, ProfileLegacy}

	results := make([]ProbeResult, 0, len(profiles))
	for _, p := range profiles {
		n := NewNegotiator(p, logger)
		conn, err := n.Negotiate(ctx, host, port)
		if err == nil {
			conn.Close()
		}
		results = append(results, ProbeResult{Profile: p, Err: err})

		ev := logger.Info()
		if err != nil {
			ev = logger.Warn().Err(err)
		}
		ev.Str("profile", string(p)).Msg("profile probe")
	}
	return results
}
