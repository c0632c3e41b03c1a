// Package sync orchestrates one offline synchronization pass: negotiate,
// authenticate, enumerate, diff against the seen-set ledger, then fetch,
// decompose, persist, and record each undelivered message in order.
package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/cheaterdxd/mail-client/internal/archive"
	"github.com/cheaterdxd/mail-client/internal/decompose"
	"github.com/cheaterdxd/mail-client/internal/ledger"
	"github.com/cheaterdxd/mail-client/internal/mailbox"
	"github.com/cheaterdxd/mail-client/internal/notify"
)

// State tracks where in a sync pass the orchestrator currently is.
type State int

const (
	StateIdle State = iota
	StateNegotiating
	StateAuthenticating
	StateEnumerating
	StatePerMessage
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateAuthenticating:
		return "authenticating"
	case StateEnumerating:
		return "enumerating"
	case StatePerMessage:
		return "per-message"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Opener produces an authenticated-ready mailbox session. In production it
// is a *mailbox.Opener; tests substitute fakes.
type Opener interface {
	Open(ctx context.Context) (mailbox.Mailbox, error)
}

// Syncer runs sync passes against one archive root. Passes are strictly
// sequential; concurrent triggers (a monitor tick racing a manual fetch)
// serialize on the run lock so two writers never race on the ledger or the
// archive directory.
type Syncer struct {
	opener   Opener
	username string
	password string
	ledger   *ledger.Ledger
	archive  *archive.Writer
	notifier notify.Notifier
	logger   zerolog.Logger

	runMu gosync.Mutex

	stateMu  gosync.Mutex
	state    State
	lastSync time.Time
}

// New assembles a Syncer from its collaborators. The notifier may be
// notify.Nop for headless runs.
func New(
	opener Opener,
	username, password string,
	led *ledger.Ledger,
	w *archive.Writer,
	notifier notify.Notifier,
	logger zerolog.Logger,
) *Syncer {
	return &Syncer{
		opener:   opener,
		username: username,
		password: password,
		ledger:   led,
		archive:  w,
		notifier: notifier,
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the orchestrator's current state.
func (s *Syncer) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// LastSync returns when the last successful pass completed.
func (s *Syncer) LastSync() time.Time {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastSync
}

func (s *Syncer) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	if st == StateCompleted {
		s.lastSync = time.Now()
	}
	s.stateMu.Unlock()
}

// SyncOnce runs one full pass and returns the number of messages newly
// archived. Connection, authentication, and enumeration failures abort the
// pass; a failure on a single message is logged and skipped so one bad
// message cannot block the rest of the mailbox.
func (s *Syncer) SyncOnce(ctx context.Context) (int, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	count, err := s.run(ctx)
	if err != nil {
		s.setState(StateFailed)
		return count, err
	}
	s.setState(StateCompleted)
	return count, nil
}

func (s *Syncer) run(ctx context.Context) (int, error) {
	s.setState(StateNegotiating)
	box, err := s.opener.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer box.Close()

	s.setState(StateAuthenticating)
	if err := box.Login(s.username, s.password); err != nil {
		return 0, err
	}

	s.setState(StateEnumerating)
	uids, err := box.ListMessages()
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int("on_server", len(uids)).Msg("mailbox enumerated")

	s.setState(StatePerMessage)
	count := 0
	for _, uid := range uids {
		if s.ledger.Contains(uid) {
			continue
		}

		raw, err := box.FetchRaw(uid)
		if err != nil {
			s.logger.Warn().Str("uid", uid).Err(err).Msg("fetch failed, skipping message")
			continue
		}

		msg := decompose.Decompose(raw)

		folder, err := s.archive.Persist(raw, msg, uid)
		if err != nil {
			s.logger.Warn().Str("uid", uid).Err(err).Msg("persist failed, skipping message")
			continue
		}

		// Recording strictly follows the completed folder write; a crash
		// between the two leaves the UID eligible for an idempotent retry.
		if err := s.ledger.Record(uid); err != nil {
			s.logger.Error().Str("uid", uid).Err(err).
				Msg("ledger append failed, message will be re-archived next pass")
			continue
		}

		count++
		s.logger.Info().
			Str("uid", uid).
			Str("from", msg.From).
			Str("subject", msg.Subject).
			Str("folder", folder).
			Msg("message archived")

		s.announce(msg)
	}

	s.logger.Info().Int("archived", count).Msg("sync pass complete")
	return count, nil
}

// announce fires the desktop notification for one archived message.
// Failures are logged and swallowed; they never share the persistence
// error channel.
func (s *Syncer) announce(msg decompose.Message) {
	title := fmt.Sprintf("New mail from %s", truncate(msg.From, 30))
	if err := s.notifier.Notify(title, truncate(msg.Subject, 100)); err != nil {
		s.logger.Debug().Err(err).Msg("desktop notification failed")
	}
}

// Monitor repeatedly runs sync passes every interval until ctx is
// cancelled. Cancellation is honored between passes; a pass in flight runs
// to completion so the ledger stays consistent with the archive. Pass
// failures are logged and the loop continues.
func (s *Syncer) Monitor(ctx context.Context, interval time.Duration) error {
	s.logger.Info().Dur("interval", interval).Msg("monitor started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if count, err := s.SyncOnce(ctx); err != nil {
			s.logger.Error().Err(err).Msg("sync pass failed")
		} else if count == 0 {
			s.logger.Info().Msg("no new mail")
		}

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("monitor stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// truncate shortens s to max runes, never splitting a multibyte character.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
