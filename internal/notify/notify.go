// Package notify delivers best-effort desktop notifications. Delivery
// failure is reported to the caller for logging but must never abort the
// operation that triggered it.
package notify

import "github.com/gen2brain/beeep"

// Notifier is the desktop notification sink consumed by the sync
// orchestrator after each successful archive.
type Notifier interface {
	Notify(title, message string) error
}

// Desktop sends notifications through the platform's notification service.
type Desktop struct{}

func (Desktop) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Nop discards notifications; used in headless and test runs.
type Nop struct{}

func (Nop) Notify(string, string) error { return nil }
