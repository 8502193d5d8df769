// Package notifier announces flag lifecycle changes to external channels.
// Notifications are sent after the corresponding mutation has committed;
// a delivery failure never undoes the mutation.
package notifier

import (
	"context"
	"fmt"

	"github.com/skuld-io/skuld/internal/flag"
)

// ChangeKind identifies which lifecycle event happened to a flag.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeUpdated  ChangeKind = "updated"
	ChangeEnabled  ChangeKind = "enabled"
	ChangeDisabled ChangeKind = "disabled"
	ChangeDeleted  ChangeKind = "deleted"
)

// Kinds lists every valid change kind, in lifecycle order.
func Kinds() []ChangeKind {
	return []ChangeKind{
		ChangeCreated,
		ChangeUpdated,
		ChangeEnabled,
		ChangeDisabled,
		ChangeDeleted,
	}
}

// ParseKind validates a change kind name, e.g. from configuration.
func ParseKind(s string) (ChangeKind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown change kind %q", s)
}

// Notifier is implemented by every notification channel.
type Notifier interface {
	// Notify announces a change to the given flag. Implementations return
	// *errs.NotifierError on delivery failure so callers can tell a failed
	// announcement apart from a failed mutation.
	Notify(ctx context.Context, kind ChangeKind, rec *flag.Record) error
}

// Noop discards every notification. Used when no channel is configured.
type Noop struct{}

// Notify implements Notifier.
func (Noop) Notify(context.Context, ChangeKind, *flag.Record) error {
	return nil
}
