package tracker

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind distinguishes sync notices.
type NotificationKind string

const (
	NoteSyncing   NotificationKind = "syncing"
	NoteSynced    NotificationKind = "synced"
	NoteSyncError NotificationKind = "sync-error"
)

// Notification severities.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityError   = "error"
)

// Notification is a (severity, message, retryable) tuple handed to the
// presentation layer. Persistent notifications stay until dismissed;
// transient ones are dropped once read.
type Notification struct {
	ID         string           `json:"id"`
	Kind       NotificationKind `json:"kind"`
	Severity   string           `json:"severity"`
	Message    string           `json:"message"`
	Retryable  bool             `json:"retryable"`
	Persistent bool             `json:"persistent"`
	CreatedAt  time.Time        `json:"createdAt"`
}

const noteBuffer = 20

func (e *Engine) pushNoteLocked(note Notification) {
	note.ID = uuid.NewString()
	note.CreatedAt = time.Now()
	e.notes = append(e.notes, note)
	if len(e.notes) > noteBuffer {
		e.notes = e.notes[len(e.notes)-noteBuffer:]
	}
}

// Notifications returns pending notifications. Transient entries are
// consumed by the read; persistent ones remain until Dismiss.
func (e *Engine) Notifications() []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := append([]Notification(nil), e.notes...)
	kept := e.notes[:0]
	for _, n := range e.notes {
		if n.Persistent {
			kept = append(kept, n)
		}
	}
	e.notes = kept
	return out
}

// Dismiss removes a persistent notification by id.
func (e *Engine) Dismiss(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.notes[:0]
	for _, n := range e.notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	e.notes = kept
}
