package interceptor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// AuditEventType categorises a security-relevant event (spec §E.2
// "Audit logging of security-relevant events (login, user create/update/
// delete, access denied)"), grounded directly on
// bundoc/security/audit.go's EventType constants.
type AuditEventType string

const (
	AuditLoginSuccess AuditEventType = "login_success"
	AuditLoginFailure AuditEventType = "login_failure"
	AuditWrite        AuditEventType = "write"
	AuditAccessDenied AuditEventType = "access_denied"
)

// AuditEvent is a single loggable security event.
type AuditEvent struct {
	Timestamp time.Time              `json:"ts"`
	Type      AuditEventType         `json:"type"`
	Key       string                 `json:"key,omitempty"`
	User      string                 `json:"user,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// AuditSink appends audit events as JSON lines to a file, grounded on
// bundoc/security/audit.go's AuditLogger (same append-only JSON-lines
// shape, same "fall back to stderr if the write itself fails" discipline
// for a log whose own failure must never be silent).
//
// This repo keeps AuditSink as a minimal in-process consumer of the
// interceptor chain (spec.md lists the full audit log service as an
// out-of-core collaborator; this is its write-side hook, not a
// reimplementation of that service).
type AuditSink struct {
	file *os.File
	mu   sync.Mutex
}

// NewAuditSink opens (creating if absent) path for append-only audit
// writes.
func NewAuditSink(path string) (*AuditSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("interceptor: open audit sink: %w", err)
	}
	return &AuditSink{file: f}, nil
}

// DiscardAuditSink returns a sink that records nothing, for hosts that
// haven't configured audit logging.
func DiscardAuditSink() *AuditSink { return &AuditSink{} }

// Log appends one audit event. Failures to write the log itself are
// reported to stderr rather than swallowed, since a silently-failing
// audit log defeats its own purpose.
func (a *AuditSink) Log(typ AuditEventType, key, user string, details map[string]interface{}) {
	if a.file == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	event := AuditEvent{Timestamp: time.Now().UTC(), Type: typ, Key: key, User: user, Details: details}
	if err := json.NewEncoder(a.file).Encode(event); err != nil {
		fmt.Fprintf(os.Stderr, "audit sink: write failed: %v\n", err)
	}
}

// Close closes the underlying file.
func (a *AuditSink) Close() error {
	if a.file == nil {
		return nil
	}
	return a.file.Close()
}

// WriteStage returns a PostWrite that logs every committed write as an
// audit event.
func (a *AuditSink) WriteStage(user string) PostWrite {
	return func(key string, value interface{}) {
		a.Log(AuditWrite, key, user, nil)
	}
}

// DeniedStage wraps a PreWrite or PreRead failure path: call this from a
// host's own error handling when a *ErrDenied surfaces, so denials land
// in the audit trail alongside successful writes.
func (a *AuditSink) DeniedStage(user string, err *ErrDenied) {
	a.Log(AuditAccessDenied, err.Key, user, map[string]interface{}{"op": err.Op})
}
