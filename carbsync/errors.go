package carbsync

import (
	"errors"
	"fmt"
)

// ErrConflict surfaces when the server copy changed since the last known
// state. No automatic merge is attempted; the caller should reload.
var ErrConflict = errors.New("server copy changed since last known state")

// ErrPeerUnavailable means the companion device is not reachable. There
// is no retry queue; the send is simply not attempted.
var ErrPeerUnavailable = errors.New("peer session unavailable")

// DecodeError marks a fetched record that cannot be turned into an
// entity. Fetches skip these records; they are never fatal to a batch.
type DecodeError struct {
	RecordID string
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("record %s: %s", e.RecordID, e.Reason)
}

// TransportError wraps a failed cloud request (network, auth, server
// error). Mirror state is left untouched when one surfaces.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }
