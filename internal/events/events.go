package events

import (
	"encoding/json"
	"time"
)

// Event types published during a run.
const (
	RunStarted     = "run.started"
	RunFinished    = "run.finished"
	SourceStarted  = "source.started"
	SourceFinished = "source.finished"
	NewPostings    = "postings.new"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// MakeEvent renders an event envelope as one JSON line. runID goes into
// request_id so SSE clients can group events per run.
func MakeEvent(runID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: runID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// Publisher receives rendered events. *Hub implements it; nil-safe callers
// use Emit.
type Publisher interface {
	Publish(evt string)
}

// Emit publishes a v1 event when p is non-nil.
func Emit(p Publisher, runID, typ string, data any) {
	if p == nil {
		return
	}
	p.Publish(MakeEvent(runID, typ, 1, data))
}
