// Package events publishes per-company sync outcomes so downstream systems
// (dashboards, the sales team's notifications) can follow a batch run.
package events

import (
	"context"
	"sync"
	"time"
)

// SyncOutcome is the event emitted once per processed company.
type SyncOutcome struct {
	RunID     string    `json:"run_id"`
	OrgNumber string    `json:"orgnr,omitempty"`
	RecordID  string    `json:"record_id"`
	Company   string    `json:"company"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Degraded  bool      `json:"degraded"`
	DryRun    bool      `json:"dry_run"`
	Written   int       `json:"fields_written"`
	Failed    int       `json:"fields_failed"`
	Pipeline  string    `json:"pipeline"`
	Primary   string    `json:"primary_recommendation,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher delivers outcomes. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, outcome SyncOutcome) error
	Close() error
}

// Nop discards every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, SyncOutcome) error { return nil }
func (Nop) Close() error                               { return nil }

// Recorder keeps published events in memory, for tests and previews.
type Recorder struct {
	mu     sync.Mutex
	events []SyncOutcome
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, outcome SyncOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, outcome)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []SyncOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SyncOutcome, len(r.events))
	copy(out, r.events)
	return out
}
