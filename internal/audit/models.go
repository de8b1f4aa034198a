// Package audit records who looked at or pulled which bureau data. Events are
// buffered in memory and drained to a Sink by a background worker so request
// paths never block on the audit backend.
package audit

import (
	"time"

	"creditlens/internal/bureau"
)

// Action names an audited bureau access.
type Action string

const (
	ActionBureauViewed      Action = "bureau.viewed"
	ActionBureauPulled      Action = "bureau.pulled"
	ActionBureauFetchFailed Action = "bureau.fetch_failed"
)

// Event is one audited access. ID and Timestamp are filled by the Publisher
// when empty.
type Event struct {
	ID        string      `json:"id"`
	Action    Action      `json:"action"`
	ReportID  string      `json:"report_id"`
	Bureau    bureau.Code `json:"bureau"`
	RequestID string      `json:"request_id,omitempty"`
	// Reason carries the failure category for fetch_failed events.
	Reason    string    `json:"reason,omitempty"`
	Sandbox   bool      `json:"sandbox,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
