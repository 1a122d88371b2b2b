// Package events fans crawl progress out to any number of subscribers.
package events

import (
	"encoding/json"
	"time"
)

// Event types.
const (
	TypeState    = "state"
	TypeProgress = "progress"
	TypeRow      = "row"
)

// Event is one progress notification of a crawl run.
type Event struct {
	Type    string    `json:"type"`
	RunID   string    `json:"run_id,omitempty"`
	State   string    `json:"state,omitempty"`
	Page    int       `json:"page,omitempty"`
	Lead    string    `json:"lead,omitempty"`
	Role    int       `json:"role,omitempty"`
	Roles   int       `json:"roles,omitempty"`
	Rows    int       `json:"rows"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// JSON encodes the event, stamping At if it is unset.
func (e Event) JSON() string {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b, _ := json.Marshal(e)
	return string(b)
}
