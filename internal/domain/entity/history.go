package entity

import "time"

// ValidationStep is one append-only entry in a claim's history.
// The first entry of any persisted claim is always the submission.
type ValidationStep struct {
	ID        int64         `json:"id,omitempty"`
	ClaimID   string        `json:"claim_id"`
	Timestamp time.Time     `json:"timestamp"`
	ActorID   string        `json:"actor_id"`
	Action    HistoryAction `json:"action"`
	Comment   string        `json:"comment,omitempty"`
}
