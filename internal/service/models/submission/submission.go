package submission

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("submission not found")

// Status is the lifecycle state of a form submission.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusQueued     Status = "queued"
	StatusRejected   Status = "rejected"
	StatusFailed     Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

// Submission is the journal record of one registration attempt cycle.
type Submission struct {
	ID            string    `json:"id"`
	CI            string    `json:"ci"`
	Transport     string    `json:"transport"`
	Status        Status    `json:"status"`
	Message       string    `json:"message"`
	TransaccionID string    `json:"transaccionId,omitempty"`
	Attempts      int       `json:"attempts"`
	Replays       int       `json:"replays"`
	LastError     string    `json:"lastError,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
