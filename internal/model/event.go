package model

type EventType string

const (
	EventProofSubmitted      EventType = "proof.submitted"
	EventProofDecided        EventType = "proof.decided"
	EventProofConfirmed      EventType = "proof.confirmed"
	EventWithdrawalRequested EventType = "withdrawal.requested"
	EventWithdrawalSettled   EventType = "withdrawal.settled"
)

// Event is a notification addressed to a single user.
type Event struct {
	Type      EventType      `json:"type"`
	Recipient string         `json:"-"`
	Payload   map[string]any `json:"payload,omitempty"`
}
