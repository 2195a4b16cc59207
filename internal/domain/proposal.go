package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProposalStatus is the disposition of an exchange proposal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// ParseProposalStatus reports whether s names a known status.
func ParseProposalStatus(s string) (ProposalStatus, bool) {
	switch ProposalStatus(s) {
	case ProposalPending, ProposalAccepted, ProposalRejected:
		return ProposalStatus(s), true
	}
	return "", false
}

// IsTerminal reports whether the status admits no further transitions.
func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalAccepted || s == ProposalRejected
}

// ExchangeProposal is a directed offer to exchange the sender ad for the
// receiver ad. At most one proposal exists per (sender, receiver) pair.
type ExchangeProposal struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	AdSenderID   uuid.UUID      `json:"ad_sender_id" db:"ad_sender_id"`
	AdReceiverID uuid.UUID      `json:"ad_receiver_id" db:"ad_receiver_id"`
	Comment      *string        `json:"comment,omitempty" db:"comment"`
	Status       ProposalStatus `json:"status" db:"status"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}
