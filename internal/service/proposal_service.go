package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"swapboard/internal/domain"
	"swapboard/internal/repository"

	"github.com/google/uuid"
)

var (
	// ErrForbidden is returned when the requester is not allowed to act
	// on the entity.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidStatus is returned when a proposal response names a
	// status outside {accepted, rejected}, or would re-transition a
	// terminal proposal to a different status. The proposal is left
	// unchanged.
	ErrInvalidStatus = errors.New("invalid proposal status")

	// ErrTransactionFailed marks a failure inside the atomic accept
	// sequence. All partial writes were rolled back; the proposal
	// remains in its prior state.
	ErrTransactionFailed = errors.New("transaction failed")
)

// Validation error codes for proposal creation. All failed preconditions
// are collected and surfaced together.
const (
	CodeInvalidSender     = "invalid_sender"
	CodeInvalidReceiver   = "invalid_receiver"
	CodeSelfExchange      = "self_exchange_not_allowed"
	CodeDuplicateProposal = "duplicate_proposal"
)

// FieldError describes one failed precondition of a proposal submission.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError aggregates every failed precondition so the caller can
// redisplay all of them at once. No state is mutated when it is returned.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, code, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Code: code, Message: message})
}

// ProposalDetail is a proposal together with the requester's view of it.
type ProposalDetail struct {
	Proposal   *domain.ExchangeProposal
	AdSender   *domain.Ad
	AdReceiver *domain.Ad
	CanRespond bool
}

// ProposalService drives the exchange proposal lifecycle: creation
// preconditions, the accept/reject transition with its atomic dual-ad
// deactivation, and ownership-scoped visibility.
type ProposalService interface {
	Create(ctx context.Context, requesterID, senderAdID, receiverAdID uuid.UUID, comment *string) (*domain.ExchangeProposal, error)
	Respond(ctx context.Context, requesterID, proposalID uuid.UUID, newStatus string) (*domain.ExchangeProposal, error)
	GetByID(ctx context.Context, requesterID, proposalID uuid.UUID) (*ProposalDetail, error)
	ListForUser(ctx context.Context, requesterID uuid.UUID, statusFilter, senderUsername, receiverUsername string, page int) ([]*domain.ExchangeProposal, int, error)
}

type proposalService struct {
	proposalRepo repository.ProposalRepository
	adRepo       repository.AdRepository
}

// NewProposalService creates a new instance of ProposalService
func NewProposalService(proposalRepo repository.ProposalRepository, adRepo repository.AdRepository) ProposalService {
	return &proposalService{
		proposalRepo: proposalRepo,
		adRepo:       adRepo,
	}
}

// Create validates and persists a new pending proposal. Every failed
// precondition is reported, not just the first. No ad state changes at
// creation time.
func (s *proposalService) Create(ctx context.Context, requesterID, senderAdID, receiverAdID uuid.UUID, comment *string) (*domain.ExchangeProposal, error) {
	vErr := &ValidationError{}

	senderAd, err := s.adRepo.FindByID(ctx, senderAdID)
	switch {
	case err == repository.ErrAdNotFound:
		vErr.add("ad_sender", CodeInvalidSender, "offered ad does not exist")
	case err != nil:
		return nil, fmt.Errorf("failed to load sender ad: %w", err)
	case senderAd.UserID != requesterID:
		vErr.add("ad_sender", CodeInvalidSender, "you can only offer your own ad")
	case !senderAd.IsActive:
		vErr.add("ad_sender", CodeInvalidSender, "cannot offer an inactive ad")
	}

	receiverAd, err := s.adRepo.FindByID(ctx, receiverAdID)
	switch {
	case err == repository.ErrAdNotFound:
		vErr.add("ad_receiver", CodeInvalidReceiver, "requested ad does not exist")
	case err != nil:
		return nil, fmt.Errorf("failed to load receiver ad: %w", err)
	case receiverAd.UserID == requesterID:
		vErr.add("ad_receiver", CodeInvalidReceiver, "you cannot request your own ad")
	case !receiverAd.IsActive:
		vErr.add("ad_receiver", CodeInvalidReceiver, "cannot request an inactive ad")
	}

	// Enforced independently of the ownership checks above.
	if senderAd != nil && receiverAd != nil && senderAd.UserID == receiverAd.UserID {
		vErr.add("ad_receiver", CodeSelfExchange, "cannot propose an exchange with yourself")
	}

	exists, err := s.proposalRepo.ExistsForPair(ctx, senderAdID, receiverAdID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate proposal: %w", err)
	}
	if exists {
		vErr.add("ad_receiver", CodeDuplicateProposal, "a proposal between these ads already exists")
	}

	if len(vErr.Fields) > 0 {
		return nil, vErr
	}

	proposal := &domain.ExchangeProposal{
		ID:           uuid.New(),
		AdSenderID:   senderAdID,
		AdReceiverID: receiverAdID,
		Comment:      comment,
		Status:       domain.ProposalPending,
		CreatedAt:    time.Now(),
	}

	if err := s.proposalRepo.Create(ctx, proposal); err != nil {
		// The unique index can still fire under a concurrent submit;
		// report it the same way as the pre-check.
		if err == repository.ErrDuplicateProposal {
			dup := &ValidationError{}
			dup.add("ad_receiver", CodeDuplicateProposal, "a proposal between these ads already exists")
			return nil, dup
		}
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}

	return proposal, nil
}

// Respond transitions a pending proposal to accepted or rejected. Only
// the owner of the receiver ad may respond. Accepting deactivates both
// ads atomically with the status write; rejecting touches only the
// proposal. Re-submitting the status a terminal proposal already holds
// is an idempotent no-op; any other transition out of a terminal status
// is ErrInvalidStatus.
func (s *proposalService) Respond(ctx context.Context, requesterID, proposalID uuid.UUID, newStatus string) (*domain.ExchangeProposal, error) {
	status, ok := domain.ParseProposalStatus(newStatus)
	if !ok || !status.IsTerminal() {
		return nil, ErrInvalidStatus
	}

	proposal, err := s.proposalRepo.FindByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	receiverAd, err := s.adRepo.FindByID(ctx, proposal.AdReceiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receiver ad: %w", err)
	}
	if receiverAd.UserID != requesterID {
		return nil, ErrForbidden
	}

	if proposal.Status.IsTerminal() {
		if proposal.Status == status {
			return proposal, nil
		}
		return nil, ErrInvalidStatus
	}

	switch status {
	case domain.ProposalAccepted:
		err = s.proposalRepo.Accept(ctx, proposal.ID, proposal.AdSenderID, proposal.AdReceiverID)
	case domain.ProposalRejected:
		err = s.proposalRepo.Reject(ctx, proposal.ID)
	}

	if err != nil {
		// Lost a race against a concurrent respond; re-read and apply
		// the idempotence rule against the now-terminal status.
		if err == repository.ErrProposalNotPending {
			current, ferr := s.proposalRepo.FindByID(ctx, proposal.ID)
			if ferr != nil {
				return nil, ferr
			}
			if current.Status == status {
				return current, nil
			}
			return nil, ErrInvalidStatus
		}
		return nil, fmt.Errorf("%w: responding to proposal: %v", ErrTransactionFailed, err)
	}

	proposal.Status = status
	return proposal, nil
}

// GetByID retrieves a proposal visible to the requester. Visibility is
// limited to the owners of the two ads involved.
func (s *proposalService) GetByID(ctx context.Context, requesterID, proposalID uuid.UUID) (*ProposalDetail, error) {
	proposal, err := s.proposalRepo.FindByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	senderAd, err := s.adRepo.FindByID(ctx, proposal.AdSenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender ad: %w", err)
	}
	receiverAd, err := s.adRepo.FindByID(ctx, proposal.AdReceiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receiver ad: %w", err)
	}

	if requesterID != senderAd.UserID && requesterID != receiverAd.UserID {
		return nil, ErrForbidden
	}

	return &ProposalDetail{
		Proposal:   proposal,
		AdSender:   senderAd,
		AdReceiver: receiverAd,
		CanRespond: requesterID == receiverAd.UserID && proposal.Status == domain.ProposalPending,
	}, nil
}

// ListForUser retrieves the requester's proposals (as either side),
// newest first. statusFilter values outside the known enumeration match
// nothing, mirroring the unmatched-username behavior.
func (s *proposalService) ListForUser(ctx context.Context, requesterID uuid.UUID, statusFilter, senderUsername, receiverUsername string, page int) ([]*domain.ExchangeProposal, int, error) {
	if page < 1 {
		page = 1
	}

	filter := repository.ProposalFilter{
		SenderUsername:   senderUsername,
		ReceiverUsername: receiverUsername,
	}

	if statusFilter != "" {
		status, ok := domain.ParseProposalStatus(statusFilter)
		if !ok {
			return []*domain.ExchangeProposal{}, 0, nil
		}
		filter.Status = &status
	}

	return s.proposalRepo.ListForUser(ctx, requesterID, filter, page, PageSize)
}
