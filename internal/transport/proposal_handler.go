package transport

import (
	"errors"
	"net/http"

	"swapboard/internal/domain"
	"swapboard/internal/middleware"
	"swapboard/internal/repository"
	"swapboard/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateProposalRequest represents the proposal submission payload
type CreateProposalRequest struct {
	AdSenderID   string  `json:"ad_sender_id" validate:"required,uuid"`
	AdReceiverID string  `json:"ad_receiver_id" validate:"required,uuid"`
	Comment      *string `json:"comment,omitempty"`
}

// RespondProposalRequest represents the accept/reject payload
type RespondProposalRequest struct {
	Status string `json:"status" validate:"required"`
}

// ProposalDetailResponse is the proposal detail with the requester's
// view of it
type ProposalDetailResponse struct {
	Proposal   *domain.ExchangeProposal `json:"proposal"`
	AdSender   *domain.Ad               `json:"ad_sender"`
	AdReceiver *domain.Ad               `json:"ad_receiver"`
	CanRespond bool                     `json:"can_respond"`
}

// ProposalHandler handles HTTP requests for exchange proposals
type ProposalHandler struct {
	proposalService service.ProposalService
	logger          *zap.Logger
}

// NewProposalHandler creates a new ProposalHandler
func NewProposalHandler(proposalService service.ProposalService, logger *zap.Logger) *ProposalHandler {
	return &ProposalHandler{
		proposalService: proposalService,
		logger:          logger,
	}
}

// RegisterRoutes registers all proposal routes. Every proposal operation
// requires an authenticated requester.
func (h *ProposalHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/proposals", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/respond", h.Respond)
	})
}

// Create handles proposal submission
func (h *ProposalHandler) Create(w http.ResponseWriter, r *http.Request) {
	reqID, ok := requesterID(w, r)
	if !ok {
		return
	}

	var req CreateProposalRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	senderAdID, err := uuid.Parse(req.AdSenderID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sender ad ID")
		return
	}
	receiverAdID, err := uuid.Parse(req.AdReceiverID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid receiver ad ID")
		return
	}

	proposal, err := h.proposalService.Create(r.Context(), reqID, senderAdID, receiverAdID, req.Comment)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			middleware.RespondWithFieldErrors(w, vErr.Fields)
			return
		}
		h.logger.Error("Failed to create proposal", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create proposal")
		return
	}

	h.logger.Info("Proposal created",
		zap.String("proposal_id", proposal.ID.String()),
		zap.String("user_id", reqID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, proposal)
}

// List handles the requester's proposal listing with optional filters
func (h *ProposalHandler) List(w http.ResponseWriter, r *http.Request) {
	reqID, ok := requesterID(w, r)
	if !ok {
		return
	}

	page := pageParam(r)
	proposals, total, err := h.proposalService.ListForUser(
		r.Context(),
		reqID,
		r.URL.Query().Get("status"),
		r.URL.Query().Get("sender"),
		r.URL.Query().Get("receiver"),
		page,
	)
	if err != nil {
		h.logger.Error("Failed to list proposals", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list proposals")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, PagedResponse{
		Items:    proposals,
		Total:    total,
		Page:     page,
		PageSize: service.PageSize,
	})
}

// Get handles proposal detail, visible only to the two owners involved
func (h *ProposalHandler) Get(w http.ResponseWriter, r *http.Request) {
	reqID, ok := requesterID(w, r)
	if !ok {
		return
	}

	proposalID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid proposal ID")
		return
	}

	detail, err := h.proposalService.GetByID(r.Context(), reqID, proposalID)
	if err != nil {
		h.respondProposalError(w, err, "Failed to get proposal")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProposalDetailResponse{
		Proposal:   detail.Proposal,
		AdSender:   detail.AdSender,
		AdReceiver: detail.AdReceiver,
		CanRespond: detail.CanRespond,
	})
}

// Respond handles accepting or rejecting a proposal
func (h *ProposalHandler) Respond(w http.ResponseWriter, r *http.Request) {
	reqID, ok := requesterID(w, r)
	if !ok {
		return
	}

	proposalID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid proposal ID")
		return
	}

	var req RespondProposalRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	proposal, err := h.proposalService.Respond(r.Context(), reqID, proposalID, req.Status)
	if err != nil {
		h.respondProposalError(w, err, "Failed to respond to proposal")
		return
	}

	h.logger.Info("Proposal responded",
		zap.String("proposal_id", proposal.ID.String()),
		zap.String("status", string(proposal.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, proposal)
}

// respondProposalError maps proposal service errors to HTTP responses
func (h *ProposalHandler) respondProposalError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case err == repository.ErrProposalNotFound:
		middleware.RespondWithError(w, http.StatusNotFound, "proposal not found")
	case err == service.ErrForbidden:
		middleware.RespondWithError(w, http.StatusForbidden, "only the receiving ad's owner may do this")
	case err == service.ErrInvalidStatus:
		middleware.RespondWithError(w, http.StatusBadRequest, "status must be accepted or rejected")
	default:
		h.logger.Error(logMsg, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
