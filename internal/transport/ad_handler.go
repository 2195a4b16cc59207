package transport

import (
	"errors"
	"net/http"
	"strconv"

	"swapboard/internal/middleware"
	"swapboard/internal/repository"
	"swapboard/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdRequest represents the ad create/update payload
type AdRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required"`
	ImageURL    *string `json:"image_url,omitempty"`
	CategoryID  *string `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Condition   string  `json:"condition" validate:"required"`
}

// CategoryRequest represents the category creation payload
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// PagedResponse is the envelope for paginated listings
type PagedResponse struct {
	Items    interface{} `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// AdHandler handles HTTP requests for ads and categories
type AdHandler struct {
	adService service.AdService
	logger    *zap.Logger
}

// NewAdHandler creates a new AdHandler
func NewAdHandler(adService service.AdService, logger *zap.Logger) *AdHandler {
	return &AdHandler{
		adService: adService,
		logger:    logger,
	}
}

// RegisterRoutes registers all ad and category routes
func (h *AdHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/ads", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Deactivate)
		})
	})

	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(adminMiddleware)
			r.Post("/", h.CreateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})
	})
}

func (h *AdHandler) adInput(req AdRequest) (service.AdInput, error) {
	input := service.AdInput{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Condition:   req.Condition,
	}

	if req.CategoryID != nil && *req.CategoryID != "" {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return input, err
		}
		input.CategoryID = &categoryID
	}

	return input, nil
}

// List handles the public ad listing with optional search filters
func (h *AdHandler) List(w http.ResponseWriter, r *http.Request) {
	q := service.AdListQuery{
		Query:     r.URL.Query().Get("q"),
		Category:  r.URL.Query().Get("category"),
		Condition: r.URL.Query().Get("condition"),
		Page:      pageParam(r),
	}

	ads, total, err := h.adService.List(r.Context(), q)
	if err != nil {
		if err == repository.ErrCategoryNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "category not found")
			return
		}
		h.logger.Error("Failed to list ads", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list ads")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, PagedResponse{
		Items:    ads,
		Total:    total,
		Page:     q.Page,
		PageSize: service.PageSize,
	})
}

// Get handles public ad detail
func (h *AdHandler) Get(w http.ResponseWriter, r *http.Request) {
	adID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid ad ID")
		return
	}

	ad, err := h.adService.GetByID(r.Context(), adID)
	if err != nil {
		if err == repository.ErrAdNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "ad not found")
			return
		}
		h.logger.Error("Failed to get ad", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get ad")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ad)
}

// Create handles ad creation for the authenticated user
func (h *AdHandler) Create(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := requesterID(w, r)
	if !ok {
		return
	}

	var req AdRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := h.adInput(req)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	ad, err := h.adService.Create(r.Context(), requesterID, input)
	if err != nil {
		h.respondAdError(w, err, "Failed to create ad")
		return
	}

	h.logger.Info("Ad created",
		zap.String("ad_id", ad.ID.String()),
		zap.String("user_id", requesterID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, ad)
}

// Update handles editing an ad. Only the owner may edit.
func (h *AdHandler) Update(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := requesterID(w, r)
	if !ok {
		return
	}

	adID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid ad ID")
		return
	}

	var req AdRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := h.adInput(req)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	ad, err := h.adService.Update(r.Context(), requesterID, adID, input)
	if err != nil {
		h.respondAdError(w, err, "Failed to update ad")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ad)
}

// Deactivate handles soft-deleting an ad. Only the owner may do this.
func (h *AdHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := requesterID(w, r)
	if !ok {
		return
	}

	adID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid ad ID")
		return
	}

	if err := h.adService.Deactivate(r.Context(), requesterID, adID); err != nil {
		h.respondAdError(w, err, "Failed to deactivate ad")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "ad deactivated"})
}

// ListCategories handles the public category listing
func (h *AdHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.adService.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// CreateCategory handles category creation (admin only)
func (h *AdHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := h.adService.CreateCategory(r.Context(), req.Name)
	if err != nil {
		if err == repository.ErrCategoryAlreadyExists {
			middleware.RespondWithError(w, http.StatusConflict, "category with this name already exists")
			return
		}
		h.logger.Error("Failed to create category", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// DeleteCategory handles category removal (admin only). Ads referencing
// the category keep their rows with the reference cleared.
func (h *AdHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	if err := h.adService.DeleteCategory(r.Context(), categoryID); err != nil {
		if err == repository.ErrCategoryNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "category not found")
			return
		}
		h.logger.Error("Failed to delete category", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

// respondAdError maps ad service errors to HTTP responses
func (h *AdHandler) respondAdError(w http.ResponseWriter, err error, logMsg string) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		middleware.RespondWithFieldErrors(w, vErr.Fields)
	case err == repository.ErrAdNotFound:
		middleware.RespondWithError(w, http.StatusNotFound, "ad not found")
	case err == repository.ErrCategoryNotFound:
		middleware.RespondWithError(w, http.StatusNotFound, "category not found")
	case err == service.ErrForbidden:
		middleware.RespondWithError(w, http.StatusForbidden, "you do not own this ad")
	default:
		h.logger.Error(logMsg, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pageParam reads the page query parameter, defaulting to 1
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// requesterID pulls the authenticated user ID out of the request
// context, responding 401 when it is missing or malformed.
func requesterID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}

	return userID, true
}
