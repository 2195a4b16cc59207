package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"swapboard/internal/domain"
	"swapboard/internal/repository"

	"github.com/google/uuid"
)

// PageSize is the fixed page length for ad and proposal listings.
const PageSize = 10

// AdInput carries the caller-editable fields of an ad. Condition is the
// raw string from the request and is validated against the enumeration.
// CategoryID, when set, must reference an existing category.
type AdInput struct {
	Title       string
	Description string
	ImageURL    *string
	CategoryID  *uuid.UUID
	Condition   string
}

// AdListQuery narrows the public ad listing. Query is a case-insensitive
// substring match over title or description. Category is the raw id
// string; Condition is the raw condition string.
type AdListQuery struct {
	Query     string
	Category  string
	Condition string
	Page      int
}

// AdService handles ad lifecycle and the public listing
type AdService interface {
	Create(ctx context.Context, requesterID uuid.UUID, input AdInput) (*domain.Ad, error)
	Update(ctx context.Context, requesterID, adID uuid.UUID, input AdInput) (*domain.Ad, error)
	Deactivate(ctx context.Context, requesterID, adID uuid.UUID) error
	GetByID(ctx context.Context, adID uuid.UUID) (*domain.Ad, error)
	List(ctx context.Context, q AdListQuery) ([]*domain.Ad, int, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type adService struct {
	adRepo       repository.AdRepository
	categoryRepo repository.CategoryRepository
}

// NewAdService creates a new instance of AdService
func NewAdService(adRepo repository.AdRepository, categoryRepo repository.CategoryRepository) AdService {
	return &adService{
		adRepo:       adRepo,
		categoryRepo: categoryRepo,
	}
}

// validateInput checks the enumeration and reference fields of an ad
// submission. Image URLs are only checked for being well-formed; the
// target is never fetched or verified.
func (s *adService) validateInput(ctx context.Context, input AdInput) (domain.Condition, error) {
	condition, ok := domain.ParseCondition(input.Condition)
	if !ok {
		vErr := &ValidationError{}
		vErr.add("condition", "invalid_condition", "unknown condition value")
		return "", vErr
	}

	if input.ImageURL != nil && *input.ImageURL != "" {
		u, err := url.Parse(*input.ImageURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			vErr := &ValidationError{}
			vErr.add("image_url", "invalid_url", "image URL is not a valid URL")
			return "", vErr
		}
	}

	if input.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *input.CategoryID); err != nil {
			if err == repository.ErrCategoryNotFound {
				return "", err
			}
			return "", fmt.Errorf("failed to check category: %w", err)
		}
	}

	return condition, nil
}

// Create persists a new active ad owned by the requester
func (s *adService) Create(ctx context.Context, requesterID uuid.UUID, input AdInput) (*domain.Ad, error) {
	condition, err := s.validateInput(ctx, input)
	if err != nil {
		return nil, err
	}

	ad := &domain.Ad{
		ID:          uuid.New(),
		UserID:      requesterID,
		Title:       input.Title,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		CategoryID:  input.CategoryID,
		Condition:   condition,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}

	if err := s.adRepo.Create(ctx, ad); err != nil {
		return nil, fmt.Errorf("failed to create ad: %w", err)
	}

	return ad, nil
}

// Update rewrites an ad's editable fields. Only the owner may edit.
func (s *adService) Update(ctx context.Context, requesterID, adID uuid.UUID, input AdInput) (*domain.Ad, error) {
	ad, err := s.adRepo.FindByID(ctx, adID)
	if err != nil {
		return nil, err
	}

	if ad.UserID != requesterID {
		return nil, ErrForbidden
	}

	condition, err := s.validateInput(ctx, input)
	if err != nil {
		return nil, err
	}

	ad.Title = input.Title
	ad.Description = input.Description
	ad.ImageURL = input.ImageURL
	ad.CategoryID = input.CategoryID
	ad.Condition = condition

	if err := s.adRepo.Update(ctx, ad); err != nil {
		return nil, fmt.Errorf("failed to update ad: %w", err)
	}

	return ad, nil
}

// Deactivate soft-deletes an ad. Only the owner may do this. Existing
// proposals referencing the ad are left alone.
func (s *adService) Deactivate(ctx context.Context, requesterID, adID uuid.UUID) error {
	ad, err := s.adRepo.FindByID(ctx, adID)
	if err != nil {
		return err
	}

	if ad.UserID != requesterID {
		return ErrForbidden
	}

	return s.adRepo.Deactivate(ctx, adID)
}

// GetByID retrieves an ad by ID. Ad detail is public, active or not.
func (s *adService) GetByID(ctx context.Context, adID uuid.UUID) (*domain.Ad, error) {
	return s.adRepo.FindByID(ctx, adID)
}

// List retrieves active ads matching the query, newest first.
//
// A category id that parses but names no category is a hard NotFound.
// An unrecognized condition value is silently dropped from the filter.
// The asymmetry is intentional and mirrors the original marketplace
// behavior.
func (s *adService) List(ctx context.Context, q AdListQuery) ([]*domain.Ad, int, error) {
	filter := repository.AdFilter{Query: q.Query}

	if q.Category != "" {
		categoryID, err := uuid.Parse(q.Category)
		if err != nil {
			return nil, 0, repository.ErrCategoryNotFound
		}
		if _, err := s.categoryRepo.FindByID(ctx, categoryID); err != nil {
			return nil, 0, err
		}
		filter.CategoryID = &categoryID
	}

	if q.Condition != "" {
		if condition, ok := domain.ParseCondition(q.Condition); ok {
			filter.Condition = &condition
		}
	}

	page := q.Page
	if page < 1 {
		page = 1
	}

	return s.adRepo.List(ctx, filter, page, PageSize)
}

// ListCategories retrieves all categories
func (s *adService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}

// CreateCategory adds a new category
func (s *adService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	category := &domain.Category{
		ID:   uuid.New(),
		Name: name,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// DeleteCategory removes a category; ads referencing it get their
// category cleared by the schema, not deleted.
func (s *adService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categoryRepo.Delete(ctx, id)
}
