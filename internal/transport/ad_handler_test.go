package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"swapboard/internal/domain"
	"swapboard/internal/repository"
	"swapboard/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockAdService struct {
	createFn         func(ctx context.Context, requesterID uuid.UUID, input service.AdInput) (*domain.Ad, error)
	updateFn         func(ctx context.Context, requesterID, adID uuid.UUID, input service.AdInput) (*domain.Ad, error)
	deactivateFn     func(ctx context.Context, requesterID, adID uuid.UUID) error
	getFn            func(ctx context.Context, adID uuid.UUID) (*domain.Ad, error)
	listFn           func(ctx context.Context, q service.AdListQuery) ([]*domain.Ad, int, error)
	listCategoriesFn func(ctx context.Context) ([]*domain.Category, error)
	createCategoryFn func(ctx context.Context, name string) (*domain.Category, error)
	deleteCategoryFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockAdService) Create(ctx context.Context, requesterID uuid.UUID, input service.AdInput) (*domain.Ad, error) {
	return m.createFn(ctx, requesterID, input)
}

func (m *mockAdService) Update(ctx context.Context, requesterID, adID uuid.UUID, input service.AdInput) (*domain.Ad, error) {
	return m.updateFn(ctx, requesterID, adID, input)
}

func (m *mockAdService) Deactivate(ctx context.Context, requesterID, adID uuid.UUID) error {
	return m.deactivateFn(ctx, requesterID, adID)
}

func (m *mockAdService) GetByID(ctx context.Context, adID uuid.UUID) (*domain.Ad, error) {
	return m.getFn(ctx, adID)
}

func (m *mockAdService) List(ctx context.Context, q service.AdListQuery) ([]*domain.Ad, int, error) {
	return m.listFn(ctx, q)
}

func (m *mockAdService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return m.listCategoriesFn(ctx)
}

func (m *mockAdService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	return m.createCategoryFn(ctx, name)
}

func (m *mockAdService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.deleteCategoryFn(ctx, id)
}

func passthrough(next http.Handler) http.Handler {
	return next
}

func newAdRouter(svc service.AdService, userID uuid.UUID) *chi.Mux {
	handler := NewAdHandler(svc, zap.NewNop())
	r := chi.NewRouter()
	handler.RegisterRoutes(r, asUser(userID), passthrough)
	return r
}

func TestAdList_PublicWithFilters(t *testing.T) {
	svc := &mockAdService{
		listFn: func(ctx context.Context, q service.AdListQuery) ([]*domain.Ad, int, error) {
			if q.Query != "iphone" || q.Condition != "new" || q.Page != 3 {
				t.Errorf("query params not forwarded: %+v", q)
			}
			return []*domain.Ad{{ID: uuid.New(), Title: "iPhone 12", IsActive: true, CreatedAt: time.Now()}}, 21, nil
		},
	}
	router := newAdRouter(svc, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/api/ads?q=iphone&condition=new&page=3", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	var resp PagedResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
	if resp.Total != 21 || resp.Page != 3 || resp.PageSize != service.PageSize {
		t.Errorf("envelope = total %d page %d size %d", resp.Total, resp.Page, resp.PageSize)
	}
}

func TestAdList_UnknownCategoryIs404(t *testing.T) {
	svc := &mockAdService{
		listFn: func(ctx context.Context, q service.AdListQuery) ([]*domain.Ad, int, error) {
			return nil, 0, repository.ErrCategoryNotFound
		},
	}
	router := newAdRouter(svc, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/api/ads?category="+uuid.NewString(), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("got status %d, want 404", w.Code)
	}
}

func TestAdCreate_RequiresValidPayload(t *testing.T) {
	svc := &mockAdService{
		createFn: func(ctx context.Context, requesterID uuid.UUID, input service.AdInput) (*domain.Ad, error) {
			t.Fatal("service must not be called for an invalid payload")
			return nil, nil
		},
	}
	router := newAdRouter(svc, uuid.New())

	bodies := []string{
		`{}`,
		`{"title": "Lamp"}`,
		`{"title": "Lamp", "description": "x", "condition": "new", "category_id": "nope"}`,
	}

	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/api/ads", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: got status %d, want 400", body, w.Code)
		}
	}
}

func TestAdCreate_Success(t *testing.T) {
	owner := uuid.New()
	svc := &mockAdService{
		createFn: func(ctx context.Context, requesterID uuid.UUID, input service.AdInput) (*domain.Ad, error) {
			if requesterID != owner {
				t.Errorf("requester = %s, want the authenticated user", requesterID)
			}
			return &domain.Ad{
				ID:        uuid.New(),
				UserID:    requesterID,
				Title:     input.Title,
				Condition: domain.ConditionNew,
				IsActive:  true,
				CreatedAt: time.Now(),
			}, nil
		},
	}
	router := newAdRouter(svc, owner)

	body, _ := json.Marshal(AdRequest{Title: "Lamp", Description: "A lamp", Condition: "new"})
	req := httptest.NewRequest(http.MethodPost, "/api/ads", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201", w.Code)
	}

	var ad domain.Ad
	if err := json.NewDecoder(w.Body).Decode(&ad); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
	if !ad.IsActive || ad.UserID != owner {
		t.Errorf("response ad = %+v", ad)
	}
}

func TestAdUpdate_ForbiddenForNonOwner(t *testing.T) {
	svc := &mockAdService{
		updateFn: func(ctx context.Context, requesterID, adID uuid.UUID, input service.AdInput) (*domain.Ad, error) {
			return nil, service.ErrForbidden
		},
	}
	router := newAdRouter(svc, uuid.New())

	body, _ := json.Marshal(AdRequest{Title: "Lamp", Description: "A lamp", Condition: "new"})
	req := httptest.NewRequest(http.MethodPut, "/api/ads/"+uuid.NewString(), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", w.Code)
	}
}

func TestAdDeactivate_OwnerGets200(t *testing.T) {
	owner := uuid.New()
	adID := uuid.New()
	called := false

	svc := &mockAdService{
		deactivateFn: func(ctx context.Context, requesterID, id uuid.UUID) error {
			called = true
			if requesterID != owner || id != adID {
				t.Errorf("deactivate(%s, %s)", requesterID, id)
			}
			return nil
		},
	}
	router := newAdRouter(svc, owner)

	req := httptest.NewRequest(http.MethodDelete, "/api/ads/"+adID.String(), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", w.Code)
	}
	if !called {
		t.Error("service was never invoked")
	}
}

func TestCategoryCreate_DuplicateNameConflicts(t *testing.T) {
	svc := &mockAdService{
		createCategoryFn: func(ctx context.Context, name string) (*domain.Category, error) {
			return nil, repository.ErrCategoryAlreadyExists
		},
	}
	router := newAdRouter(svc, uuid.New())

	body, _ := json.Marshal(CategoryRequest{Name: "Electronics"})
	req := httptest.NewRequest(http.MethodPost, "/api/categories", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("got status %d, want 409", w.Code)
	}
}

func TestCategoryDelete_MissingIs404(t *testing.T) {
	svc := &mockAdService{
		deleteCategoryFn: func(ctx context.Context, id uuid.UUID) error {
			return repository.ErrCategoryNotFound
		},
	}
	router := newAdRouter(svc, uuid.New())

	req := httptest.NewRequest(http.MethodDelete, "/api/categories/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("got status %d, want 404", w.Code)
	}
}
