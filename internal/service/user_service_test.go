package service

import (
	"context"
	"testing"
	"time"

	"swapboard/internal/domain"
	"swapboard/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Username]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, exists := m.users[username]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func newTestUserService() (UserService, *mockUserRepository, *mockRefreshTokenRepository) {
	userRepo := newMockUserRepository()
	tokenRepo := newMockRefreshTokenRepository()
	return NewUserService(userRepo, tokenRepo, "test-secret"), userRepo, tokenRepo
}

func TestRegister_HashesPasswordAndDefaultsRole(t *testing.T) {
	svc, userRepo, _ := newTestUserService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "alice@example.com", "sup3rsecret")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	stored := userRepo.users["alice"]
	if stored == nil {
		t.Fatal("user was not persisted")
	}
	if stored.PasswordHash == "sup3rsecret" {
		t.Fatal("password stored as plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("sup3rsecret")); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
	if user.Role != "user" {
		t.Errorf("role = %q, want user", user.Role)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "sup3rsecret"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "other@example.com", "different"); err != repository.ErrUserAlreadyExists {
		t.Errorf("got %v, want ErrUserAlreadyExists", err)
	}
}

func TestLogin_ReturnsValidTokens(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice", "alice@example.com", "sup3rsecret")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	accessToken, refreshToken, user, err := svc.Login(ctx, "alice", "sup3rsecret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if accessToken == "" || refreshToken == "" {
		t.Fatal("login returned empty tokens")
	}
	if user.ID != registered.ID {
		t.Error("login returned a different user")
	}

	claims, err := svc.ValidateToken(accessToken)
	if err != nil {
		t.Fatalf("access token does not validate: %v", err)
	}
	if claims.UserID != registered.ID {
		t.Error("token claims carry the wrong user ID")
	}

	newAccess, err := svc.RefreshToken(ctx, refreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if newAccess == "" {
		t.Error("refresh returned an empty access token")
	}
}

func TestLogin_WrongPasswordOrUnknownUser(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "sup3rsecret"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, _, _, err := svc.Login(ctx, "alice", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, _, _, err := svc.Login(ctx, "nobody", "sup3rsecret"); err != ErrInvalidCredentials {
		t.Errorf("unknown user: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "sup3rsecret"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	_, refreshToken, _, err := svc.Login(ctx, "alice", "sup3rsecret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := svc.Logout(ctx, refreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := svc.RefreshToken(ctx, refreshToken); err != ErrInvalidToken {
		t.Errorf("refresh after logout: got %v, want ErrInvalidToken", err)
	}

	// Logging out an already-gone token is a no-op.
	if err := svc.Logout(ctx, "never-issued"); err != nil {
		t.Errorf("logout of unknown token: got %v, want nil", err)
	}
}

func TestRefreshToken_ExpiredTokenRejected(t *testing.T) {
	svc, _, tokenRepo := newTestUserService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "sup3rsecret"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	_, refreshToken, _, err := svc.Login(ctx, "alice", "sup3rsecret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	tokenRepo.tokens[refreshToken].ExpiresAt = time.Now().Add(-time.Minute)

	if _, err := svc.RefreshToken(ctx, refreshToken); err != ErrTokenExpired {
		t.Errorf("got %v, want ErrTokenExpired", err)
	}
}

func TestProperty_RegistrationNeverStoresPlaintext(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("stored password hashes always verify and never equal the input", prop.ForAll(
		func(username string, password string) bool {
			svc, userRepo, _ := newTestUserService()

			_, err := svc.Register(context.Background(), username, username+"@example.com", password)
			if err != nil {
				return false
			}

			stored := userRepo.users[username]
			if stored.PasswordHash == password {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)) == nil
		},
		gen.RegexMatch(`[a-z][a-z0-9_]{2,20}`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
