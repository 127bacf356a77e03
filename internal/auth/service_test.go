package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/workmate/imagevault/internal/config"
)

type fakeUserStore struct {
	users            map[string]User
	refreshTokens    int
	createUserCalled bool
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]User)}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, email, passwordHash string, displayName *string) (User, error) {
	f.createUserCalled = true
	if _, exists := f.users[email]; exists {
		return User{}, ErrEmailAlreadyExists
	}
	user := User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.users[email] = user
	return user, nil
}

func (f *fakeUserStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	user, ok := f.users[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.refreshTokens++
	return nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:  "test-access-secret",
		RefreshTokenSecret: "test-refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
		BcryptCost:         bcrypt.MinCost,
	}
}

func TestRegisterIssuesTokens(t *testing.T) {
	store := newFakeUserStore()
	svc := NewService(store, testAuthConfig())

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "User@Example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("expected both tokens to be issued")
	}
	if result.User.PasswordHash != "" {
		t.Fatalf("password hash must not leak in results")
	}
	if _, ok := store.users["user@example.com"]; !ok {
		t.Fatalf("email must be lowercased before storage")
	}
	if store.refreshTokens != 1 {
		t.Fatalf("expected a stored refresh token")
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	store := newFakeUserStore()
	svc := NewService(store, testAuthConfig())

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "short"})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if store.createUserCalled {
		t.Fatalf("store must not be touched for invalid input")
	}
}

func TestLoginWithWrongPassword(t *testing.T) {
	store := newFakeUserStore()
	svc := NewService(store, testAuthConfig())

	if _, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "password123"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "wrongpassword"})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateAccessTokenRoundTrip(t *testing.T) {
	store := newFakeUserStore()
	svc := NewService(store, testAuthConfig())

	result, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	claims, err := svc.ValidateAccessToken(result.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken returned error: %v", err)
	}
	if claims.Email != "a@b.com" {
		t.Fatalf("unexpected email claim: %s", claims.Email)
	}
	if claims.UserID == uuid.Nil {
		t.Fatalf("expected a user id claim")
	}
}

func TestValidateAccessTokenRejectsExpired(t *testing.T) {
	store := newFakeUserStore()
	svc := NewService(store, testAuthConfig())

	past := time.Now().Add(-2 * time.Hour)
	svc.nowFunc = func() time.Time { return past }

	result, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	svc.nowFunc = time.Now
	if _, err := svc.ValidateAccessToken(result.Tokens.AccessToken); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	svc := NewService(newFakeUserStore(), testAuthConfig())

	if _, err := svc.ValidateAccessToken("not-a-token"); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.ValidateAccessToken(""); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for empty token, got %v", err)
	}
}
