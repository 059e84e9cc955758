package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
)

type fakeUserRepo struct {
	byEmail map[string]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*User)}
}

func (f *fakeUserRepo) GetByID(_ context.Context, userID id.ID) (*User, error) {
	for _, u := range f.byEmail {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, apperror.NewNotFound("user", userID)
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NewNotFound("user", email)
	}
	return u, nil
}

func (f *fakeUserRepo) Exists(_ context.Context, email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeUserRepo) Create(_ context.Context, u *User) error {
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserRepo) SetLastLogin(_ context.Context, _ id.ID, _ time.Time) error {
	return nil
}

func seedUser(t *testing.T, repo *fakeUserRepo, email, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := NewUser(email, string(hash), "Seed User")
	u.RoleName = "Manager"
	branchID := id.New()
	u.BranchID = &branchID
	repo.byEmail[email] = u
	return u
}

func newTestService(repo *fakeUserRepo) *Service {
	return NewService(repo, NewJWTService(DefaultJWTConfig("test-secret")), DefaultServiceConfig())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials issue a token", func(t *testing.T) {
		repo := newFakeUserRepo()
		u := seedUser(t, repo, "clerk@example.com", "correct horse")
		svc := newTestService(repo)

		res, err := svc.Login(ctx, Credentials{Email: "clerk@example.com", Password: "correct horse"})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, u.ID, res.User.ID)
		assert.True(t, res.ExpiresAt.After(time.Now()))
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		repo := newFakeUserRepo()
		seedUser(t, repo, "clerk@example.com", "correct horse")
		svc := newTestService(repo)

		_, errWrong := svc.Login(ctx, Credentials{Email: "clerk@example.com", Password: "nope"})
		_, errUnknown := svc.Login(ctx, Credentials{Email: "ghost@example.com", Password: "nope"})

		require.Error(t, errWrong)
		require.Error(t, errUnknown)
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
		assert.Equal(t, apperror.GetHTTPStatus(errWrong), apperror.GetHTTPStatus(errUnknown))
	})

	t.Run("disabled account refused even with valid password", func(t *testing.T) {
		repo := newFakeUserRepo()
		u := seedUser(t, repo, "clerk@example.com", "correct horse")
		u.IsActive = false
		svc := newTestService(repo)

		_, err := svc.Login(ctx, Credentials{Email: "clerk@example.com", Password: "correct horse"})
		assert.True(t, apperror.IsForbidden(err))
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a hashed user", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := newTestService(repo)

		u, err := svc.Register(ctx, RegisterRequest{
			Email:    "new@example.com",
			Password: "long enough",
			Name:     "New Clerk",
			RoleName: "Manager",
		})
		require.NoError(t, err)
		assert.NotEqual(t, "long enough", u.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("long enough")))
	})

	t.Run("short password rejected", func(t *testing.T) {
		svc := newTestService(newFakeUserRepo())
		_, err := svc.Register(ctx, RegisterRequest{Email: "new@example.com", Password: "short"})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		repo := newFakeUserRepo()
		seedUser(t, repo, "dup@example.com", "whatever12")
		svc := newTestService(repo)

		_, err := svc.Register(ctx, RegisterRequest{Email: "dup@example.com", Password: "whatever12"})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeConflict, appErr.Code)
	})
}

func TestJWTRoundTrip(t *testing.T) {
	jwtSvc := NewJWTService(DefaultJWTConfig("test-secret"))

	branchID := id.New()
	u := NewUser("clerk@example.com", "hash", "Clerk")
	u.RoleName = "branch manager"
	u.BranchID = &branchID

	token, _, err := jwtSvc.GenerateAccessToken(u)
	require.NoError(t, err)

	user, err := jwtSvc.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, user.Authenticated)
	assert.Equal(t, u.ID.String(), user.ActorID)
	assert.Equal(t, "branch manager", user.RoleName)
	assert.Equal(t, branchID.String(), user.BranchID)

	t.Run("wrong secret rejected", func(t *testing.T) {
		other := NewJWTService(DefaultJWTConfig("other-secret"))
		_, err := other.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("mangled token rejected", func(t *testing.T) {
		_, err := jwtSvc.ValidateToken(strings.TrimSuffix(token, token[len(token)-4:]) + "zzzz")
		assert.Error(t, err)
	})
}
