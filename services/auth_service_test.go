package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robostage/arena/models"
	"github.com/robostage/arena/repositories"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	byID   map[int]*models.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[int]*models.User), nextID: 1}
}

func (r *fakeUserRepo) Create(ctx context.Context, exec repositories.SQLExecutor, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, user.Email) {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	copied := *user
	r.byID[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, exec repositories.SQLExecutor, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.byID {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, userID int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[userID]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "scorer@example.com",
		Name:     "Field Scorer",
		Password: "correct horse",
		Role:     models.RoleScorer,
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, models.RoleScorer, user.Role)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	logged, err := svc.Login(context.Background(), LoginInput{Email: "scorer@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
}

func TestRegisterDefaultsToObserver(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "viewer@example.com",
		Name:     "Viewer",
		Password: "long enough",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleObserver, user.Role)
}

func TestRegisterShortPassword(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.c", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "dup@example.com", Password: "long enough"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{Email: "dup@example.com", Password: "long enough"})
	assert.ErrorIs(t, err, ErrUserEmailConflict)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "long enough"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())

	_, err := svc.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
