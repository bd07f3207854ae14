package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"image-service/internal/apperr"
	"image-service/internal/catalog"
	"image-service/internal/models"
)

type memUsers struct {
	mu      sync.Mutex
	byName  map[string]models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byName: make(map[string]models.User)}
}

func (m *memUsers) Create(_ context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[user.Username]; ok {
		return nil, catalog.ErrDuplicate
	}
	created := *user
	m.byName[user.Username] = created
	return &created, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byName[username]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewUserService(newMemUsers(), zap.NewNop())
	ctx := context.Background()

	created, err := svc.Register(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, "alice", created.Username)
	require.NotEmpty(t, created.PasswordHash)
	require.NotEqual(t, "correct horse battery", created.PasswordHash)

	user, err := svc.Login(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := NewUserService(newMemUsers(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "correct horse battery")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "another password!")
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestRegisterValidation(t *testing.T) {
	svc := NewUserService(newMemUsers(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "correct horse battery")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Register(ctx, "alice", "short")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc := NewUserService(newMemUsers(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "correct horse battery")
	require.NoError(t, err)

	wrongPassword := svc.mustLoginErr(t, ctx, "alice", "wrong password!!")
	unknownUser := svc.mustLoginErr(t, ctx, "mallory", "wrong password!!")

	require.Equal(t, apperr.KindAccessDenied, apperr.KindOf(wrongPassword))
	require.Equal(t, apperr.KindAccessDenied, apperr.KindOf(unknownUser))
	require.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func (s *UserService) mustLoginErr(t *testing.T, ctx context.Context, username, password string) error {
	t.Helper()
	_, err := s.Login(ctx, username, password)
	require.Error(t, err)
	return err
}
