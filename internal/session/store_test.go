package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	dir, err := NewDirectory([]config.Account{
		{ID: "t-1", Name: "Budi", Email: "Budi@School.test", Role: "teacher", PasswordHash: string(hash)},
	})
	require.NoError(t, err)

	cfg := &config.Config{JWTSecret: "test-secret"}
	return NewStore(cfg, rdb, dir, zerolog.Nop()), mr
}

func TestLogin_IssuesTokenAndPersistsIdentity(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	res, err := store.Login(ctx, "budi@school.test", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, model.Identity{ID: "t-1", Name: "Budi", Email: "budi@school.test", Role: model.RoleTeacher}, res.Identity)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Zero(t, mr.TTL(keys[0]))

	got, err := store.Current(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Identity, *got)
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Login(context.Background(), "budi@school.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Login(context.Background(), "nobody@school.test", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogout_ClearsSession(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	res, err := store.Login(ctx, "budi@school.test", "secret")
	require.NoError(t, err)

	require.NoError(t, store.Logout(ctx, res.Token))

	_, err = store.Current(ctx, res.Token)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, store.Logout(ctx, res.Token), ErrNoSession)
}

func TestCurrent_RejectsForeignToken(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Current(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUpdateProfile_KeepsRole(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	res, err := store.Login(ctx, "budi@school.test", "secret")
	require.NoError(t, err)

	updated, err := store.UpdateProfile(ctx, res.Token, model.UpdateProfileRequest{Name: " Budi S ", Email: "BUDI.S@school.test"})
	require.NoError(t, err)
	assert.Equal(t, "Budi S", updated.Name)
	assert.Equal(t, "budi.s@school.test", updated.Email)
	assert.Equal(t, model.RoleTeacher, updated.Role)

	got, err := store.Current(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, *updated, *got)
}

func TestNewDirectory_Validates(t *testing.T) {
	_, err := NewDirectory([]config.Account{{Email: "a@b.c", Role: "janitor", PasswordHash: "x"}})
	assert.Error(t, err)

	_, err = NewDirectory([]config.Account{
		{Email: "a@b.c", Role: "Admin", PasswordHash: "x"},
		{Email: "A@B.C", Role: "Admin", PasswordHash: "y"},
	})
	assert.Error(t, err)
}

func TestDevDirectory_OneAccountPerRole(t *testing.T) {
	dir, err := DevDirectory()
	require.NoError(t, err)
	assert.Equal(t, len(model.AllRoles), dir.Len())

	id, err := dir.Authenticate("student@portal.local", "student123")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, id.Role)
}
