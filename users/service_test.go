package users

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goExpense/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type revokerSpy struct {
	calls []string
	err   error
}

func (r *revokerSpy) LogoutAll(_ context.Context, subjectID string) error {
	r.calls = append(r.calls, subjectID)
	return r.err
}

func newTestHasher(t *testing.T) *password.Argon2 {
	t.Helper()
	h, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)
	return h
}

func newTestService(t *testing.T) (*Service, *MemoryRepository, *revokerSpy) {
	t.Helper()
	repo := NewMemoryRepository()
	spy := &revokerSpy{}
	return NewService(repo, newTestHasher(t), spy, nil), repo, spy
}

func registerAlice(t *testing.T, s *Service) *User {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	s, repo, _ := newTestService(t)
	u := registerAlice(t, s)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, RoleMember, u.Role)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	stored, err := repo.ByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)
}

func TestRegisterValidation(t *testing.T) {
	s, _, _ := newTestService(t)
	tests := map[string]RegisterInput{
		"short username": {Username: "al", Email: "a@example.com", Password: "long-enough"},
		"space username": {Username: "al ice", Email: "a@example.com", Password: "long-enough"},
		"bad email":      {Username: "alice", Email: "not-an-email", Password: "long-enough"},
		"short password": {Username: "alice", Email: "a@example.com", Password: "short"},
		"unknown role":   {Username: "alice", Email: "a@example.com", Password: "long-enough", Role: "root"},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Register(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s, _, _ := newTestService(t)
	registerAlice(t, s)

	_, err := s.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "another-pass",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUpdateProfile(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	alice := registerAlice(t, s)
	_, err := s.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "hunter222"})
	require.NoError(t, err)

	updated, err := s.UpdateProfile(ctx, alice.ID, UpdateProfileInput{Username: "alice2", Email: "a2@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)

	_, err = s.UpdateProfile(ctx, alice.ID, UpdateProfileInput{Username: "bob", Email: "a2@example.com"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = s.UpdateProfile(ctx, alice.ID, UpdateProfileInput{Username: "alice2", Email: "a3@example.com"})
	assert.NoError(t, err, "keeping own username is allowed")

	_, err = s.UpdateProfile(ctx, "missing", UpdateProfileInput{Username: "carol", Email: "c@example.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	s, _, spy := newTestService(t)
	ctx := context.Background()
	alice := registerAlice(t, s)

	err := s.ChangePassword(ctx, alice.ID, "wrong-current", "brand-new-pass")
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.Empty(t, spy.calls)

	err = s.ChangePassword(ctx, alice.ID, "correct-horse", "short")
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, s.ChangePassword(ctx, alice.ID, "correct-horse", "brand-new-pass"))
	assert.Equal(t, []string{alice.ID}, spy.calls)

	p := NewProvider(s.repo, s.hasher, nil)
	_, ok, err := p.VerifyCredentials(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	assert.False(t, ok)
	id, ok, err := p.VerifyCredentials(ctx, "alice", "brand-new-pass")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, alice.ID, id)
}

func TestDeleteSoftDeletesAndRevokes(t *testing.T) {
	s, _, spy := newTestService(t)
	ctx := context.Background()
	alice := registerAlice(t, s)

	require.NoError(t, s.Delete(ctx, alice.ID))
	assert.Equal(t, []string{alice.ID}, spy.calls)

	_, err := s.Me(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, alice.ID), ErrNotFound)

	// the username is free again
	_, err = s.Register(ctx, RegisterInput{Username: "alice", Email: "new@example.com", Password: "fresh-pass-1"})
	assert.NoError(t, err)
}

func TestRevokeFailureSurfaces(t *testing.T) {
	s, _, spy := newTestService(t)
	alice := registerAlice(t, s)
	spy.err = errors.New("redis down")

	err := s.Delete(context.Background(), alice.ID)
	assert.Error(t, err)
}

func TestProviderVerifyCredentials(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	alice := registerAlice(t, s)
	p := NewProvider(s.repo, s.hasher, nil)

	id, ok, err := p.VerifyCredentials(ctx, " alice ", "correct-horse")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, alice.ID, id)

	_, ok, err = p.VerifyCredentials(ctx, "alice", "nope-nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = p.VerifyCredentials(ctx, "mallory", "correct-horse")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProviderGetUser(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	alice := registerAlice(t, s)
	p := NewProvider(s.repo, s.hasher, nil)

	u, err := p.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "alice", u.Username)

	require.NoError(t, s.Delete(ctx, alice.ID))
	u, err = p.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, u)
}

type failingRepo struct{ *MemoryRepository }

func (failingRepo) ByUsername(context.Context, string) (*User, error) {
	return nil, errors.New("mongo unreachable")
}

func TestProviderBackendError(t *testing.T) {
	p := NewProvider(failingRepo{NewMemoryRepository()}, newTestHasher(t), nil)
	_, ok, err := p.VerifyCredentials(context.Background(), "alice", "whatever1")
	assert.Error(t, err)
	assert.False(t, ok)
}

// dummyCountingHasher counts the decoy verifications a Provider performs.
type dummyCountingHasher struct {
	password.Hasher
	dummies int
}

func (h *dummyCountingHasher) VerifyDummy(secret string) {
	h.dummies++
	h.Hasher.VerifyDummy(secret)
}

func TestProviderFailurePathsSpendDecoyVerification(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, &User{ID: "u1", Username: "alice", Email: "a@example.com", Role: RoleMember, PasswordHash: "not-a-phc-string"}))

	hasher := &dummyCountingHasher{Hasher: newTestHasher(t)}
	p := NewProvider(repo, hasher, nil)

	_, ok, err := p.VerifyCredentials(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, hasher.dummies, "unreadable stored hash")

	_, ok, err = p.VerifyCredentials(ctx, "mallory", "correct-horse")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, hasher.dummies, "unknown user")
}

func TestProviderUpgradesWeakHash(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	weak := newTestHasher(t)
	hash, err := weak.Hash("correct-horse")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &User{ID: "u1", Username: "alice", Email: "a@example.com", Role: RoleMember, PasswordHash: hash}))

	strong, err := password.NewArgon2(password.Config{Memory: 16 * 1024, Time: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	p := NewProvider(repo, strong, nil)

	_, ok, err := p.VerifyCredentials(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := repo.ByID(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, stored.PasswordHash)
	needs, err := strong.NeedsUpgrade(stored.PasswordHash)
	require.NoError(t, err)
	assert.False(t, needs)
}
