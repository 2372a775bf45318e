package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	goExpense "github.com/MrEthical07/goExpense"
	"github.com/MrEthical07/goExpense/password"
)

// Provider verifies credentials against the repository for the session engine.
type Provider struct {
	repo   Repository
	hasher password.Hasher
	log    *slog.Logger
	now    func() time.Time
}

var _ goExpense.UserProvider = (*Provider)(nil)

func NewProvider(repo Repository, hasher password.Hasher, log *slog.Logger) *Provider {
	if log == nil {
		log = slog.Default()
	}
	return &Provider{repo: repo, hasher: hasher, log: log, now: time.Now}
}

// VerifyCredentials looks the user up by username, case-sensitively after trimming spaces. A
// missing user or an unreadable stored hash still pays for one hash verification so every failure
// path takes the same time.
func (p *Provider) VerifyCredentials(ctx context.Context, identifier, secret string) (string, bool, error) {
	u, err := p.repo.ByUsername(ctx, strings.TrimSpace(identifier))
	if errors.Is(err, ErrNotFound) {
		p.hasher.VerifyDummy(secret)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	ok, err := p.hasher.Verify(secret, u.PasswordHash)
	if err != nil {
		p.log.ErrorContext(ctx, "stored password hash unreadable", "user_id", u.ID, "error", err)
		p.hasher.VerifyDummy(secret)
		return "", false, nil
	}
	if !ok {
		return "", false, nil
	}

	p.upgradeHash(ctx, u, secret)
	return u.ID, true, nil
}

// upgradeHash re-hashes with the current parameters. Failures only log.
func (p *Provider) upgradeHash(ctx context.Context, u *User, secret string) {
	up, ok := p.hasher.(interface {
		NeedsUpgrade(string) (bool, error)
	})
	if !ok {
		return
	}
	needs, err := up.NeedsUpgrade(u.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := p.hasher.Hash(secret)
	if err != nil {
		return
	}
	if err := p.repo.UpdatePassword(ctx, u.ID, hash, p.now()); err != nil {
		p.log.WarnContext(ctx, "password hash upgrade failed", "user_id", u.ID, "error", err)
	}
}

// GetUser returns (nil, nil) for unknown or deleted users.
func (p *Provider) GetUser(ctx context.Context, subjectID string) (*goExpense.User, error) {
	u, err := p.repo.ByID(ctx, subjectID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &goExpense.User{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}, nil
}
