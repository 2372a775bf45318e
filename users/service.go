package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/goExpense/internal/ids"
	"github.com/MrEthical07/goExpense/password"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
)

// SessionRevoker ends every session of a subject. *goExpense.Engine satisfies it.
type SessionRevoker interface {
	LogoutAll(ctx context.Context, subjectID string) error
}

// Service implements account registration and profile management.
type Service struct {
	repo     Repository
	hasher   password.Hasher
	sessions SessionRevoker
	log      *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, hasher password.Hasher, sessions SessionRevoker, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		hasher:   hasher,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	const op = "users.Register"

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if err := validateProfile(username, email); err != nil {
		return nil, err
	}
	role := strings.TrimSpace(in.Role)
	switch role {
	case "":
		role = RoleMember
	case RoleMember, RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrPolicy) {
			return nil, fmt.Errorf("%w: password must be %d to %d bytes", ErrInvalidInput, password.MinLength, password.MaxLength)
		}
		return nil, fmt.Errorf("%s: hash: %w", op, err)
	}

	id, err := ids.NewUserID()
	if err != nil {
		return nil, fmt.Errorf("%s: id: %w", op, err)
	}

	now := s.now().UTC()
	u := &User{
		ID:           id,
		Username:     username,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

func (s *Service) Me(ctx context.Context, subjectID string) (*User, error) {
	return s.repo.ByID(ctx, subjectID)
}

func (s *Service) UpdateProfile(ctx context.Context, subjectID string, in UpdateProfileInput) (*User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if err := validateProfile(username, email); err != nil {
		return nil, err
	}

	if other, err := s.repo.ByUsername(ctx, username); err == nil && other.ID != subjectID {
		return nil, ErrUsernameTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return s.repo.UpdateProfile(ctx, subjectID, username, email, s.now().UTC())
}

// ChangePassword verifies the current password, stores the new hash and signs the user out
// everywhere.
func (s *Service) ChangePassword(ctx context.Context, subjectID, current, next string) error {
	const op = "users.ChangePassword"

	u, err := s.repo.ByID(ctx, subjectID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(current, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("%s: verify: %w", op, err)
	}
	if !ok {
		return ErrWrongPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		if errors.Is(err, password.ErrPolicy) {
			return fmt.Errorf("%w: password must be %d to %d bytes", ErrInvalidInput, password.MinLength, password.MaxLength)
		}
		return fmt.Errorf("%s: hash: %w", op, err)
	}

	if err := s.repo.UpdatePassword(ctx, subjectID, hash, s.now().UTC()); err != nil {
		return err
	}
	return s.revokeSessions(ctx, subjectID)
}

// Delete soft-deletes the account and revokes its sessions.
func (s *Service) Delete(ctx context.Context, subjectID string) error {
	if err := s.repo.SoftDelete(ctx, subjectID, s.now().UTC()); err != nil {
		return err
	}
	return s.revokeSessions(ctx, subjectID)
}

func (s *Service) revokeSessions(ctx context.Context, subjectID string) error {
	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.LogoutAll(ctx, subjectID); err != nil {
		s.log.ErrorContext(ctx, "revoke sessions failed", "user_id", subjectID, "error", err)
		return fmt.Errorf("users: revoke sessions: %w", err)
	}
	return nil
}

func validateProfile(username, email string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("%w: username must be %d to %d characters", ErrInvalidInput, minUsernameLen, maxUsernameLen)
	}
	if strings.ContainsAny(username, " \t\r\n#") {
		return fmt.Errorf("%w: username must not contain whitespace or '#'", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return nil
}
