package flows

import (
	"context"

	"github.com/MrEthical07/goExpense/tokenstore"
)

// Service is the flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.Tokens.Codec != nil && s.deps.Validate.ResolveRouteMode != nil
}

func (s Service) Login(ctx context.Context, identifier, secret string) LoginResult {
	return RunLogin(ctx, identifier, secret, s.deps.Login)
}

func (s Service) Validate(ctx context.Context, tokenStr string, routeMode int) ValidateResult {
	return RunValidate(ctx, tokenStr, routeMode, s.deps.Validate)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, refreshToken string) LogoutResult {
	return RunLogout(ctx, refreshToken, s.deps.Logout)
}

func (s Service) LogoutAll(ctx context.Context, subjectID string) (int, error) {
	return RunLogoutAll(ctx, subjectID, s.deps.Logout)
}

func (s Service) ActiveSessions(ctx context.Context, subjectID string) ([]tokenstore.Entry, error) {
	return RunActiveSessions(ctx, subjectID, s.deps.Logout)
}
