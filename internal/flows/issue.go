package flows

import (
	"fmt"
	"time"

	"github.com/MrEthical07/goExpense/jwt"
)

// IssuedPair is a freshly signed access/refresh pair. The refresh token id doubles as the
// session id carried in the access token's sid claim.
type IssuedPair struct {
	SubjectID        string
	AccessToken      string
	AccessID         string
	RefreshToken     string
	RefreshID        string
	IssuedAt         time.Time
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

func issuePair(deps TokenDeps, subjectID string) (*IssuedPair, error) {
	refreshID, err := deps.NewTokenID()
	if err != nil {
		return nil, fmt.Errorf("refresh token id: %w", err)
	}
	accessID, err := deps.NewTokenID()
	if err != nil {
		return nil, fmt.Errorf("access token id: %w", err)
	}

	now := deps.Now().Truncate(time.Second)
	pair := &IssuedPair{
		SubjectID:        subjectID,
		AccessID:         accessID,
		RefreshID:        refreshID,
		IssuedAt:         now,
		AccessExpiresAt:  now.Add(deps.AccessTTL),
		RefreshExpiresAt: now.Add(deps.RefreshTTL),
	}

	pair.AccessToken, err = deps.Codec.Issue(jwt.Claims{
		Subject:   subjectID,
		TokenID:   accessID,
		SessionID: refreshID,
		Type:      jwt.TypeAccess,
		IssuedAt:  now,
		ExpiresAt: pair.AccessExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	pair.RefreshToken, err = deps.Codec.Issue(jwt.Claims{
		Subject:   subjectID,
		TokenID:   refreshID,
		Type:      jwt.TypeRefresh,
		IssuedAt:  now,
		ExpiresAt: pair.RefreshExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return pair, nil
}
