package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned when a token cannot be parsed into the expected claim structure.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidSignature is returned when the signature, algorithm, or key id does not verify.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned when the current time is at or past the token expiry.
	ErrExpired = errors.New("token expired")
	// ErrInvalidClaims is returned by Issue when the claims violate issuance rules.
	ErrInvalidClaims = errors.New("invalid token claims")
)

// SigningMethod selects the signature algorithm used by a [Manager].
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 over a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

const minHMACKeyLength = 32

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	// TypeAccess marks short-lived tokens presented on protected requests.
	TypeAccess TokenType = "access"
	// TypeRefresh marks long-lived tokens exchanged for a new pair.
	TypeRefresh TokenType = "refresh"
)

// Valid reports whether t is one of the known token types.
func (t TokenType) Valid() bool {
	return t == TypeAccess || t == TypeRefresh
}

// Config holds signing material and validation policy for a [Manager].
//
// Config is read once by [NewManager]; later mutation of the caller's copy has no effect.
type Config struct {
	SigningMethod SigningMethod
	// PrivateKey is the Ed25519 private key (raw or PEM) or the HS256 secret.
	PrivateKey []byte
	// PublicKey is the Ed25519 public key (raw or PEM). Unused for HS256.
	PublicKey []byte
	Issuer    string
	Audience  string
	// Leeway tolerates clock drift on exp/nbf checks. Zero means strict.
	Leeway       time.Duration
	MaxFutureIAT time.Duration
	// KeyID is written into the kid header of issued tokens.
	KeyID string
	// VerifyKeys maps kid to verification key, allowing rotation without invalidating live tokens.
	VerifyKeys map[string][]byte
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Claims is the decoded, validated payload of a token.
type Claims struct {
	Subject   string
	TokenID   string
	SessionID string
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type wireClaims struct {
	Type      TokenType `json:"typ"`
	SessionID string    `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and decodes signed tokens.
//
// A Manager is immutable after construction and safe for concurrent use.
type Manager struct {
	config    Config
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	keyring   map[string]interface{}
}

// NewManager validates cfg, parses key material once, and returns a ready [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHMACKeyLength {
			return nil, fmt.Errorf("hs256 requires a secret of at least %d bytes", minHMACKeyLength)
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		m.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verifyKey = pub
		}
		if len(cfg.VerifyKeys) == 0 && m.verifyKey == nil {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	if len(cfg.VerifyKeys) > 0 {
		m.keyring = make(map[string]interface{}, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			key, err := m.verifyKeyFromBytes(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid verify key for kid %q: %w", kid, err)
			}
			m.keyring[kid] = key
		}
		if cfg.KeyID != "" {
			if _, ok := m.keyring[cfg.KeyID]; !ok {
				return nil, errors.New("KeyID is not present in VerifyKeys")
			}
		}
	}

	return m, nil
}

// Issue signs c into a compact token string.
//
// Subject and TokenID must be non-empty, Type must be valid, and ExpiresAt must be strictly
// after IssuedAt. A zero IssuedAt is replaced with the manager clock.
func (j *Manager) Issue(c Claims) (string, error) {
	if j.signKey == nil {
		return "", errors.New("manager has no signing key")
	}
	if c.IssuedAt.IsZero() {
		c.IssuedAt = j.config.Now()
	}
	switch {
	case strings.TrimSpace(c.Subject) == "":
		return "", fmt.Errorf("%w: empty subject", ErrInvalidClaims)
	case strings.TrimSpace(c.TokenID) == "":
		return "", fmt.Errorf("%w: empty token id", ErrInvalidClaims)
	case !c.Type.Valid():
		return "", fmt.Errorf("%w: unknown token type %q", ErrInvalidClaims, c.Type)
	case !c.ExpiresAt.After(c.IssuedAt):
		return "", fmt.Errorf("%w: expiry must be after issued-at", ErrInvalidClaims)
	}

	claims := wireClaims{
		Type:      c.Type,
		SessionID: c.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			ID:        c.TokenID,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
			Issuer:    j.config.Issuer,
		},
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	token := jwt.NewWithClaims(j.method, claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}
	return token.SignedString(j.signKey)
}

// Decode verifies tokenStr and returns its claims.
//
// Failures are reported as exactly one of [ErrMalformedToken], [ErrInvalidSignature], or
// [ErrExpired]; claims are never returned alongside an error.
func (j *Manager) Decode(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithTimeFunc(j.config.Now),
		jwt.WithExpirationRequired(),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &wireClaims{}, j.keyFunc)
	if err != nil {
		return nil, classify(err)
	}

	wc, ok := token.Claims.(*wireClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}
	if !wc.Type.Valid() || wc.Subject == "" || wc.ID == "" || wc.IssuedAt == nil || wc.ExpiresAt == nil {
		return nil, ErrMalformedToken
	}
	if wc.IssuedAt.Time.After(j.config.Now().Add(j.config.MaxFutureIAT)) {
		return nil, ErrMalformedToken
	}

	return &Claims{
		Subject:   wc.Subject,
		TokenID:   wc.ID,
		SessionID: wc.SessionID,
		Type:      wc.Type,
		IssuedAt:  wc.IssuedAt.Time,
		ExpiresAt: wc.ExpiresAt.Time,
	}, nil
}

func (j *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != j.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	kid, _ := t.Header["kid"].(string)
	if j.keyring != nil {
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := j.keyring[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return key, nil
	}

	if j.config.KeyID != "" && kid != j.config.KeyID {
		return nil, errors.New("unknown kid")
	}
	return j.verifyKey, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformedToken
	}
}

func (j *Manager) verifyKeyFromBytes(key []byte) (interface{}, error) {
	if j.method == jwt.SigningMethodHS256 {
		if len(key) < minHMACKeyLength {
			return nil, errors.New("hs256 verify key too short")
		}
		return key, nil
	}
	return parseEdPublicKey(key)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
