package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates the token families minted by a [Manager]. The kind is
// embedded in the signed claims and checked on decode.
type Kind string

const (
	// KindAccess is a fully authenticated session token.
	KindAccess Kind = "access"
	// KindTOTPPending is issued after a correct password when the account
	// still owes a TOTP code. It is accepted only by the TOTP validation
	// endpoint and by guards that explicitly tolerate a pending session.
	KindTOTPPending Kind = "totp-pending"
	// KindRefresh is the cookie-held token used solely to mint new pairs.
	KindRefresh Kind = "refresh"
	// KindAction is a single-purpose token bound to an email or record id.
	KindAction Kind = "action"
)

// Purpose narrows an action token to the single flow it was minted for.
type Purpose string

const (
	// PurposeReset authorizes a password reset.
	PurposeReset Purpose = "reset"
	// PurposeSetup authorizes first-time password setup for a new account.
	PurposeSetup Purpose = "setup"
	// PurposeTransfer authorizes a temporary file-transfer login.
	PurposeTransfer Purpose = "transfer"
)

var (
	// ErrExpiredToken reports a structurally valid token whose expiry has passed.
	ErrExpiredToken = errors.New("token expired")
	// ErrMalformedToken reports a token with a bad signature, wrong kind or
	// purpose, a not-before still in the future, or an invalid structure.
	ErrMalformedToken = errors.New("malformed token")
)

// Config carries the signing material and per-kind lifetimes. It is built once
// at process start and never mutated afterwards.
type Config struct {
	Secret      []byte
	Issuer      string
	AccessTTL   time.Duration
	PendingTTL  time.Duration
	RefreshTTL  time.Duration
	ResetTTL    time.Duration
	SetupTTL    time.Duration
	TransferTTL time.Duration
	Leeway      time.Duration
}

// Manager encodes and decodes the platform's tokens. A Manager is immutable
// and safe for concurrent use.
type Manager struct {
	config Config
}

// Claims is the flat claim set shared by every token kind. TOTPVerified is a
// pointer so that refresh and action tokens omit the claim entirely; its
// absence is a second discriminator on top of the explicit kind.
type Claims struct {
	TOTPVerified *bool   `json:"totp_verified,omitempty"`
	Kind         Kind    `json:"knd"`
	Purpose      Purpose `json:"prp,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the decoded view of an access or TOTP-pending token.
type Identity struct {
	Subject      string
	Kind         Kind
	TOTPVerified bool
}

// NewManager validates cfg and returns an immutable Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.PendingTTL <= 0 || cfg.PendingTTL >= cfg.AccessTTL {
		return nil, errors.New("pending TTL must be positive and below the access TTL")
	}
	if cfg.ResetTTL <= 0 || cfg.SetupTTL <= 0 || cfg.TransferTTL <= 0 {
		return nil, errors.New("invalid action TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// IssueAccess mints a fully verified access token for subject.
func (m *Manager) IssueAccess(subject string) (string, error) {
	verified := true
	return m.sign(Claims{
		TOTPVerified: &verified,
		Kind:         KindAccess,
	}, subject, m.config.AccessTTL, false)
}

// IssuePending mints the reduced-lifetime token handed out between a correct
// password and a correct TOTP code.
func (m *Manager) IssuePending(subject string) (string, error) {
	verified := false
	return m.sign(Claims{
		TOTPVerified: &verified,
		Kind:         KindTOTPPending,
	}, subject, m.config.PendingTTL, false)
}

// IssueRefresh mints a refresh token for subject.
func (m *Manager) IssueRefresh(subject string) (string, error) {
	return m.sign(Claims{Kind: KindRefresh}, subject, m.config.RefreshTTL, false)
}

// IssueAction mints a single-purpose token. The subject is an email address
// for reset/setup and a temp-user id for transfer links. Action tokens carry
// a not-before claim so a clock-skewed consumer cannot use them early.
func (m *Manager) IssueAction(subject string, purpose Purpose) (string, error) {
	ttl, err := m.actionTTL(purpose)
	if err != nil {
		return "", err
	}
	return m.sign(Claims{Kind: KindAction, Purpose: purpose}, subject, ttl, true)
}

func (m *Manager) actionTTL(purpose Purpose) (time.Duration, error) {
	switch purpose {
	case PurposeReset:
		return m.config.ResetTTL, nil
	case PurposeSetup:
		return m.config.SetupTTL, nil
	case PurposeTransfer:
		return m.config.TransferTTL, nil
	default:
		return 0, errors.New("unsupported action purpose")
	}
}

func (m *Manager) sign(claims Claims, subject string, ttl time.Duration, withNotBefore bool) (string, error) {
	now := time.Now()
	claims.Subject = subject
	// Timestamps are second-granular, so without a unique id two tokens
	// minted in the same second would be byte-identical. Refresh rotation
	// depends on every mint producing a distinct token.
	claims.ID = uuid.NewString()
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.IssuedAt = jwt.NewNumericDate(now)
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}
	if withNotBefore {
		claims.NotBefore = jwt.NewNumericDate(now)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// ParseAccess decodes a bearer token presented to a resource endpoint. Both
// full access tokens and TOTP-pending tokens decode successfully; the caller
// decides whether a pending session is acceptable via Identity.TOTPVerified.
func (m *Manager) ParseAccess(tokenStr string) (*Identity, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Kind != KindAccess && claims.Kind != KindTOTPPending {
		return nil, ErrMalformedToken
	}
	if claims.TOTPVerified == nil {
		return nil, ErrMalformedToken
	}
	return &Identity{
		Subject:      claims.Subject,
		Kind:         claims.Kind,
		TOTPVerified: *claims.TOTPVerified,
	}, nil
}

// ParsePending decodes a token that must be exactly TOTP-pending. This is the
// entry dependency of the TOTP validation step: holding a full access token
// (or anything else) does not satisfy it.
func (m *Manager) ParsePending(tokenStr string) (*Identity, error) {
	id, err := m.ParseAccess(tokenStr)
	if err != nil {
		return nil, err
	}
	if id.Kind != KindTOTPPending {
		return nil, ErrMalformedToken
	}
	return id, nil
}

// ParseRefresh decodes a refresh token and returns its subject.
func (m *Manager) ParseRefresh(tokenStr string) (string, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return "", err
	}
	if claims.Kind != KindRefresh || claims.TOTPVerified != nil {
		return "", ErrMalformedToken
	}
	return claims.Subject, nil
}

// ParseAction decodes an action token minted for the given purpose. A token
// carrying a totp_verified claim is rejected outright: access tokens must
// never redeem recovery or transfer flows.
func (m *Manager) ParseAction(tokenStr string, purpose Purpose) (string, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return "", err
	}
	if claims.Kind != KindAction || claims.Purpose != purpose {
		return "", ErrMalformedToken
	}
	if claims.TOTPVerified != nil {
		return "", ErrMalformedToken
	}
	return claims.Subject, nil
}

func (m *Manager) parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrMalformedToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}
