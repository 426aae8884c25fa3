package auth

import (
	"context"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims the API understands.
type Claims struct {
	gojwt.RegisteredClaims
	// Name is a display name for logs.
	Name string `json:"name,omitempty"`
}

// Service issues and verifies HS256 tokens.
type Service struct {
	cfg Config
	now func() time.Time
}

// NewService validates cfg and creates a Service.
func NewService(cfg Config) (*Service, error) {
	cfg.ApplyDefaults()
	if cfg.Secret == "" {
		return nil, fmt.Errorf("auth: secret is required")
	}
	return &Service{cfg: cfg, now: time.Now}, nil
}

// Issue signs a token for subject valid for ttl. A zero ttl uses the
// configured TokenTTL.
func (s *Service) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.cfg.TokenTTL
	}
	now := s.now()
	claims := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			NotBefore: gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if s.cfg.Audience != "" {
		claims.Audience = gojwt.ClaimStrings{s.cfg.Audience}
	}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, expiry, issuer and audience and returns the
// claims.
func (s *Service) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, s.keyFunc, s.parserOptions()...)
	if err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("auth: invalid token")
	}
	return claims, nil
}

func (s *Service) keyFunc(token *gojwt.Token) (interface{}, error) {
	if token.Method.Alg() != gojwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("auth: unexpected signing method: %s", token.Method.Alg())
	}
	return []byte(s.cfg.Secret), nil
}

func (s *Service) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithTimeFunc(s.now),
		gojwt.WithExpirationRequired(),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(s.cfg.Audience))
	}
	return opts
}

type claimsKey struct{}

// WithClaims stores verified claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the claims stored by WithClaims.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}
