package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Config holds the shared secret of the account service's access tokens.
// An empty Secret disables authentication.
type Config struct {
	Secret string        `env:"JWT_SECRET"`
	Issuer string        `env:"JWT_ISSUER"`
	Leeway time.Duration `env:"JWT_LEEWAY" envDefault:"30s"`
}

// Claims mirrors the access token payload issued at login.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwtlib.RegisteredClaims
}

// Service signs and verifies HS256 access tokens.
type Service struct {
	key    []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides time.Now for expiry checks and issued tokens.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Service for cfg.
func New(cfg Config, opts ...ServiceOption) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSigningKey
	}
	s := &Service{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		leeway: cfg.Leeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate signs c with an expiry of ttl from now. Used by tooling and tests;
// production tokens come from the account service.
func (s *Service) Generate(c Claims, ttl time.Duration) (string, error) {
	now := s.now()
	c.IssuedAt = jwtlib.NewNumericDate(now)
	c.ExpiresAt = jwtlib.NewNumericDate(now.Add(ttl))
	if c.Issuer == "" {
		c.Issuer = s.issuer
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c).SignedString(s.key)
}

// Parse verifies the signature, algorithm, expiry and issuer of token.
func (s *Service) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithLeeway(s.leeway),
		jwtlib.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(s.issuer))
	}

	var c Claims
	if _, err := jwtlib.ParseWithClaims(token, &c, func(*jwtlib.Token) (any, error) {
		return s.key, nil
	}, opts...); err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, errors.Join(ErrExpiredToken, err)
		}
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if c.UserID == "" {
		c.UserID = c.Subject
	}
	return &c, nil
}
