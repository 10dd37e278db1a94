package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// DefaultLeeway tolerates clock skew between the issuer and this service.
const DefaultLeeway = 5 * time.Second

// Claims is the verified token payload.
type Claims struct {
	Email string `json:"email,omitempty"`
	gojwt.RegisteredClaims
}

// Verifier checks token signatures and temporal claims.
type Verifier struct {
	key    []byte
	parser *gojwt.Parser
}

type verifierConfig struct {
	leeway   time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*verifierConfig)

// WithLeeway overrides DefaultLeeway.
func WithLeeway(d time.Duration) VerifierOption {
	return func(c *verifierConfig) { c.leeway = d }
}

// WithIssuer requires the iss claim to equal issuer. Empty disables the check.
func WithIssuer(issuer string) VerifierOption {
	return func(c *verifierConfig) { c.issuer = issuer }
}

// WithAudience requires aud to contain audience. Empty disables the check.
func WithAudience(audience string) VerifierOption {
	return func(c *verifierConfig) { c.audience = audience }
}

// WithClock sets the time source used for exp/nbf/iat checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(c *verifierConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func NewVerifier(key []byte, opts ...VerifierOption) (*Verifier, error) {
	if len(key) == 0 {
		return nil, ErrMissingSigningKey
	}

	cfg := verifierConfig{leeway: DefaultLeeway, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	parserOpts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithLeeway(cfg.leeway),
		gojwt.WithIssuedAt(),
		gojwt.WithTimeFunc(cfg.now),
		gojwt.WithExpirationRequired(),
	}
	if cfg.issuer != "" {
		parserOpts = append(parserOpts, gojwt.WithIssuer(cfg.issuer))
	}
	if cfg.audience != "" {
		parserOpts = append(parserOpts, gojwt.WithAudience(cfg.audience))
	}

	return &Verifier{
		key:    append([]byte(nil), key...),
		parser: gojwt.NewParser(parserOpts...),
	}, nil
}

// Verify validates token and returns its claims. CPU only; never blocks.
func (v *Verifier) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// BearerToken extracts the credential from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMissingToken
	}
	return token, nil
}

// BearerTokenFromRequest reads the Authorization header of r.
func BearerTokenFromRequest(r *http.Request) (string, error) {
	return BearerToken(r.Header.Get("Authorization"))
}

// Issuer signs tokens. Used by tests and the dev token command.
type Issuer struct {
	key    []byte
	issuer string
	now    func() time.Time
}

func NewIssuer(key []byte, issuer string) (*Issuer, error) {
	if len(key) == 0 {
		return nil, ErrMissingSigningKey
	}
	return &Issuer{key: append([]byte(nil), key...), issuer: issuer, now: time.Now}, nil
}

// Generate signs a token for subject valid for ttl.
func (i *Issuer) Generate(subject, email string, ttl time.Duration, audience ...string) (string, error) {
	now := i.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			NotBefore: gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if len(audience) > 0 {
		claims.Audience = gojwt.ClaimStrings(audience)
	}

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}
