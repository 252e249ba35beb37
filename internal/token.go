package internal

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenLeeway = 2 * time.Minute

type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenIssuer(cfg Config) *TokenIssuer {
	ttl := cfg.JWTTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

func (t *TokenIssuer) Issue(u User, roles []string) (string, error) {
	now := t.now()
	rc := jwt.RegisteredClaims{
		Subject:   u.Username,
		ID:        uuid.NewString(),
		Issuer:    t.issuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	if t.audience != "" {
		rc.Audience = jwt.ClaimStrings{t.audience}
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:           u.ID,
		Username:         u.Username,
		Roles:            roles,
		RegisteredClaims: rc,
	})
	return tok.SignedString(t.secret)
}

// Parse validates signature, lifetime and, when configured, issuer and
// audience.
func (t *TokenIssuer) Parse(tokenStr string) (*claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	if t.audience != "" {
		opts = append(opts, jwt.WithAudience(t.audience))
	}
	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	cl, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return nil, errors.New("bad claims")
	}
	return cl, nil
}
