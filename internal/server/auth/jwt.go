// Package auth mints and verifies the signed tokens used by the API and
// hashes user passwords.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the claim set carried by both token kinds: the owning user id
// plus the registered exp/iat (and jti for refresh tokens).
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"id"`
}

// TokenIssuer signs access and refresh tokens with two distinct HMAC keys,
// so leaking one key does not let an attacker forge the other token kind.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           timex.Clock
}

// IssuerOption customises a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithClock replaces time.Now, for tests that need to step past a TTL.
func WithClock(clock timex.Clock) IssuerOption {
	return func(i *TokenIssuer) { i.now = clock }
}

// NewTokenIssuer fails when either secret is missing or both are equal.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, opts ...IssuerOption) (*TokenIssuer, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh token secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token validity durations must be positive")
	}

	i := &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// RefreshTTL is the lifetime of refresh tokens; the store uses it for expires_at.
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

// AccessTTL is the lifetime of access tokens.
func (i *TokenIssuer) AccessTTL() time.Duration { return i.accessTTL }

func (i *TokenIssuer) IssueAccessToken(userID int64) (string, error) {
	return i.sign(userID, i.accessSecret, i.accessTTL, "")
}

// IssueRefreshToken adds a random jti so two logins in the same second
// still produce distinct, separately revocable tokens.
func (i *TokenIssuer) IssueRefreshToken(userID int64) (string, error) {
	return i.sign(userID, i.refreshSecret, i.refreshTTL, uuid.NewString())
}

func (i *TokenIssuer) VerifyAccessToken(token string) (int64, error) {
	return i.verify(token, i.accessSecret)
}

func (i *TokenIssuer) VerifyRefreshToken(token string) (int64, error) {
	return i.verify(token, i.refreshSecret)
}

func (i *TokenIssuer) sign(userID int64, secret []byte, ttl time.Duration, jti string) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
		UserID: userID,
	})
	return token.SignedString(secret)
}

func (i *TokenIssuer) verify(tokenString string, secret []byte) (int64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, common.ErrTokenExpired
		}
		return 0, common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID <= 0 {
		return 0, common.ErrInvalidToken
	}

	return claims.UserID, nil
}
