package security

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the single failure surfaced for any token that does not
// verify: malformed, unsigned, expired, wrong kind, wrong issuer. Collapsing
// the causes avoids leaking which check failed.
var ErrInvalidToken = errors.New("jwt: invalid token")

const (
	audienceAccess  = "access"
	audienceRefresh = "refresh"

	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// SessionClaims carries the subject id and the token version used for bulk
// revocation. A token whose version trails the account's current one is
// treated as revoked at verification time.
type SessionClaims struct {
	AccountID    string `json:"uid"`
	TokenVersion int64  `json:"tv"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies the two token kinds. Each kind is signed
// with its own HS256 secret so an access token can never verify as a refresh
// token or vice versa, on top of the audience check.
type TokenIssuer struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer. Both secrets are required and must
// differ.
func NewTokenIssuer(issuer string, accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(issuer) == "" {
		return nil, fmt.Errorf("jwt: issuer is required")
	}
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, fmt.Errorf("jwt: access and refresh secrets are required")
	}
	if bytes.Equal(accessSecret, refreshSecret) {
		return nil, fmt.Errorf("jwt: access and refresh secrets must differ")
	}

	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}

	return &TokenIssuer{
		issuer:        issuer,
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// WithClock overrides the clock used for issuance and verification (tests).
func (i *TokenIssuer) WithClock(clock func() time.Time) {
	if clock != nil {
		i.now = clock
	}
}

// AccessTokenTTL returns the configured access token lifetime.
func (i *TokenIssuer) AccessTokenTTL() time.Duration {
	return i.accessTTL
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (i *TokenIssuer) RefreshTokenTTL() time.Duration {
	return i.refreshTTL
}

// SignAccess mints a short-lived access token for the subject at the given
// token version.
func (i *TokenIssuer) SignAccess(accountID string, tokenVersion int64) (string, error) {
	return i.sign(accountID, tokenVersion, audienceAccess, i.accessTTL, i.accessSecret)
}

// SignRefresh mints a long-lived refresh token and returns it together with
// its expiry so the caller can persist the pair.
func (i *TokenIssuer) SignRefresh(accountID string, tokenVersion int64) (string, time.Time, error) {
	expiresAt := i.now().UTC().Add(i.refreshTTL)
	token, err := i.sign(accountID, tokenVersion, audienceRefresh, i.refreshTTL, i.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// VerifyAccess validates an access token and returns its claims.
func (i *TokenIssuer) VerifyAccess(token string) (*SessionClaims, error) {
	return i.verify(token, audienceAccess, i.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims. The caller
// must additionally compare the token against the hash on file.
func (i *TokenIssuer) VerifyRefresh(token string) (*SessionClaims, error) {
	return i.verify(token, audienceRefresh, i.refreshSecret)
}

func (i *TokenIssuer) sign(accountID string, tokenVersion int64, audience string, ttl time.Duration, secret []byte) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", fmt.Errorf("jwt: account id is required")
	}

	now := i.now().UTC()
	claims := SessionClaims{
		AccountID:    accountID,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

func (i *TokenIssuer) verify(token, audience string, secret []byte) (*SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(func() time.Time { return i.now().UTC() }),
	)
	if err != nil || parsed == nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if strings.TrimSpace(claims.AccountID) == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
