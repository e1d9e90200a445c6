package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "projecthub-api"

// JWTService issues and validates HS256 access tokens. Each token carries a
// unique id so logout can revoke it before expiry.
type JWTService struct {
	secretKey   []byte
	ttl         time.Duration
	revocations RevocationStore
	now         func() time.Time
}

func NewJWTService(secretKey string, ttl time.Duration, revocations RevocationStore) *JWTService {
	return &JWTService{
		secretKey:   []byte(secretKey),
		ttl:         ttl,
		revocations: revocations,
		now:         time.Now,
	}
}

// Issue creates a signed access token for userID.
func (j *JWTService) Issue(userID uint64) (string, *Principal, error) {
	now := j.now()
	principal := &Principal{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(j.ttl),
	}

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatUint(userID, 10),
		ID:        principal.TokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(principal.ExpiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, principal, nil
}

// Authenticate validates the token signature, expiry and revocation state.
func (j *JWTService) Authenticate(ctx context.Context, tokenString string) (*Principal, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	if j.revocations != nil {
		revoked, err := j.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return &Principal{
		UserID:    userID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke blacklists the principal's token until it would have expired anyway.
func (j *JWTService) Revoke(ctx context.Context, p *Principal) error {
	if j.revocations == nil || p == nil || p.TokenID == "" {
		return nil
	}
	ttl := p.ExpiresAt.Sub(j.now())
	if ttl <= 0 {
		return nil
	}
	return j.revocations.Revoke(ctx, p.TokenID, ttl)
}
