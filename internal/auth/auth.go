// Package auth turns credentials into a Principal. The rest of the service
// only ever sees the Principal's user id.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
)

var (
	ErrInvalidToken = apierrors.New(apierrors.KindUnauthorized, apierrors.ErrCodeUnauthorized, "Invalid or expired token")
	ErrTokenRevoked = apierrors.New(apierrors.KindUnauthorized, "TOKEN_REVOKED", "Token has been revoked")
)

// Principal is an authenticated caller.
type Principal struct {
	UserID    uint64
	TokenID   string
	ExpiresAt time.Time
}

// Authenticator validates a bearer credential.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// ExtractBearer returns the token of an "Authorization: Bearer" header, or "".
func ExtractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
