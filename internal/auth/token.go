package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lectorium/server/internal/models"
)

// TokenTTL is the validity window of every issued session token.
const TokenTTL = 24 * time.Hour

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// UserSnapshot is the user state embedded in a session token. The server keeps
// no session storage; the signed snapshot is the session.
type UserSnapshot struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Photo       string `json:"photo"`
	Created     string `json:"created"`
	Currently   string `json:"currently"`
	Liked       string `json:"liked"`
	ExpiresDate string `json:"expiresDate"`
}

// SnapshotUser builds a snapshot from a loaded user row. ExpiresDate is
// stamped at issue time.
func SnapshotUser(u *models.User) UserSnapshot {
	return UserSnapshot{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		Photo:     u.Photo,
		Created:   u.CreatedList(),
		Currently: u.Currently,
		Liked:     u.LikedList(),
	}
}

type Claims struct {
	UserSnapshot
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens with a server-held secret.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer fails when no secret is configured; callers treat that as a
// fatal startup error, not a per-request one.
func NewTokenIssuer(secret string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}
	return &TokenIssuer{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs the snapshot with a fresh 24-hour validity window.
func (t *TokenIssuer) Issue(snapshot UserSnapshot) (string, error) {
	now := t.now()
	expiration := now.Add(TokenTTL)
	snapshot.ExpiresDate = expiration.UTC().Format(time.RFC3339)

	claims := &Claims{
		UserSnapshot: snapshot,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify decodes the snapshot from a presented token. Expired tokens and
// tokens with an invalid signature or shape are reported separately; callers
// must treat both as unauthenticated.
func (t *TokenIssuer) Verify(tokenString string) (UserSnapshot, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return t.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return UserSnapshot{}, ErrTokenExpired
		}
		return UserSnapshot{}, ErrTokenInvalid
	}
	if !token.Valid {
		return UserSnapshot{}, ErrTokenInvalid
	}
	return claims.UserSnapshot, nil
}
