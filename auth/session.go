package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session describes an authenticated subject as reported by the session
// provider.
type Session struct {
	UserID string
	Email  string
}

// Verifier verifies a bearer token and resolves it to a session. The
// concrete session provider stays behind this interface.
type Verifier interface {
	VerifySession(token string) (*Session, error)
}

// SessionClaims represents the claims in a session token. The subject is
// the owner identifier; email is optional.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier verifies HS256-signed session tokens issued by the auth
// provider with a shared secret.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a new session token verifier. An empty issuer
// disables issuer checking.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// VerifySession validates a session token and returns the session it
// describes.
func (v *TokenVerifier) VerifySession(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, errors.New("token is required")
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, errors.New("unexpected issuer")
	}

	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}

	return &Session{
		UserID: claims.Subject,
		Email:  claims.Email,
	}, nil
}

// SignSessionToken signs a session token for the given subject. Used by
// local development and tests; production tokens come from the auth
// provider.
func SignSessionToken(secret, issuer, userID, email string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}

	now := time.Now()
	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
