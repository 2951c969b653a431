package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ynput/ayon-backend-sub000/pkg/utils"
)

// UserSession is the acting user, as carried in the bearer token
type UserSession struct {
	Name      string `json:"name"`
	IsAdmin   bool   `json:"isAdmin"`
	IsManager bool   `json:"isManager"`
	// WritableProjects lists projects whose settings the user may write
	WritableProjects []string `json:"writableProjects,omitempty"`
}

// IsManagerOrAdmin reports whether the user may change studio settings
func (u UserSession) IsManagerOrAdmin() bool {
	return u.IsAdmin || u.IsManager
}

// CanWriteProjectSettings reports whether the user may change project settings
func (u UserSession) CanWriteProjectSettings(project string) bool {
	if u.IsManagerOrAdmin() {
		return true
	}
	for _, p := range u.WritableProjects {
		if p == project {
			return true
		}
	}
	return false
}

// SystemUser is used by the CLI and bootstrap code
func SystemUser() UserSession {
	return UserSession{Name: "system", IsAdmin: true, IsManager: true}
}

// Claims represents JWT claims
type Claims struct {
	User UserSession `json:"user"`
	jwt.RegisteredClaims
}

// Signer issues and validates tokens with a shared secret
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner creates a Signer. A zero ttl defaults to 24h.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl}
}

// GenerateToken creates a JWT token for a user session
func (s *Signer) GenerateToken(session UserSession) (string, error) {
	now := time.Now()
	claims := &Claims{
		User: session,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Name,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        utils.GenerateID(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates and parses a JWT token
func (s *Signer) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
