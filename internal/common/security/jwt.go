package security

import (
	"errors"
	"time"

	"detective_lab/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	auth *jwtauth.JWTAuth
	exp  time.Duration
	now  func() time.Time
}

func NewTokenIssuer(secret string, exp time.Duration) *TokenIssuer {
	return &TokenIssuer{
		auth: jwtauth.New("HS256", []byte(secret), nil),
		exp:  exp,
		now:  time.Now,
	}
}

// JWTAuth exposes the verifier for the jwtauth middleware.
func (t *TokenIssuer) JWTAuth() *jwtauth.JWTAuth {
	return t.auth
}

func (t *TokenIssuer) Issue(session model.Session) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"user_id":  session.UserID,
		"username": session.Username,
		"role":     string(session.Role),
		"exp":      now.Add(t.exp).Unix(),
		"iat":      now.Unix(),
	}
	_, tokenString, err := t.auth.Encode(claims)
	return tokenString, err
}

// SessionFromClaims rebuilds the session carried by a verified token.
func SessionFromClaims(claims map[string]interface{}) (model.Session, error) {
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return model.Session{}, errors.New("username claim is missing or not a string")
	}
	role, ok := claims["role"].(string)
	if !ok || !model.Role(role).Valid() {
		return model.Session{}, errors.New("role claim is missing or invalid")
	}
	userID, _ := claims["user_id"].(string)
	return model.Session{UserID: userID, Username: username, Role: model.Role(role)}, nil
}
