package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds submitted credentials.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Session is the witness issued on successful login. Web clients echo the
// user id and role back as HTTP-only cookies; API clients present the signed
// access token instead. The role value is a rendering hint only — every
// authorization decision reloads the user record.
type Session struct {
	UserID      string    `json:"user_id"`
	Role        UserRole  `json:"role"`
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        UserInfo  `json:"user"`
}

// SessionClaims is the JWT payload for API access tokens.
type SessionClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
