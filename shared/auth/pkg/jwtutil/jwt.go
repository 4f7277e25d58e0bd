package jwtutil

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the access tokens issued by the dashboard's identity
// provider (Supabase GoTrue): subject is the operator id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig selects the verification key. Secret (HS256) wins over PubPath
// (RS256 PEM) when both are set.
type JWTConfig struct {
	Secret   string
	PubPath  string
	Issuer   string
	Audience string
}
