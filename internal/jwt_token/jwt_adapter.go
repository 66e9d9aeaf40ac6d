package jwttoken

import (
	authmw "immo/pkg/platform/middleware/auth"
	"immo/pkg/platform/strings"
)

func ToMiddlewareClaims(claims *Claims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		UserID:   claims.Subject,
		ClientID: claims.ClientID,
		Roles:    strings.DedupeAndTrimUpper(claims.Roles),
	}
}

// JWTServiceAdapter exposes JWTService through the auth middleware interface.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
