package jwttoken

import (
	authmw "carreg/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *Claims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		Actor: claims.Actor,
		JTI:   claims.ID,
	}
}

// JWTServiceAdapter satisfies authmw.JWTValidator.
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
