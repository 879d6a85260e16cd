package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "carreg/pkg/domain-errors"
)

// Claims identifies the operator or integration acting on vehicle records.
// Actor is written verbatim onto history rows.
type Claims struct {
	Actor string `json:"actor"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// GenerateAccessToken issues an HS256 token for actor.
func (s *JWTService) GenerateAccessToken(actor string, expiresIn time.Duration) (string, error) {
	if actor == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "actor is required")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Actor: actor,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Actor == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no actor")
	}
	return claims, nil
}
