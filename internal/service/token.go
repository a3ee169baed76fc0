package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/suar-net/suar-studio/internal/model"
)

// InspectBearerToken decodes the bearer JWT stored on a request. The
// signature is not verified; this only shows what the token claims.
func InspectBearerToken(request *model.Request, now time.Time) (*model.TokenInfo, error) {
	if request.Auth.Type != model.AuthBearer || request.Auth.Token == "" {
		return nil, fmt.Errorf("%w: request %s has no bearer token", ErrInvalidInput, request.ID)
	}

	claims := jwt.MapClaims{}
	token, _, err := jwt.NewParser().ParseUnverified(request.Auth.Token, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: bearer token is not a JWT: %v", ErrInvalidInput, err)
	}

	info := &model.TokenInfo{
		Algorithm: token.Method.Alg(),
		Claims:    claims,
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid exp claim: %v", ErrInvalidInput, err)
	}
	if exp != nil {
		expiresAt := exp.Time.UTC()
		info.ExpiresAt = &expiresAt
		info.Expired = !now.Before(expiresAt)
	}
	return info, nil
}
