package services

import (
	"context"
	"fmt"

	"github.com/thereayou/eventchat/internal/models"
	"github.com/thereayou/eventchat/pkg/auth"
)

// TokenVerifier проверяет access-токены и отклоняет отозванные
type TokenVerifier struct {
	jwt       *auth.JWTManager
	blacklist TokenBlacklist
}

// NewTokenVerifier создает verifier. blacklist может быть nil.
func NewTokenVerifier(jwtManager *auth.JWTManager, blacklist TokenBlacklist) *TokenVerifier {
	return &TokenVerifier{jwt: jwtManager, blacklist: blacklist}
}

func (v *TokenVerifier) VerifyCredential(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, ErrInvalidToken
	}

	if v.blacklist != nil {
		revoked, err := v.blacklist.IsRevoked(ctx, token)
		if err != nil {
			return models.Identity{}, fmt.Errorf("check blacklist: %w", err)
		}
		if revoked {
			return models.Identity{}, ErrTokenRevoked
		}
	}

	claims, err := v.jwt.Verify(token)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	identity := models.Identity{
		Nickname:    claims.Nickname,
		IsCompleted: true,
	}
	if claims.ID != 0 {
		id := claims.ID
		identity.ID = &id
	}
	if claims.IsCompleted != nil {
		identity.IsCompleted = *claims.IsCompleted
	}
	return identity, nil
}
