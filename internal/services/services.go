package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/thereayou/eventchat/internal/models"
)

// IdentityVerifier превращает credential в проверенную личность
type IdentityVerifier interface {
	VerifyCredential(ctx context.Context, token string) (models.Identity, error)
}

// AuthorizationOracle решает, может ли пользователь войти в комнату события
type AuthorizationOracle interface {
	IsEventMember(ctx context.Context, userID, eventID int64) (bool, error)
}

// MessageStore сохраняет сообщения чата
type MessageStore interface {
	CreateChat(ctx context.Context, eventID, userID int64, content string) (*models.Chat, error)
}

// TokenBlacklist — токены, отозванные до истечения срока
type TokenBlacklist interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// FailurePolicy определяет поведение при сбое зависимости, нужной для решения о доступе:
// open — пропустить, closed — отказать.
type FailurePolicy string

const (
	FailOpen   FailurePolicy = "open"
	FailClosed FailurePolicy = "closed"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailOpen:
		return FailOpen, nil
	case FailClosed:
		return FailClosed, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}

func (p FailurePolicy) Allows() bool {
	return p != FailClosed
}
