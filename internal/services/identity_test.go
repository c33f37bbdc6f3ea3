package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/eventchat/pkg/auth"
)

type fakeBlacklist struct {
	revoked map[string]bool
	err     error
}

func (f fakeBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[token], nil
}

func TestTokenVerifier_ValidToken(t *testing.T) {
	req := require.New(t)
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate(7, "host", true)
	req.NoError(err)

	v := NewTokenVerifier(jwtManager, fakeBlacklist{})
	identity, err := v.VerifyCredential(context.Background(), token)
	req.NoError(err)
	req.False(identity.IsGuest())
	req.Equal(int64(7), identity.UserID())
	req.Equal("host", identity.Nickname)
	req.True(identity.IsCompleted)
}

func TestTokenVerifier_ZeroIDIsGuest(t *testing.T) {
	req := require.New(t)
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate(0, "nobody", false)
	req.NoError(err)

	identity, err := NewTokenVerifier(jwtManager, nil).VerifyCredential(context.Background(), token)
	req.NoError(err)
	req.True(identity.IsGuest())
	req.False(identity.IsCompleted)
}

func TestTokenVerifier_Failures(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate(7, "host", true)
	require.NoError(t, err)

	tests := []struct {
		name      string
		blacklist TokenBlacklist
		token     string
		target    error
	}{
		{"empty token", nil, "", ErrInvalidToken},
		{"bad signature", nil, "not-a-jwt", ErrInvalidToken},
		{"revoked", fakeBlacklist{revoked: map[string]bool{token: true}}, token, ErrTokenRevoked},
		{"blacklist down", fakeBlacklist{err: errors.New("down")}, token, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenVerifier(jwtManager, tt.blacklist).VerifyCredential(context.Background(), tt.token)
			require.Error(t, err)
			if tt.target != nil {
				require.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestRedisBlacklist_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	_, err := NewRedisBlacklist(client).IsRevoked(context.Background(), "token")
	require.Error(t, err)
}

func TestParseFailurePolicy(t *testing.T) {
	req := require.New(t)

	p, err := ParseFailurePolicy("")
	req.NoError(err)
	req.Equal(FailOpen, p)
	req.True(p.Allows())

	p, err = ParseFailurePolicy(" Closed ")
	req.NoError(err)
	req.Equal(FailClosed, p)
	req.False(p.Allows())

	_, err = ParseFailurePolicy("maybe")
	req.Error(err)
}
