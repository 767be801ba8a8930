// Copyright (c) 2026 Tebeo. All rights reserved.

package auth_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tebeoapp/tebeo/internal/auth"
	"github.com/tebeoapp/tebeo/internal/platform/apperr"
	"github.com/tebeoapp/tebeo/internal/platform/sec"
)

// # Test Doubles

type fakeUserRepository struct {
	users map[string]*auth.User // keyed by ID
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: map[string]*auth.User{}}
}

func (r *fakeUserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("User")
}

func (r *fakeUserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (r *fakeUserRepository) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (r *fakeUserRepository) Create(_ context.Context, user *auth.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepository) UpdatePassword(_ context.Context, userID, newHash string) error {
	if u, ok := r.users[userID]; ok {
		u.PasswordHash = newHash
	}
	return nil
}

type fakeSessionRepository struct {
	sessions map[string]*auth.Session // keyed by token hash
}

func newFakeSessionRepository() *fakeSessionRepository {
	return &fakeSessionRepository{sessions: map[string]*auth.Session{}}
}

func (r *fakeSessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.sessions[session.TokenHash] = session
	return nil
}

func (r *fakeSessionRepository) FindByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	s, ok := r.sessions[tokenHash]
	if !ok || s.IsRevoked || s.ExpiresAt.Before(time.Now()) {
		return nil, apperr.NotFoundMsg("Session not found or expired")
	}
	return s, nil
}

func (r *fakeSessionRepository) Revoke(_ context.Context, sessionID string) error {
	for _, s := range r.sessions {
		if s.ID == sessionID {
			s.IsRevoked = true
		}
	}
	return nil
}

func (r *fakeSessionRepository) RevokeAll(_ context.Context, userID string) error {
	for _, s := range r.sessions {
		if s.UserID == userID {
			s.IsRevoked = true
		}
	}
	return nil
}

func (r *fakeSessionRepository) DeleteExpired(_ context.Context) error { return nil }

func (r *fakeSessionRepository) activeCount(userID string) int {
	count := 0
	for _, s := range r.sessions {
		if s.UserID == userID && !s.IsRevoked {
			count++
		}
	}
	return count
}

type fakeResetTokenRepository struct {
	tokens map[string]string
}

func newFakeResetTokenRepository() *fakeResetTokenRepository {
	return &fakeResetTokenRepository{tokens: map[string]string{}}
}

func (r *fakeResetTokenRepository) Set(_ context.Context, token, userID string, _ time.Duration) error {
	r.tokens[token] = userID
	return nil
}

func (r *fakeResetTokenRepository) Get(_ context.Context, token string) (string, error) {
	if userID, ok := r.tokens[token]; ok {
		return userID, nil
	}
	return "", apperr.NotFoundMsg("Reset token is invalid or expired")
}

func (r *fakeResetTokenRepository) Delete(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

type stubTokenProvider struct{}

func (stubTokenProvider) GenerateAccessToken(userID, _ string, _ time.Duration) (string, error) {
	return "jwt-for-" + userID, nil
}

type testEnv struct {
	users    *fakeUserRepository
	sessions *fakeSessionRepository
	resets   *fakeResetTokenRepository
	service  *auth.Service
}

func newTestEnv() *testEnv {
	users := newFakeUserRepository()
	sessions := newFakeSessionRepository()
	resets := newFakeResetTokenRepository()
	return &testEnv{
		users:    users,
		sessions: sessions,
		resets:   resets,
		service:  auth.NewService(users, sessions, resets, stubTokenProvider{}),
	}
}

func registerTestUser(t *testing.T, env *testEnv) *auth.User {
	t.Helper()
	user, err := env.service.Register(context.Background(), auth.RegisterInput{
		Username: "collector",
		Email:    "collector@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	return user
}

// # Registration

/*
TestService_Register hashes the password and rejects duplicate identities.
*/
func TestService_Register(t *testing.T) {
	env := newTestEnv()
	user := registerTestUser(t, env)

	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash, "password must never be stored in plain text")
	assert.True(t, sec.CheckPasswordHash("correct horse battery", user.PasswordHash))

	_, err := env.service.Register(context.Background(), auth.RegisterInput{
		Username: "other",
		Email:    "collector@example.com",
		Password: "irrelevant",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperr.As(err).HTTPStatus)

	_, err = env.service.Register(context.Background(), auth.RegisterInput{
		Username: "collector",
		Email:    "other@example.com",
		Password: "irrelevant",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperr.As(err).HTTPStatus)
}

// # Login & Sessions

/*
TestService_Login verifies credential checking by email or username and the
issued session pair.
*/
func TestService_Login(t *testing.T) {
	env := newTestEnv()
	user := registerTestUser(t, env)

	byEmail, err := env.service.Login(context.Background(), auth.LoginInput{
		Login:    "collector@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, "jwt-for-"+user.ID, byEmail.AccessToken)
	assert.NotEmpty(t, byEmail.RefreshToken)

	byUsername, err := env.service.Login(context.Background(), auth.LoginInput{
		Login:    "collector",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.NotEqual(t, byEmail.RefreshToken, byUsername.RefreshToken, "each login gets a fresh refresh token")

	_, err = env.service.Login(context.Background(), auth.LoginInput{
		Login:    "collector",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.As(err).HTTPStatus)

	_, err = env.service.Login(context.Background(), auth.LoginInput{
		Login:    "nobody@example.com",
		Password: "correct horse battery",
	})
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", apperr.As(err).Message, "unknown accounts and bad passwords read identically")
}

/*
TestService_RefreshSession verifies rotation: the old token dies, the new
pair works.
*/
func TestService_RefreshSession(t *testing.T) {
	env := newTestEnv()
	registerTestUser(t, env)

	login, err := env.service.Login(context.Background(), auth.LoginInput{
		Login:    "collector",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	rotated, err := env.service.RefreshSession(context.Background(), login.RefreshToken, "ua", "127.0.0.1")
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// Replaying the consumed token must fail.
	_, err = env.service.RefreshSession(context.Background(), login.RefreshToken, "ua", "127.0.0.1")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.As(err).HTTPStatus)
}

/*
TestService_Logout revokes the session and stays idempotent on repeats.
*/
func TestService_Logout(t *testing.T) {
	env := newTestEnv()
	user := registerTestUser(t, env)

	login, err := env.service.Login(context.Background(), auth.LoginInput{
		Login:    "collector",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	require.Equal(t, 1, env.sessions.activeCount(user.ID))

	require.NoError(t, env.service.Logout(context.Background(), login.RefreshToken))
	assert.Equal(t, 0, env.sessions.activeCount(user.ID))

	// Second logout with the same (now dead) token is still a success.
	require.NoError(t, env.service.Logout(context.Background(), login.RefreshToken))
	require.NoError(t, env.service.Logout(context.Background(), "never-issued"))
}

// # Password Recovery

/*
TestService_PasswordReset walks the full forgot/reset flow including the
session purge at the end.
*/
func TestService_PasswordReset(t *testing.T) {
	env := newTestEnv()
	user := registerTestUser(t, env)

	_, err := env.service.Login(context.Background(), auth.LoginInput{
		Login:    "collector",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	token, err := env.service.RequestPasswordReset(context.Background(), "collector@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, env.service.ResetPassword(context.Background(), token, "brand new secret"))

	// Old password dead, new one live, all sessions revoked, token consumed.
	_, err = env.service.Login(context.Background(), auth.LoginInput{
		Login:    "collector",
		Password: "correct horse battery",
	})
	require.Error(t, err)

	_, err = env.service.Login(context.Background(), auth.LoginInput{
		Login:    "collector",
		Password: "brand new secret",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, env.sessions.activeCount(user.ID), "only the post-reset login survives")
	require.Error(t, env.service.ResetPassword(context.Background(), token, "again"), "token is single use")
}

/*
TestService_RequestPasswordReset_UnknownEmail returns silently to prevent
account enumeration.
*/
func TestService_RequestPasswordReset_UnknownEmail(t *testing.T) {
	env := newTestEnv()

	token, err := env.service.RequestPasswordReset(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Empty(t, env.resets.tokens)
}
