package database

import (
	"context"
	"testing"
	"time"

	"github.com/09samuel/codekeeper-api-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func TestConsumeAccountToken(t *testing.T) {
	userID := createTestUser(t, "token_consume@test.dev")

	_, err := testStore.CreateAccountToken(context.Background(), CreateAccountTokenParams{
		UserID:    userID,
		Purpose:   models.TokenPurposeVerifyEmail,
		TokenHash: "verify_hash_1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	token, err := testStore.ConsumeAccountToken(context.Background(), models.TokenPurposeVerifyEmail, "verify_hash_1")
	require.NoError(t, err)
	require.Equal(t, userID, token.UserID)

	// Single use: a second redemption fails.
	_, err = testStore.ConsumeAccountToken(context.Background(), models.TokenPurposeVerifyEmail, "verify_hash_1")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestConsumeExpiredToken(t *testing.T) {
	userID := createTestUser(t, "token_expired@test.dev")

	_, err := testStore.CreateAccountToken(context.Background(), CreateAccountTokenParams{
		UserID:    userID,
		Purpose:   models.TokenPurposeResetPassword,
		TokenHash: "reset_hash_expired",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	_, err = testStore.ConsumeAccountToken(context.Background(), models.TokenPurposeResetPassword, "reset_hash_expired")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCreateAccountTokenReplacesPrevious(t *testing.T) {
	userID := createTestUser(t, "token_replace@test.dev")

	_, err := testStore.CreateAccountToken(context.Background(), CreateAccountTokenParams{
		UserID:    userID,
		Purpose:   models.TokenPurposeResetPassword,
		TokenHash: "reset_hash_old",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = testStore.CreateAccountToken(context.Background(), CreateAccountTokenParams{
		UserID:    userID,
		Purpose:   models.TokenPurposeResetPassword,
		TokenHash: "reset_hash_new",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	// Only the newest token of a purpose can be redeemed.
	_, err = testStore.ConsumeAccountToken(context.Background(), models.TokenPurposeResetPassword, "reset_hash_old")
	require.ErrorIs(t, err, ErrInvalidToken)

	token, err := testStore.ConsumeAccountToken(context.Background(), models.TokenPurposeResetPassword, "reset_hash_new")
	require.NoError(t, err)
	require.Equal(t, userID, token.UserID)
}
