package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/storage"
	"taskboard/internal/util"
)

func TestCreateOrFetchUser(t *testing.T) {
	b := newBoard(t, openStore(t))
	ctx := context.Background()

	created, err := b.CreateOrFetchUser(ctx, "  Ann@Example.com ", "password1")
	require.NoError(t, err)
	assert.True(t, util.IsUUID(created.ID))
	assert.Equal(t, "ann@example.com", created.Email)

	again, err := b.CreateOrFetchUser(ctx, "ann@example.com", "whatever")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	users, err := b.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCreateOrFetchUserValidation(t *testing.T) {
	b := newBoard(t, struct{ storage.Store }{})

	_, err := b.CreateOrFetchUser(context.Background(), "not-an-email", "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Violations, 2)
}

func TestLogin(t *testing.T) {
	b := newBoard(t, openStore(t))
	ctx := context.Background()
	user := register(t, b, "bob@example.com")

	session, err := b.Login(ctx, "bob@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.ID)
	assert.Equal(t, "bob@example.com", session.Email)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	_, err = b.Login(ctx, "bob@example.com", "wrong")
	assert.ErrorIs(t, err, storage.ErrInvalidCredentials)
}

func TestLoginRejectsMalformedEmailBeforeBackend(t *testing.T) {
	// Any store call would panic on the nil embedded interface.
	b := newBoard(t, struct{ storage.Store }{})

	_, err := b.Login(context.Background(), "bob-at-example", "password1")
	assert.True(t, IsValidation(err))
}

func TestLoginWithoutProfileFails(t *testing.T) {
	store := openStore(t)
	b := newBoard(t, store)
	ctx := context.Background()

	_, err := store.SignUp(ctx, "ghost@example.com", "password1")
	require.NoError(t, err)

	_, err = b.Login(ctx, "ghost@example.com", "password1")
	assert.ErrorContains(t, err, "profile not found")
}
