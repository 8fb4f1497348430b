package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"taskboard/internal/models"
	"taskboard/internal/util"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateOrFetchUser returns the profile registered under email, creating
// credentials and a profile row when none exists.
func (b *Board) CreateOrFetchUser(ctx context.Context, email, password string) (models.User, error) {
	email = normalizeEmail(email)

	var v violations
	v.check(email != "", "Email is required")
	v.check(email == "" || util.IsEmail(email), "Invalid email format")
	v.check(password != "", "Password is required")
	if err := v.err(); err != nil {
		return models.User{}, err
	}

	existing, err := b.store.UsersByEmail(ctx, email)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if len(existing) > 0 {
		b.logger.Info("user already registered", slog.String("id", existing[0].ID))
		return existing[0], nil
	}

	rawID, err := b.store.SignUp(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}
	if rawID == "" {
		return models.User{}, fmt.Errorf("sign-up response did not include a user id")
	}
	id := util.NormalizeUUID(rawID)
	if !util.IsUUID(id) {
		return models.User{}, fmt.Errorf("sign-up returned invalid user id %q", rawID)
	}

	user, err := b.store.InsertUser(ctx, models.User{ID: id, Email: email})
	if err != nil {
		return models.User{}, fmt.Errorf("failed to create user profile: %w", err)
	}
	b.logger.Info("user registered", slog.String("id", user.ID))
	return user, nil
}

// Login validates credentials and returns the profile together with the
// issued tokens. Email shape and password presence are checked before any
// backend call.
func (b *Board) Login(ctx context.Context, email, password string) (models.Session, error) {
	email = normalizeEmail(email)

	var v violations
	v.check(util.IsEmail(email), "Invalid email format")
	v.check(password != "", "Password is required")
	if err := v.err(); err != nil {
		return models.Session{}, err
	}

	tokens, err := b.store.SignIn(ctx, email, password)
	if err != nil {
		return models.Session{}, err
	}

	identity, err := b.store.Identity(ctx, tokens.AccessToken)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	id := util.NormalizeUUID(identity.ID)
	if !util.IsUUID(id) {
		return models.Session{}, fmt.Errorf("auth service returned invalid user id %q", identity.ID)
	}

	profiles, err := b.store.UsersByID(ctx, id)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	if len(profiles) == 0 {
		return models.Session{}, fmt.Errorf("user profile not found")
	}

	return models.Session{
		User:         profiles[0],
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// GetAllUsers lists every profile.
func (b *Board) GetAllUsers(ctx context.Context) ([]models.User, error) {
	users, err := b.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
