package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/models"
	"taskboard/internal/storage"
	"taskboard/internal/util"
)

// SignUp stores a bcrypt hash of the password under a fresh identity id.
func (s *Store) SignUp(ctx context.Context, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	id := util.NewID()
	_, err = s.db.ExecContext(ctx, `INSERT INTO auth_identities(id, email, password_hash) VALUES(?, ?, ?)`, id, email, string(hash))
	if isUniqueViolation(err) {
		return "", storage.ErrUserExists
	}
	if err != nil {
		return "", fmt.Errorf("insert identity: %w", err)
	}

	s.logger.Info("identity created", slog.String("id", id))
	return id, nil
}

// SignIn checks the password and issues an access and a refresh token.
func (s *Store) SignIn(ctx context.Context, email, password string) (models.Tokens, error) {
	var id, hash string
	err := s.db.QueryRowContext(ctx, `SELECT id, password_hash FROM auth_identities WHERE email = ?`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Tokens{}, storage.ErrInvalidCredentials
	}
	if err != nil {
		return models.Tokens{}, fmt.Errorf("get identity: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return models.Tokens{}, storage.ErrInvalidCredentials
	}

	access, refresh, err := s.tokens.Issue(id, email)
	if err != nil {
		return models.Tokens{}, err
	}
	return models.Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// Identity verifies an access token issued by SignIn.
func (s *Store) Identity(ctx context.Context, accessToken string) (models.Identity, error) {
	claims, err := s.tokens.Verify(accessToken)
	if err != nil {
		return models.Identity{}, err
	}

	var identity models.Identity
	err = s.db.QueryRowContext(ctx, `SELECT id, email FROM auth_identities WHERE id = ?`, claims.Subject).Scan(&identity.ID, &identity.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Identity{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("get identity: %w", err)
	}
	return identity, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
