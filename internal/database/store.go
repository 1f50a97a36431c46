package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetUser retrieves a user by Telegram ID. Returns nil, nil if not found.
	GetUser(ctx context.Context, userID int64) (*User, error)

	// UpsertUser creates the user on first contact or reconciles username and
	// first name with the values Telegram currently reports.
	UpsertUser(ctx context.Context, userID int64, username, firstName string) error

	// GetVisibleConversations retrieves the visible turns for a user in storage order.
	GetVisibleConversations(ctx context.Context, userID int64) ([]Conversation, error)

	// SaveConversation inserts a new visible turn and increments the owning
	// user's question count.
	SaveConversation(ctx context.Context, conv *Conversation) error

	// HideUserConversations marks every turn belonging to the user as hidden.
	HideUserConversations(ctx context.Context, userID int64) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by Telegram ID. Returns nil, nil if not found.
func (s *sqlxStore) GetUser(ctx context.Context, userID int64) (*User, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var user User
	query := `SELECT id, username, first_name, question_count, created_at, updated_at
	          FROM users WHERE id = ?`

	err := s.db.GetContext(ctx, &user, query, userID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user found", "user_id", userID)
		return nil, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user by ID", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	return &user, nil
}

// UpsertUser creates the user on first contact or updates the stored username
// and first name when either differs from what Telegram reports. Both fields
// are reconciled in the same call.
func (s *sqlxStore) UpsertUser(ctx context.Context, userID int64, username, firstName string) error {
	if userID == 0 {
		return fmt.Errorf("user_id cannot be zero")
	}
	if username == "" {
		username = PlaceholderUsername
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for user upsert", "user_id", userID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	var existing User
	err = tx.GetContext(ctx, &existing,
		`SELECT id, username, first_name, question_count, created_at, updated_at FROM users WHERE id = ?`, userID)

	now := time.Now().UTC()

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, username, first_name, question_count, created_at, updated_at)
			 VALUES (?, ?, ?, 0, ?, ?)`,
			userID, username, firstName, now, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error creating user", "user_id", userID, "error", err)
			return fmt.Errorf("failed to create user %d: %w", userID, err)
		}
		s.logger.DebugContext(ctx, "User created", "user_id", userID, "username", username)

	case err != nil:
		s.logger.ErrorContext(ctx, "Error checking if user exists", "user_id", userID, "error", err)
		return fmt.Errorf("failed to check user %d: %w", userID, err)

	case existing.Username != username || existing.FirstName != firstName:
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET username = ?, first_name = ?, updated_at = ? WHERE id = ?`,
			username, firstName, now, userID)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error updating user", "user_id", userID, "error", err)
			return fmt.Errorf("failed to update user %d: %w", userID, err)
		}
		s.logger.DebugContext(ctx, "User updated", "user_id", userID, "username", username)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit user upsert", "user_id", userID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	return nil
}

// GetVisibleConversations retrieves all visible turns for a user in insertion order.
func (s *sqlxStore) GetVisibleConversations(ctx context.Context, userID int64) ([]Conversation, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var conversations []Conversation
	query := `SELECT id, user_id, question, answer, created_at, is_visible
	          FROM conversations
	          WHERE user_id = ? AND is_visible = 1
	          ORDER BY id ASC`

	err := s.db.SelectContext(ctx, &conversations, query, userID)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching conversations",
			"user_id", userID, "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting visible conversations", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get conversations for user %d: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Fetched visible conversations", "user_id", userID, "count", len(conversations))
	return conversations, nil
}

// SaveConversation inserts a new visible turn and increments the owning
// user's question count in the same transaction.
func (s *sqlxStore) SaveConversation(ctx context.Context, conv *Conversation) error {
	if conv == nil {
		return fmt.Errorf("cannot save nil conversation")
	}
	if conv.UserID == 0 {
		return fmt.Errorf("conversation must have a non-zero user_id")
	}
	if conv.Question == "" {
		return fmt.Errorf("conversation must have a non-empty question")
	}
	if conv.CreatedAt == 0 {
		conv.CreatedAt = time.Now().Unix()
	}
	conv.IsVisible = true

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving conversation",
			"user_id", conv.UserID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	query := `
        INSERT INTO conversations (user_id, question, answer, created_at, is_visible)
        VALUES (:user_id, :question, :answer, :created_at, :is_visible);
    `
	result, err := tx.NamedExecContext(ctx, query, conv)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving conversation", "user_id", conv.UserID, "error", err)
		return fmt.Errorf("failed to save conversation for user %d: %w", conv.UserID, err)
	}

	if id, idErr := result.LastInsertId(); idErr == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		conv.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving conversation",
			"user_id", conv.UserID, "error", idErr)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET question_count = question_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), conv.UserID); err != nil {
		s.logger.ErrorContext(ctx, "Error incrementing question count", "user_id", conv.UserID, "error", err)
		return fmt.Errorf("failed to increment question count for user %d: %w", conv.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "user_id", conv.UserID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Conversation saved successfully",
		"user_id", conv.UserID, "conversation_id", conv.ID)
	return nil
}

// HideUserConversations marks every turn belonging to the user as hidden.
// Turns for other users are untouched.
func (s *sqlxStore) HideUserConversations(ctx context.Context, userID int64) error {
	if userID == 0 {
		return fmt.Errorf("user_id cannot be zero")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET is_visible = 0 WHERE user_id = ?`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error hiding conversations", "user_id", userID, "error", err)
		return fmt.Errorf("failed to hide conversations for user %d: %w", userID, err)
	}

	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Hid user conversations", "user_id", userID, "count", count)
	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
