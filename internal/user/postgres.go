package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/onnwee/chirpfeed/internal/tracing"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, u *User) (err error) {
	if err := u.Validate(); err != nil {
		return err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "users", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}

	prefs, err := marshalPreferences(u.FeedPreferences)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, handle, display_name, following, interests, profile_embedding, feed_preferences)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		u.ID,
		u.Handle,
		u.DisplayName,
		pq.StringArray(append([]string{}, u.Following...)),
		pq.StringArray(append([]string{}, u.Interests...)),
		pq.Float64Array(u.ProfileEmbedding),
		prefs,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateHandle
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (u *User, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "users", tracing.DBOperationQuery)
	defer func() {
		if errors.Is(err, ErrUserNotFound) {
			endSpan(nil)
			return
		}
		endSpan(err)
	}()

	query := `
		SELECT id, handle, display_name, following, interests, profile_embedding, feed_preferences
		FROM users
		WHERE id = $1
	`

	var (
		user      User
		following pq.StringArray
		interests pq.StringArray
		embedding pq.Float64Array
		prefs     []byte
	)
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Handle,
		&user.DisplayName,
		&following,
		&interests,
		&embedding,
		&prefs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Following = []string(following)
	user.Interests = []string(interests)
	user.ProfileEmbedding = []float64(embedding)
	if len(prefs) > 0 {
		var p FeedPreferences
		if err := json.Unmarshal(prefs, &p); err != nil {
			return nil, fmt.Errorf("failed to decode feed preferences: %w", err)
		}
		user.FeedPreferences = &p
	}
	return &user, nil
}

// GetProfiles returns profiles for the known IDs among ids.
func (r *PostgresRepository) GetProfiles(ctx context.Context, ids []string) (profiles map[string]*AuthorProfile, err error) {
	profiles = make(map[string]*AuthorProfile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "users", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, handle, display_name FROM users WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &AuthorProfile{}
		if err := rows.Scan(&p.ID, &p.Handle, &p.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles[p.ID] = p
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return profiles, nil
}

// UpdateFeedPreferences replaces the stored For You configuration.
func (r *PostgresRepository) UpdateFeedPreferences(ctx context.Context, id string, prefs *FeedPreferences) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "users", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	data, err := marshalPreferences(prefs)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `UPDATE users SET feed_preferences = $2 WHERE id = $1`, id, data)
	if err != nil {
		return fmt.Errorf("failed to update feed preferences: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// marshalPreferences encodes prefs for the JSONB column. Nil becomes SQL NULL.
// The result is a string because lib/pq sends []byte parameters as bytea.
func marshalPreferences(prefs *FeedPreferences) (any, error) {
	if prefs == nil {
		return nil, nil
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed preferences: %w", err)
	}
	return string(data), nil
}
