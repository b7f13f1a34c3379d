package chirp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/onnwee/chirpfeed/internal/tracing"
)

// chirpColumns is the column list shared by every SELECT in this file.
const chirpColumns = `
	id, author_id, text, topic, semantic_topics, reach_mode,
	tuned_allow_followers, tuned_allow_non_followers, tuned_target_embedding,
	bookmark_count, rechirp_count, comment_count,
	qw_bookmark_score, qw_rechirp_score, qw_comment_score,
	fact_check_status, value_total, value_confidence, flagged_for_review,
	created_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new chirp.
func (r *PostgresRepository) Create(ctx context.Context, c *Chirp) (err error) {
	if err := c.Validate(); err != nil {
		return err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "chirps", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.FactCheckStatus == "" {
		c.FactCheckStatus = FactCheckClean
	}

	var allowFollowers, allowNonFollowers sql.NullBool
	var target pq.Float64Array
	if a := c.TunedAudience; a != nil {
		allowFollowers = sql.NullBool{Bool: a.AllowFollowers, Valid: true}
		allowNonFollowers = sql.NullBool{Bool: a.AllowNonFollowers, Valid: true}
		target = pq.Float64Array(a.TargetAudienceEmbedding)
	}

	var valueTotal, valueConfidence sql.NullFloat64
	if v := c.ValueScore; v != nil {
		valueTotal = sql.NullFloat64{Float64: v.Total, Valid: true}
		valueConfidence = sql.NullFloat64{Float64: v.Confidence, Valid: true}
	}

	var flagged sql.NullBool
	if p := c.PredictionValidation; p != nil {
		flagged = sql.NullBool{Bool: p.FlaggedForReview, Valid: true}
	}

	query := `
		INSERT INTO chirps (
			id, author_id, text, topic, semantic_topics, reach_mode,
			tuned_allow_followers, tuned_allow_non_followers, tuned_target_embedding,
			bookmark_count, rechirp_count, comment_count,
			qw_bookmark_score, qw_rechirp_score, qw_comment_score,
			fact_check_status, value_total, value_confidence, flagged_for_review,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err = r.db.ExecContext(ctx, query,
		c.ID,
		c.AuthorID,
		c.Text,
		c.Topic,
		pq.StringArray(append([]string{}, c.SemanticTopics...)),
		string(c.ReachMode),
		allowFollowers,
		allowNonFollowers,
		target,
		c.BookmarkCount,
		c.RechirpCount,
		c.CommentCount,
		nullFloat(c.QualityWeightedBookmarkScore),
		nullFloat(c.QualityWeightedRechirpScore),
		nullFloat(c.QualityWeightedCommentScore),
		string(c.FactCheckStatus),
		valueTotal,
		valueConfidence,
		flagged,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chirp: %w", err)
	}
	return nil
}

// GetByID retrieves a chirp by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (c *Chirp, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "chirps", tracing.DBOperationQuery)
	defer func() {
		if errors.Is(err, ErrChirpNotFound) {
			endSpan(nil)
			return
		}
		endSpan(err)
	}()

	row := r.db.QueryRowContext(ctx, `SELECT `+chirpColumns+` FROM chirps WHERE id = $1`, id)
	c, err = scanChirp(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChirpNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chirp: %w", err)
	}
	return c, nil
}

// ListRecent returns up to limit chirps ordered by created_at DESC, id ASC.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) (chirps []*Chirp, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "chirps", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + chirpColumns + ` FROM chirps ORDER BY created_at DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chirps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanChirp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chirp: %w", err)
		}
		chirps = append(chirps, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chirps: %w", err)
	}
	return chirps, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanChirp(s rowScanner) (*Chirp, error) {
	var (
		c                                 Chirp
		reachMode, factCheck              string
		topics                            pq.StringArray
		allowFollowers, allowNonFollowers sql.NullBool
		target                            pq.Float64Array
		qwBookmark, qwRechirp, qwComment  sql.NullFloat64
		valueTotal, valueConfidence       sql.NullFloat64
		flagged                           sql.NullBool
	)

	err := s.Scan(
		&c.ID,
		&c.AuthorID,
		&c.Text,
		&c.Topic,
		&topics,
		&reachMode,
		&allowFollowers,
		&allowNonFollowers,
		&target,
		&c.BookmarkCount,
		&c.RechirpCount,
		&c.CommentCount,
		&qwBookmark,
		&qwRechirp,
		&qwComment,
		&factCheck,
		&valueTotal,
		&valueConfidence,
		&flagged,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.SemanticTopics = []string(topics)
	c.ReachMode = ReachMode(reachMode)
	c.FactCheckStatus = FactCheckStatus(factCheck)

	// The descriptor exists only when its admission flags were written.
	if allowFollowers.Valid || allowNonFollowers.Valid {
		c.TunedAudience = &TunedAudience{
			AllowFollowers:          allowFollowers.Bool,
			AllowNonFollowers:       allowNonFollowers.Bool,
			TargetAudienceEmbedding: []float64(target),
		}
	}

	c.QualityWeightedBookmarkScore = floatPtr(qwBookmark)
	c.QualityWeightedRechirpScore = floatPtr(qwRechirp)
	c.QualityWeightedCommentScore = floatPtr(qwComment)

	if valueTotal.Valid {
		c.ValueScore = &ValueScore{Total: valueTotal.Float64, Confidence: valueConfidence.Float64}
	}
	if flagged.Valid {
		c.PredictionValidation = &PredictionValidation{FlaggedForReview: flagged.Bool}
	}

	return &c, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
