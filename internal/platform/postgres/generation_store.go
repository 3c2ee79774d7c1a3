package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/imagegen-api/internal/domain"
	"github.com/phrazzld/imagegen-api/internal/platform/logger"
	"github.com/phrazzld/imagegen-api/internal/redact"
	"github.com/phrazzld/imagegen-api/internal/store"
)

// MaxListLimit caps ListRecent.
const MaxListLimit = 100

// PostgresGenerationStore implements store.GenerationStore on PostgreSQL.
type PostgresGenerationStore struct {
	db store.DBTX
}

// Compile-time check that PostgresGenerationStore implements store.GenerationStore.
var _ store.GenerationStore = (*PostgresGenerationStore)(nil)

// NewPostgresGenerationStore creates a new PostgresGenerationStore.
func NewPostgresGenerationStore(db store.DBTX) *PostgresGenerationStore {
	return &PostgresGenerationStore{db: db}
}

// WithTx returns a store that runs its queries on tx.
func (s *PostgresGenerationStore) WithTx(tx *sql.Tx) *PostgresGenerationStore {
	return &PostgresGenerationStore{db: tx}
}

// Create inserts record. A zero ID or CreatedAt is filled in.
func (s *PostgresGenerationStore) Create(ctx context.Context, record *store.GenerationRecord) error {
	log := logger.FromContext(ctx)

	if err := record.Validate(); err != nil {
		return err
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO generations (
			id, task_id, prompt, aspect_ratio, outcome, image_url, image_count,
			message, attempts, elapsed_ms, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		nullString(record.TaskID),
		record.Prompt,
		string(record.AspectRatio),
		string(record.Outcome),
		nullString(record.ImageURL),
		record.ImageCount,
		nullString(record.Message),
		record.Attempts,
		record.Elapsed.Milliseconds(),
		record.CreatedAt,
	)
	if err != nil {
		log.Error("failed to insert generation record",
			"task_id", record.TaskID,
			"error", redact.Error(err))
		return store.NewStoreError("generation", "create", "insert failed", MapError(err))
	}

	return nil
}

// GetByTaskID retrieves the record for taskID.
func (s *PostgresGenerationStore) GetByTaskID(ctx context.Context, taskID string) (*store.GenerationRecord, error) {
	query := `
		SELECT id, task_id, prompt, aspect_ratio, outcome, image_url, image_count,
			message, attempts, elapsed_ms, created_at
		FROM generations
		WHERE task_id = $1
	`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrGenerationNotFound
		}
		logger.FromContext(ctx).Error("failed to get generation record",
			"task_id", taskID,
			"error", redact.Error(err))
		return nil, store.NewStoreError("generation", "get", "query failed", MapError(err))
	}
	return record, nil
}

// ListRecent returns up to limit records, newest first. limit is clamped to
// [1, MaxListLimit].
func (s *PostgresGenerationStore) ListRecent(ctx context.Context, limit int) ([]*store.GenerationRecord, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT id, task_id, prompt, aspect_ratio, outcome, image_url, image_count,
			message, attempts, elapsed_ms, created_at
		FROM generations
		ORDER BY created_at DESC, id
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list generation records", "error", redact.Error(err))
		return nil, store.NewStoreError("generation", "list", "query failed", MapError(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*store.GenerationRecord, 0, limit)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, store.NewStoreError("generation", "list", "scan failed", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("generation", "list", "iteration failed", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*store.GenerationRecord, error) {
	var (
		r           store.GenerationRecord
		taskID      sql.NullString
		aspectRatio string
		outcome     string
		imageURL    sql.NullString
		message     sql.NullString
		elapsedMS   int64
	)

	if err := row.Scan(
		&r.ID,
		&taskID,
		&r.Prompt,
		&aspectRatio,
		&outcome,
		&imageURL,
		&r.ImageCount,
		&message,
		&r.Attempts,
		&elapsedMS,
		&r.CreatedAt,
	); err != nil {
		return nil, err
	}

	r.TaskID = taskID.String
	r.AspectRatio = domain.AspectRatio(aspectRatio)
	r.Outcome = store.Outcome(outcome)
	r.ImageURL = imageURL.String
	r.Message = message.String
	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
