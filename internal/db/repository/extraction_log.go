package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storyboard-lab/video-extraction-go/internal/db"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
)

// ExtractionLogRepository persists extraction events.
// Note: extraction_log is append-only.
type ExtractionLogRepository interface {
	// RecordExtraction inserts one extraction event.
	RecordExtraction(ctx context.Context, event *models.ExtractionEvent) error

	// GetExtraction retrieves a single event by ID.
	GetExtraction(ctx context.Context, id uuid.UUID) (*models.ExtractionEvent, error)

	// ListByVideo retrieves the most recent events for a video, newest first.
	ListByVideo(ctx context.Context, platform models.Platform, videoID string, limit int) ([]*models.ExtractionEvent, error)

	// Ping checks the connection.
	Ping(ctx context.Context) error
}

type extractionLogRepository struct {
	pool *pgxpool.Pool
}

// NewExtractionLogRepository creates a new ExtractionLogRepository.
func NewExtractionLogRepository(pool *pgxpool.Pool) ExtractionLogRepository {
	return &extractionLogRepository{pool: pool}
}

const extractionColumns = `
	id, request_id, url, platform, video_id, status, error_code, cache_hit,
	has_transcript, has_thumbnail_analysis, diagnostic_codes, processing_time_ms,
	result, occurred_at
`

func (r *extractionLogRepository) RecordExtraction(ctx context.Context, event *models.ExtractionEvent) error {
	var result []byte
	if event.Result != nil {
		var err error
		if result, err = json.Marshal(event.Result); err != nil {
			return fmt.Errorf("marshal extraction result: %w", err)
		}
	}

	var errorCode *string
	if event.ErrorCode != "" {
		errorCode = &event.ErrorCode
	}

	diagnostics := event.DiagnosticCodes
	if diagnostics == nil {
		diagnostics = []string{}
	}

	query := `
		INSERT INTO extraction_log (` + extractionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.RequestID,
		event.URL,
		string(event.Platform),
		event.VideoID,
		string(event.Status),
		errorCode,
		event.CacheHit,
		event.HasTranscript,
		event.HasThumbnailAnalysis,
		diagnostics,
		event.ProcessingTimeMs,
		result,
		event.OccurredAt,
	)
	if err != nil {
		return db.WrapError(err, "record extraction")
	}

	return nil
}

func (r *extractionLogRepository) GetExtraction(ctx context.Context, id uuid.UUID) (*models.ExtractionEvent, error) {
	query := `SELECT ` + extractionColumns + ` FROM extraction_log WHERE id = $1`

	event, err := scanExtraction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, db.WrapError(err, "get extraction")
	}

	return event, nil
}

func (r *extractionLogRepository) ListByVideo(ctx context.Context, platform models.Platform, videoID string, limit int) ([]*models.ExtractionEvent, error) {
	query := `
		SELECT ` + extractionColumns + `
		FROM extraction_log
		WHERE platform = $1 AND video_id = $2
		ORDER BY occurred_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, string(platform), videoID, limit)
	if err != nil {
		return nil, db.WrapError(err, "list extractions by video")
	}
	defer rows.Close()

	var events []*models.ExtractionEvent
	for rows.Next() {
		event, err := scanExtraction(rows)
		if err != nil {
			return nil, db.WrapError(err, "scan extraction")
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate extractions")
	}

	return events, nil
}

func (r *extractionLogRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanExtraction(row pgx.Row) (*models.ExtractionEvent, error) {
	var (
		event     models.ExtractionEvent
		platform  string
		status    string
		errorCode *string
		result    []byte
		occurred  time.Time
	)

	err := row.Scan(
		&event.ID,
		&event.RequestID,
		&event.URL,
		&platform,
		&event.VideoID,
		&status,
		&errorCode,
		&event.CacheHit,
		&event.HasTranscript,
		&event.HasThumbnailAnalysis,
		&event.DiagnosticCodes,
		&event.ProcessingTimeMs,
		&result,
		&occurred,
	)
	if err != nil {
		return nil, err
	}

	event.Platform = models.Platform(platform)
	event.Status = models.ItemStatus(status)
	event.OccurredAt = occurred.UTC()
	if errorCode != nil {
		event.ErrorCode = *errorCode
	}
	if len(result) > 0 {
		event.Result = &models.ExtractionResult{}
		if err := json.Unmarshal(result, event.Result); err != nil {
			return nil, fmt.Errorf("decode extraction result: %w", err)
		}
	}

	return &event, nil
}
