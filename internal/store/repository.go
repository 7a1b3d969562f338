package store

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateExport(ctx context.Context, e *Export) error
	GetExport(ctx context.Context, id int64) (*Export, error)
	ListExports(ctx context.Context) ([]*Export, error)
	ListExportsByVideo(ctx context.Context, videoID string) ([]*Export, error)
	DistinctVideoIDs(ctx context.Context) ([]string, error)
	PurgeExports(ctx context.Context) (int64, error)
	CountExports(ctx context.Context) (int, error)

	GetMarkers(ctx context.Context, videoID string) ([]Marker, error)
	SaveMarkers(ctx context.Context, videoID string, markers []Marker) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateExport(ctx context.Context, e *Export) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (video_id, start_seconds, end_seconds, audio_sets, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.VideoID, e.Start, e.End, e.Labels(), e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (r *SQLiteRepository) GetExport(ctx context.Context, id int64) (*Export, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, video_id, start_seconds, end_seconds, audio_sets, created_at
		FROM exports WHERE id = ?
	`, id)

	e, err := scanExport(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return e, err
}

func (r *SQLiteRepository) ListExports(ctx context.Context) ([]*Export, error) {
	return r.queryExports(ctx, `
		SELECT id, video_id, start_seconds, end_seconds, audio_sets, created_at
		FROM exports ORDER BY id
	`)
}

func (r *SQLiteRepository) ListExportsByVideo(ctx context.Context, videoID string) ([]*Export, error) {
	return r.queryExports(ctx, `
		SELECT id, video_id, start_seconds, end_seconds, audio_sets, created_at
		FROM exports WHERE video_id = ? ORDER BY id
	`, videoID)
}

func (r *SQLiteRepository) queryExports(ctx context.Context, query string, args ...any) ([]*Export, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []*Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExport(row rowScanner) (*Export, error) {
	var e Export
	var audioSets, createdAt string
	if err := row.Scan(&e.ID, &e.VideoID, &e.Start, &e.End, &audioSets, &createdAt); err != nil {
		return nil, err
	}
	e.AudioSets = splitLabels(audioSets)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

func (r *SQLiteRepository) DistinctVideoIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT video_id FROM exports ORDER BY video_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) PurgeExports(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM exports")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CountExports(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM exports").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) GetMarkers(ctx context.Context, videoID string) ([]Marker, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT start_millis, intensity_score_normalized
		FROM most_replayed_markers WHERE video_id = ? ORDER BY start_millis
	`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markers []Marker
	for rows.Next() {
		var m Marker
		if err := rows.Scan(&m.StartMillis, &m.IntensityScoreNormalized); err != nil {
			return nil, err
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}

// SaveMarkers inserts markers, ignoring ones already stored for the same offset.
func (r *SQLiteRepository) SaveMarkers(ctx context.Context, videoID string, markers []Marker) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO most_replayed_markers (video_id, start_millis, intensity_score_normalized)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range markers {
		if _, err := stmt.ExecContext(ctx, videoID, m.StartMillis, m.IntensityScoreNormalized); err != nil {
			return err
		}
	}
	return tx.Commit()
}
