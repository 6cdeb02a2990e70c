package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/wuxia2kindle/wuxia2kindle/models"
)

// ExportRepository is the persisted queue of export requests.
//
// There is no lease or heartbeat on claimed rows: a crash between ClaimDue
// and MarkProcessed leaves the row in the processing state until an
// operator clears processing_started_at by hand. Accepted limitation.
type ExportRepository struct {
	db *sql.DB
}

func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

const exportColumns = "id, meta, created_at, processing_started_at, processed_at, sent, error"

func scanExport(row interface{ Scan(...any) error }) (*models.Export, error) {
	var export models.Export
	err := row.Scan(
		&export.ID, &export.Meta, &export.CreatedAt,
		&export.ProcessingStartedAt, &export.ProcessedAt,
		&export.Sent, &export.Error,
	)
	if err != nil {
		return nil, err
	}
	return &export, nil
}

// Enqueue inserts a new export request with empty lifecycle fields.
func (r *ExportRepository) Enqueue(ctx context.Context, kind models.ExportKind) (*models.Export, error) {
	query := `INSERT INTO exports (meta) VALUES ($1) RETURNING ` + exportColumns
	export, err := scanExport(r.db.QueryRowContext(ctx, query, kind))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue export: %w", err)
	}
	return export, nil
}

// ClaimDue atomically claims up to limit unclaimed requests by setting
// processing_started_at, and returns the claimed rows in insertion order.
// FOR UPDATE SKIP LOCKED keeps concurrent claims disjoint: a row is
// claimed by exactly one caller.
func (r *ExportRepository) ClaimDue(ctx context.Context, limit int) ([]models.Export, error) {
	query := `
		UPDATE exports
		SET processing_started_at = NOW()
		WHERE id IN (
			SELECT id FROM exports
			WHERE processing_started_at IS NULL
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + exportColumns
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due exports: %w", err)
	}
	defer rows.Close()

	exports := []models.Export{}
	for rows.Next() {
		export, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claimed export row: %w", err)
		}
		exports = append(exports, *export)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claimed export rows: %w", err)
	}
	// RETURNING does not carry the subquery's ORDER BY.
	sort.Slice(exports, func(i, j int) bool { return exports[i].ID < exports[j].ID })
	return exports, nil
}

// MarkProcessed records the end of processing. A nil errMsg means the
// document was assembled; otherwise errMsg is the terminal failure cause.
// Rows already marked processed are left untouched.
func (r *ExportRepository) MarkProcessed(ctx context.Context, id int, errMsg *string) error {
	query := `
		UPDATE exports
		SET processed_at = NOW(), error = $2
		WHERE id = $1 AND processed_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, id, errMsg); err != nil {
		return fmt.Errorf("failed to mark export %d processed: %w", id, err)
	}
	return nil
}

// MarkSent flags a processed export as delivered.
func (r *ExportRepository) MarkSent(ctx context.Context, id int) error {
	query := `UPDATE exports SET sent = true WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark export %d sent: %w", id, err)
	}
	return nil
}

// RecordDeliveryFailure writes a delivery failure cause without touching
// processed_at. The row stays processed and unsent; the error column
// makes the failure visible to the status display.
func (r *ExportRepository) RecordDeliveryFailure(ctx context.Context, id int, cause string) error {
	query := `UPDATE exports SET error = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, cause); err != nil {
		return fmt.Errorf("failed to record delivery failure for export %d: %w", id, err)
	}
	return nil
}

// List returns all export requests, newest first, for status display.
func (r *ExportRepository) List(ctx context.Context) ([]models.Export, error) {
	query := `SELECT ` + exportColumns + ` FROM exports ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	exports := []models.Export{}
	for rows.Next() {
		export, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}
		exports = append(exports, *export)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export rows: %w", err)
	}
	return exports, nil
}
