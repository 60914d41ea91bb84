package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/svckit/svckit/internal/audit"
)

// WriteAuditRecord appends an audit record. Satisfies audit.Sink, making the
// store usable directly as the recorder's destination.
func (s *Store) WriteAuditRecord(ctx context.Context, rec audit.Record) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO audit_log (request_id, method, path, actor, status, duration_us, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.RequestID, rec.Method, rec.Path, nullable(rec.Actor), rec.Status,
		rec.Duration.Microseconds(), rec.At.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store audit record: %w", err)
	}
	return nil
}

// Write adapts WriteAuditRecord to the audit.Sink interface.
func (s *Store) Write(ctx context.Context, rec audit.Record) error {
	return s.WriteAuditRecord(ctx, rec)
}

// ListAuditRecords returns a page of records, newest first.
func (s *Store) ListAuditRecords(ctx context.Context, page, pageSize int) ([]audit.Record, int, error) {
	if s == nil || s.DB == nil {
		return nil, 0, errors.New("store is not initialized")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit records: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT request_id, method, path, actor, status, duration_us, at
		FROM audit_log
		ORDER BY id DESC LIMIT ? OFFSET ?
	`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var records []audit.Record
	for rows.Next() {
		var (
			rec        audit.Record
			actor      sql.NullString
			durationUS int64
			atUnix     int64
		)
		if err := rows.Scan(&rec.RequestID, &rec.Method, &rec.Path, &actor, &rec.Status, &durationUS, &atUnix); err != nil {
			return nil, 0, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Actor = actor.String
		rec.Duration = time.Duration(durationUS) * time.Microsecond
		rec.At = time.Unix(atUnix, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list audit records: %w", err)
	}

	return records, total, nil
}
