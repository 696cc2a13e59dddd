package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// Record is the catalog view of a resource: the metadata row plus its
// ordered operation log.
type Record = models.Resource

// SearchResult is one hit against indexed extracted text.
type SearchResult struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Snippet  string `json:"snippet"`
}

// Insert writes a resource record and its full operation log in one
// transaction. The id must be fresh; records are never updated in place.
func (db *DB) Insert(rec Record) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO resources (id, kind, filename, size_bytes, page_count, checksum, lineage, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, string(rec.Kind), rec.Filename, rec.SizeBytes, rec.PageCount, rec.Checksum, rec.Lineage,
		rec.CreatedAt.UTC(), nullableTime(rec.ModifiedAt))
	if err != nil {
		return fmt.Errorf("%w: insert resource: %v", apperr.ErrStorageFault, err)
	}

	if len(rec.Log) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO operations (resource_id, seq, type, params, applied_at) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("%w: prepare op insert: %v", apperr.ErrStorageFault, err)
		}
		defer stmt.Close()
		for _, op := range rec.Log {
			if _, err := stmt.Exec(rec.ID, op.Seq, string(op.Type), op.Params, op.AppliedAt.UTC()); err != nil {
				return fmt.Errorf("%w: insert op: %v", apperr.ErrStorageFault, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", apperr.ErrStorageFault, err)
	}
	return nil
}

// Get loads a resource record with its operation log in application order.
func (db *DB) Get(id string) (*Record, error) {
	var (
		rec      Record
		kind     string
		modified sql.NullTime
	)
	err := db.conn.QueryRow(`
		SELECT id, kind, filename, size_bytes, page_count, checksum, lineage, created_at, modified_at
		FROM resources WHERE id = ?
	`, id).Scan(&rec.ID, &kind, &rec.Filename, &rec.SizeBytes, &rec.PageCount, &rec.Checksum,
		&rec.Lineage, &rec.CreatedAt, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", apperr.ErrStorageFault, id, err)
	}
	rec.Kind = models.Kind(kind)
	if modified.Valid {
		t := modified.Time
		rec.ModifiedAt = &t
	}

	log, err := db.operationLog(id)
	if err != nil {
		return nil, err
	}
	rec.Log = log
	return &rec, nil
}

func (db *DB) operationLog(id string) ([]models.OperationRecord, error) {
	rows, err := db.conn.Query(`
		SELECT seq, type, params, applied_at FROM operations
		WHERE resource_id = ? ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: op log %s: %v", apperr.ErrStorageFault, id, err)
	}
	defer rows.Close()

	out := []models.OperationRecord{}
	for rows.Next() {
		var (
			op models.OperationRecord
			t  string
		)
		if err := rows.Scan(&op.Seq, &t, &op.Params, &op.AppliedAt); err != nil {
			return nil, err
		}
		op.Type = models.OpType(t)
		out = append(out, op)
	}
	return out, rows.Err()
}

// List returns records ordered newest-first, optionally filtered by kind.
// The operation logs are not loaded; use Get for the full record.
func (db *DB) List(limit, offset int, kind string) ([]Record, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where, args := "", []any{}
	if kind != "" {
		where = "WHERE kind = ?"
		args = append(args, kind)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM resources `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count: %v", apperr.ErrStorageFault, err)
	}

	rows, err := db.conn.Query(`
		SELECT id, kind, filename, size_bytes, page_count, checksum, lineage, created_at, modified_at
		FROM resources `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list: %v", apperr.ErrStorageFault, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rec)
	}
	return out, total, rows.Err()
}

// ListExpired returns every record created strictly before cutoff. The
// sweeper calls this once per run.
func (db *DB) ListExpired(cutoff time.Time) ([]Record, error) {
	rows, err := db.conn.Query(`
		SELECT id, kind, filename, size_bytes, page_count, checksum, lineage, created_at, modified_at
		FROM resources WHERE created_at < ? ORDER BY created_at ASC
	`, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: list expired: %v", apperr.ErrStorageFault, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		rec      Record
		kind     string
		modified sql.NullTime
	)
	if err := rows.Scan(&rec.ID, &kind, &rec.Filename, &rec.SizeBytes, &rec.PageCount,
		&rec.Checksum, &rec.Lineage, &rec.CreatedAt, &modified); err != nil {
		return nil, err
	}
	rec.Kind = models.Kind(kind)
	if modified.Valid {
		t := modified.Time
		rec.ModifiedAt = &t
	}
	return &rec, nil
}

// Delete removes a record, its operation log, and its FTS entry. Deleting a
// missing id is a no-op.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM operations WHERE resource_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM resources WHERE id = ?`, id)

	return tx.Commit()
}

// AllIDs returns every catalogued resource id.
func (db *DB) AllIDs() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT id FROM resources`)
	if err != nil {
		return nil, fmt.Errorf("%w: all ids: %v", apperr.ErrStorageFault, err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// IndexText stores the searchable body of an extracted-text artifact and
// mirrors it into the FTS table when available.
func (db *DB) IndexText(id, filename, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`UPDATE resources SET text_body = ? WHERE id = ?`, body, id); err != nil {
		return fmt.Errorf("%w: index text: %v", apperr.ErrStorageFault, err)
	}
	if err := ftsUpsert(tx, id, filename, body); err != nil {
		return err
	}
	return tx.Commit()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
