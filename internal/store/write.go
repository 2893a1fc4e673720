package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrSnapshotNotFound is returned when no snapshot matches a lookup.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// WriteSnapshot stores a snapshot and its entries in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing an ID that already
// exists leaves the stored snapshot untouched and returns its Seq.
//
// The returned Seq is the snapshot's position in write order.
func (s *Store) WriteSnapshot(ctx context.Context, snap Snapshot) (int64, error) {
	if snap.ID == "" {
		return 0, fmt.Errorf("write snapshot: empty id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM catalog_snapshots WHERE id = ?`, snap.ID).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("write snapshot: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM catalog_snapshots`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write snapshot: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO catalog_snapshots
		(id, catalog_hash, dialects, entry_count, compiler_version, format_version, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		snap.ID,
		snap.CatalogHash,
		dialectText(snap.Dialects),
		len(snap.Entries),
		snap.CompilerVersion,
		snap.FormatVersion,
		seq,
	)
	if err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_entries
		(snapshot_id, position, name, arg_cnt, is_window, is_function, is_aggregate,
		 scopes, dialects, arg_types, templates, variant_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(snapshot_id, position) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("write snapshot: prepare entries: %w", err)
	}
	defer stmt.Close()

	for _, e := range snap.Entries {
		if err := writeEntry(ctx, stmt, snap.ID, e); err != nil {
			return 0, fmt.Errorf("write snapshot: entry %d (%s): %w", e.Position, e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write snapshot: commit: %w", err)
	}
	return seq, nil
}

func writeEntry(ctx context.Context, stmt *sql.Stmt, snapshotID string, e Entry) error {
	scopes, err := marshalScopes(e.Scopes)
	if err != nil {
		return err
	}
	argTypes, err := marshalArgTypes(e.ArgTypes)
	if err != nil {
		return err
	}
	templates, err := marshalTemplates(e.Templates)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		snapshotID,
		e.Position,
		e.Name,
		e.ArgCnt,
		boolToInt(e.IsWindow),
		boolToInt(e.IsFunction),
		boolToInt(e.IsAggregate),
		scopes,
		dialectText(e.Dialects),
		argTypes,
		templates,
		e.VariantHash,
	)
	return err
}
