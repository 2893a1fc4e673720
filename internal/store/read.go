package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReadSnapshot returns the snapshot with the given ID, entries included.
// Returns ErrSnapshotNotFound if it does not exist.
func (s *Store) ReadSnapshot(ctx context.Context, id string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, catalog_hash, dialects, entry_count, compiler_version, format_version, seq
		FROM catalog_snapshots
		WHERE id = ?
	`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot %s: %w", id, err)
	}

	entries, err := s.ListEntries(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Entries = entries
	return snap, nil
}

// ListEntries returns the entries of a snapshot ordered by position.
// Returns an empty slice (not nil) if the snapshot has no entries.
func (s *Store) ListEntries(ctx context.Context, snapshotID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, name, arg_cnt, is_window, is_function, is_aggregate,
		       scopes, dialects, arg_types, templates, variant_hash
		FROM catalog_entries
		WHERE snapshot_id = ?
		ORDER BY position ASC
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// FindEntries returns every entry named name across all snapshots, oldest
// snapshot first. Names are matched in their folded form.
func (s *Store) FindEntries(ctx context.Context, name string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.position, e.name, e.arg_cnt, e.is_window, e.is_function, e.is_aggregate,
		       e.scopes, e.dialects, e.arg_types, e.templates, e.variant_hash
		FROM catalog_entries e
		JOIN catalog_snapshots s ON e.snapshot_id = s.id
		WHERE e.name = ?
		ORDER BY s.seq ASC, e.position ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query entries by name: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// LatestSnapshotForHash returns the most recently written snapshot with the
// given catalog hash, without entries. Returns ErrSnapshotNotFound if none
// exists.
func (s *Store) LatestSnapshotForHash(ctx context.Context, catalogHash string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, catalog_hash, dialects, entry_count, compiler_version, format_version, seq
		FROM catalog_snapshots
		WHERE catalog_hash = ?
		ORDER BY seq DESC
		LIMIT 1
	`, catalogHash)
	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, fmt.Errorf("latest snapshot for %s: %w", catalogHash, err)
	}
	return snap, nil
}

// ListSnapshots returns every snapshot in write order, without entries.
func (s *Store) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, catalog_hash, dialects, entry_count, compiler_version, format_version, seq
		FROM catalog_snapshots
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var (
		snap     Snapshot
		dialects string
	)
	err := row.Scan(&snap.ID, &snap.CatalogHash, &dialects, &snap.EntryCount, &snap.CompilerVersion, &snap.FormatVersion, &snap.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	if snap.Dialects, err = unmarshalDialects(dialects); err != nil {
		return Snapshot{}, err
	}
	snap.Entries = []Entry{}
	return snap, nil
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                                 Entry
		isWindow, isFunction, isAggregate int
		scopes, dialects, args, templates string
	)
	err := row.Scan(&e.Position, &e.Name, &e.ArgCnt, &isWindow, &isFunction, &isAggregate,
		&scopes, &dialects, &args, &templates, &e.VariantHash)
	if err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.IsWindow, e.IsFunction, e.IsAggregate = isWindow != 0, isFunction != 0, isAggregate != 0

	if e.Scopes, err = unmarshalScopes(scopes); err != nil {
		return Entry{}, err
	}
	if e.Dialects, err = unmarshalDialects(dialects); err != nil {
		return Entry{}, err
	}
	if e.ArgTypes, err = unmarshalArgTypes(args); err != nil {
		return Entry{}, err
	}
	if e.Templates, err = unmarshalTemplates(templates); err != nil {
		return Entry{}, err
	}
	return e, nil
}
