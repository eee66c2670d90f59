package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
)

// table describes how one entity is stored.
type table[T any] struct {
	name    string
	columns string
	scan    func(rowScanner) (T, error)
	// groupable lists the columns CountGroupedBy accepts.
	groupable []string
}

var mediaFilesTable = table[MediaFile]{
	name:      "media_files",
	columns:   mediaFileColumns,
	scan:      scanMediaFile,
	groupable: []string{"group_name", "extension", "directory", "mime_type", "sample_rate"},
}

var albumsTable = table[Album]{
	name:      "albums",
	columns:   albumColumns,
	scan:      scanAlbum,
	groupable: []string{"group_name", "artist"},
}

// Repository provides the lookups shared by every catalogue entity.
type Repository[T any] struct {
	store *Store
	table table[T]
}

// MediaFiles returns the repository for catalogued files.
func (s *Store) MediaFiles() Repository[MediaFile] {
	return Repository[MediaFile]{store: s, table: mediaFilesTable}
}

// Albums returns the repository for albums.
func (s *Store) Albums() Repository[Album] {
	return Repository[Album]{store: s, table: albumsTable}
}

// FindByID returns the entity with id, or nil when it does not exist.
func (r Repository[T]) FindByID(ctx context.Context, id int64) (*T, error) {
	row := r.store.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+r.table.columns+` FROM `+r.table.name+` WHERE id = ?`, id)
	entity, err := r.table.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %d: %w", r.table.name, id, err)
	}
	return &entity, nil
}

// FindByIDs returns the entities with the given ids in ascending id order.
// Unknown ids are skipped.
func (r Repository[T]) FindByIDs(ctx context.Context, ids []int64) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx,
		`SELECT `+r.table.columns+` FROM `+r.table.name+` WHERE id IN (`+makePlaceholders(len(ids))+`) ORDER BY id`,
		int64Args(ids)...,
	)
}

// FirstN returns up to n entities in ascending id order.
func (r Repository[T]) FirstN(ctx context.Context, n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+r.table.columns+` FROM `+r.table.name+` ORDER BY id LIMIT ?`, n)
}

// GroupCount is one row of a grouped count.
type GroupCount struct {
	Key   string
	Count int
}

// CountGroupedBy counts entities per distinct value of column, ordered by key.
func (r Repository[T]) CountGroupedBy(ctx context.Context, column string) ([]GroupCount, error) {
	if !slices.Contains(r.table.groupable, column) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, r.table.name, column)
	}
	rows, err := r.store.db.QueryContext(ensureContext(ctx),
		`SELECT COALESCE(CAST(`+column+` AS TEXT), ''), COUNT(1) FROM `+r.table.name+
			` GROUP BY 1 ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("count %s by %s: %w", r.table.name, column, err)
	}
	defer rows.Close()

	var counts []GroupCount
	for rows.Next() {
		var gc GroupCount
		if err := rows.Scan(&gc.Key, &gc.Count); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", r.table.name, err)
		}
		counts = append(counts, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count %s by %s: %w", r.table.name, column, err)
	}
	return counts, nil
}

// InGroups returns the entities whose group_name is one of groups.
func (r Repository[T]) InGroups(ctx context.Context, groups []string) ([]T, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	args := make([]any, len(groups))
	for i, g := range groups {
		args[i] = g
	}
	return r.query(ctx,
		`SELECT `+r.table.columns+` FROM `+r.table.name+` WHERE group_name IN (`+makePlaceholders(len(groups))+`) ORDER BY id`,
		args...,
	)
}

func (r Repository[T]) query(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := r.store.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.table.name, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		entity, err := r.table.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table.name, err)
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", r.table.name, err)
	}
	return out, nil
}
