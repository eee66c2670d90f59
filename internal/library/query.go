package library

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"mediascan/internal/pipeline"
)

// FileQuery is an immutable filter over media_files. Every builder method
// returns a new query, so a configured query can be shared and cloned freely.
// It pages by id and satisfies pipeline.Source.
type FileQuery struct {
	store      *Store
	extensions []string
	directory  string
	unanalyzed string
	groups     []string
}

var _ pipeline.Source[MediaFile] = (*FileQuery)(nil)

// Files starts a query matching every catalogued file.
func (s *Store) Files() *FileQuery {
	return &FileQuery{store: s}
}

// Clone returns an independent copy of the query.
func (q *FileQuery) Clone() *FileQuery {
	clone := *q
	clone.extensions = slices.Clone(q.extensions)
	clone.groups = slices.Clone(q.groups)
	return &clone
}

// Extensions restricts the query to the given extensions (without the dot,
// case-insensitive). No arguments clears the filter.
func (q *FileQuery) Extensions(exts ...string) *FileQuery {
	clone := q.Clone()
	clone.extensions = clone.extensions[:0]
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" && !slices.Contains(clone.extensions, ext) {
			clone.extensions = append(clone.extensions, ext)
		}
	}
	return clone
}

// Directory restricts the query to files in prefix or any directory below it.
func (q *FileQuery) Directory(prefix string) *FileQuery {
	clone := q.Clone()
	clone.directory = strings.Trim(strings.TrimSpace(prefix), "/")
	return clone
}

// Unanalyzed restricts the query to files without a successful outcome for kind.
func (q *FileQuery) Unanalyzed(kind string) *FileQuery {
	clone := q.Clone()
	clone.unanalyzed = strings.TrimSpace(kind)
	return clone
}

// Groups restricts the query to the given first-letter groups.
func (q *FileQuery) Groups(groups ...string) *FileQuery {
	clone := q.Clone()
	clone.groups = slices.Clone(groups)
	return clone
}

func (q *FileQuery) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(q.extensions) > 0 {
		clauses = append(clauses, "lower(extension) IN ("+makePlaceholders(len(q.extensions))+")")
		for _, ext := range q.extensions {
			args = append(args, ext)
		}
	}
	if q.directory != "" {
		clauses = append(clauses, `(directory = ? OR directory LIKE ? ESCAPE '\')`)
		args = append(args, q.directory, escapeLike(q.directory)+"/%")
	}
	if q.unanalyzed != "" {
		clauses = append(clauses, `NOT EXISTS (
            SELECT 1 FROM media_analysis a
            WHERE a.file_id = media_files.id AND a.kind = ? AND a.error_message IS NULL)`)
		args = append(args, q.unanalyzed)
	}
	if len(q.groups) > 0 {
		clauses = append(clauses, "group_name IN ("+makePlaceholders(len(q.groups))+")")
		for _, group := range q.groups {
			args = append(args, group)
		}
	}
	if len(clauses) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(clauses, " AND "), args
}

// Count returns the number of matching files.
func (q *FileQuery) Count(ctx context.Context) (int, error) {
	where, args := q.where()
	var count int
	if err := q.store.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM media_files WHERE `+where, args...,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count media files: %w", err)
	}
	return count, nil
}

// After returns up to limit matching files with id greater than afterID, in
// ascending id order.
func (q *FileQuery) After(ctx context.Context, afterID int64, limit int) ([]MediaFile, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("page media files: limit must be positive, got %d", limit)
	}
	where, args := q.where()
	args = append([]any{afterID}, args...)
	args = append(args, limit)

	rows, err := q.store.db.QueryContext(ensureContext(ctx),
		`SELECT `+mediaFileColumns+` FROM media_files WHERE id > ? AND `+where+` ORDER BY id LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("page media files: %w", err)
	}
	defer rows.Close()

	files := make([]MediaFile, 0, limit)
	for rows.Next() {
		file, err := scanMediaFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("page media files: %w", err)
	}
	return files, nil
}
