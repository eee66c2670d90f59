package library

import (
	"context"
	"fmt"
)

// Stats summarises the catalogue for status output.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	if err := s.db.QueryRowContext(ctx, `SELECT
            (SELECT COUNT(1) FROM media_files),
            (SELECT COALESCE(SUM(size_bytes), 0) FROM media_files),
            (SELECT COUNT(1) FROM albums),
            (SELECT COUNT(1) FROM media_cover_art)`,
	).Scan(&stats.Files, &stats.TotalBytes, &stats.Albums, &stats.CoverArt); err != nil {
		return Stats{}, fmt.Errorf("catalogue totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT kind,
            SUM(CASE WHEN error_message IS NULL THEN 1 ELSE 0 END),
            SUM(CASE WHEN error_message IS NULL THEN 0 ELSE 1 END)
        FROM media_analysis GROUP BY kind ORDER BY kind`)
	if err != nil {
		return Stats{}, fmt.Errorf("analysis totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ks KindStats
		if err := rows.Scan(&ks.Kind, &ks.Analyzed, &ks.Failed); err != nil {
			return Stats{}, fmt.Errorf("scan analysis totals: %w", err)
		}
		stats.Kinds = append(stats.Kinds, ks)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("analysis totals: %w", err)
	}
	return stats, nil
}
