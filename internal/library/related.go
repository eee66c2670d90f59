package library

import (
	"context"
	"database/sql"
	"fmt"
)

// GroupRelated fans relation rows out into owner -> distinct related keys.
// Rows whose related key equals exclude are dropped. Keys keep the order in
// which they first appear; owners without any surviving key are absent.
func GroupRelated[R any, K comparable](rows []R, owner func(R) int64, related func(R) K, exclude K) map[int64][]K {
	out := make(map[int64][]K)
	seen := make(map[int64]map[K]struct{})
	for _, row := range rows {
		key := related(row)
		if key == exclude {
			continue
		}
		id := owner(row)
		if seen[id] == nil {
			seen[id] = make(map[K]struct{})
		}
		if _, dup := seen[id][key]; dup {
			continue
		}
		seen[id][key] = struct{}{}
		out[id] = append(out[id], key)
	}
	return out
}

type albumCoverRow struct {
	albumID    int64
	coverArtID int64
}

// CoverIDs maps each album to the distinct artwork ids of its files. Files
// without artwork (NULL or NoCoverArtID) contribute nothing.
func (s *Store) CoverIDs(ctx context.Context, albumIDs []int64) (map[int64][]int64, error) {
	if len(albumIDs) == 0 {
		return map[int64][]int64{}, nil
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT af.album_id, mf.cover_art_id
        FROM album_files af JOIN media_files mf ON mf.id = af.media_file_id
        WHERE af.album_id IN (`+makePlaceholders(len(albumIDs))+`)
        ORDER BY af.album_id, mf.id`, int64Args(albumIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query album covers: %w", err)
	}
	defer rows.Close()

	var relations []albumCoverRow
	for rows.Next() {
		var (
			row   albumCoverRow
			cover sql.NullInt64
		)
		if err := rows.Scan(&row.albumID, &cover); err != nil {
			return nil, fmt.Errorf("scan album cover: %w", err)
		}
		row.coverArtID = NoCoverArtID
		if cover.Valid {
			row.coverArtID = cover.Int64
		}
		relations = append(relations, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query album covers: %w", err)
	}

	return GroupRelated(relations,
		func(r albumCoverRow) int64 { return r.albumID },
		func(r albumCoverRow) int64 { return r.coverArtID },
		NoCoverArtID,
	), nil
}

type albumFileRow struct {
	albumID int64
	fileID  int64
}

// FileIDs maps each album to the ids of its linked media files in id order.
// Albums without files are absent.
func (s *Store) FileIDs(ctx context.Context, albumIDs []int64) (map[int64][]int64, error) {
	if len(albumIDs) == 0 {
		return map[int64][]int64{}, nil
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT album_id, media_file_id
        FROM album_files
        WHERE album_id IN (`+makePlaceholders(len(albumIDs))+`)
        ORDER BY album_id, media_file_id`, int64Args(albumIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query album files: %w", err)
	}
	defer rows.Close()

	var relations []albumFileRow
	for rows.Next() {
		var row albumFileRow
		if err := rows.Scan(&row.albumID, &row.fileID); err != nil {
			return nil, fmt.Errorf("scan album file: %w", err)
		}
		relations = append(relations, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query album files: %w", err)
	}

	// Row ids start at 1, so 0 never names a file.
	return GroupRelated(relations,
		func(r albumFileRow) int64 { return r.albumID },
		func(r albumFileRow) int64 { return r.fileID },
		0,
	), nil
}

// AlbumWithCovers pairs an album with its artwork and file ids.
type AlbumWithCovers struct {
	Album    Album
	CoverIDs []int64
	FileIDs  []int64
}

// AlbumGroup is one first-letter group of albums.
type AlbumGroup struct {
	Name   string
	Albums []AlbumWithCovers
}

// AlbumGroups returns the albums in each requested group, in the order the
// groups were requested. Unknown groups come back empty.
func (s *Store) AlbumGroups(ctx context.Context, groups []string) ([]AlbumGroup, error) {
	albums, err := s.Albums().InGroups(ctx, groups)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(albums))
	for i, album := range albums {
		ids[i] = album.ID
	}
	covers, err := s.CoverIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	files, err := s.FileIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byGroup := make(map[string][]AlbumWithCovers, len(groups))
	for _, album := range albums {
		byGroup[album.GroupName] = append(byGroup[album.GroupName], AlbumWithCovers{
			Album:    album,
			CoverIDs: covers[album.ID],
			FileIDs:  files[album.ID],
		})
	}
	out := make([]AlbumGroup, 0, len(groups))
	for _, group := range groups {
		out = append(out, AlbumGroup{Name: group, Albums: byGroup[group]})
	}
	return out, nil
}
