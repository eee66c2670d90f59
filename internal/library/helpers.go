package library

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const mediaFileColumns = "id, file_name, directory, extension, file_hash, last_modified, cover_art_id, sample_rate, duration, size_bytes, mime_type, group_name, created_at, updated_at"

const albumColumns = "id, name, artist, group_name, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMediaFile(scanner rowScanner) (MediaFile, error) {
	var (
		file         MediaFile
		lastModified string
		coverArtID   sql.NullInt64
		mimeType     sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&file.ID,
		&file.FileName,
		&file.Directory,
		&file.Extension,
		&file.FileHash,
		&lastModified,
		&coverArtID,
		&file.SampleRate,
		&file.Duration,
		&file.SizeBytes,
		&mimeType,
		&file.GroupName,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return MediaFile{}, err
	}
	file.MimeType = mimeType.String
	if coverArtID.Valid {
		id := coverArtID.Int64
		file.CoverArtID = &id
	}
	if parsed, err := parseTimeString(lastModified); err == nil {
		file.LastModified = parsed
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		file.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		file.UpdatedAt = updated
	}
	return file, nil
}

func scanAlbum(scanner rowScanner) (Album, error) {
	var (
		album      Album
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&album.ID, &album.Name, &album.Artist, &album.GroupName, &createdRaw); err != nil {
		return Album{}, err
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		album.CreatedAt = created
	}
	return album, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

// storedTimeLayout is fixed width so stored timestamps compare as text.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(storedTimeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func int64Args(values []int64) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
