package library

import (
	"path/filepath"
	"time"
)

// NoCoverArtID marks a file whose directory was searched and holds no artwork.
// A NULL cover_art_id means the file has not been searched yet.
const NoCoverArtID int64 = -1

// MediaFile is one catalogued audio file.
type MediaFile struct {
	ID           int64
	FileName     string
	Directory    string
	Extension    string
	FileHash     string
	LastModified time.Time
	CoverArtID   *int64
	SampleRate   int
	Duration     float64
	SizeBytes    int64
	MimeType     string
	GroupName    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RecordID returns the catalogue identifier.
func (m MediaFile) RecordID() int64 {
	return m.ID
}

// RelativePath returns the path of the file below the library root.
func (m MediaFile) RelativePath() string {
	return filepath.Join(m.Directory, m.FileName)
}

// AbsolutePath joins the library root, the directory, and the file name.
func (m MediaFile) AbsolutePath(root string) string {
	return filepath.Join(root, m.Directory, m.FileName)
}

// HasCoverArt reports whether the file references a stored artwork row.
func (m MediaFile) HasCoverArt() bool {
	return m.CoverArtID != nil && *m.CoverArtID != NoCoverArtID
}

// Album groups files sharing a directory-derived album name and artist.
type Album struct {
	ID        int64
	Name      string
	Artist    string
	GroupName string
	CreatedAt time.Time
}

// CoverArt is an artwork file discovered next to audio files.
type CoverArt struct {
	ID       int64
	FilePath string
	MimeType string
	FileHash string
}

// AnalysisRecord is the persisted outcome of one analysis kind for one file.
type AnalysisRecord struct {
	FileID       int64
	Kind         string
	PayloadJSON  string
	ErrorMessage string
	ErrorKind    string
	AnalyzedAt   time.Time
}

// Failed reports whether the stored outcome is a failure.
func (a AnalysisRecord) Failed() bool {
	return a.ErrorMessage != ""
}

// Finding is the value an analyzer hands to the sink.
type Finding struct {
	Kind    string
	Payload any
	// Duration and SampleRate update the catalogue row when positive.
	Duration   float64
	SampleRate int
}

// KindStats summarises stored outcomes for one analysis kind.
type KindStats struct {
	Kind     string
	Analyzed int
	Failed   int
}

// Stats summarises the catalogue.
type Stats struct {
	Files      int
	Albums     int
	CoverArt   int
	TotalBytes int64
	Kinds      []KindStats
}
