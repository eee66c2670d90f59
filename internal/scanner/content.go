package scanner

import (
	"fmt"
	"os"
	"path"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
)

// containerAudio lists non-audio/* types that still carry ordinary audio files.
var containerAudio = map[string][]string{
	"application/ogg":        {"ogg", "oga", "opus"},
	"video/mp4":              {"m4a", "aac", "mp4"},
	"video/x-ms-asf":         {"wma"},
	"application/vnd.ms-asf": {"wma"},
}

func isAudio(mtype *mimetype.MIME, rel string) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(rel)), ".")
	for m := mtype; m != nil; m = m.Parent() {
		base, _, _ := strings.Cut(m.String(), ";")
		for _, allowed := range containerAudio[base] {
			if allowed == ext {
				return true
			}
		}
	}
	return false
}

var coverNames = []string{"cover", "folder", "front", "album", "albumart"}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

func isCoverName(name string) bool {
	return coverRank(name) < len(coverNames)
}

// coverRank orders candidate artwork names; lower is preferred.
func coverRank(name string) int {
	lower := strings.ToLower(name)
	ext := path.Ext(lower)
	if !imageExtensions[ext] {
		return len(coverNames)
	}
	stem := strings.TrimSuffix(lower, ext)
	for i, candidate := range coverNames {
		if stem == candidate {
			return i
		}
	}
	return len(coverNames)
}

// TitleFromName derives a display title from a file name by dropping the
// extension and a leading track number such as "01 - " or "3.".
func TitleFromName(name string) string {
	stem := strings.TrimSuffix(name, path.Ext(name))
	rest := strings.TrimLeftFunc(stem, unicode.IsDigit)
	if rest != stem {
		// Digits running straight into text ("1999Remix") are part of the title.
		if after := strings.TrimLeft(rest, " .-_)"); after != rest && strings.TrimSpace(after) != "" {
			stem = after
		}
	}
	return strings.TrimSpace(stem)
}

// albumFromDir returns the album (last element) and artist (the element
// before it) for a slash separated directory.
func albumFromDir(dir string) (album, artist string) {
	album = path.Base(dir)
	if parent := path.Dir(dir); parent != "." && parent != "/" {
		artist = path.Base(parent)
	}
	return album, artist
}

func pathDir(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}

func pathBase(rel string) string {
	return path.Base(rel)
}

func statFile(abs string) (os.FileInfo, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", abs)
	}
	return info, nil
}
