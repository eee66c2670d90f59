// Package scanner imports the files below the library root into the catalogue.
//
// A scan walks the tree with fastwalk, keeps paths matching the include globs
// and none of the exclude globs, confirms audio content by sniffing, and
// upserts one media_files row per file. Each directory becomes an album
// (artist taken from the parent directory) and a cover image in the directory,
// when present, is linked to every file in it. Files that a complete scan did
// not see are removed afterwards.
package scanner
