package scanner

import "testing"

func TestCoverRank(t *testing.T) {
	if !isCoverName("Cover.JPG") || !isCoverName("folder.png") {
		t.Fatal("expected common cover names to match")
	}
	if isCoverName("cover.txt") || isCoverName("booklet.jpg") {
		t.Fatal("unexpected cover match")
	}
	if coverRank("cover.jpg") >= coverRank("folder.jpg") {
		t.Fatal("cover.jpg should be preferred over folder.jpg")
	}
}

func TestMatchAnyIgnoresCase(t *testing.T) {
	patterns := []string{"**/*.{mp3,flac}"}
	for _, rel := range []string{"a.mp3", "A/B/TRACK.MP3", "x/y.Flac"} {
		if !matchAny(patterns, rel) {
			t.Fatalf("expected %q to match", rel)
		}
	}
	if matchAny(patterns, "a/b.wav") {
		t.Fatal("unexpected wav match")
	}
}

func TestAlbumFromDir(t *testing.T) {
	cases := []struct{ dir, album, artist string }{
		{"Joni/Blue", "Blue", "Joni"},
		{"Compilations", "Compilations", ""},
		{"A/B/C", "C", "B"},
	}
	for _, tc := range cases {
		album, artist := albumFromDir(tc.dir)
		if album != tc.album || artist != tc.artist {
			t.Fatalf("albumFromDir(%q) = %q, %q", tc.dir, album, artist)
		}
	}
}
