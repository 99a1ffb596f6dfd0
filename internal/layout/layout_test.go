package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestEnsure(t *testing.T) {
	base := t.TempDir()

	l, err := Ensure(base, "abc")
	require.NoError(t, err)

	for _, dir := range []string{l.Original, l.Subtitles, l.Docs, l.Rendered} {
		assert.True(t, DirExists(dir), dir)
	}
	assert.Equal(t, filepath.Join(base, "abc"), l.Root)

	// second call keeps existing content
	touch(t, l.VideoPath())
	again, err := Ensure(base, "abc")
	require.NoError(t, err)
	assert.Equal(t, l, again)
	assert.True(t, Exists(l.VideoPath()))
}

func TestLayout_FixedNames(t *testing.T) {
	l := For("/data", "abc")

	assert.Equal(t, "/data/abc/original/video.mp4", l.VideoPath())
	assert.Equal(t, "/data/abc/original/thumbnail.jpg", l.ThumbnailPath())
	assert.Equal(t, "/data/abc/original/audio.wav", l.AudioPath())
	assert.Equal(t, "/data/abc/subtitles/en.json", l.TranscriptPath())
	assert.Equal(t, "/data/abc/subtitles/zh.json", l.TranslatedPath())
	assert.Equal(t, "/data/abc/subtitles/en_with_words.json", l.WordLevelPath())
	assert.Equal(t, "/data/abc/subtitles/bilingual.ass", l.SubtitlePath())
	assert.Equal(t, "/data/abc/docs/en.md", l.DocEnPath())
	assert.Equal(t, "/data/abc/docs/zh.md", l.DocZhPath())
	assert.Equal(t, "/data/abc/docs/bilingual.md", l.DocBilingualPath())
	assert.Equal(t, "/data/abc/rendered/abc_with_subtitles.mp4", l.RenderedPath())
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		present []string
		want    string
		found   bool
	}{
		{name: "no thumbnail", kind: KindThumbnail, present: nil, found: false},
		{name: "jpg preferred", kind: KindThumbnail, present: []string{"thumbnail.png", "thumbnail.jpg", "thumbnail.webp"}, want: "thumbnail.jpg", found: true},
		{name: "webp fallback", kind: KindThumbnail, present: []string{"thumbnail.webp", "thumbnail.png"}, want: "thumbnail.webp", found: true},
		{name: "double extension from downloader", kind: KindThumbnail, present: []string{"thumbnail.webp.webp"}, want: "thumbnail.webp.webp", found: true},
		{name: "png last", kind: KindThumbnail, present: []string{"thumbnail.png"}, want: "thumbnail.png", found: true},
		{name: "bilingual subtitle preferred", kind: KindSubtitle, present: []string{"zh.ass", "bilingual.ass"}, want: "bilingual.ass", found: true},
		{name: "english subtitle", kind: KindSubtitle, present: []string{"zh.ass", "en.ass"}, want: "en.ass", found: true},
		{name: "unrelated files ignored", kind: KindSubtitle, present: []string{"en.json", "zh.json"}, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, name := range tt.present {
				touch(t, filepath.Join(dir, name))
			}

			got, ok := Resolve(tt.kind, dir)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, filepath.Join(dir, tt.want), got)
			}
		})
	}
}

func TestLayout_Resolve(t *testing.T) {
	l, err := Ensure(t.TempDir(), "abc")
	require.NoError(t, err)

	touch(t, filepath.Join(l.Original, "thumbnail.webp"))
	touch(t, filepath.Join(l.Subtitles, "zh.ass"))

	thumb, ok := l.Resolve(KindThumbnail)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(l.Original, "thumbnail.webp"), thumb)

	sub, ok := l.Resolve(KindSubtitle)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(l.Subtitles, "zh.ass"), sub)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	touch(t, file)

	assert.True(t, Exists(file))
	assert.False(t, Exists(dir), "directories are not artifacts")
	assert.False(t, Exists(filepath.Join(dir, "missing")))
	assert.False(t, Exists(""))
}
