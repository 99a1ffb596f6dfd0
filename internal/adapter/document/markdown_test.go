package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almensu/yanghooAI/internal/transcript"
)

var sample = &transcript.Transcript{
	Language: "en",
	Segments: []transcript.Segment{
		{Start: 0, End: 1, Text: "Hello.", TranslatedText: "你好。"},
		{Start: 1, End: 2, Text: "Goodbye."},
	},
}

func TestEnglish(t *testing.T) {
	assert.Equal(t, "# English Subtitle\n\nHello.\n\nGoodbye.\n\n", English(sample))
}

func TestChinese(t *testing.T) {
	assert.Equal(t, "# 中文字幕\n\n你好。\n\n", Chinese(sample))
}

func TestBilingual(t *testing.T) {
	want := "# Bilingual Subtitle 双语字幕\n\n" +
		"**English**: Hello.\n\n**中文**: 你好。\n\n---\n\n" +
		"**English**: Goodbye.\n\n---\n\n"
	assert.Equal(t, want, Bilingual(sample))
}

func TestMarkdownRenderer_Render(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "zh.json")
	require.NoError(t, sample.Save(src))

	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))

	res, err := MarkdownRenderer{}.Render(context.Background(), src, docs)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(docs, "en.md"), res.EnPath)
	assert.Equal(t, filepath.Join(docs, "zh.md"), res.ZhPath)
	assert.Equal(t, filepath.Join(docs, "bilingual.md"), res.BilingualPath)

	data, err := os.ReadFile(res.ZhPath)
	require.NoError(t, err)
	assert.Equal(t, Chinese(sample), string(data))
}

func TestMarkdownRenderer_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := MarkdownRenderer{}.Render(context.Background(), filepath.Join(dir, "zh.json"), dir)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "en.md"))
}
