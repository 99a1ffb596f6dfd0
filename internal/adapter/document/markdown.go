// Package document renders transcripts as Markdown for reading.
package document

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/almensu/yanghooAI/internal/adapter"
	"github.com/almensu/yanghooAI/internal/fileutil"
	"github.com/almensu/yanghooAI/internal/layout"
	"github.com/almensu/yanghooAI/internal/transcript"
)

// MarkdownRenderer writes en.md, zh.md and bilingual.md.
type MarkdownRenderer struct{}

// Render reads the translated transcript and writes the three documents into outputDir.
func (MarkdownRenderer) Render(ctx context.Context, translatedPath, outputDir string) (adapter.DocumentResult, error) {
	var result adapter.DocumentResult
	if err := ctx.Err(); err != nil {
		return result, err
	}

	doc, err := transcript.Load(translatedPath)
	if err != nil {
		return result, fmt.Errorf("render documents: %w", err)
	}

	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(outputDir, layout.DocEnFile), English(doc)},
		{filepath.Join(outputDir, layout.DocZhFile), Chinese(doc)},
		{filepath.Join(outputDir, layout.DocBilingualFile), Bilingual(doc)},
	}
	for _, f := range files {
		if err := fileutil.WriteFileAtomic(f.path, []byte(f.content)); err != nil {
			return result, fmt.Errorf("render documents: %w", err)
		}
	}

	result.EnPath = files[0].path
	result.ZhPath = files[1].path
	result.BilingualPath = files[2].path
	return result, nil
}

// English lists the source text of every segment.
func English(doc *transcript.Transcript) string {
	var b strings.Builder
	b.WriteString("# English Subtitle\n\n")
	for _, seg := range doc.Segments {
		fmt.Fprintf(&b, "%s\n\n", seg.Text)
	}
	return b.String()
}

// Chinese lists the translated text of every translated segment.
func Chinese(doc *transcript.Transcript) string {
	var b strings.Builder
	b.WriteString("# 中文字幕\n\n")
	for _, seg := range doc.Segments {
		if seg.TranslatedText != "" {
			fmt.Fprintf(&b, "%s\n\n", seg.TranslatedText)
		}
	}
	return b.String()
}

// Bilingual pairs source and translation per segment.
func Bilingual(doc *transcript.Transcript) string {
	var b strings.Builder
	b.WriteString("# Bilingual Subtitle 双语字幕\n\n")
	for _, seg := range doc.Segments {
		fmt.Fprintf(&b, "**English**: %s\n\n", seg.Text)
		if seg.TranslatedText != "" {
			fmt.Fprintf(&b, "**中文**: %s\n\n", seg.TranslatedText)
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}
