// Package subtitle renders a translated transcript as a two-style ASS track.
package subtitle

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/almensu/yanghooAI/internal/fileutil"
	"github.com/almensu/yanghooAI/internal/transcript"
)

// Style is one ASS style line.
type Style struct {
	Name      string
	Font      string
	Size      int
	Colour    string // &HAABBGGRR
	Alignment int    // numpad layout, 2 = bottom centre
	MarginV   int
	MaxChars  int
}

var (
	// ChineseStyle renders the translation in yellow above the source line.
	ChineseStyle = Style{Name: "CN", Font: "Microsoft YaHei", Size: 16, Colour: "&H0080FFFF", Alignment: 2, MarginV: 10, MaxChars: 50}
	// EnglishStyle renders the source text in white.
	EnglishStyle = Style{Name: "EN", Font: "Arial", Size: 12, Colour: "&H00FFFFFF", Alignment: 2, MarginV: 10, MaxChars: 30}
)

const (
	minChars       = 20
	minPartSeconds = 1.0
	delimiters     = "。，！？,.!?;；:- "
)

// ASSRenderer implements the subtitle stage.
type ASSRenderer struct{}

// Render reads translatedPath and writes the ASS track to outputPath.
func (ASSRenderer) Render(ctx context.Context, translatedPath, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := transcript.Load(translatedPath)
	if err != nil {
		return fmt.Errorf("render subtitles: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(translatedPath), filepath.Ext(translatedPath))
	if err := fileutil.WriteFileAtomic(outputPath, []byte(Build(title, doc))); err != nil {
		return fmt.Errorf("render subtitles: %w", err)
	}
	return nil
}

// Build returns the ASS document for doc.
func Build(title string, doc *transcript.Transcript) string {
	lines := []string{
		"[Script Info]",
		"Title: " + title,
		"ScriptType: v4.00+",
		"WrapStyle: 0",
		"ScaledBorderAndShadow: yes",
		"YCbCr Matrix: TV.601",
		"",
		"[V4+ Styles]",
		"Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding",
		ChineseStyle.line(),
		EnglishStyle.line(),
		"",
		"[Events]",
		"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text",
	}

	for _, seg := range doc.Segments {
		lines = append(lines, dialogues(ChineseStyle, seg.TranslatedText, seg.Start, seg.End)...)
		lines = append(lines, dialogues(EnglishStyle, seg.Text, seg.Start, seg.End)...)
	}

	return strings.Join(lines, "\n") + "\n"
}

func (s Style) line() string {
	return fmt.Sprintf("Style: %s, %s, %d, %s, &H000000FF, &H00000000, &H00000000, 0, 0, 0, 0, 100, 100, 0, 0, 1, 1, 0, %d, 10, 10, %d, 1",
		s.Name, s.Font, s.Size, s.Colour, s.Alignment, s.MarginV)
}

// dialogues splits text and spreads the parts over [start, end] by character count.
func dialogues(style Style, text string, start, end float64) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	parts := SplitText(text, style.MaxChars, minChars)
	total := 0
	for _, p := range parts {
		total += utf8.RuneCountInString(p)
	}

	duration := end - start
	out := make([]string, 0, len(parts))
	cursor := start
	for i, part := range parts {
		partDuration := duration
		if total > 0 {
			partDuration = float64(utf8.RuneCountInString(part)) / float64(total) * duration
		}
		partEnd := cursor + math.Max(partDuration, minPartSeconds)
		if i == len(parts)-1 {
			partEnd = end
		}

		out = append(out, fmt.Sprintf("Dialogue: 0,%s,%s,%s,,0,0,0,,%s",
			FormatTime(cursor), FormatTime(partEnd), style.Name, strings.ReplaceAll(part, "\n", `\N`)))
		cursor = partEnd
	}
	return out
}

// SplitText breaks text at punctuation into chunks of at most maxChars runes, preferring
// chunks of at least minChars.
func SplitText(text string, maxChars, minChars int) []string {
	if utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var (
		splits  []string
		current []rune
	)
	for _, r := range text {
		current = append(current, r)
		if strings.ContainsRune(delimiters, r) && len(current) >= minChars && len(current) <= maxChars {
			splits = appendTrimmed(splits, string(current))
			current = current[:0]
		}
	}

	if len(current) > maxChars {
		return append(splits, splitLong(string(current), maxChars)...)
	}
	return appendTrimmed(splits, string(current))
}

// splitLong packs words greedily, cutting words that alone exceed maxChars.
func splitLong(text string, maxChars int) []string {
	var (
		out    []string
		phrase string
	)
	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > maxChars {
			out = appendTrimmed(out, phrase)
			phrase = ""
			runes := []rune(word)
			out = append(out, string(runes[:maxChars]))
			word = string(runes[maxChars:])
		}

		candidate := word
		if phrase != "" {
			candidate = phrase + " " + word
		}
		if utf8.RuneCountInString(candidate) <= maxChars {
			phrase = candidate
			continue
		}
		out = appendTrimmed(out, phrase)
		phrase = word
	}
	return appendTrimmed(out, phrase)
}

func appendTrimmed(list []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		list = append(list, s)
	}
	return list
}

// FormatTime renders seconds as H:MM:SS.CC.
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	return fmt.Sprintf("%d:%02d:%02d.%02d", cs/360000, cs%360000/6000, cs%6000/100, cs%100)
}
