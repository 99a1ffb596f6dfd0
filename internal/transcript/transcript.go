// Package transcript holds the JSON documents exchanged between pipeline stages.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/almensu/yanghooAI/internal/fileutil"
)

// Word is one aligned word. Alignment can leave timings unset for tokens such as numerals.
type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// Segment is a timed span of speech.
type Segment struct {
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Text           string  `json:"text"`
	TranslatedText string  `json:"translated_text,omitempty"`
	Words          []Word  `json:"words,omitempty"`
}

// Transcript is the content of en.json, zh.json and en_with_words.json.
type Transcript struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// Load reads a transcript file.
func Load(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse transcript %s: %w", path, err)
	}
	return &t, nil
}

// Save writes the transcript as indented UTF-8 JSON.
func (t *Transcript) Save(path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes())
}

// WithoutWords returns a copy with word timings stripped.
func (t *Transcript) WithoutWords() *Transcript {
	out := &Transcript{Language: t.Language, Segments: make([]Segment, len(t.Segments))}
	for i, seg := range t.Segments {
		seg.Words = nil
		out.Segments[i] = seg
	}
	return out
}
