// Package whisperx transcribes audio with WhisperX run through uvx.
package whisperx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/almensu/yanghooAI/internal/adapter"
	"github.com/almensu/yanghooAI/internal/layout"
	"github.com/almensu/yanghooAI/internal/transcript"
)

const (
	DefaultCommand     = "uvx"
	DefaultModel       = "large-v3"
	DefaultDevice      = "cpu"
	DefaultComputeType = "int8"
	DefaultBatchSize   = 8

	workDirName = ".whisperx"
)

// Config holds WhisperX settings
type Config struct {
	Command     string
	Model       string
	Device      string
	ComputeType string
	BatchSize   int
	Language    string // empty lets WhisperX detect it
	WordLevel   bool   // also write en_with_words.json
}

// Transcriber runs WhisperX.
type Transcriber struct {
	cfg    Config
	runner adapter.CommandRunner
}

// New creates a transcriber. A nil runner executes the real command.
func New(cfg Config, runner adapter.CommandRunner) *Transcriber {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Device == "" {
		cfg.Device = DefaultDevice
	}
	if cfg.ComputeType == "" {
		cfg.ComputeType = DefaultComputeType
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if runner == nil {
		// torch >= 2.6 refuses the pyannote checkpoints otherwise
		runner = adapter.ExecRunner{Env: []string{"TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1"}}
	}
	return &Transcriber{cfg: cfg, runner: runner}
}

// Transcribe writes en.json, and en_with_words.json in word-level mode, into targetDir.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, targetDir string) (adapter.TranscribeResult, error) {
	var result adapter.TranscribeResult

	workDir := filepath.Join(targetDir, workDirName)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return result, fmt.Errorf("whisperx: ensure work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	if _, err := t.runner.Run(ctx, t.cfg.Command, t.buildArgs(audioPath, workDir)...); err != nil {
		return result, fmt.Errorf("whisperx: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	raw, err := transcript.Load(filepath.Join(workDir, base+".json"))
	if err != nil {
		return result, fmt.Errorf("whisperx: %w", err)
	}
	normalize(raw, t.cfg.Language)

	if t.cfg.WordLevel {
		result.WordLevelPath = filepath.Join(targetDir, layout.WordLevelFile)
		if err := raw.Save(result.WordLevelPath); err != nil {
			return result, fmt.Errorf("whisperx: save word-level transcript: %w", err)
		}
	}

	result.TranscriptPath = filepath.Join(targetDir, layout.TranscriptFile)
	if err := raw.WithoutWords().Save(result.TranscriptPath); err != nil {
		return result, fmt.Errorf("whisperx: save transcript: %w", err)
	}

	return result, nil
}

func (t *Transcriber) buildArgs(audioPath, outputDir string) []string {
	args := []string{
		"whisperx",
		audioPath,
		"--model", t.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--device", t.cfg.Device,
		"--compute_type", t.cfg.ComputeType,
		"--batch_size", strconv.Itoa(t.cfg.BatchSize),
	}
	if t.cfg.Language != "" {
		args = append(args, "--language", t.cfg.Language)
	}
	if !t.cfg.WordLevel {
		args = append(args, "--no_align")
	}
	return args
}

// normalize trims segment text and fills a missing language.
func normalize(tr *transcript.Transcript, fallbackLanguage string) {
	kept := tr.Segments[:0]
	for _, seg := range tr.Segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		kept = append(kept, seg)
	}
	tr.Segments = kept

	if tr.Language == "" {
		tr.Language = fallbackLanguage
	}
	if tr.Language == "" {
		tr.Language = "en"
	}
}
