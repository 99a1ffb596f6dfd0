package processor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/almensu/yanghooAI/internal/adapter"
	"github.com/almensu/yanghooAI/internal/adapter/document"
	"github.com/almensu/yanghooAI/internal/adapter/subtitle"
	"github.com/almensu/yanghooAI/internal/layout"
	"github.com/almensu/yanghooAI/internal/storage"
	"github.com/almensu/yanghooAI/internal/transcript"
	"github.com/almensu/yanghooAI/shared/database"
)

var errAdapter = errors.New("adapter exploded")

// fakes implements every adapter by writing small files at the expected names.
type fakes struct {
	mu    sync.Mutex
	calls map[string]int

	fail      map[string]bool // step name -> return errAdapter
	noOutput  map[string]bool // step name -> succeed without writing
	failURL   string
	thumbnail string // extension of the downloader thumbnail; empty for none
	title     string
	language  string

	burnedSubtitle string
}

func newFakes() *fakes {
	return &fakes{
		calls:     map[string]int{},
		fail:      map[string]bool{},
		noOutput:  map[string]bool{},
		thumbnail: "webp",
		title:     "A Talk",
		language:  "en",
	}
}

func (f *fakes) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if f.fail[name] {
		return errAdapter
	}
	return nil
}

func (f *fakes) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakes) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakes) write(name, path string) error {
	if f.noOutput[name] {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(name), 0o644)
}

func (f *fakes) Download(_ context.Context, url, targetDir string) (adapter.DownloadResult, error) {
	var res adapter.DownloadResult
	if err := f.record("download"); err != nil {
		return res, err
	}
	if f.failURL != "" && url == f.failURL {
		return res, errAdapter
	}

	res.VideoPath = filepath.Join(targetDir, layout.VideoFile)
	res.Title = f.title
	if err := f.write("download", res.VideoPath); err != nil {
		return res, err
	}
	if f.thumbnail != "" {
		res.ThumbnailPath = filepath.Join(targetDir, "thumbnail."+f.thumbnail)
		if err := f.write("thumbnail", res.ThumbnailPath); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (f *fakes) ExtractAudio(_ context.Context, _, targetDir string) (string, error) {
	if err := f.record("audio"); err != nil {
		return "", err
	}
	out := filepath.Join(targetDir, layout.AudioFile)
	return out, f.write("audio", out)
}

func (f *fakes) ExtractFrame(_ context.Context, _, outputPath string, _ time.Duration, _, _ int) error {
	if err := f.record("frame"); err != nil {
		return err
	}
	return f.write("frame", outputPath)
}

func (f *fakes) ConvertToJPEG(_ context.Context, _, dstPath string) error {
	if err := f.record("convert"); err != nil {
		return err
	}
	return f.write("convert", dstPath)
}

func (f *fakes) Transcribe(_ context.Context, _, targetDir string) (adapter.TranscribeResult, error) {
	var res adapter.TranscribeResult
	if err := f.record("transcribe"); err != nil {
		return res, err
	}
	res.TranscriptPath = filepath.Join(targetDir, layout.TranscriptFile)
	if f.noOutput["transcribe"] {
		return res, nil
	}

	doc := &transcript.Transcript{
		Language: f.language,
		Segments: []transcript.Segment{
			{Start: 0, End: 2, Text: "Hello there."},
			{Start: 2, End: 4, Text: "General Kenobi."},
		},
	}
	return res, doc.Save(res.TranscriptPath)
}

func (f *fakes) Translate(_ context.Context, text string) string {
	_ = f.record("translate")
	return "译" + text
}

func (f *fakes) BurnSubtitles(_ context.Context, _, subtitlePath, outputPath string) error {
	if err := f.record("burn"); err != nil {
		return err
	}
	f.mu.Lock()
	f.burnedSubtitle = subtitlePath
	f.mu.Unlock()
	return f.write("burn", outputPath)
}

type fakeSubtitles struct{ f *fakes }

func (s fakeSubtitles) Render(ctx context.Context, translatedPath, outputPath string) error {
	if err := s.f.record("subtitle"); err != nil {
		return err
	}
	if s.f.noOutput["subtitle"] {
		return nil
	}
	return subtitle.ASSRenderer{}.Render(ctx, translatedPath, outputPath)
}

type fakeDocuments struct{ f *fakes }

func (d fakeDocuments) Render(ctx context.Context, translatedPath, outputDir string) (adapter.DocumentResult, error) {
	if err := d.f.record("documents"); err != nil {
		return adapter.DocumentResult{}, err
	}
	res, err := document.MarkdownRenderer{}.Render(ctx, translatedPath, outputDir)
	if err == nil && d.f.noOutput["bilingual"] {
		err = os.Remove(res.BilingualPath)
	}
	return res, err
}

// logBuffer collects log output across goroutines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []string
	err       error
}

func (s *fakeScheduler) Schedule(_ context.Context, hashName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, hashName)
	return s.err
}

type harness struct {
	p         *Processor
	fakes     *fakes
	store     *storage.Storage
	scheduler *fakeScheduler
	base      string
	logs      *logBuffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logs := &logBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	dir := t.TempDir()

	client, err := database.NewClient(&database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(dir, "videos.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store := storage.NewStorage(client)
	require.NoError(t, store.Migrate(context.Background()))

	f := newFakes()
	sched := &fakeScheduler{}
	base := filepath.Join(dir, "data")

	p, err := New(Config{BasePath: base, LockRetryDelay: 10 * time.Millisecond, BusyWait: 300 * time.Millisecond}, &Dependencies{
		Logger:    logger,
		Store:     store,
		Scheduler: sched,
		Adapters: Adapters{
			Downloader:  f,
			Audio:       f,
			Frames:      f,
			Images:      f,
			Transcriber: f,
			Translator:  f,
			Subtitles:   fakeSubtitles{f},
			Documents:   fakeDocuments{f},
			HardSubs:    f,
		},
	})
	require.NoError(t, err)

	return &harness{p: p, fakes: f, store: store, scheduler: sched, base: base, logs: logs}
}
