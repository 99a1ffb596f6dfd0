package processor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/identity"
	"github.com/almensu/yanghooAI/internal/layout"
	"github.com/almensu/yanghooAI/internal/transcript"
)

const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

var pipelineCalls = []string{"download", "audio", "transcribe", "subtitle", "documents"}

func TestNew_RequiresDependencies(t *testing.T) {
	h := newHarness(t)

	_, err := New(Config{}, &Dependencies{Store: h.store, Adapters: h.p.adapters})
	assert.ErrorContains(t, err, "base path")

	_, err = New(Config{BasePath: h.base}, &Dependencies{Adapters: h.p.adapters})
	assert.ErrorContains(t, err, "store")

	adapters := h.p.adapters
	adapters.Transcriber = nil
	_, err = New(Config{BasePath: h.base}, &Dependencies{Store: h.store, Adapters: adapters})
	assert.ErrorContains(t, err, "transcriber")
}

func TestSubmit_RunsEveryStage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.p.Submit(ctx, videoURL)
	require.NoError(t, err)

	hash, _ := identity.Derive(videoURL)
	l := layout.For(h.base, hash)

	assert.Equal(t, hash, job.HashName)
	assert.NotZero(t, job.ID)
	assert.Equal(t, "A Talk", job.Title.String)
	assert.Equal(t, l.Root, job.FolderPath)
	assert.Equal(t, l.VideoPath(), job.VideoPath.String)
	assert.Equal(t, l.ThumbnailPath(), job.ThumbnailPath.String)
	assert.Equal(t, l.AudioPath(), job.AudioPath.String)
	assert.Equal(t, l.TranscriptPath(), job.TranscriptJSONPath.String)
	assert.Equal(t, l.TranslatedPath(), job.TranslatedJSONPath.String)
	assert.Equal(t, l.SubtitlePath(), job.SubtitleASSPath.String)
	assert.Equal(t, l.DocEnPath(), job.DocEnPath.String)
	assert.Equal(t, l.DocZhPath(), job.DocZhPath.String)
	assert.False(t, job.WordLevelJSONPath.Valid)
	assert.Equal(t, "completed", job.Status)
	assert.Equal(t, domain.StageCompleted, DeriveStatus(job))

	for _, name := range pipelineCalls {
		assert.Equal(t, 1, h.fakes.count(name), name)
	}
	assert.Equal(t, 1, h.fakes.count("convert"))
	assert.Zero(t, h.fakes.count("frame"))
	assert.Equal(t, 2, h.fakes.count("translate"))

	stored, err := h.store.GetByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, job.ID, stored.ID)
	assert.Equal(t, videoURL, stored.SourceURL)

	translated, err := transcript.Load(l.TranslatedPath())
	require.NoError(t, err)
	assert.Equal(t, "译Hello there.", translated.Segments[0].TranslatedText)

	assert.FileExists(t, l.InfoPath())
	assert.FileExists(t, l.DocBilingualPath())
}

func TestSubmit_MissingBilingualDocumentIsLogged(t *testing.T) {
	h := newHarness(t)
	h.fakes.noOutput["bilingual"] = true

	job, err := h.p.Submit(context.Background(), videoURL)
	require.NoError(t, err)

	assert.Equal(t, domain.StageCompleted, DeriveStatus(job))
	assert.False(t, layout.Exists(h.p.layoutOf(job).DocBilingualPath()))
	assert.Contains(t, h.logs.String(), "Bilingual document missing")
}

func TestSubmit_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.p.Submit(ctx, videoURL)
	require.NoError(t, err)
	calls := h.fakes.total()

	for _, u := range []string{videoURL, "https://youtu.be/dQw4w9WgXcQ?si=share", "https://m.youtube.com/watch?v=dQw4w9WgXcQ&t=30"} {
		again, err := h.p.Submit(ctx, u)
		require.NoError(t, err, u)
		assert.Equal(t, first.HashName, again.HashName)
		assert.Equal(t, first.ID, again.ID)
	}

	assert.Equal(t, calls, h.fakes.total(), "no adapter runs for an already processed URL")
}

func TestSubmit_FailureLeavesNoTrace(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *fakes)
		stage    domain.Stage
		sentinel error
	}{
		{name: "download fails", setup: func(f *fakes) { f.fail["download"] = true }, stage: domain.StageDownloading, sentinel: errAdapter},
		{name: "download writes nothing", setup: func(f *fakes) { f.noOutput["download"] = true }, stage: domain.StageDownloading, sentinel: domain.ErrOutputMissing},
		{name: "audio fails", setup: func(f *fakes) { f.fail["audio"] = true }, stage: domain.StageConverting, sentinel: errAdapter},
		{name: "audio writes nothing", setup: func(f *fakes) { f.noOutput["audio"] = true }, stage: domain.StageConverting, sentinel: domain.ErrOutputMissing},
		{name: "transcribe fails", setup: func(f *fakes) { f.fail["transcribe"] = true }, stage: domain.StageTranscribing, sentinel: errAdapter},
		{name: "transcribe writes nothing", setup: func(f *fakes) { f.noOutput["transcribe"] = true }, stage: domain.StageTranscribing, sentinel: domain.ErrOutputMissing},
		{name: "subtitle fails", setup: func(f *fakes) { f.fail["subtitle"] = true }, stage: domain.StageGeneratingSubtitle, sentinel: errAdapter},
		{name: "subtitle writes nothing", setup: func(f *fakes) { f.noOutput["subtitle"] = true }, stage: domain.StageGeneratingSubtitle, sentinel: domain.ErrOutputMissing},
		{name: "documents fail", setup: func(f *fakes) { f.fail["documents"] = true }, stage: domain.StageGeneratingDocument, sentinel: errAdapter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h.fakes)

			job, err := h.p.Submit(context.Background(), videoURL)
			require.Error(t, err)
			assert.Nil(t, job)

			var stageErr *domain.StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, tt.stage, stageErr.Stage)
			assert.ErrorIs(t, err, tt.sentinel)

			hash, _ := identity.Derive(videoURL)
			assert.Equal(t, hash, stageErr.HashName)
			assert.NoDirExists(t, filepath.Join(h.base, hash))

			_, err = h.store.GetByHash(context.Background(), hash)
			assert.ErrorIs(t, err, domain.ErrJobNotFound)
		})
	}
}

func TestSubmit_ThumbnailFallbacks(t *testing.T) {
	t.Run("frame grab when the source has no thumbnail", func(t *testing.T) {
		h := newHarness(t)
		h.fakes.thumbnail = ""

		job, err := h.p.Submit(context.Background(), videoURL)
		require.NoError(t, err)
		assert.Equal(t, 1, h.fakes.count("frame"))
		assert.Zero(t, h.fakes.count("convert"))
		assert.True(t, strings.HasSuffix(job.ThumbnailPath.String, "thumbnail.jpg"))
	})

	t.Run("original kept when conversion and frame grab fail", func(t *testing.T) {
		h := newHarness(t)
		h.fakes.fail["convert"] = true
		h.fakes.fail["frame"] = true

		job, err := h.p.Submit(context.Background(), videoURL)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(job.ThumbnailPath.String, "thumbnail.webp"))
		assert.Equal(t, "completed", job.Status)
	})

	t.Run("no thumbnail at all", func(t *testing.T) {
		h := newHarness(t)
		h.fakes.thumbnail = ""
		h.fakes.fail["frame"] = true

		job, err := h.p.Submit(context.Background(), videoURL)
		require.NoError(t, err)
		assert.False(t, job.ThumbnailPath.Valid)
		assert.Equal(t, "completed", job.Status)
	})
}

func TestSubmit_AdoptsExistingArtifacts(t *testing.T) {
	h := newHarness(t)
	hash, _ := identity.Derive(videoURL)

	l, err := layout.Ensure(h.base, hash)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(l.VideoPath(), []byte("video"), 0o644))
	require.NoError(t, os.WriteFile(l.AudioPath(), []byte("audio"), 0o644))
	require.NoError(t, writeManifest(l.InfoPath(), manifest{Title: "From Manifest"}))

	job, err := h.p.Submit(context.Background(), videoURL)
	require.NoError(t, err)

	assert.Zero(t, h.fakes.count("download"))
	assert.Zero(t, h.fakes.count("audio"))
	assert.Equal(t, 1, h.fakes.count("transcribe"))
	assert.Equal(t, "From Manifest", job.Title.String)
	assert.Equal(t, "completed", job.Status)
}

func TestSubmit_RemovesOrphanedRow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	hash, _ := identity.Derive(videoURL)

	orphan := &domain.Job{
		SourceURL:  videoURL,
		HashName:   hash,
		FolderPath: filepath.Join(h.base, hash),
		Status:     "completed",
	}
	require.NoError(t, h.store.Create(ctx, orphan))

	job, err := h.p.Submit(ctx, videoURL)
	require.NoError(t, err)

	assert.NotEqual(t, orphan.ID, job.ID)
	assert.Equal(t, 1, h.fakes.count("download"))
	assert.DirExists(t, job.FolderPath)
}

func TestSubmit_RepairsDriftedPaths(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.p.Submit(ctx, videoURL)
	require.NoError(t, err)
	calls := h.fakes.total()

	l := layout.For(h.base, job.HashName)
	require.NoError(t, os.Remove(l.ThumbnailPath()))
	require.NoError(t, os.Remove(filepath.Join(l.Original, "thumbnail.webp")))
	require.NoError(t, os.WriteFile(filepath.Join(l.Original, "thumbnail.png"), []byte("png"), 0o644))
	require.NoError(t, os.Remove(l.DocZhPath()))

	again, err := h.p.Submit(ctx, videoURL)
	require.NoError(t, err)
	assert.Equal(t, calls, h.fakes.total())

	assert.Equal(t, filepath.Join(l.Original, "thumbnail.png"), again.ThumbnailPath.String)
	assert.False(t, again.DocZhPath.Valid)
	assert.Equal(t, "generating_document", again.Status)

	stored, err := h.store.GetByHash(ctx, job.HashName)
	require.NoError(t, err)
	assert.Equal(t, again.ThumbnailPath, stored.ThumbnailPath)
	assert.False(t, stored.DocZhPath.Valid)
	assert.Equal(t, "generating_document", stored.Status)
}

func TestSubmit_InvalidURL(t *testing.T) {
	h := newHarness(t)

	_, err := h.p.Submit(context.Background(), "ftp://example.com/clip.mp4")

	var validationErr *domain.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "url", validationErr.Field)
	assert.Zero(t, h.fakes.total())
}

func TestSubmitBatch_PartialSuccess(t *testing.T) {
	h := newHarness(t)
	urls := []string{
		"https://www.youtube.com/watch?v=aaaaaaaaaaa",
		"https://www.youtube.com/watch?v=bbbbbbbbbbb",
		"https://www.youtube.com/watch?v=ccccccccccc",
	}
	h.fakes.failURL = urls[1]

	results := h.p.SubmitBatch(context.Background(), urls)
	require.Len(t, results, 3)

	var ok, failed int
	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
		if r.Err != nil {
			failed++
			assert.Nil(t, r.Job)
			assert.Equal(t, urls[1], r.URL)
			continue
		}
		ok++
		assert.NotNil(t, r.Job)
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)

	failedHash, _ := identity.Derive(urls[1])
	assert.NoDirExists(t, filepath.Join(h.base, failedHash))
}

func TestSubmitUpload_AdvancesInBackground(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.p.SubmitUpload(ctx, UploadRequest{
		Filename: "clip.mp4",
		Title:    "  My Clip ",
		Content:  strings.NewReader("video bytes"),
	})
	require.NoError(t, err)

	assert.True(t, identity.Valid(job.HashName))
	assert.True(t, job.IsUpload())
	assert.Equal(t, domain.UploadSourceURL(job.HashName), job.SourceURL)
	assert.Equal(t, "My Clip", job.Title.String)
	assert.Equal(t, "converting", job.Status)
	assert.Equal(t, []string{job.HashName}, h.scheduler.scheduled)

	data, err := os.ReadFile(job.VideoPath.String)
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))

	stored, err := h.store.GetByHash(ctx, job.HashName)
	require.NoError(t, err)
	assert.Equal(t, domain.StageConverting, DeriveStatus(stored))

	require.NoError(t, h.p.Advance(ctx, job.HashName))

	done, err := h.store.GetByHash(ctx, job.HashName)
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, domain.StageCompleted, DeriveStatus(done))
	assert.Equal(t, "My Clip", done.Title.String)
	assert.Zero(t, h.fakes.count("download"))
	assert.Equal(t, 1, h.fakes.count("frame"))
}

func TestSubmitUpload_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   UploadRequest
		field string
	}{
		{name: "missing title", req: UploadRequest{Filename: "a.mp4", Content: strings.NewReader("x")}, field: "title"},
		{name: "missing filename", req: UploadRequest{Title: "t", Content: strings.NewReader("x")}, field: "video_file"},
		{name: "missing content", req: UploadRequest{Filename: "a.mp4", Title: "t"}, field: "video_file"},
		{name: "empty content", req: UploadRequest{Filename: "a.mp4", Title: "t", Content: bytes.NewReader(nil)}, field: "video_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			_, err := h.p.SubmitUpload(context.Background(), tt.req)

			var validationErr *domain.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.field, validationErr.Field)
			assert.Empty(t, h.scheduler.scheduled)

			jobs, err := h.store.List(context.Background(), 0, 10)
			require.NoError(t, err)
			assert.Empty(t, jobs)
		})
	}
}

func TestSubmitUpload_SchedulerFailureKeepsJob(t *testing.T) {
	h := newHarness(t)
	h.scheduler.err = errors.New("queue full")

	job, err := h.p.SubmitUpload(context.Background(), UploadRequest{
		Filename: "clip.mp4",
		Title:    "Clip",
		Content:  strings.NewReader("video"),
	})
	require.NoError(t, err)

	_, err = h.store.GetByHash(context.Background(), job.HashName)
	assert.NoError(t, err)
}

func TestAdvance_FailureKeepsProgress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fakes.fail["transcribe"] = true

	job, err := h.p.SubmitUpload(ctx, UploadRequest{Filename: "a.mp4", Title: "t", Content: strings.NewReader("v")})
	require.NoError(t, err)

	err = h.p.Advance(ctx, job.HashName)
	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, domain.StageTranscribing, stageErr.Stage)

	stored, err := h.store.GetByHash(ctx, job.HashName)
	require.NoError(t, err)
	assert.True(t, stored.AudioPath.Valid)
	assert.Equal(t, "transcribing", stored.Status)
	assert.DirExists(t, stored.FolderPath)

	// a retry after the cause is fixed picks up where the job stopped
	h.fakes.fail["transcribe"] = false
	require.NoError(t, h.p.Advance(ctx, job.HashName))
	assert.Equal(t, 1, h.fakes.count("audio"))

	stored, err = h.store.GetByHash(ctx, job.HashName)
	require.NoError(t, err)
	assert.Equal(t, "completed", stored.Status)
}

func TestAdvance_StatusIsMonotonic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.p.SubmitUpload(ctx, UploadRequest{Filename: "a.mp4", Title: "t", Content: strings.NewReader("v")})
	require.NoError(t, err)

	var observed []domain.Stage
	l := layout.For(h.base, job.HashName)
	r := h.p.newRun(job, l)
	err = h.p.runStages(ctx, r, func(ctx context.Context, j *domain.Job) error {
		observed = append(observed, DeriveStatus(j))
		return h.store.Update(ctx, j)
	})
	require.NoError(t, err)

	for i := 1; i < len(observed); i++ {
		assert.GreaterOrEqual(t, int(observed[i]), int(observed[i-1]))
	}
	assert.Equal(t, domain.StageCompleted, observed[len(observed)-1])
}

func TestAdvance_MissingUploadSource(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.p.SubmitUpload(ctx, UploadRequest{Filename: "a.mp4", Title: "t", Content: strings.NewReader("v")})
	require.NoError(t, err)
	require.NoError(t, os.Remove(job.VideoPath.String))

	err = h.p.Advance(ctx, job.HashName)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Zero(t, h.fakes.count("download"))
}

func TestAdvance_UnknownJob(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.p.Advance(context.Background(), identity.NewUploadHash()), domain.ErrJobNotFound)

	var validationErr *domain.ValidationError
	assert.True(t, errors.As(h.p.Advance(context.Background(), "../x"), &validationErr))
}

func TestResume(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.p.SubmitUpload(ctx, UploadRequest{Filename: "a.mp4", Title: "t", Content: strings.NewReader("v")})
	require.NoError(t, err)

	require.NoError(t, h.p.Resume(ctx, job.HashName))
	assert.Equal(t, []string{job.HashName, job.HashName}, h.scheduler.scheduled)

	assert.ErrorIs(t, h.p.Resume(ctx, identity.NewUploadHash()), domain.ErrJobNotFound)

	h.p.SetScheduler(nil)
	assert.ErrorIs(t, h.p.Resume(ctx, job.HashName), ErrNoScheduler)
}

func TestDeriveStatus_VideoWithoutAudioIsConverting(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(video, []byte("v"), 0o644))

	job := &domain.Job{
		VideoPath: domain.Path(video),
		AudioPath: domain.Path(filepath.Join(dir, "audio.wav")),
		Status:    "completed",
	}
	assert.Equal(t, domain.StageConverting, DeriveStatus(job))
}
