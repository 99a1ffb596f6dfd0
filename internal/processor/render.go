package processor

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/almensu/yanghooAI/internal/domain"
	"github.com/almensu/yanghooAI/internal/identity"
	"github.com/almensu/yanghooAI/internal/layout"
)

// RenderHardSubtitles burns the job's subtitle track into a copy of its video and returns
// the path of the copy. The job's video path is left unchanged.
func (p *Processor) RenderHardSubtitles(ctx context.Context, hashName string) (string, error) {
	if !identity.Valid(hashName) {
		return "", domain.ErrJobNotFound
	}

	unlock, err := p.lock(ctx, hashName)
	if err != nil {
		return "", err
	}
	defer unlock()

	job, err := p.store.GetByHash(ctx, hashName)
	if err != nil {
		return "", err
	}
	l := p.layoutOf(job)

	video := job.VideoPath.String
	if !layout.Exists(video) {
		return "", fmt.Errorf("video: %w", domain.ErrArtifactNotFound)
	}

	subtitle := job.SubtitleASSPath.String
	if !layout.Exists(subtitle) {
		found, ok := l.Resolve(layout.KindSubtitle)
		if !ok {
			return "", fmt.Errorf("subtitle: %w", domain.ErrArtifactNotFound)
		}
		subtitle = found
	}

	if err := os.MkdirAll(l.Rendered, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", l.Rendered, err)
	}

	output := l.RenderedPath()
	p.logger.Info("Rendering hard subtitles",
		slog.String("hash_name", hashName),
		slog.String("subtitle", subtitle),
	)

	if err := p.adapters.HardSubs.BurnSubtitles(ctx, video, subtitle, output); err != nil {
		return "", fmt.Errorf("failed to render subtitles: %w", err)
	}
	if !layout.Exists(output) {
		return "", fmt.Errorf("failed to render subtitles: %w", domain.ErrOutputMissing)
	}

	return output, nil
}
