package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/almensu/yanghooAI/internal/domain"
)

const lockDir = ".locks"

func (p *Processor) flockFor(hashName string) (*flock.Flock, error) {
	dir := filepath.Join(p.cfg.BasePath, lockDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return flock.New(filepath.Join(dir, hashName+".lock")), nil
}

// lock waits for the per-hash lock. The lock is a file lock so the API and worker
// processes exclude each other too.
func (p *Processor) lock(ctx context.Context, hashName string) (func(), error) {
	fl, err := p.flockFor(hashName)
	if err != nil {
		return nil, err
	}

	ok, err := fl.TryLockContext(ctx, p.cfg.LockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", hashName, err)
	}
	if !ok {
		return nil, domain.ErrJobBusy
	}

	return p.unlocker(fl, hashName), nil
}

// lockWithin waits up to wait for the per-hash lock, then reports domain.ErrJobBusy.
// Short holders such as a status read release well within it; a running stage does not.
func (p *Processor) lockWithin(ctx context.Context, hashName string, wait time.Duration) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	unlock, err := p.lock(waitCtx, hashName)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, domain.ErrJobBusy
	}
	return unlock, err
}

// tryLock takes the per-hash lock only if it is free.
func (p *Processor) tryLock(hashName string) (func(), error) {
	fl, err := p.flockFor(hashName)
	if err != nil {
		return nil, err
	}

	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", hashName, err)
	}
	if !ok {
		return nil, domain.ErrJobBusy
	}

	return p.unlocker(fl, hashName), nil
}

func (p *Processor) unlocker(fl *flock.Flock, hashName string) func() {
	return func() {
		if err := fl.Unlock(); err != nil {
			p.logger.Warn("Failed to release job lock",
				slog.String("hash_name", hashName),
				slog.Any("error", err),
			)
		}
	}
}
