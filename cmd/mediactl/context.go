package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/almensu/yanghooAI/internal/bootstrap"
	"github.com/almensu/yanghooAI/internal/config"
	"github.com/almensu/yanghooAI/shared/logger"
)

const defaultConfigPath = "configs/mediactl/config.yaml"

type commandContext struct {
	configFlag *string

	appOnce sync.Once
	app     *bootstrap.App
	log     *logger.Logger
	appErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			return path
		}
	}
	return bootstrap.ConfigPath("MEDIACTL_CONFIG_PATH", defaultConfigPath)
}

func (c *commandContext) ensureApp(ctx context.Context) (*bootstrap.App, error) {
	c.appOnce.Do(func() {
		cfg, err := bootstrap.LoadConfig(c.configPath(), (*config.Config).Validate)
		if err != nil {
			c.appErr = err
			return
		}

		// stdout carries command output
		if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
			cfg.Logging.Output = "stderr"
		}
		log, err := bootstrap.InitLogger(&cfg.Logging)
		if err != nil {
			c.appErr = fmt.Errorf("failed to initialize logger: %w", err)
			return
		}
		c.log = log

		c.app, c.appErr = bootstrap.New(ctx, cfg, bootstrap.RoleCLI, log.Logger)
	})
	return c.app, c.appErr
}

func (c *commandContext) withApp(ctx context.Context, fn func(*bootstrap.App) error) error {
	app, err := c.ensureApp(ctx)
	if err != nil {
		return err
	}
	return fn(app)
}

func (c *commandContext) close() error {
	var err error
	if c.app != nil {
		err = c.app.Close()
	}
	if c.log != nil {
		_ = c.log.Close()
	}
	return err
}
