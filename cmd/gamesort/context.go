package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"gamesort/internal/cachestore"
	"gamesort/internal/config"
	"gamesort/internal/logging"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// ensureLogger builds the process logger once. Console output goes to stderr
// so JSON on stdout stays parseable.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger.With(logging.String(logging.FieldComponent, "cli"))
	})
	return c.logger, c.loggerErr
}

type lockMode int

const (
	lockShared lockMode = iota
	lockExclusive
)

// openCache takes the maintenance lock and opens the cache database. The
// returned release func closes the store before dropping the lock.
func (c *commandContext) openCache(mode lockMode) (*cachestore.Store, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	var lock *cachestore.Lock
	if mode == lockExclusive {
		lock, err = cachestore.LockExclusive(cfg.LockPath())
	} else {
		lock, err = cachestore.LockShared(cfg.LockPath())
	}
	if err != nil {
		if errors.Is(err, cachestore.ErrLocked) {
			return nil, nil, fmt.Errorf("cache is busy: another gamesort command holds %s", cfg.LockPath())
		}
		return nil, nil, err
	}

	store, err := cachestore.Open(cfg, logger)
	if err != nil {
		_ = lock.Release()
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	release := func() {
		_ = store.Close()
		_ = lock.Release()
	}
	return store, release, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
