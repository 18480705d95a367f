// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package main

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/woozymasta/uepak"
	"github.com/woozymasta/uepak/internal/logging"
)

// keyEnv supplies the default AES key when --key is not set.
const keyEnv = "UEPAK_KEY"

type commandContext struct {
	configFlag  string
	keyFlag     string
	logLevel    string
	logFormat   string
	stagingRoot string
	rarTool     string
	workers     int
	quiet       bool
	noProgress  bool

	once     sync.Once
	cfg      uepak.Config
	key      *uepak.DecryptionKey
	logger   *logging.Logger
	reporter *uepak.Reporter
	unpacker *uepak.Unpacker
	err      error
}

// ensure loads configuration and builds the shared Unpacker once.
func (c *commandContext) ensure(cmd *cobra.Command) (*uepak.Unpacker, error) {
	c.once.Do(func() {
		c.err = c.setup(cmd)
	})

	return c.unpacker, c.err
}

func (c *commandContext) setup(cmd *cobra.Command) error {
	cfg := uepak.DefaultConfig()
	if path := strings.TrimSpace(c.configFlag); path != "" {
		loaded, err := uepak.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.logFormat != "" {
		cfg.LogFormat = c.logFormat
	}
	if c.workers > 0 {
		cfg.Workers = c.workers
	}
	if c.stagingRoot != "" {
		cfg.StagingRoot = c.stagingRoot
	}
	if c.rarTool != "" {
		cfg.RarTool = c.rarTool
	}

	hexKey := strings.TrimSpace(c.keyFlag)
	if hexKey == "" {
		hexKey = strings.TrimSpace(os.Getenv(keyEnv))
	}
	if hexKey != "" {
		cfg.DefaultKey = hexKey
	}
	if err := cfg.Validate(); err != nil {
		return &uepak.Error{Kind: uepak.ErrInvalidArgument, Op: "configure", Err: err}
	}

	key, err := cfg.Key()
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if c.quiet {
		level = "warn"
	}
	logger, err := logging.New(logging.Options{
		Writer: cmd.ErrOrStderr(),
		Level:  level,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.key = key
	c.logger = logger
	c.reporter = uepak.NewReporter(0)
	c.unpacker = uepak.New(
		uepak.WithConfig(cfg),
		uepak.WithLogger(logger.Logger),
		uepak.WithReporter(c.reporter),
	)

	logger.Debug("configured",
		"config", c.configFlag,
		"workers", cfg.Workers,
		"staging_root", cfg.StagingRoot,
		"rar_timeout", cfg.RarTimeout,
		"key_set", key != nil)

	return nil
}

// progress attaches a progress bar to the shared reporter for one command run.
func (c *commandContext) progress(cmd *cobra.Command, desc string) func() {
	if c.quiet || c.noProgress {
		return func() {}
	}

	return attachProgress(cmd.ErrOrStderr(), c.reporter, desc, 65*time.Millisecond)
}
