// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "uepak",
		Short:         "Unreal Engine pak/utoc asset extraction",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path (TOML)")
	flags.StringVarP(&ctx.keyFlag, "key", "k", "", "AES-256 key as 64 hex digits (default $"+keyEnv+")")
	flags.StringVar(&ctx.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&ctx.logFormat, "log-format", "", "Log format: console, json")
	flags.IntVarP(&ctx.workers, "workers", "j", 0, "Batch concurrency (default GOMAXPROCS)")
	flags.StringVar(&ctx.stagingRoot, "staging-root", "", "Parent directory for archive staging")
	flags.StringVar(&ctx.rarTool, "rar-tool", "", "RAR extraction tool (default $RAR_TOOL_PATH or PATH lookup)")
	flags.BoolVarP(&ctx.quiet, "quiet", "q", false, "Suppress informational output")
	flags.BoolVar(&ctx.noProgress, "no-progress", false, "Disable the progress bar")

	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newUnpackCommand(ctx))
	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newInfoCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))

	return rootCmd
}
