// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/woozymasta/uepak"
)

// unpackFlags are shared by unpack and batch unpack.
type unpackFlags struct {
	stripPrefix string
	include     []string
	strict      bool
	force       bool
	rawNames    bool
	noStrip     bool
}

func (f *unpackFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.stripPrefix, "strip-prefix", "", "Prefix removed from entry paths; empty keeps paths as is (default from config, "+uepak.DefaultStripPrefix+")")
	cmd.Flags().BoolVar(&f.noStrip, "no-strip", false, "Keep entry paths unstripped")
	cmd.MarkFlagsMutuallyExclusive("strip-prefix", "no-strip")
	cmd.Flags().StringArrayVarP(&f.include, "include", "i", nil, "Gitignore-style glob selecting entries; repeatable, ! excludes")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Fail on entries outside the strip prefix")
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&f.rawNames, "raw-names", false, "Write entry names without sanitization")
}

func (f *unpackFlags) build(cmd *cobra.Command, ctx *commandContext) (uepak.UnpackOptions, error) {
	prefix := ctx.cfg.EffectiveStripPrefix()
	switch {
	case f.noStrip:
		prefix = ""
	case cmd.Flags().Changed("strip-prefix"):
		prefix = f.stripPrefix
	}

	policy := uepak.StripKeepUnmatched
	if f.strict {
		policy = uepak.StripRejectUnmatched
	}

	return uepak.NewUnpackOptionsBuilder().
		WithKey(ctx.key).
		WithStripPrefix(prefix).
		WithStripPolicy(policy).
		WithForce(f.force).
		WithQuiet(ctx.quiet).
		WithRawNames(f.rawNames).
		WithInclude(f.include...).
		Build()
}

func newUnpackCommand(ctx *commandContext) *cobra.Command {
	var (
		flags  unpackFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "unpack <container> <output-dir>",
		Short: "Extract entries of a pak or utoc container to a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}
			opts, err := flags.build(cmd, ctx)
			if err != nil {
				return err
			}

			done := ctx.progress(cmd, "unpack")
			assets, err := u.UnpackContainer(cmd.Context(), args[0], args[1], opts)
			done()
			if err != nil {
				return err
			}

			if asJSON {
				return writeAssets(cmd, assets, true)
			}
			if !ctx.quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "%d entries from %s written to %s\n", len(assets), args[0], args[1])
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print written asset paths as JSON")

	return cmd
}
