// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package main

import (
	"github.com/spf13/cobra"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON   bool
		keepTemp bool
	)

	cmd := &cobra.Command{
		Use:   "extract <archive|container>",
		Short: "List asset paths of every container inside a ZIP, RAR or 7z archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}

			done := ctx.progress(cmd, "extract")
			assets, err := u.ExtractAssetPathsFromArchive(cmd.Context(), args[0], ctx.key, keepTemp)
			done()
			if err != nil {
				return err
			}

			return writeAssets(cmd, assets, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().BoolVar(&keepTemp, "keep-temp", false, "Keep the staging directory")

	return cmd
}
