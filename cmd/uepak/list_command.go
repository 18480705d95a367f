// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/woozymasta/uepak"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON     bool
		sorted     bool
		assetsOnly bool
		long       bool
	)

	cmd := &cobra.Command{
		Use:   "list <container>",
		Short: "List asset paths of a pak or utoc container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}

			if long {
				entries, err := u.ListEntries(cmd.Context(), args[0], ctx.key)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, entries)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderEntries(entries))
				return nil
			}

			format := uepak.FormatText
			if asJSON {
				format = uepak.FormatJSON
			}
			opts, err := uepak.NewListOptionsBuilder().
				WithKey(ctx.key).
				WithFormat(string(format)).
				WithSorted(sorted).
				WithAssetsOnly(assetsOnly).
				WithQuiet(ctx.quiet).
				Build()
			if err != nil {
				return err
			}

			assets, err := u.ListContainer(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			return writeAssets(cmd, assets, opts.Format() == uepak.FormatJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().BoolVarP(&sorted, "sort", "s", false, "Sort and deduplicate paths")
	cmd.Flags().BoolVarP(&assetsOnly, "assets-only", "a", false, "Only list recognized asset extensions")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show sizes and compression per entry")

	return cmd
}

func renderEntries(entries []uepak.EntryInfo) string {
	rows := make([][]string, 0, len(entries))
	var total, stored int64
	for _, e := range entries {
		total += e.Size
		stored += e.CompressedSize
		rows = append(rows, []string{
			e.Path.String(),
			humanize.IBytes(uint64(max(e.Size, 0))),           //nolint:gosec // clamped
			humanize.IBytes(uint64(max(e.CompressedSize, 0))), //nolint:gosec // clamped
			compressionLabel(e),
			yesNo(e.Encrypted),
		})
	}
	rows = append(rows, []string{
		fmt.Sprintf("%s entries", humanize.Comma(int64(len(entries)))),
		humanize.IBytes(uint64(max(total, 0))),  //nolint:gosec // clamped
		humanize.IBytes(uint64(max(stored, 0))), //nolint:gosec // clamped
		"",
		"",
	})

	return renderTable(
		[]string{"Path", "Size", "Stored", "Compression", "Encrypted"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func compressionLabel(e uepak.EntryInfo) string {
	if e.Compression == "" {
		return "-"
	}
	return string(e.Compression)
}
