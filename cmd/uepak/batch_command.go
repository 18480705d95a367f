// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/woozymasta/uepak"
)

// batchItem is the JSON form of one batch outcome.
type batchItem struct {
	Error  string            `json:"error,omitempty"`
	Assets []uepak.AssetPath `json:"assets,omitempty"`
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run list, unpack or archive extraction over many inputs concurrently",
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Output JSON keyed by input")

	report := func(cmd *cobra.Command, res uepak.BatchResult[string], total int) error {
		return writeBatchResult(cmd, res, total, asJSON)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <container>...",
		Short: "List asset paths of many containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}
			opts, err := uepak.NewListOptionsBuilder().WithKey(ctx.key).WithQuiet(true).Build()
			if err != nil {
				return err
			}

			done := ctx.progress(cmd, "list")
			res := u.ListMany(cmd.Context(), args, opts)
			done()
			return report(cmd, res, distinct(args))
		},
	})

	var flags unpackFlags
	unpackCmd := &cobra.Command{
		Use:   "unpack <output-dir> <container>...",
		Short: "Unpack many containers into one directory",
		Args:  cobra.MinimumNArgs(2),
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
			res := u.UnpackMany(cmd.Context(), args[1:], args[0], opts)
			done()
			return report(cmd, res, distinct(args[1:]))
		},
	}
	flags.register(unpackCmd)
	cmd.AddCommand(unpackCmd)

	var keepTemp bool
	extractCmd := &cobra.Command{
		Use:   "extract <archive>...",
		Short: "List asset paths inside many archives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}

			done := ctx.progress(cmd, "extract")
			res := u.ExtractManyFromArchives(cmd.Context(), args, ctx.key, keepTemp)
			done()
			return report(cmd, res, distinct(args))
		},
	}
	extractCmd.Flags().BoolVar(&keepTemp, "keep-temp", false, "Keep staging directories")
	cmd.AddCommand(extractCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "folder <dir>",
		Short: "List asset paths of every container below a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}

			done := ctx.progress(cmd, "scan")
			res, err := u.AssetMapFromFolder(cmd.Context(), args[0], ctx.key)
			done()
			if err != nil {
				return err
			}
			return report(cmd, res, len(res))
		},
	})

	return cmd
}

// writeBatchResult prints outcomes and fails when any input failed or was not started.
func writeBatchResult(cmd *cobra.Command, res uepak.BatchResult[string], total int, asJSON bool) error {
	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	if asJSON {
		out := make(map[string]batchItem, len(res))
		for k, o := range res {
			item := batchItem{Assets: o.Assets}
			if o.Err != nil {
				item.Error = o.Err.Error()
			}
			out[k] = item
		}
		if err := writeJSON(cmd, out); err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			o := res[k]
			status, detail := "ok", ""
			if o.Err != nil {
				status, detail = "failed", o.Err.Error()
			}
			rows = append(rows, []string{k, status, strconv.Itoa(len(o.Assets)), detail})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Input", "Status", "Assets", "Error"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		))
	}

	failed := len(res.Failed())
	if skipped := total - len(res); skipped > 0 {
		return fmt.Errorf("%d of %d inputs not started", skipped, total)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, total)
	}

	return nil
}

// distinct counts unique inputs; batches run duplicates once.
func distinct(inputs []string) int {
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		seen[in] = struct{}{}
	}
	return len(seen)
}
