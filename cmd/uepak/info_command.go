// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/woozymasta/uepak"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <container>",
		Short: "Show container format, version and mount point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}

			info, err := u.ContainerInfo(cmd.Context(), args[0], ctx.key)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, info)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderInfo(info))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func renderInfo(info uepak.ContainerInfo) string {
	methods := make([]string, 0, len(info.CompressionMethods))
	for _, m := range info.CompressionMethods {
		methods = append(methods, string(m))
	}
	compression := strings.Join(methods, ", ")
	if compression == "" {
		compression = "-"
	}

	rows := [][]string{
		{"Path", info.Path},
		{"Kind", info.Kind.String()},
		{"Version", strconv.FormatUint(uint64(info.Version), 10)},
		{"Mount point", info.MountPoint},
		{"Entries", strconv.Itoa(info.Entries)},
		{"Encrypted", yesNo(info.Encrypted)},
		{"Compression", compression},
	}
	if info.Kind == uepak.KindIoStore {
		rows = append(rows, []string{"Partitions", strconv.Itoa(info.Partitions)})
	}

	return renderTable([]string{"Field", "Value"}, rows, nil)
}
