// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/woozymasta/uepak"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeAssets prints asset paths one per line or as a JSON array.
func writeAssets(cmd *cobra.Command, assets []uepak.AssetPath, asJSON bool) error {
	if asJSON {
		if assets == nil {
			assets = []uepak.AssetPath{}
		}
		return writeJSON(cmd, assets)
	}

	out := cmd.OutOrStdout()
	for _, a := range assets {
		if _, err := fmt.Fprintln(out, a.String()); err != nil {
			return err
		}
	}

	return nil
}
