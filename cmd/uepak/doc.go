// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

// Command uepak lists and unpacks Unreal Engine pak and utoc/ucas containers,
// including containers shipped inside ZIP, RAR and 7z archives.
//
// Configuration comes from an optional TOML file (--config), a .env file in the
// working directory (UEPAK_KEY, RAR_TOOL_PATH) and command line flags, with flags
// taking precedence.
package main
