// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

// Package logging builds slog loggers for the uepak command.
//
// Two handlers are available: a compact console handler, colored when the
// output is a terminal, and a JSON handler with short keys. Both honor a
// shared level that can be changed after construction.
package logging
