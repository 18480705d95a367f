// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package main

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/woozymasta/uepak"
)

// attachProgress renders reporter events as a terminal progress bar and returns
// a function that detaches it. Non-terminal writers get no bar.
func attachProgress(w io.Writer, r *uepak.Reporter, desc string, throttle time.Duration) func() {
	f, ok := w.(*os.File)
	if !ok || r == nil || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return func() {}
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(f),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(throttle),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)

	var mu sync.Mutex
	unsubscribe := r.Subscribe(func(ev uepak.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()

		if ev.Stage == uepak.StageFailed {
			_ = bar.Exit()
			return
		}
		_ = bar.Set(int(ev.Percentage))
	})

	return func() {
		unsubscribe()

		mu.Lock()
		defer mu.Unlock()
		_ = bar.Finish()
	}
}
