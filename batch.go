// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

// Outcome is the result of one batch item: assets on success or a captured error.
type Outcome struct {
	// Err is the captured failure; nil on success.
	Err error `json:"-" yaml:"-"`
	// Assets are the item's asset paths; nil on failure.
	Assets []AssetPath `json:"assets,omitempty" yaml:"assets,omitempty"`
}

// OK reports success.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// BatchResult maps input identity to its outcome.
// Items not started before cancellation are absent.
type BatchResult[K comparable] map[K]Outcome

// Failed returns keys whose outcome carries an error.
func (b BatchResult[K]) Failed() []K {
	var out []K
	for k, o := range b {
		if o.Err != nil {
			out = append(out, k)
		}
	}

	return out
}

// batchWorkItem pairs one input with its result slot.
type batchWorkItem[K comparable] struct {
	key K
	idx int
}

// RunMany runs fn for every input on at most workers goroutines
// (GOMAXPROCS when workers <= 0). Each input resolves to its own Outcome;
// a failing or panicking item never affects others. After ctx is done no new
// items start, and unstarted items are absent from the result.
// Duplicate inputs run once.
func RunMany[K comparable](
	ctx context.Context,
	inputs []K,
	workers int,
	fn func(ctx context.Context, key K) ([]AssetPath, error),
) BatchResult[K] {
	unique := make([]K, 0, len(inputs))
	seen := make(map[K]struct{}, len(inputs))
	for _, k := range inputs {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, k)
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = max(min(workers, len(unique)), 1)

	outcomes := make([]*Outcome, len(unique))
	taskCh := make(chan batchWorkItem[K])

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Go(func() {
			for task := range taskCh {
				if ctx.Err() != nil {
					continue
				}

				assets, err := runItem(ctx, task.key, fn)
				if err != nil {
					assets = nil
				}
				outcomes[task.idx] = &Outcome{Assets: assets, Err: err}
			}
		})
	}

dispatch:
	for i, k := range unique {
		if ctx.Err() != nil {
			break
		}

		select {
		case <-ctx.Done():
			break dispatch
		case taskCh <- batchWorkItem[K]{key: k, idx: i}:
		}
	}

	close(taskCh)
	wg.Wait()

	result := make(BatchResult[K], len(unique))
	for i, o := range outcomes {
		if o != nil {
			result[unique[i]] = *o
		}
	}

	return result
}

// runItem calls fn and converts a panic into ErrInternal.
func runItem[K comparable](
	ctx context.Context,
	key K,
	fn func(ctx context.Context, key K) ([]AssetPath, error),
) (assets []AssetPath, err error) {
	defer func() {
		if r := recover(); r != nil {
			assets = nil
			err = &Error{
				Kind: ErrInternal,
				Op:   "batch item",
				Path: fmt.Sprint(key),
				Err:  fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()

	return fn(ctx, key)
}

// StemKey returns the file name of path without its extension.
func StemKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// stemKeys maps each path to its stem, falling back to the full path for
// every path whose stem is shared with another distinct input.
func stemKeys(paths []string) map[string]string {
	seen := make(map[string]struct{}, len(paths))
	count := make(map[string]int, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		count[StemKey(p)]++
	}

	out := make(map[string]string, len(paths))
	for _, p := range paths {
		key := StemKey(p)
		if count[key] > 1 {
			key = p
		}
		out[p] = key
	}

	return out
}
