// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"sync"
)

// defaultEventBuffer is the Events channel capacity.
const defaultEventBuffer = 256

// Stage names the phase a progress event belongs to.
type Stage string

// Progress stages.
const (
	StageOpen    Stage = "open"
	StageIndex   Stage = "index"
	StageExtract Stage = "extract"
	StageStage   Stage = "stage"
	StageList    Stage = "list"
	StageDone    Stage = "done"
	StageFailed  Stage = "failed"
)

// ProgressEvent is one informational progress notification.
type ProgressEvent struct {
	// Op identifies the operation; batch items share the batch Op.
	Op string `json:"op" yaml:"op"`
	// Message is human readable detail.
	Message string `json:"message" yaml:"message"`
	// Stage is the current phase.
	Stage Stage `json:"stage" yaml:"stage"`
	// Percentage is 0..100 and never decreases within one Op.
	Percentage uint8 `json:"percentage" yaml:"percentage"`
}

// Reporter fans progress events out to subscribers and a buffered channel.
// Emitting never blocks: a full channel drops the event. A nil *Reporter
// discards everything. Reporter is safe for concurrent use.
type Reporter struct {
	ch     chan ProgressEvent
	subs   map[int]func(ProgressEvent)
	mu     sync.RWMutex
	nextID int
}

// NewReporter returns a reporter whose Events channel holds buffer events
// (defaultEventBuffer when buffer <= 0).
func NewReporter(buffer int) *Reporter {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	return &Reporter{
		ch:   make(chan ProgressEvent, buffer),
		subs: make(map[int]func(ProgressEvent)),
	}
}

// Subscribe registers fn for every subsequent event and returns a function removing it.
// fn runs on the emitting goroutine and must not block for long.
func (r *Reporter) Subscribe(fn func(ProgressEvent)) (unsubscribe func()) {
	if r == nil || fn == nil {
		return func() {}
	}

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// Events returns the polling channel. It is never closed.
func (r *Reporter) Events() <-chan ProgressEvent {
	if r == nil {
		return nil
	}

	return r.ch
}

// emit delivers ev without blocking.
func (r *Reporter) emit(ev ProgressEvent) {
	if r == nil {
		return
	}

	r.mu.RLock()
	subs := make([]func(ProgressEvent), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.RUnlock()

	for _, fn := range subs {
		callSubscriber(fn, ev)
	}

	select {
	case r.ch <- ev:
	default:
	}
}

// callSubscriber isolates the operation from a panicking subscriber.
func callSubscriber(fn func(ProgressEvent), ev ProgressEvent) {
	defer func() { _ = recover() }()
	fn(ev)
}

// Begin starts progress tracking for one operation.
func (r *Reporter) Begin(op string) *Operation {
	return &Operation{r: r, op: op}
}

// Operation tracks progress of one call and enforces monotonic percentages.
// Terminal events are emitted once. Operation is safe for concurrent use;
// events of one operation are delivered in the order their percentages were assigned.
type Operation struct {
	r        *Reporter
	op       string
	mu       sync.Mutex
	last     uint8
	finished bool
}

// ID returns the operation identifier.
func (o *Operation) ID() string {
	if o == nil {
		return ""
	}

	return o.op
}

// Report emits a non-terminal event. pct is clamped to [last, 99].
func (o *Operation) Report(stage Stage, pct int, msg string) {
	if o == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished {
		return
	}

	o.last = clampPercent(pct, o.last, 99)
	o.r.emit(ProgressEvent{Op: o.op, Message: msg, Stage: stage, Percentage: o.last})
}

// Done emits the final 100% event.
func (o *Operation) Done(msg string) {
	if o == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished {
		return
	}

	o.finished = true
	o.last = 100
	o.r.emit(ProgressEvent{Op: o.op, Message: msg, Stage: StageDone, Percentage: 100})
}

// Fail emits a terminal failure event at the last reported percentage.
func (o *Operation) Fail(err error) {
	if o == nil {
		return
	}

	msg := "failed"
	if err != nil {
		msg = err.Error()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished {
		return
	}

	o.finished = true
	o.r.emit(ProgressEvent{Op: o.op, Message: msg, Stage: StageFailed, Percentage: o.last})
}

// Finish calls Done on nil err and Fail otherwise.
func (o *Operation) Finish(err error, msg string) {
	if err != nil {
		o.Fail(err)
		return
	}

	o.Done(msg)
}

// clampPercent limits pct to [lo, hi].
func clampPercent(pct int, lo uint8, hi uint8) uint8 {
	switch {
	case pct < int(lo):
		return lo
	case pct > int(hi):
		return hi
	default:
		return uint8(pct) //nolint:gosec // bounded above
	}
}

// scalePercent maps done/total into [from, to].
func scalePercent(done int, total int, from int, to int) int {
	if total <= 0 {
		return to
	}

	return from + (to-from)*done/total
}
