// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"io"
	"sync"
)

// Sink serializes terminal output at block granularity. The foreground
// dispatcher and every background subscription session queue whole
// formatted blocks; a single writer goroutine owns the underlying
// writer, so two blocks can never interleave mid-line no matter how
// many goroutines produce output.
type Sink struct {
	blocks chan string
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewSink starts the writer goroutine over w.
func NewSink(w io.Writer) *Sink {
	s := &Sink{
		blocks: make(chan string, 64),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		for block := range s.blocks {
			// A write failure here means the terminal is gone;
			// nothing useful can be reported, keep draining.
			io.WriteString(w, block)
		}
	}()
	return s
}

// Block queues one formatted block for writing. Blocks are written in
// arrival order, each in one uninterrupted write. Safe for concurrent
// use; a Block after Close is silently dropped, since sessions may
// still be winding down when the shell exits.
func (s *Sink) Block(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.blocks <- text
}

// Close drains queued blocks and stops the writer goroutine.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.blocks)
	s.mu.Unlock()
	<-s.done
}
