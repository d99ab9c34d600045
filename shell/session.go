// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/signalgrid/sigctl/broker"
)

// SessionState is the lifecycle of a subscription session.
type SessionState int32

// Session lifecycle states. There is no way back from the two terminal
// states: a session never retries or resubscribes.
const (
	SessionRunning SessionState = iota
	SessionEnded
	SessionErrored
)

// Session drains one broker subscription on its own goroutine and
// writes formatted update blocks to the shared sink. The subscribe
// call itself happens before the session exists; a synchronous
// subscribe failure never creates one.
type Session struct {
	number  int
	sub     *broker.Subscription
	printer *Printer
	styles  Styles

	state atomic.Int32
	done  chan struct{}
}

// startSession takes ownership of an already-open subscription and
// begins draining it. number is the ordinal shown in the output tag.
func startSession(number int, sub *broker.Subscription, printer *Printer, styles Styles) *Session {
	s := &Session{
		number:  number,
		sub:     sub,
		printer: printer,
		styles:  styles,
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// State reports where the session is in its lifecycle.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Done closes when the session has fully stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) run() {
	defer close(s.done)

	tag := fmt.Sprintf("[%d]", s.number)
	pad := strings.Repeat(" ", len(tag))
	styledTag := s.styles.Muted.Render(tag)

	for update := range s.sub.Updates() {
		s.printer.Sink().Block(s.formatUpdate(update, styledTag, pad))
	}

	if err := s.sub.Err(); err != nil {
		s.state.Store(int32(SessionErrored))
		s.printer.Sink().Block(fmt.Sprintf("%s %s\n",
			styledTag,
			s.styles.MutedError.Render(fmt.Sprintf("Channel error: %v", err))))
		return
	}
	s.state.Store(int32(SessionEnded))
	s.printer.Sink().Block(fmt.Sprintf("%s %s\n",
		s.styles.MutedError.Render(tag),
		s.styles.Muted.Render("Server gone. Subscription stopped")))
}

// formatUpdate renders one batch as a single block: the first line
// carries the session tag, continuation lines are padded to keep the
// values aligned. Fields print in name order so output is stable.
func (s *Session) formatUpdate(update broker.Update, styledTag, pad string) string {
	names := make([]string, 0, len(update))
	for name := range update {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i == 0 {
			b.WriteString(styledTag)
		} else {
			b.WriteString(pad)
		}
		fmt.Fprintf(&b, " %s: %s\n", name, update[name].Display())
	}
	return b.String()
}
