// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"sync"
)

// Client is the broker surface the interactive shell consumes. Every
// transport implements it; MemoryBroker is the in-process reference
// implementation.
//
// All blocking calls take a context. Errors are drawn from the shared
// taxonomy: *StatusError (remote rejection), *ConnectionError
// (transport failure), *FunctionError (local failure).
type Client interface {
	// Connect establishes the connection to the configured endpoint.
	Connect(ctx context.Context) error

	// ConnectTo reconnects to a different endpoint.
	ConnectTo(ctx context.Context, uri string) error

	// Connected reports whether the transport currently has a live
	// connection.
	Connected() bool

	// URI returns the endpoint the client is configured against.
	URI() string

	// SetAccessToken installs the credential used for subsequent
	// calls. A malformed token fails with *FunctionError.
	SetAccessToken(token string) error

	// Metadata fetches the signal descriptor catalogue. Patterns
	// restrict the result by name (* matches any run of characters);
	// an empty pattern list fetches everything.
	Metadata(ctx context.Context, patterns []string) ([]Descriptor, error)

	// Get reads current values for the given paths.
	Get(ctx context.Context, paths []string) ([]Entry, error)

	// Set writes actuator targets, keyed by path. The returned map
	// carries per-field failures; it is empty when every field was
	// accepted. The call-level error is nil as long as the batch
	// itself was processed.
	Set(ctx context.Context, updates map[string]Datapoint) (map[string]FieldError, error)

	// Feed publishes values as a provider, keyed by signal ID.
	// Per-field failure semantics match Set.
	Feed(ctx context.Context, updates map[uint32]Datapoint) (map[uint32]FieldError, error)

	// Subscribe opens a long-lived update stream for the given query.
	// The returned subscription delivers named-field batches until the
	// stream ends or fails.
	Subscribe(ctx context.Context, query string) (*Subscription, error)

	// ConnectionStates returns the stream of connection-state
	// transitions. The channel is owned by the client and closed when
	// the client shuts down.
	ConnectionStates() <-chan ConnState
}

// Update is one subscription batch: the fields that changed, keyed by
// field name.
type Update map[string]Datapoint

// Subscription is a receive-only stream of updates. The consumer
// drains Updates until the channel closes, then checks Err to tell a
// normal end of stream from a stream failure.
type Subscription struct {
	updates chan Update

	mu     sync.Mutex
	err    error
	closed bool
}

// NewSubscription creates a subscription with the given delivery
// buffer. Transports push batches with Send and finish the stream
// with Close.
func NewSubscription(buffer int) *Subscription {
	return &Subscription{updates: make(chan Update, buffer)}
}

// Updates returns the delivery channel. It is closed when the stream
// ends, normally or not.
func (s *Subscription) Updates() <-chan Update { return s.updates }

// Err returns the stream failure, or nil for a normal end of stream.
// Only meaningful after Updates is closed.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Send delivers one batch. It blocks when the consumer is behind and
// is a no-op after Close. The lock is held across the channel send so
// Close can never race a delivery in flight.
func (s *Subscription) Send(update Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.updates <- update
}

// Close ends the stream. A nil err is a normal server-side end; a
// non-nil err surfaces through Err. Close is idempotent.
func (s *Subscription) Close(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.updates)
}
