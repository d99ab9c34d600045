// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

// Package shell implements the interactive command core of the sigctl
// client: the dispatcher read loop, the command handlers, the
// refreshable namespace cache, background subscription sessions, and
// the serialized output sink they all share.
//
// Concurrency model: one foreground goroutine runs the read-dispatch
// loop; each active subscription runs on its own goroutine; one more
// goroutine watches connection-state transitions to keep the prompt
// accurate. The only shared mutable state is the namespace snapshot
// (replaced under a single atomic swap) and the output sink (a
// single-writer actor that writes whole blocks, so concurrent sessions
// can never splice lines into each other's output).
package shell
