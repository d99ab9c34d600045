// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

// Package broker defines the client-side surface of a signal broker:
// signal descriptors, typed values, the Client interface every
// transport must satisfy, the shared client error taxonomy, and the
// coercion of free-text input into wire-level typed values.
//
// The package also ships MemoryBroker, an in-process Client used by
// tests and by the memory:// transport scheme. Real network transports
// live outside this module and plug in via RegisterTransport.
package broker
