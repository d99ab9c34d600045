// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/signalgrid/sigctl/broker"
	"github.com/signalgrid/sigctl/completion"
)

// snapshot is one immutable view of the namespace: the descriptor
// catalogue and the completion trie derived from it. A refresh builds
// a fresh snapshot and swaps the pointer; readers see either the old
// or the new view in full, never a mix.
type snapshot struct {
	descriptors []broker.Descriptor
	trie        *completion.Trie
}

// Namespace is the process-held cache of known signal descriptors.
// Stale-but-available: a failed refresh leaves the previous snapshot
// untouched and queryable.
type Namespace struct {
	current atomic.Pointer[snapshot]
}

// NewNamespace returns an empty namespace. Lookups miss and the trie
// reports empty until the first successful refresh.
func NewNamespace() *Namespace {
	n := &Namespace{}
	n.current.Store(&snapshot{trie: completion.Build(nil)})
	return n
}

// Refresh fetches the descriptor catalogue from the client and, on
// success, atomically replaces the snapshot with the sorted result and
// its rebuilt trie. On failure the previous snapshot stays in place
// and the error is returned for display.
func (n *Namespace) Refresh(ctx context.Context, client broker.Client, patterns []string) error {
	descriptors, err := client.Metadata(ctx, patterns)
	if err != nil {
		return err
	}

	sorted := append([]broker.Descriptor(nil), descriptors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	paths := make([]string, len(sorted))
	for i, d := range sorted {
		paths[i] = d.Name
	}
	n.current.Store(&snapshot{
		descriptors: sorted,
		trie:        completion.Build(paths),
	})
	return nil
}

// Lookup resolves a path to its descriptor by exact match.
func (n *Namespace) Lookup(path string) (broker.Descriptor, bool) {
	for _, d := range n.current.Load().descriptors {
		if d.Name == path {
			return d, true
		}
	}
	return broker.Descriptor{}, false
}

// Descriptors returns the current snapshot's catalogue. The slice is
// shared and must not be mutated.
func (n *Namespace) Descriptors() []broker.Descriptor {
	return n.current.Load().descriptors
}

// Trie returns the completion trie for the current snapshot.
func (n *Namespace) Trie() *completion.Trie {
	return n.current.Load().trie
}
