// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

// Package completion implements prefix completion over a hierarchical,
// dot-separated signal namespace. A Trie is built once from the full
// path catalogue after every metadata refresh and is immutable
// afterwards; readers hold whichever trie was current when they
// started and never observe a partial rebuild.
package completion

import (
	"sort"
	"strings"
)

// Candidate is one completion result. Text is what replaces the typed
// word: a full signal path, with a trailing "." when the match is a
// branch. Display is the bare segment shown in the candidate list.
// Branches take no trailing space so typing can continue into the next
// segment; leaves get the usual word-terminating suffix.
type Candidate struct {
	Text     string
	Display  string
	IsBranch bool
}

type node struct {
	// segment is the path segment in its original case.
	segment string
	// fullPath is the accumulated path from the root, original case.
	fullPath string
	// children is keyed by the lower-cased segment.
	children map[string]*node
}

// Trie is the completion index. The zero value is not usable; Build
// constructs one.
type Trie struct {
	root node
}

// Build constructs a trie from dotted signal paths. Segments match
// case-insensitively but remember the case they were declared with.
func Build(paths []string) *Trie {
	t := &Trie{root: node{children: make(map[string]*node)}}
	for _, path := range paths {
		parent := &t.root
		for _, segment := range strings.Split(path, ".") {
			key := strings.ToLower(segment)
			child, ok := parent.children[key]
			if !ok {
				fullPath := segment
				if parent.fullPath != "" {
					fullPath = parent.fullPath + "." + segment
				}
				child = &node{
					segment:  segment,
					fullPath: fullPath,
					children: make(map[string]*node),
				}
				parent.children[key] = child
			}
			parent = child
		}
	}
	return t
}

// Empty reports whether the trie holds no paths at all, which callers
// treat as "namespace not loaded yet".
func (t *Trie) Empty() bool {
	return len(t.root.children) == 0
}

// Complete returns the candidates for a partial dotted path, sorted by
// display text. It walks the trie one segment per dot-delimited token
// while exact (case-insensitive) matches exist; at the first miss it
// prefix-matches the current node's children against the remaining
// token, and when the input ends on a segment boundary it offers every
// child. A nil result means the trie is empty (no namespace has been
// loaded), which is distinct from a loaded trie with no matches.
func (t *Trie) Complete(partial string) []Candidate {
	if t.Empty() {
		return nil
	}

	current := &t.root
	segments := strings.Split(strings.ToLower(partial), ".")
	candidates := []Candidate{}
	for _, segment := range segments {
		if child, ok := current.children[segment]; ok {
			current = child
			continue
		}

		// First miss: offer children extending this token, then stop.
		for key, child := range current.children {
			if strings.HasPrefix(key, segment) {
				candidates = append(candidates, newCandidate(child))
			}
		}
		sortCandidates(candidates)
		return candidates
	}

	// Every token matched exactly: offer all children of the node we
	// landed on.
	for _, child := range current.children {
		candidates = append(candidates, newCandidate(child))
	}
	sortCandidates(candidates)
	return candidates
}

func newCandidate(n *node) Candidate {
	if len(n.children) > 0 {
		return Candidate{
			Text:     n.fullPath + ".",
			Display:  n.segment + ".",
			IsBranch: true,
		}
	}
	return Candidate{Text: n.fullPath, Display: n.segment}
}

func sortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Display < candidates[j].Display
	})
}
