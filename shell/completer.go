// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"os"
	"path/filepath"
	"strings"
)

// completer adapts the namespace trie and the command table to
// readline's AutoCompleter. The trie it consults is whatever snapshot
// is current at keystroke time, so a metadata refresh takes effect on
// the next tab press with no completer swap.
type completer struct {
	ns *Namespace
}

// Do implements readline.AutoCompleter. line[:pos] is inspected to
// decide what is being completed: the command word, a signal path, a
// subscribe query keyword, or a token file path. Candidates are the
// suffixes to append after pos; length is the length of the word being
// completed.
func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	typed := string(line[:pos])

	wordStart := strings.LastIndexAny(typed, " \t") + 1
	word := typed[wordStart:]
	preceding := strings.Fields(typed[:wordStart])

	var candidates []string
	switch {
	case len(preceding) == 0:
		candidates = completeCommand(word)
	case preceding[0] == "get" || preceding[0] == "metadata":
		candidates = c.completePath(word)
	case preceding[0] == "set" || preceding[0] == "feed":
		// Only the path argument completes; the value after it is
		// free text.
		if len(preceding) == 1 {
			candidates = c.completePath(word)
		}
	case preceding[0] == "subscribe":
		if len(preceding) == 1 {
			candidates = []string{"SELECT "}
		} else if preceding[1] == "SELECT" {
			candidates = c.completePath(word)
		}
	case preceding[0] == "token-file":
		candidates = completeFile(word)
	}

	return suffixes(candidates, word), len([]rune(word))
}

// completeCommand offers command names extending the typed word.
func completeCommand(word string) []string {
	var out []string
	for _, cmd := range commandTable {
		if strings.HasPrefix(cmd.name, word) {
			out = append(out, cmd.name+" ")
		}
	}
	return out
}

// completePath offers signal paths from the current namespace
// snapshot. Branch candidates end in "." and no space, so completion
// can continue into the next segment; leaves terminate the word.
func (c *completer) completePath(word string) []string {
	candidates := c.ns.Trie().Complete(word)
	out := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		text := candidate.Text
		if !candidate.IsBranch {
			text += " "
		}
		out = append(out, text)
	}
	return out
}

// completeFile offers filesystem paths for the token-file argument.
func completeFile(word string) []string {
	dir, prefix := filepath.Split(word)
	searchDir := dir
	if searchDir == "" {
		searchDir = "."
	}
	entries, err := os.ReadDir(searchDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if entry.IsDir() {
			out = append(out, dir+name+string(filepath.Separator))
		} else {
			out = append(out, dir+name+" ")
		}
	}
	return out
}

// suffixes strips the typed word from each candidate, dropping any
// candidate the word is not a (case-insensitive) prefix of. What
// remains is exactly what readline appends at the cursor.
func suffixes(candidates []string, word string) [][]rune {
	lower := strings.ToLower(word)
	var out [][]rune
	for _, candidate := range candidates {
		if len(candidate) < len(word) || !strings.HasPrefix(strings.ToLower(candidate), lower) {
			continue
		}
		out = append(out, []rune(candidate[len(word):]))
	}
	return out
}
