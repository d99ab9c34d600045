// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import "regexp"

var patternReplacer = regexp.MustCompile(`[.*]`)

// CompilePathPattern turns a signal-path pattern into an anchored
// regular expression: "." matches literally and "*" matches any run of
// characters, so "Vehicle.*.Speed" matches every Speed signal one or
// more levels below Vehicle. All other characters pass through with
// their regular-expression meaning, so an unbalanced bracket is a
// compile error reported to the caller.
func CompilePathPattern(pattern string) (*regexp.Regexp, error) {
	expanded := patternReplacer.ReplaceAllStringFunc(pattern, func(match string) string {
		if match == "." {
			return `\.`
		}
		return `(.*)`
	})
	return regexp.Compile("^" + expanded + "$")
}
