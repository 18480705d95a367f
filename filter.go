// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// includeMatcher holds compiled include globs for extraction.
type includeMatcher struct {
	matcher *pathrules.Matcher
}

// newIncludeMatcher compiles include globs. Globs use gitignore syntax:
// "*.uasset" matches at any depth, a leading "/" anchors to the root,
// "**" spans directories and a leading "!" excludes.
// An empty set returns nil, which matches every entry.
func newIncludeMatcher(patterns []string) (*includeMatcher, error) {
	rules := includeRules(patterns)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidIncludePattern, err)
	}

	return &includeMatcher{matcher: matcher}, nil
}

// includeRules normalizes raw globs into ordered rules and drops empty ones.
func includeRules(patterns []string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, raw := range patterns {
		action := pathrules.ActionInclude
		raw = strings.TrimSpace(raw)
		if strings.HasPrefix(raw, "!") {
			action = pathrules.ActionExclude
			raw = raw[1:]
		}

		pattern := normalizePathForMatching(raw)
		if pattern == "" {
			continue
		}

		rules = append(rules, pathrules.Rule{Action: action, Pattern: pattern})
	}

	return rules
}

// Match reports whether any candidate form of an entry path is included.
// Candidates are tried in order; leading "../" segments are dropped first.
func (m *includeMatcher) Match(candidates ...string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	for _, c := range candidates {
		c = stripParentRefs(NormalizePath(c))
		if c == "" {
			continue
		}
		if m.matcher.Included(c, false) {
			return true
		}
	}

	return false
}

// stripParentRefs drops a leading "../" chain.
func stripParentRefs(p string) string {
	for strings.HasPrefix(p, "../") {
		p = p[3:]
	}
	if p == ".." {
		return ""
	}

	return p
}
