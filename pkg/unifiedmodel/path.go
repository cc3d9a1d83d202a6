package unifiedmodel

import (
	"strings"

	"golang.org/x/text/cases"
)

// PathSeparator separates the segments of a node path.
const PathSeparator = "/"

const escapeChar = '\\'

// FoldName returns the case-folded form of a name or path. Two names that fold to the
// same string are considered equal by collections, hint lookups and rename ledgers.
func FoldName(name string) string {
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Fold().String(name)
}

// EqualNames reports whether two names or paths are equal under case folding.
func EqualNames(a, b string) bool {
	if a == b {
		return true
	}
	return FoldName(a) == FoldName(b)
}

// EscapeName escapes separator and escape characters so a name can be used as a single path segment.
func EscapeName(name string) string {
	if !strings.ContainsAny(name, PathSeparator+string(escapeChar)) {
		return name
	}
	var b strings.Builder
	for _, r := range name {
		if r == '/' || r == escapeChar {
			b.WriteRune(escapeChar)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// JoinPath appends escaped segments to a base path.
func JoinPath(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, segment := range segments {
		if b.Len() > 0 {
			b.WriteString(PathSeparator)
		}
		b.WriteString(EscapeName(segment))
	}
	return b.String()
}

// SplitPath splits a path into unescaped segments. The empty path has no segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	var (
		segments []string
		current  strings.Builder
		escaped  bool
	)
	for _, r := range path {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == escapeChar:
			escaped = true
		case r == '/':
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(segments, current.String())
}

// HasPathPrefix reports whether path equals prefix or lies below it, ignoring case.
func HasPathPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	p, pre := SplitPath(FoldName(path)), SplitPath(FoldName(prefix))
	if len(pre) > len(p) {
		return false
	}
	for i := range pre {
		if p[i] != pre[i] {
			return false
		}
	}
	return true
}

// RebasePath replaces the prefix of path with newPrefix. The path is returned unchanged when it
// does not start with prefix.
func RebasePath(path, prefix, newPrefix string) string {
	if !HasPathPrefix(path, prefix) {
		return path
	}
	rest := SplitPath(path)[len(SplitPath(prefix)):]
	return JoinPath(newPrefix, rest...)
}
