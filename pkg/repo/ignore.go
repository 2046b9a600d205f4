package repo

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreChecker decides whether a repo-relative path is excluded from
// status walks and stage-all. The metadata directories .holt and .git are
// always ignored; further patterns come from a .holtignore file at the
// repository root.
type IgnoreChecker struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool // pattern contains a slash, match against the full path
}

// NewIgnoreChecker creates an IgnoreChecker for the given repository root.
func NewIgnoreChecker(repoRoot string) *IgnoreChecker {
	ic := &IgnoreChecker{
		patterns: []ignorePattern{
			{pattern: ".holt"},
			{pattern: ".git"},
		},
	}

	f, err := os.Open(filepath.Join(repoRoot, ".holtignore"))
	if err != nil {
		return ic
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p := parseIgnoreLine(scanner.Text()); p != nil {
			ic.patterns = append(ic.patterns, *p)
		}
	}
	return ic
}

// parseIgnoreLine parses a single .holtignore line. Returns nil for blank
// lines and comments.
func parseIgnoreLine(line string) *ignorePattern {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	p := &ignorePattern{}
	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	line = strings.TrimPrefix(line, "/")
	p.pattern = line
	p.anchored = strings.Contains(line, "/")
	if p.pattern == "" {
		return nil
	}
	return p
}

// IsIgnored reports whether a repo-relative slash path is ignored. Matching
// runs in order; a later negated pattern re-includes a path.
func (ic *IgnoreChecker) IsIgnored(rel string) bool {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "/")
	ignored := false
	for _, p := range ic.patterns {
		if p.matches(rel) {
			ignored = !p.negated
		}
	}
	return ignored
}

func (p *ignorePattern) matches(rel string) bool {
	if p.anchored {
		if ok, _ := path.Match(p.pattern, rel); ok {
			return true
		}
		// A directory pattern covers everything beneath it.
		return strings.HasPrefix(rel, p.pattern+"/")
	}

	// Unanchored: match any path segment.
	segs := strings.Split(rel, "/")
	for i, seg := range segs {
		if p.dirOnly && i == len(segs)-1 {
			// A dirOnly pattern never matches the final (file) segment.
			continue
		}
		if ok, _ := path.Match(p.pattern, seg); ok {
			return true
		}
	}
	return false
}
