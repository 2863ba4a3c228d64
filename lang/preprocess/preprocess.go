// Package preprocess implements the file-reader/import-inliner that runs
// ahead of the compiler: it resolves a source file's optional leading
// "import { a, b, c }" directive to sibling ".salmon" files, recurses into
// each one's own import block, and concatenates everything into the single
// source string the compiler expects. Every file boundary in the result is
// marked with a "____path____ ~<path>" statement so later compile and
// runtime diagnostics name the file a line actually came from, not just the
// line number within the concatenated blob.
package preprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/exp/slices"
)

// importHeader matches a leading "import { ... }" block, optionally
// preceded by whitespace. The body identifiers are comma-separated and may
// span multiple lines.
var importHeader = regexp.MustCompile(`(?s)\A\s*import\s*\{([^}]*)\}`)

// Load reads path, transitively inlines its import block, and returns the
// concatenated source the compiler expects: every transitively imported
// file first, sorted so the most-referenced files come last, each preceded
// by a path marker, followed by path's own marker and body last.
//
// A file with no leading import block is returned with just its own
// marker line prepended and a newline appended, unmodified otherwise.
func Load(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("preprocess: %w", err)
	}

	l := &loader{
		bodies:   make(map[string]string),
		refCount: make(map[string]int),
	}
	if err := l.visit(abs); err != nil {
		return "", err
	}

	order := make([]string, 0, len(l.bodies))
	for p := range l.bodies {
		if p != abs {
			order = append(order, p)
		}
	}
	slices.SortFunc(order, func(a, b string) int {
		if l.refCount[a] != l.refCount[b] {
			return l.refCount[a] - l.refCount[b]
		}
		return strings.Compare(a, b)
	})

	var out strings.Builder
	for _, p := range order {
		writeMarked(&out, p, l.bodies[p])
	}
	writeMarked(&out, abs, l.bodies[abs])
	return out.String(), nil
}

func writeMarked(out *strings.Builder, path, body string) {
	fmt.Fprintf(out, "____path____ ~%s\n", path)
	out.WriteString(body)
	out.WriteByte('\n')
}

// loader walks the import graph once per distinct file, tracking how many
// times each file is referenced so Load can order them accordingly.
type loader struct {
	bodies   map[string]string
	refCount map[string]int
}

// visit reads and parses path's import block exactly once. A file already
// in bodies (already visited, possibly still being visited higher up the
// call stack on a cyclic import) is left alone: refCount was already bumped
// by the caller, which is all a repeat reference needs to affect ordering.
func (l *loader) visit(path string) error {
	if _, ok := l.bodies[path]; ok {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("preprocess: could not open file %q: %w", path, err)
	}

	names, body := splitImportHeader(string(raw))
	l.bodies[path] = body

	dir := filepath.Dir(path)
	for _, name := range names {
		dep := filepath.Join(dir, name+".salmon")
		l.refCount[dep]++
		if err := l.visit(dep); err != nil {
			return err
		}
	}
	return nil
}

// splitImportHeader strips a leading import block, if present, and returns
// the imported identifiers alongside the remaining source body.
func splitImportHeader(src string) (names []string, body string) {
	loc := importHeader.FindStringSubmatchIndex(src)
	if loc == nil {
		return nil, src
	}

	for _, part := range strings.Split(src[loc[2]:loc[3]], ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names, src[loc[1]:]
}
