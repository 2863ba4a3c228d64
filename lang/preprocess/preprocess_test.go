package preprocess_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salmon-lang/salmon/lang/preprocess"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadNoImportBlockReturnsBodyUnmodified(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.salmon", `_print(1);`)

	out, err := preprocess.Load(main)
	require.NoError(t, err)
	require.Contains(t, out, "____path____ ~"+main)
	require.Contains(t, out, "_print(1);")
}

func TestLoadInlinesDirectImportBeforeBody(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.salmon", `function helper() { return 1; }`)
	main := writeFile(t, dir, "main.salmon", `import { lib }
_print(helper());`)

	out, err := preprocess.Load(main)
	require.NoError(t, err)

	libPath := filepath.Join(dir, "lib.salmon")
	libIdx := indexOf(t, out, "____path____ ~"+libPath)
	mainIdx := indexOf(t, out, "____path____ ~"+main)
	require.Less(t, libIdx, mainIdx, "imported file must precede the importer's own body")
	require.NotContains(t, out, "import {")
}

func TestLoadResolvesTransitiveImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.salmon", `function base() { return 0; }`)
	writeFile(t, dir, "mid.salmon", `import { base }
function mid() { return base(); }`)
	main := writeFile(t, dir, "main.salmon", `import { mid }
_print(mid());`)

	out, err := preprocess.Load(main)
	require.NoError(t, err)

	basePath := filepath.Join(dir, "base.salmon")
	midPath := filepath.Join(dir, "mid.salmon")
	baseIdx := indexOf(t, out, "____path____ ~"+basePath)
	midIdx := indexOf(t, out, "____path____ ~"+midPath)
	mainIdx := indexOf(t, out, "____path____ ~"+main)
	require.Less(t, baseIdx, midIdx)
	require.Less(t, midIdx, mainIdx)
}

func TestLoadSortsMoreReferencedFilesLast(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.salmon", `function common() { return 1; }`)
	writeFile(t, dir, "a.salmon", `import { common }
function a() { return common(); }`)
	main := writeFile(t, dir, "main.salmon", `import { a, common }
_print(a() + common());`)

	out, err := preprocess.Load(main)
	require.NoError(t, err)

	// common.salmon is referenced twice (by a.salmon and by main.salmon),
	// a.salmon only once: common must come after a in the inlined order.
	commonPath := filepath.Join(dir, "common.salmon")
	aPath := filepath.Join(dir, "a.salmon")
	commonIdx := indexOf(t, out, "____path____ ~"+commonPath)
	aIdx := indexOf(t, out, "____path____ ~"+aPath)
	require.Less(t, aIdx, commonIdx)
}

func TestLoadDeduplicatesRepeatedImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared.salmon", `function shared() { return 1; }`)
	writeFile(t, dir, "a.salmon", `import { shared }
function a() { return shared(); }`)
	writeFile(t, dir, "b.salmon", `import { shared }
function b() { return shared(); }`)
	main := writeFile(t, dir, "main.salmon", `import { a, b }
_print(a() + b());`)

	out, err := preprocess.Load(main)
	require.NoError(t, err)

	sharedPath := filepath.Join(dir, "shared.salmon")
	require.Equal(t, 1, strings.Count(out, "____path____ ~"+sharedPath))
}

func TestLoadSelfImportCycleDoesNotHang(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.salmon", `import { main }
_print(1);`)

	out, err := preprocess.Load(main)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(out, "____path____ ~"+main))
}

func TestLoadMissingImportReturnsError(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.salmon", `import { missing }
_print(1);`)

	_, err := preprocess.Load(main)
	require.Error(t, err)
}

func indexOf(t *testing.T, s, substr string) int {
	t.Helper()
	i := strings.Index(s, substr)
	require.GreaterOrEqual(t, i, 0, "expected %q to contain %q", s, substr)
	return i
}
