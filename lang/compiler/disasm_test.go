package compiler_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salmon-lang/salmon/internal/filetest"
	"github.com/salmon-lang/salmon/lang/bytecode"
	"github.com/salmon-lang/salmon/lang/compiler"
	"github.com/salmon-lang/salmon/lang/machine"
)

var testUpdateDisasmTests = flag.Bool("test.update-compiler-disasm-tests", false,
	"If set, replace expected compiler disassembly golden files with actual output.")

// TestDisassembleGoldenFiles compiles every testdata/in/*.salmon source and
// diffs its disassembled top-level chunk against the matching testdata/out
// golden file, the way scanner_test.go diffs token dumps.
func TestDisassembleGoldenFiles(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".salmon") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			require.NoError(t, err)

			heap := machine.NewHeap(0, false, false, nil)
			fn, err := compiler.Compile(heap, fi.Name(), string(src))
			require.NoError(t, err)

			var buf bytes.Buffer
			bytecode.Disassemble(&buf, &fn.Chunk, fi.Name())
			filetest.DiffOutput(t, fi, buf.String(), resultDir, testUpdateDisasmTests)
		})
	}
}
