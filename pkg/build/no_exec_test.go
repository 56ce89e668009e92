package build

import (
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOnlyExecutorStartsProcesses walks the module and fails if any
// non-test file other than pkg/build/executor.go imports os/exec. Everything
// else goes through Executor so it can run against MockExecutor.
func TestOnlyExecutorStartsProcesses(t *testing.T) {
	root := filepath.Join("..", "..")
	allowed := filepath.Join("pkg", "build", "executor.go")

	fset := token.NewFileSet()
	var offenders []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == allowed {
			return nil
		}

		file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, imp := range file.Imports {
			if p, _ := strconv.Unquote(imp.Path.Value); p == "os/exec" {
				offenders = append(offenders, rel)
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, offenders, "use build.Executor instead of os/exec")
}

func TestInterfaceCompliance(_ *testing.T) {
	var _ Executor = (*HostExecutor)(nil)
	var _ Executor = (*MockExecutor)(nil)
	var _ Backend = (*DryRunBackend)(nil)
	var _ Backend = (*ProcessBackend)(nil)
}
