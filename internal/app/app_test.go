package app

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineSrc = `
node "seq" {
  call = "iota"
  args = [4]
}

node "total" {
  call = "sum"
  args = [node.seq]
}

node "scaled" {
  call   = "scale"
  args   = [node.total]
  kwargs = { factor = 2 }
}

node "msg" {
  call = "sprintf"
  args = ["total=%v", node.scaled]
}

outputs = ["msg"]
`

func writeGraph(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func runApp(t *testing.T, cfg *Config) string {
	t.Helper()
	var out bytes.Buffer
	a := NewApp(&out, io.Discard, cfg)
	require.NoError(t, a.Run(context.Background()))
	return out.String()
}

func TestAppRun(t *testing.T) {
	path := writeGraph(t, pipelineSrc)

	t.Run("runs a pipeline end to end", func(t *testing.T) {
		out := runApp(t, &Config{GraphPath: path, LogLevel: "error", WorkerCount: 4})
		assert.Equal(t, "msg = total=12\n", out)
	})

	t.Run("fusion does not change observable output", func(t *testing.T) {
		plain := runApp(t, &Config{GraphPath: path, LogLevel: "error", WorkerCount: 4})
		fused := runApp(t, &Config{GraphPath: path, Backend: "interp", LogLevel: "error", WorkerCount: 4})
		assert.Equal(t, plain, fused)
	})

	t.Run("unknown backend is an error", func(t *testing.T) {
		var out bytes.Buffer
		a := NewApp(&out, io.Discard, &Config{GraphPath: path, Backend: "llvm", LogLevel: "error"})
		err := a.Run(context.Background())
		require.Error(t, err)
		assert.ErrorContains(t, err, "unknown backend")
	})

	t.Run("missing graph file is an error", func(t *testing.T) {
		var out bytes.Buffer
		a := NewApp(&out, io.Discard, &Config{GraphPath: "does-not-exist.hcl", LogLevel: "error"})
		err := a.Run(context.Background())
		require.Error(t, err)
		assert.ErrorContains(t, err, "failed to load task graph")
	})
}
