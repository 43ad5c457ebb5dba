package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scanlab/internal/config"
	"github.com/Faultbox/scanlab/internal/metrics"
)

// writeSTL writes a binary STL of n triangles spread over a grid.
func writeSTL(t *testing.T, dir, name string, n int) string {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, 80))
	binary.Write(buf, binary.LittleEndian, uint32(n))
	for i := 0; i < n; i++ {
		x, y := float32(i%8), float32(i/8)
		binary.Write(buf, binary.LittleEndian, [12]float32{
			0, 0, 1,
			x, y, 0,
			x + 1, y, 0,
			x, y + 1, 0.5,
		})
		binary.Write(buf, binary.LittleEndian, uint16(0))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func withDefaults(t *testing.T) {
	t.Helper()
	cfg = config.Default()
	gatherer = prometheus.NewRegistry()
	collect = metrics.New(cfg.Metrics.Namespace)
	require.NoError(t, collect.Register(gatherer))
}

func TestRunInspect(t *testing.T) {
	path := writeSTL(t, t.TempDir(), "part.stl", 4)

	var out bytes.Buffer
	require.NoError(t, runInspect(&out, path))
	assert.Contains(t, out.String(), "format:    STL")
	assert.Contains(t, out.String(), "vertices:  12")
	assert.Contains(t, out.String(), "triangles: 4")

	assert.Error(t, runInspect(&out, filepath.Join(t.TempDir(), "missing.stl")))
}

func TestRunRules(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runRules(&out, nil))
	assert.Contains(t, out.String(), "name: single-mesh")
	assert.Contains(t, out.String(), "name: dual-mesh")
	assert.Contains(t, out.String(), "---")

	out.Reset()
	require.NoError(t, runRules(&out, []string{"dual-mesh"}))
	assert.NotContains(t, out.String(), "single-mesh")

	assert.Error(t, runRules(&out, []string{"nope"}))
}

func TestRunClassify(t *testing.T) {
	withDefaults(t)
	path := writeSTL(t, t.TempDir(), "part.stl", 16)

	var out bytes.Buffer
	require.NoError(t, runClassify(context.Background(), &out, path))
	assert.Contains(t, out.String(), "part.stl: 48 vertices, rules single-mesh")
	assert.Contains(t, out.String(), "COLOR")
}

func TestRunCompare(t *testing.T) {
	withDefaults(t)
	dir := t.TempDir()
	ref := writeSTL(t, dir, "reference.stl", 10)
	scan := writeSTL(t, dir, "scan.stl", 8)

	var out bytes.Buffer
	require.NoError(t, runCompare(context.Background(), &out, ref, scan))
	assert.Contains(t, out.String(), "alignment:  fixed-offset")
	assert.Contains(t, out.String(), "difference: uniform")
	assert.Contains(t, out.String(), "24")

	err := runCompare(context.Background(), &out, ref, filepath.Join(dir, "missing.stl"))
	assert.Error(t, err)
}

func TestRunExtract(t *testing.T) {
	withDefaults(t)
	path := writeSTL(t, t.TempDir(), "part.stl", 2)

	var out bytes.Buffer
	require.NoError(t, runExtract(context.Background(), &out, path))
	assert.Contains(t, out.String(), "extraction: extracted")
	assert.Contains(t, out.String(), "extracted-reference")
}

func TestExecuteWithMetrics(t *testing.T) {
	dir := t.TempDir()
	path := writeSTL(t, dir, "part.stl", 2)
	cfgPath := filepath.Join(dir, "scanlab.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: error\n"), 0644))

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"--config", cfgPath, "--metrics", "classify", path})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		overrides = config.Overrides{}
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "rules single-mesh")
	assert.Contains(t, errOut.String(), `scanlab_mesh_loads_total{result="ok",role="reference"} 1`)
}

func TestRunConfigInit(t *testing.T) {
	withDefaults(t)
	cfg.Loading.Workers = 5
	path := filepath.Join(t.TempDir(), "nested", "scanlab.yaml")

	var out bytes.Buffer
	require.NoError(t, runConfigInit(&out, path, false))
	assert.Contains(t, out.String(), path)

	loaded, err := config.Load(config.Overrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Loading.Workers)

	err = runConfigInit(&out, path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	cfg.Loading.Workers = 2
	require.NoError(t, runConfigInit(&out, path, true))
	loaded, err = config.Load(config.Overrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Loading.Workers)
}
