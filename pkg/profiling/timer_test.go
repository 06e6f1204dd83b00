package profiling

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledProfilerRecordsNothing(t *testing.T) {
	Reset()
	Start("discovery.run").Stop()

	var buf bytes.Buffer
	Summarize(&buf)
	assert.Empty(t, buf.String())
	assert.Empty(t, Totals())
}

func TestNestedSpans(t *testing.T) {
	Reset()
	Enable()
	defer Reset()

	run := Start("discovery.run")
	Start("locator.conda").Stop()
	Start("locator.pyenv").Stop()
	run.Stop()

	var buf bytes.Buffer
	Summarize(&buf)
	out := buf.String()
	assert.Contains(t, out, "- discovery.run")
	assert.Contains(t, out, "  - locator.conda")
	assert.Contains(t, out, "  - locator.pyenv")

	totals := Totals()
	assert.Contains(t, totals, "discovery.run")
	assert.Contains(t, totals, "locator.conda")
}

func TestOutOfOrderStop(t *testing.T) {
	Reset()
	Enable()
	defer Reset()

	a := Start("phase.scan")
	b := Start("phase.global")
	a.Stop()
	b.Stop()
	Start("after").Stop()

	// "after" nests under the root again once both spans closed.
	var buf bytes.Buffer
	Summarize(&buf)
	assert.Contains(t, buf.String(), "\n- after")
}

func TestCobraProfiler(t *testing.T) {
	Reset()
	defer Reset()

	var out bytes.Buffer
	p := NewCobraProfiler()
	p.Out = &out

	cmd := &cobra.Command{Use: "find"}
	p.AddFlags(cmd)
	mem := filepath.Join(t.TempDir(), "heap.prof")
	require.NoError(t, cmd.ParseFlags([]string{"--profile", "--mem-profile", mem}))

	require.NoError(t, p.PreRun(cmd, nil))
	assert.True(t, Enabled())
	Start("discovery.run").Stop()
	require.NoError(t, p.PostRun(cmd, nil))

	assert.FileExists(t, mem)
	assert.Contains(t, out.String(), "Memory profile written to")
	assert.Contains(t, out.String(), "discovery.run")
}
