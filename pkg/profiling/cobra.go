package profiling

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"
)

// CobraProfiler wires --profile, --cpu-profile and --mem-profile into a
// command.
type CobraProfiler struct {
	cpuProfileFile *os.File
	cpuProfilePath string
	memProfilePath string
	timing         bool

	// Out receives the summary and file notices; defaults to stderr so
	// machine-readable stdout stays clean.
	Out io.Writer
}

func NewCobraProfiler() *CobraProfiler {
	return &CobraProfiler{Out: os.Stderr}
}

// AddFlags registers the profiling flags on cmd.
func (p *CobraProfiler) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&p.timing, "profile", false, "Print a per-locator timing breakdown on exit")
	cmd.Flags().StringVar(&p.cpuProfilePath, "cpu-profile", "", "Write a CPU profile to file")
	cmd.Flags().StringVar(&p.memProfilePath, "mem-profile", "", "Write a heap profile to file")
}

// PreRun starts profiling as requested by the flags.
func (p *CobraProfiler) PreRun(cmd *cobra.Command, args []string) error {
	if p.timing {
		Enable()
	}
	if p.cpuProfilePath != "" {
		f, err := os.Create(p.cpuProfilePath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		p.cpuProfileFile = f
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			p.cpuProfileFile = nil
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
	}
	return nil
}

// PostRun writes profile files and prints the timing summary.
func (p *CobraProfiler) PostRun(cmd *cobra.Command, args []string) error {
	if p.cpuProfileFile != nil {
		pprof.StopCPUProfile()
		p.cpuProfileFile.Close()
		p.cpuProfileFile = nil
		fmt.Fprintf(p.Out, "CPU profile written to %s\n", p.cpuProfilePath)
	}

	if p.memProfilePath != "" {
		f, err := os.Create(p.memProfilePath)
		if err != nil {
			return fmt.Errorf("could not create memory profile: %w", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("could not write memory profile: %w", err)
		}
		fmt.Fprintf(p.Out, "Memory profile written to %s\n", p.memProfilePath)
	}

	if p.timing {
		Summarize(p.Out)
	}
	return nil
}
