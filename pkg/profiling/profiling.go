// Package profiling adds opt-in CPU, heap and per-command timing output to
// lombridge commands.
package profiling

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
)

// CobraProfiler owns the profiling flags of a command tree.
type CobraProfiler struct {
	cpuProfilePath string
	memProfilePath string
	timing         bool
	cpuProfileFile io.WriteCloser
	create         func(path string) (io.WriteCloser, error)
}

// NewCobraProfiler creates a profiler that writes profiles to files.
func NewCobraProfiler() *CobraProfiler {
	return &CobraProfiler{create: createFile}
}

func createFile(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// AddFlags registers --cpu-profile, --mem-profile and --timing on cmd.
func (p *CobraProfiler) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&p.cpuProfilePath, "cpu-profile", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&p.memProfilePath, "mem-profile", "", "Write memory profile to file")
	cmd.PersistentFlags().BoolVar(&p.timing, "timing", false, "Print per-command round trip times on exit")
}

// PreRun is a PersistentPreRunE hook.
func (p *CobraProfiler) PreRun(cmd *cobra.Command, args []string) error {
	if p.timing {
		Enable()
	}
	if p.cpuProfilePath != "" {
		f, err := p.create(p.cpuProfilePath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		p.cpuProfileFile = f
	}
	return nil
}

// PostRun is a PersistentPostRun hook. Reports go to the command's stderr.
func (p *CobraProfiler) PostRun(cmd *cobra.Command, args []string) {
	w := cmd.ErrOrStderr()
	if p.cpuProfileFile != nil {
		pprof.StopCPUProfile()
		p.cpuProfileFile.Close()
		p.cpuProfileFile = nil
		fmt.Fprintf(w, "CPU profile written to %s\n", p.cpuProfilePath)
	}

	if p.memProfilePath != "" {
		f, err := p.create(p.memProfilePath)
		if err != nil {
			fmt.Fprintf(w, "could not create memory profile: %v\n", err)
		} else {
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(w, "could not write memory profile: %v\n", err)
			}
			f.Close()
			fmt.Fprintf(w, "Memory profile written to %s\n", p.memProfilePath)
		}
	}

	if p.timing {
		Summarize(w)
	}
}

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type stat struct {
	name  string
	count int
	total time.Duration
	max   time.Duration
}

// Recorder aggregates span durations by name.
type Recorder struct {
	mu      sync.Mutex
	enabled bool
	stats   map[string]*stat
}

var defaultRecorder = &Recorder{}

// Enable turns on the process-wide recorder.
func Enable() { defaultRecorder.Enable() }

// Start times one occurrence of name on the process-wide recorder.
func Start(name string) Stopper { return defaultRecorder.Start(name) }

// Summarize prints the process-wide recorder's table.
func Summarize(w io.Writer) { defaultRecorder.Summarize(w) }

// Enable starts recording. Earlier data is kept.
func (r *Recorder) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = true
	if r.stats == nil {
		r.stats = make(map[string]*stat)
	}
}

// Start returns a span for name. It is a no-op while disabled.
func (r *Recorder) Start(name string) Stopper {
	r.mu.Lock()
	enabled := r.enabled
	r.mu.Unlock()
	if !enabled {
		return noopStopper{}
	}
	return &span{recorder: r, name: name, start: time.Now()}
}

func (r *Recorder) record(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[name]
	if !ok {
		s = &stat{name: name}
		r.stats[name] = s
	}
	s.count++
	s.total += d
	if d > s.max {
		s.max = d
	}
}

// Summarize writes one row per name, slowest total first.
func (r *Recorder) Summarize(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled || len(r.stats) == 0 {
		return
	}

	rows := make([]*stat, 0, len(r.stats))
	for _, s := range r.stats {
		rows = append(rows, s)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].total != rows[j].total {
			return rows[i].total > rows[j].total
		}
		return rows[i].name < rows[j].name
	})

	fmt.Fprintln(w, "\n--- Timing Profile ---")
	for _, s := range rows {
		avg := s.total / time.Duration(s.count)
		fmt.Fprintf(w, "- %s x%d (total %v, avg %v, max %v)\n",
			s.name, s.count,
			s.total.Round(100*time.Microsecond),
			avg.Round(100*time.Microsecond),
			s.max.Round(100*time.Microsecond))
	}
	fmt.Fprintln(w, "--------------------")
}

type span struct {
	recorder *Recorder
	name     string
	start    time.Time
	once     sync.Once
}

func (s *span) Stop() {
	s.once.Do(func() {
		s.recorder.record(s.name, time.Since(s.start))
	})
}

type noopStopper struct{}

func (noopStopper) Stop() {}
