// Package progress draws a terminal progress bar for the keys processed in a
// sync run. When output is not a terminal the bar is a no-op.
package progress

import (
	"io"
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/mattn/go-isatty"
)

const barTemplate pb.ProgressBarTemplate = `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{etime . }}`

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Enabled reports whether bars should be drawn on stderr.
func Enabled(disabled bool) bool {
	return !disabled && IsTerminal(os.Stderr)
}

// Bar counts processed keys. The zero value and a nil *Bar are no-ops.
type Bar struct {
	mu  sync.Mutex
	bar *pb.ProgressBar
}

// New starts a bar over total items written to w. When enabled is false the
// returned bar draws nothing.
func New(w io.Writer, total int, label string, enabled bool) *Bar {
	if !enabled {
		return &Bar{}
	}
	bar := barTemplate.New(total)
	bar.SetWriter(w)
	if label != "" {
		bar.Set("prefix", label+" ")
	}
	bar.Start()
	return &Bar{bar: bar}
}

// Add advances the bar by n.
func (b *Bar) Add(n int) {
	if b == nil || b.bar == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar.Add(n)
}

// AddTotal grows the expected total, used when the amount of work is only
// known after files are loaded.
func (b *Bar) AddTotal(n int) {
	if b == nil || b.bar == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar.AddTotal(int64(n))
}

// Current returns the number of items counted so far.
func (b *Bar) Current() int64 {
	if b == nil || b.bar == nil {
		return 0
	}
	return b.bar.Current()
}

// Finish stops redrawing and prints the final state.
func (b *Bar) Finish() {
	if b == nil || b.bar == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar.Finish()
}
