package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// progressReporter draws a single-line spinner on stderr. Updates may come
// from several goroutines.
type progressReporter struct {
	mu      sync.Mutex
	enabled bool
	label   string
	verb    string
	total   int
	start   time.Time
	spinner int
	lastLen int
}

func newProgressReporter(label, verb string, total int, asJSON bool) *progressReporter {
	stat, err := os.Stderr.Stat()
	enabled := err == nil && (stat.Mode()&os.ModeCharDevice) != 0 && !asJSON
	return &progressReporter{
		enabled: enabled,
		label:   label,
		verb:    verb,
		total:   total,
		start:   time.Now(),
	}
}

func (r *progressReporter) Update(item string, count int) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := [4]string{"-", "\\", "|", "/"}
	frame := frames[r.spinner%len(frames)]
	r.spinner++
	item = strings.TrimSpace(item)
	if len(item) > 88 {
		item = "..." + item[len(item)-85:]
	}

	status := fmt.Sprintf("%s %s %d %s %s", frame, r.label, count, r.verb, item)
	if r.total > 0 {
		status = fmt.Sprintf("%s %s %d/%d %s %s", frame, r.label, count, r.total, r.verb, item)
	}
	r.printStatus(status)
}

func (r *progressReporter) Done(count int, unit string) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.start).Round(time.Millisecond)
	status := fmt.Sprintf("%s complete (%d %s in %s)", r.label, count, unit, elapsed)
	r.printStatus(status)
	fmt.Fprintln(os.Stderr)
}

func (r *progressReporter) printStatus(status string) {
	if r.lastLen > len(status) {
		status = status + strings.Repeat(" ", r.lastLen-len(status))
	}
	r.lastLen = len(status)
	fmt.Fprintf(os.Stderr, "\r%s", status)
}
