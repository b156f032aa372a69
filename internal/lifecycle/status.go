package lifecycle

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/voicebus/voicebusd/pkg/bus"
)

// Report is the result of a status check (spec.md §4.7 "Status"): running
// flag, PID, queue depth, a handful of pending-message previews, and a tail
// of the daemon log.
type Report struct {
	Running    bool
	PID        int
	QueueDepth int
	Previews   []string
	LogTail    []string
}

// previewCount caps how many pending messages Status summarizes.
const previewCount = 5

// logTailLines caps how many trailing log lines Status returns.
const logTailLines = 20

// Status assembles a Report from the on-disk PID file, queue, and log.
func Status(pidPath string, queue *bus.Queue, logPath string) (Report, error) {
	var r Report

	if pid, ok := ReadPID(pidPath); ok && IsAlive(pid) {
		r.Running = true
		r.PID = pid
	}

	depth, err := queue.Depth()
	if err != nil {
		return r, fmt.Errorf("lifecycle: queue depth: %w", err)
	}
	r.QueueDepth = depth

	previews, err := queue.Previews(previewCount)
	if err != nil {
		return r, fmt.Errorf("lifecycle: queue previews: %w", err)
	}
	r.Previews = previews

	r.LogTail = tailLines(logPath, logTailLines)
	return r, nil
}

// tailLines returns up to n trailing lines of the file at path, or nil if
// it can't be read — a missing log is not a status error.
func tailLines(path string, n int) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines
}

// String renders a Report the way `voicebusd status` prints it.
func (r Report) String() string {
	var b strings.Builder
	if r.Running {
		fmt.Fprintf(&b, "daemon running (pid %d)\n", r.PID)
	} else {
		b.WriteString("daemon not running\n")
	}
	fmt.Fprintf(&b, "queue depth: %d\n", r.QueueDepth)
	for _, p := range r.Previews {
		fmt.Fprintf(&b, "  - %s\n", p)
	}
	return b.String()
}
