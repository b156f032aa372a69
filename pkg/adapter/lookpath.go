package adapter

import "os/exec"

// lookPath is a thin indirection over exec.LookPath so IsAvailable methods
// read as intent ("is this CLI installed") rather than an os/exec detail.
func lookPath(name string) (string, error) {
	return exec.LookPath(name)
}
