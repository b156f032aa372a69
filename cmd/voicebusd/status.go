package main

import (
	"fmt"

	"github.com/voicebus/voicebusd/internal/app"
	"github.com/voicebus/voicebusd/internal/lifecycle"
	"github.com/voicebus/voicebusd/pkg/bus"
)

// cmdStatus implements `voicebusd status` (spec.md §4.7 "Status").
func cmdStatus(paths app.Paths) error {
	queue, err := bus.New(paths.QueueDir, nil)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}

	report, err := lifecycle.Status(paths.PIDFile, queue, paths.LogFile)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	fmt.Print(report.String())
	return nil
}
