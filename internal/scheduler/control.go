package scheduler

import (
	"github.com/voicebus/voicebusd/pkg/bus"
)

// ControlOutcome tells Run what to do after dispatching a control message
// (spec.md §4.6).
type ControlOutcome int

const (
	ControlContinue ControlOutcome = iota
	ControlRestart
	ControlStop
)

// dispatchControl executes a control message's pre/post action pair and
// reports what the scheduler loop should do next. It deletes the queue file
// itself only when post_action is none or stop — a restart leaves
// cleanup to the new daemon instance (spec.md §4.6 step 2: "the control file
// is deleted only after the new daemon has acquired the lock").
func (s *Scheduler) dispatchControl(entry bus.Entry) ControlOutcome {
	msg := entry.Message

	if msg.PreAction == bus.PreActionDrain {
		active := s.Config.Resolve(msg.SessionID, msg.Project, msg.Persona)
		speed := active.Speed
		result := s.Driver.RenderAndPlay(msg.Text, active, speed)
		s.Logger.Info("control drain spoken", "result", result.String())
	}

	switch msg.PostAction {
	case bus.PostActionRestart:
		s.Logger.Info("control message requests restart")
		return ControlRestart
	case bus.PostActionStop:
		s.Logger.Info("control message requests stop")
		_ = s.Queue.Delete(entry)
		return ControlStop
	default:
		_ = s.Queue.Delete(entry)
		return ControlContinue
	}
}

// CleanupCompletedRestart deletes any control message still on disk whose
// post_action is restart. Call it once, right after acquiring the daemon
// lock on startup: a message in this state means a prior daemon instance
// already drained it and re-exec'd, so the new instance acknowledges
// completion by removing it (spec.md §4.6 step 2).
func (s *Scheduler) CleanupCompletedRestart() error {
	entries, err := s.Queue.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Message.IsControl() && e.Message.PostAction == bus.PostActionRestart {
			if err := s.Queue.Delete(e); err != nil {
				return err
			}
		}
	}
	return nil
}
