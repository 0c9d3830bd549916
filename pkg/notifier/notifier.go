// Package notifier provides desktop notifications for run progress
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
)

// RunNotifier sends desktop notifications at run milestones. All methods are
// no-ops when notifications are disabled; failures to deliver are logged at
// debug level and never surface to the caller.
type RunNotifier struct {
	enabled bool
	sound   bool
	logger  logger.Logger
}

// Config represents notification preferences
type Config struct {
	Enabled bool
	Sound   bool
}

// New creates a run notifier
func New(config Config, log logger.Logger) *RunNotifier {
	return &RunNotifier{
		enabled: config.Enabled,
		sound:   config.Sound,
		logger:  log,
	}
}

// NotifyRunStart announces the start of a sweep
func (n *RunNotifier) NotifyRunStart(totalPoints int) {
	if !n.enabled {
		return
	}

	title := "⚗️ Phase Diagram Run"
	message := fmt.Sprintf("Calculating %d systems...", totalPoints)

	n.send(title, message, false)
}

// NotifyPointFailure announces a system the engine could not calculate
func (n *RunNotifier) NotifyPointFailure(systemNumber int, composition string) {
	if !n.enabled {
		return
	}

	title := fmt.Sprintf("❌ System #%d Failed", systemNumber)

	n.send(title, composition, true)
}

// NotifyRunComplete announces the end of a sweep
func (n *RunNotifier) NotifyRunComplete(succeeded, failed int, duration time.Duration) {
	if !n.enabled {
		return
	}

	title := "✅ Run Complete"
	if failed > 0 {
		title = "⚠️ Run Complete With Failures"
	}
	message := fmt.Sprintf("%d calculated, %d failed in %s", succeeded, failed, formatDuration(duration))

	n.send(title, message, failed > 0)
}

func (n *RunNotifier) send(title, message string, withSound bool) {
	if err := beeep.Notify(title, message, ""); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}

	if withSound && n.sound {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
