package harvester

import (
	"log/slog"
	"time"
)

// pace suspends the cycle so the driver's next manifest refresh lands close
// to real playback time. segDuration is the duration in seconds of the last
// processed segment; the slack is that duration minus whatever processing
// time exceeded the nominal update period. A plain timed suspension, never a
// busy wait.
func (e *Engine) pace(start time.Time, segDuration float64) {
	if segDuration <= 0 {
		return
	}
	elapsed := e.now().Sub(start)
	slack := time.Duration(segDuration*float64(time.Second)) - (elapsed - e.cfg.UpdateDuration)
	if slack <= 0 {
		return
	}
	e.log.Debug("pacing cycle", slog.Duration("slack", slack))
	e.sleep(slack)
}
