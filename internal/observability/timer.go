package observability

import (
	"log"
	"time"
)

// Timer measures one engine stage. Create it at the call site and Stop it when
// the stage ends; the duration is recorded and, with a logger, printed.
type Timer struct {
	stage  string
	start  time.Time
	logger *log.Logger
	now    func() time.Time
}

// StartTimer starts timing a stage. logger may be nil.
func StartTimer(stage string, logger *log.Logger) *Timer {
	return &Timer{stage: stage, start: time.Now(), logger: logger, now: time.Now}
}

// Stop records the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	d := t.now().Sub(t.start)
	RecordStage(t.stage, d.Seconds())
	if t.logger != nil {
		t.logger.Printf("[timer] %s completed in %.2fs", t.stage, d.Seconds())
	}
	return d
}
