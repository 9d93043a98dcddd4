package printjob

import "time"

// DefaultTick is the polling increment of timed waits.
const DefaultTick = 100 * time.Millisecond

// triggerTick is the tick on which a wait fires its trigger.
const triggerTick = 2

// wait blocks for d in increments of tick. If trigger is set it runs once at
// the start of the third increment, provided the wait lasts that long. wait
// never looks at cancellation: a started exposure or settle always runs to
// the end.
func wait(d, tick time.Duration, trigger func()) {
	if d <= 0 {
		return
	}
	if tick <= 0 {
		tick = DefaultTick
	}

	deadline := time.Now().Add(d)
	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

	for index := 0; ; index++ {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		if index == triggerTick && trigger != nil {
			trigger()
		}
		timer.Reset(min(tick, remaining))
		<-timer.C
	}
}
