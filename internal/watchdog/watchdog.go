// Package watchdog translates the original engine's SIGALRM-driven,
// once-a-second liveness check into a time.Ticker goroutine (spec.md
// §4.7, DESIGN NOTES §9: "re-architect as a dedicated timer/task in the
// chosen runtime"). Each tick advances every player channel's watchdog
// counter; a channel that reaches its trip threshold (checked via
// player.Channel.Stalled, spec.md's watchdog_timer == 9) is presumed to
// own a stuck decoder, and the configured shutdown hook fires.
package watchdog

import (
	"log"
	"time"
)

// Channel is the subset of player.Channel the watchdog needs. Declared
// locally (rather than importing internal/player) so this package has
// no dependency on the player implementation, matching the "watchdog
// timer" field being owned by the channel per spec.md §3.
type Channel interface {
	WatchdogTick() int32
	Stalled() bool
}

// Timer drives the tick described above (one per second in production;
// --alarm-hz overrides this for test tuning per SPEC_FULL.md §11) plus a
// shutdown hook invoked the first time any watched channel stalls.
type Timer struct {
	period   time.Duration
	ticker   *time.Ticker
	channels []namedChannel
	onStall  func(name string)
	logger   *log.Logger
	done     chan struct{}
}

type namedChannel struct {
	name string
	ch   Channel
}

// New returns a Timer that, once Start is called, ticks hz times per
// second (hz <= 0 selects the spec-mandated 1 Hz) and invokes
// onStall(name) the first time a watched channel's watchdog reaches its
// trip threshold.
func New(hz int, logger *log.Logger, onStall func(name string)) *Timer {
	if logger == nil {
		logger = log.Default()
	}
	if hz <= 0 {
		hz = 1
	}
	return &Timer{period: time.Second / time.Duration(hz), onStall: onStall, logger: logger, done: make(chan struct{})}
}

// Watch registers a channel (by name, for diagnostics) to be ticked.
func (t *Timer) Watch(name string, ch Channel) {
	t.channels = append(t.channels, namedChannel{name, ch})
}

// Start begins the ticker goroutine. Stop ends it.
func (t *Timer) Start() {
	t.ticker = time.NewTicker(t.period)
	go t.run()
}

// Stop ends the ticker goroutine. Safe to call once.
func (t *Timer) Stop() {
	if t.ticker != nil {
		t.ticker.Stop()
	}
	close(t.done)
}

func (t *Timer) run() {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			t.tick()
		}
	}
}

func (t *Timer) tick() {
	for _, nc := range t.channels {
		nc.ch.WatchdogTick()
		if nc.ch.Stalled() {
			t.logger.Printf("watchdog timer frozen on channel %s", nc.name)
			if hook := t.onStall; hook != nil {
				t.onStall = nil
				hook(nc.name)
			}
		}
	}
}
