package player

import (
	"math"
	"sync/atomic"

	"mixengine/internal/fade"
)

// Playmode is the state machine driving a single player channel.
type Playmode int32

const (
	Stopped Playmode = iota
	Initiate
	Playing
	Ejecting
	Complete
)

// minSecondsOfBuffer is the minimum ring capacity, in seconds of stereo
// audio, required by spec.md §3 ("Player channel"). The fade buffer shares
// the same sizing: it only ever needs to hold what a swap moved into it,
// which can be at most one ring's worth.
const minSecondsOfBuffer = 10

// watchdogTripTick is the per-second counter value (spec.md §4.7) at which
// a player's decoder is presumed stuck.
const watchdogTripTick = 9

// Channel implements one of the four media-file players: Pump fills a ring
// buffer from the decoder while the audio thread drains it through an
// optional fade. Every cross-thread field is an atomic; no locks are held on
// the audio path except the dedicated metadata mutex (never touched by the
// audio thread on its hot path, only opportunistically).
type Channel struct {
	sr int

	ring     *Ring // current track
	fadeRing *Ring // tail of the outgoing track during a gapless swap

	mainFade *fade.Generator // applied to ring output while Ejecting
	tailFade *fade.Generator // applied to fadeRing output while it drains

	mode       atomic.Int32 // Playmode
	contextID  atomic.Uint64
	watchdog   atomic.Int32
	swapped    atomic.Bool
	progressMs atomic.Uint64
	peakAbs    atomic.Uint64 // math.Float64bits, per-callback max |sample|
	speed      atomic.Uint64 // math.Float64bits, 1.0 == normal
	speedFrac  float64       // fractional read cursor for the speed-variance path; audio-thread-only

	dither          atomic.Bool
	resampleQuality atomic.Int32

	meta metadataSlot

	dec     Decoder
	factory Factory

	playlist []string
	loopIdx  int
	looping  bool
}

// NewChannel builds an idle Channel at sample rate sr, using factory to open
// media paths when Play is called. factory may be nil, in which case Play
// always yields silence (useful for buses with no file source, or tests).
func NewChannel(sr int, factory Factory) *Channel {
	c := &Channel{
		factory: factory,
	}
	c.mainFade = fade.New(sr)
	c.tailFade = fade.New(sr)
	c.FadeMode(fade.Fast)
	c.speed.Store(math.Float64bits(1.0))
	c.resampleQuality.Store(2)
	c.mode.Store(int32(Stopped))
	c.SetSampleRate(sr)
	return c
}

// SetSampleRate (re)sizes the ring buffers for sr and rescales the fade
// generators. Only safe to call before Play has been issued, or while the
// channel is Stopped — the mix kernel's reallocation step (spec.md §4.1
// step 4) governs when this may run on a live engine.
func (c *Channel) SetSampleRate(sr int) {
	if sr <= 0 {
		sr = 44100
	}
	c.sr = sr
	capacity := minSecondsOfBuffer * sr
	c.ring = NewRing(capacity)
	c.fadeRing = NewRing(capacity)
	c.mainFade.SetSampleRate(sr)
	c.tailFade.SetSampleRate(sr)
}

// Playmode returns the current state machine value.
func (c *Channel) Playmode() Playmode { return Playmode(c.mode.Load()) }

// ContextID returns the monotone audio_context_id; its LSB is 1 ("engaged")
// whenever a track is loaded and not yet fully ejected. Once the channel is
// Stopped or Complete the id reads one higher, with the LSB clear.
func (c *Channel) ContextID() uint64 {
	id := c.contextID.Load()
	if m := c.Playmode(); id&1 == 1 && (m == Stopped || m == Complete) {
		id++
	}
	return id
}

// Play opens path via the registered factory, seeking to seekSec, and
// transitions the channel into Initiate. It returns the new context id.
// If a track is already active, its ring's unread remainder is handed to
// the fade buffer and faded out rather than discarded, giving gapless
// playback (spec.md §3 "buffer swap").
func (c *Channel) Play(path string, seekSec float64) (uint64, error) {
	var dec Decoder
	var err error
	if c.factory != nil {
		dec, err = c.factory(path, seekSec)
		if err != nil {
			return c.contextID.Load(), err
		}
	} else {
		dec = silenceDecoder{}
	}

	wasActive := c.Playmode() == Playing || c.Playmode() == Initiate
	if wasActive {
		c.ring.MoveTo(c.fadeRing)
		c.tailFade.Arm()
	}

	if c.dec != nil {
		c.dec.Close()
	}
	c.dec = dec
	if cd, ok := dec.(ConfigurableDecoder); ok {
		cd.SetDither(c.dither.Load())
		cd.SetResampleQuality(int(c.resampleQuality.Load()))
	}

	c.ring.Reset()
	c.progressMs.Store(0)
	c.watchdog.Store(0)
	c.speedFrac = 0
	c.swapped.Store(true)

	next := c.contextID.Load() + 2 // keep LSB=1 "engaged"
	if next&1 == 0 {
		next++
	}
	c.contextID.Store(next)
	c.mode.Store(int32(Initiate))
	return next, nil
}

// Playmany queues a playlist to be played in sequence, optionally looping
// back to the start once exhausted.
func (c *Channel) Playmany(playlist []string, loop bool) (uint64, error) {
	c.playlist = playlist
	c.looping = loop
	c.loopIdx = 0
	if len(playlist) == 0 {
		return c.contextID.Load(), nil
	}
	return c.Play(playlist[0], 0)
}

// advancePlaylist moves to the next playlist entry after end-of-track,
// wrapping if looping is set. Returns false if there is nothing more to
// play.
func (c *Channel) advancePlaylist() bool {
	if len(c.playlist) == 0 {
		return false
	}
	c.loopIdx++
	if c.loopIdx >= len(c.playlist) {
		if !c.looping {
			return false
		}
		c.loopIdx = 0
	}
	_, err := c.Play(c.playlist[c.loopIdx], 0)
	return err == nil
}

// Pause stops draining the ring without discarding it or the decoder.
func (c *Channel) Pause() {
	if c.Playmode() == Playing {
		c.mode.Store(int32(Ejecting))
	}
}

// Unpause resumes a paused channel.
func (c *Channel) Unpause() {
	if c.Playmode() == Ejecting {
		c.mode.Store(int32(Playing))
	}
}

// Eject arms the fadeout and transitions toward Complete once it finishes.
func (c *Channel) Eject() {
	c.mainFade.Arm()
	c.mode.Store(int32(Ejecting))
}

// FadeMode selects the fade curve used by both the eject fade and the
// gapless-swap tail fade.
func (c *Channel) FadeMode(m fade.Mode) {
	c.mainFade.SetMode(m)
	c.tailFade.SetMode(m)
}

// SetSpeed sets the playback speed multiplier used by ReadSpeedVaried;
// 1.0 is normal speed.
func (c *Channel) SetSpeed(speed float64) { c.speed.Store(math.Float64bits(speed)) }

// Speed returns the current playback speed multiplier.
func (c *Channel) Speed() float64 { return math.Float64frombits(c.speed.Load()) }

// SetDither toggles dithering on the decoder, when it implements
// ConfigurableDecoder.
func (c *Channel) SetDither(on bool) { c.dither.Store(on) }

// SetResampleQuality forwards a 0-4 resample quality selector to the
// decoder, when it implements ConfigurableDecoder.
func (c *Channel) SetResampleQuality(q int) { c.resampleQuality.Store(int32(q)) }

// SetMetadata publishes fresh dynamic metadata, consumed by telemetry via
// TakeMetadata.
func (c *Channel) SetMetadata(m Metadata) { c.meta.set(m) }

// TakeMetadata returns pending fresh metadata, if any, clearing the
// pending flag.
func (c *Channel) TakeMetadata() (Metadata, bool) { return c.meta.take() }

// HaveSwappedBuffers reports, and clears, the one-shot flag set when Play
// moved a previous track's tail into the fade buffer (or started a first
// track) within the same callback — the mix kernel uses this to snapshot
// the current gains for the outgoing track (spec.md §4.1 step 5).
func (c *Channel) HaveSwappedBuffers() bool {
	return c.swapped.CompareAndSwap(true, false)
}

// ProgressMs returns the approximate elapsed playback position.
func (c *Channel) ProgressMs() uint64 { return c.progressMs.Load() }

// Avail returns the approximate number of sample pairs ready in the main
// ring.
func (c *Channel) Avail() int { return c.ring.Avail() }

// Peak returns the largest |sample| seen across both channels since the
// last ResetPeak, used for end-of-track silence detection (spec.md §4.4).
func (c *Channel) Peak() float64 { return math.Float64frombits(c.peakAbs.Load()) }

// ResetPeak zeroes the tracked peak; called by the dispatcher when it
// reads telemetry.
func (c *Channel) ResetPeak() { c.peakAbs.Store(0) }

func (c *Channel) trackPeak(v float32) {
	av := float64(v)
	if av < 0 {
		av = -av
	}
	for {
		cur := math.Float64frombits(c.peakAbs.Load())
		if av <= cur {
			return
		}
		if c.peakAbs.CompareAndSwap(math.Float64bits(cur), math.Float64bits(av)) {
			return
		}
	}
}

// WatchdogTick increments the per-second stall counter; called by the
// engine's watchdog ticker, not the audio thread.
func (c *Channel) WatchdogTick() int32 { return c.watchdog.Add(1) }

// WatchdogReset zeroes the stall counter; called whenever Pump decodes
// new audio.
func (c *Channel) WatchdogReset() { c.watchdog.Store(0) }

// WatchdogValue returns the current stall counter.
func (c *Channel) WatchdogValue() int32 { return c.watchdog.Load() }

// Stalled reports whether the watchdog has reached its trip threshold.
func (c *Channel) Stalled() bool { return c.watchdog.Load() >= watchdogTripTick }

// Pump pulls up to n sample pairs from the decoder into the ring. It must
// not run on the audio thread. Nothing in this module calls Pump and no
// decoder goroutine is started, so a channel's ring stays empty (and Read
// yields silence) unless a caller drives Pump.
func (c *Channel) Pump(n int) {
	if c.dec == nil {
		return
	}
	free := c.ring.Free()
	if free <= 0 {
		return
	}
	if n > free {
		n = free
	}
	l := make([]float32, n)
	r := make([]float32, n)
	got, err := c.dec.Fill(l, r)
	if err != nil || got == 0 {
		if c.Playmode() == Playing || c.Playmode() == Initiate {
			if !c.advancePlaylist() {
				c.mode.Store(int32(Complete))
			}
		}
		return
	}
	c.ring.Write(l[:got], r[:got])
	c.WatchdogReset()
}

// Read drains up to len(outL) sample pairs of the current track into
// outL/outR (unfaded — the mix kernel applies the player's mix-time gain),
// and the decaying tail of any just-superseded track into fadeL/fadeR
// (already scaled by the tail's fade envelope), matching spec.md §4.5's
// read(n, out_L, out_R, fade_L, fade_R) contract. Silence pads any
// shortfall in either buffer.
func (c *Channel) Read(outL, outR, fadeL, fadeR []float32) {
	n := len(outL)
	mode := c.Playmode()
	if mode == Stopped || mode == Complete {
		zero(outL)
		zero(outR)
	} else {
		if mode == Initiate {
			c.mode.Store(int32(Playing))
		}
		got := c.ring.Read(outL, outR)
		for i := got; i < n; i++ {
			outL[i] = 0
			outR[i] = 0
		}

		fadeOut := mode == Ejecting
		for i := 0; i < n; i++ {
			g := float32(c.mainFade.Tick(fadeOut))
			outL[i] *= g
			outR[i] *= g
			c.trackPeak(outL[i])
			c.trackPeak(outR[i])
		}
		if fadeOut && c.mainFade.Done() {
			c.mode.Store(int32(Complete))
		}
		if got > 0 {
			c.progressMs.Add(uint64(got) * 1000 / uint64(c.sr))
		}
	}

	c.readFadeTail(fadeL, fadeR)
}

// ReadSpeedVaried is the speed-variance counterpart of Read: it drains the
// main ring through a linear-interpolation resampler stepping by Speed()
// sample pairs per output sample, leaving the fade-tail path unchanged
// (spec.md §3 "speed variance" only applies to the active track).
func (c *Channel) ReadSpeedVaried(outL, outR, fadeL, fadeR []float32) {
	n := len(outL)
	mode := c.Playmode()
	if mode == Stopped || mode == Complete {
		zero(outL)
		zero(outR)
		c.readFadeTail(fadeL, fadeR)
		return
	}
	if mode == Initiate {
		c.mode.Store(int32(Playing))
	}

	speed := c.Speed()
	pos := c.speedFrac
	for i := 0; i < n; i++ {
		i0 := int(pos)
		frac := float32(pos - float64(i0))
		l0, r0 := c.ring.PeekPair(i0)
		l1, r1 := c.ring.PeekPair(i0 + 1)
		outL[i] = l0 + (l1-l0)*frac
		outR[i] = r0 + (r1-r0)*frac
		pos += speed
	}
	consumed := int(pos)
	c.ring.Advance(consumed)
	c.speedFrac = pos - float64(consumed)
	if consumed > 0 {
		c.progressMs.Add(uint64(consumed) * 1000 / uint64(c.sr))
	}

	fadeOut := mode == Ejecting
	for i := 0; i < n; i++ {
		g := float32(c.mainFade.Tick(fadeOut))
		outL[i] *= g
		outR[i] *= g
		c.trackPeak(outL[i])
		c.trackPeak(outR[i])
	}
	if fadeOut && c.mainFade.Done() {
		c.mode.Store(int32(Complete))
	}

	c.readFadeTail(fadeL, fadeR)
}

func (c *Channel) readFadeTail(fadeL, fadeR []float32) {
	n := len(fadeL)
	got := c.fadeRing.Read(fadeL, fadeR)
	for i := got; i < n; i++ {
		fadeL[i] = 0
		fadeR[i] = 0
	}
	for i := 0; i < n; i++ {
		g := float32(c.tailFade.Tick(got > 0))
		fadeL[i] *= g
		fadeR[i] *= g
	}
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}
