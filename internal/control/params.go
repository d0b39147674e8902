// Package control implements the smoothed control surface: the dispatcher
// writes target values, the audio thread advances a shadow of "current"
// values toward them once per smoothing tick, and derives the composite
// gains the mix kernel applies per sample. Targets are plain atomics so the
// dispatcher thread can write them without ever blocking the audio thread;
// current values are owned exclusively by the audio thread.
package control

import (
	"math"
	"sync/atomic"
)

// CrossPattern selects which of the three crossfader gain curves is active.
type CrossPattern int32

const (
	PatternBiasedLinear CrossPattern = iota
	PatternPlateau
	PatternExponential
)

// MixerMode selects the routing topology used by the mix kernel.
type MixerMode int32

const (
	NoPhone MixerMode = iota
	PhonePublic
	PhonePrivate
)

// Targets holds every dispatcher-writable parameter. All fields are
// accessed exclusively through their atomic accessor methods.
type Targets struct {
	volume          atomic.Int32 // 0-127
	volume2         atomic.Int32
	jinglesVolume   atomic.Int32
	jinglesVolume2  atomic.Int32
	interludeVol    atomic.Int32
	mixbackVol      atomic.Int32
	crossfade       atomic.Int32 // 0-100
	crossPattern    atomic.Int32

	leftStream     atomic.Bool
	leftAudio      atomic.Bool
	rightStream    atomic.Bool
	rightAudio     atomic.Bool
	streamMonitor  atomic.Bool

	leftPause  atomic.Bool
	rightPause atomic.Bool

	headroomDB   atomic.Uint64 // math.Float64bits
	djAudioLevel atomic.Uint64

	micOn         atomic.Bool
	mainPlay      atomic.Bool
	twoDBLimit    atomic.Bool
	usingDSP      atomic.Bool
	eotAlarmSet   atomic.Bool
	speedVariance atomic.Bool
	simpleMixer   atomic.Bool
	fadeoutF      atomic.Bool
	mixerMode     atomic.Int32

	leftSpeed  atomic.Uint64
	rightSpeed atomic.Uint64
}

// NewTargets returns a Targets block with the engine's power-on defaults.
func NewTargets() *Targets {
	t := &Targets{}
	t.leftSpeed.Store(math.Float64bits(1.0))
	t.rightSpeed.Store(math.Float64bits(1.0))
	t.headroomDB.Store(math.Float64bits(6.0))
	return t
}

// --- integer/float accessors ---

func (t *Targets) SetVolume(v int32)         { t.volume.Store(clamp127(v)) }
func (t *Targets) Volume() int32             { return t.volume.Load() }
func (t *Targets) SetVolume2(v int32)        { t.volume2.Store(clamp127(v)) }
func (t *Targets) Volume2() int32            { return t.volume2.Load() }
func (t *Targets) SetJinglesVolume(v int32)  { t.jinglesVolume.Store(clamp127(v)) }
func (t *Targets) JinglesVolume() int32      { return t.jinglesVolume.Load() }
func (t *Targets) SetJinglesVolume2(v int32) { t.jinglesVolume2.Store(clamp127(v)) }
func (t *Targets) JinglesVolume2() int32     { return t.jinglesVolume2.Load() }
func (t *Targets) SetInterludeVol(v int32)   { t.interludeVol.Store(clamp127(v)) }
func (t *Targets) InterludeVol() int32       { return t.interludeVol.Load() }
func (t *Targets) SetMixbackVol(v int32)     { t.mixbackVol.Store(clamp127(v)) }
func (t *Targets) MixbackVol() int32         { return t.mixbackVol.Load() }

func (t *Targets) SetCrossfade(v int32) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	t.crossfade.Store(v)
}
func (t *Targets) Crossfade() int32 { return t.crossfade.Load() }

func (t *Targets) SetCrossPattern(p CrossPattern) { t.crossPattern.Store(int32(p)) }
func (t *Targets) CrossPattern() CrossPattern     { return CrossPattern(t.crossPattern.Load()) }

func (t *Targets) SetMixerMode(m MixerMode) { t.mixerMode.Store(int32(m)) }
func (t *Targets) MixerMode() MixerMode     { return MixerMode(t.mixerMode.Load()) }

func (t *Targets) SetLeftStream(v bool)    { t.leftStream.Store(v) }
func (t *Targets) LeftStream() bool        { return t.leftStream.Load() }
func (t *Targets) SetLeftAudio(v bool)     { t.leftAudio.Store(v) }
func (t *Targets) LeftAudio() bool         { return t.leftAudio.Load() }
func (t *Targets) SetRightStream(v bool)   { t.rightStream.Store(v) }
func (t *Targets) RightStream() bool       { return t.rightStream.Load() }
func (t *Targets) SetRightAudio(v bool)    { t.rightAudio.Store(v) }
func (t *Targets) RightAudio() bool        { return t.rightAudio.Load() }
func (t *Targets) SetStreamMonitor(v bool) { t.streamMonitor.Store(v) }
func (t *Targets) StreamMonitor() bool     { return t.streamMonitor.Load() }

func (t *Targets) SetLeftPause(v bool)  { t.leftPause.Store(v) }
func (t *Targets) LeftPause() bool      { return t.leftPause.Load() }
func (t *Targets) SetRightPause(v bool) { t.rightPause.Store(v) }
func (t *Targets) RightPause() bool     { return t.rightPause.Load() }

func (t *Targets) SetHeadroomDB(db float64) { t.headroomDB.Store(math.Float64bits(db)) }
func (t *Targets) HeadroomDB() float64      { return math.Float64frombits(t.headroomDB.Load()) }

func (t *Targets) SetDJAudioLevel(db float64) { t.djAudioLevel.Store(math.Float64bits(db)) }
func (t *Targets) DJAudioLevel() float64      { return math.Float64frombits(t.djAudioLevel.Load()) }

func (t *Targets) SetMicOn(v bool)         { t.micOn.Store(v) }
func (t *Targets) MicOn() bool             { return t.micOn.Load() }
func (t *Targets) SetMainPlay(v bool)      { t.mainPlay.Store(v) }
func (t *Targets) MainPlay() bool          { return t.mainPlay.Load() }
func (t *Targets) SetTwoDBLimit(v bool)    { t.twoDBLimit.Store(v) }
func (t *Targets) TwoDBLimit() bool        { return t.twoDBLimit.Load() }
func (t *Targets) SetUsingDSP(v bool)      { t.usingDSP.Store(v) }
func (t *Targets) UsingDSP() bool          { return t.usingDSP.Load() }
func (t *Targets) SetEOTAlarmSet(v bool)   { t.eotAlarmSet.Store(v) }
func (t *Targets) EOTAlarmSet() bool       { return t.eotAlarmSet.Load() }
func (t *Targets) SetSpeedVariance(v bool) { t.speedVariance.Store(v) }
func (t *Targets) SpeedVariance() bool     { return t.speedVariance.Load() }
func (t *Targets) SetSimpleMixer(v bool)   { t.simpleMixer.Store(v) }
func (t *Targets) SimpleMixer() bool       { return t.simpleMixer.Load() }
func (t *Targets) SetFadeoutF(v bool)      { t.fadeoutF.Store(v) }
func (t *Targets) FadeoutF() bool          { return t.fadeoutF.Load() }

func (t *Targets) SetLeftSpeed(v float64)  { t.leftSpeed.Store(math.Float64bits(v)) }
func (t *Targets) LeftSpeed() float64      { return math.Float64frombits(t.leftSpeed.Load()) }
func (t *Targets) SetRightSpeed(v float64) { t.rightSpeed.Store(math.Float64bits(v)) }
func (t *Targets) RightSpeed() float64     { return math.Float64frombits(t.rightSpeed.Load()) }

func clamp127(v int32) int32 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return v
}
