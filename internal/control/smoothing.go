package control

import "math"

const (
	crossBias        = 0.35386
	crossExpBase     = 0.9504953575
	muteAttackRate   = 0.09
	muteReleaseRate  = 0.075
	refSampleRate    = 44100.0
)

// MuteGains holds the five independently-smoothed mute envelopes named in
// the mixstats mute mask: left/right stream, left/right audio (monitor),
// and the stream-monitor-mirror bit.
type MuteGains struct {
	LeftStream    float64
	LeftAudio     float64
	RightStream   float64
	RightAudio    float64
	StreamMonitor float64
}

// Gains is the set of composite, per-callback mix-time gains derived from
// the current smoothed parameters. One pair of stream/audio gains exists
// per player; left/right refers to the two main players, not stereo
// channels — a player's own stereo image passes through unmodified by
// these scalars.
type Gains struct {
	LeftStream, LeftAudio   float64
	RightStream, RightAudio float64
	JinglesStream, JinglesAudio     float64
	InterludeStream, InterludeAudio float64

	VolRescale, Vol2Rescale               float64
	MixbackRescale                        float64
	CrossLeft, CrossRight                 float64
	DJAudioGain                           float64
	Headroom                              float64
	HeadroomClampGain                     float64
	DFMod                                 float64
}

// Surface owns the "current" shadow values advanced by the audio thread and
// derives Gains from them. It must only be touched from the audio thread.
type Surface struct {
	sr int

	volume, volume2             int32
	jinglesVolume, jinglesVol2  int32
	interludeVol, mixbackVol    int32
	crossfade                   int32

	interludeAutovol float64 // dB, drifts independently of interludeVol
	headroom         float64 // current_headroom, dB

	mutes MuteGains
}

// NewSurface returns a Surface seeded at zero/default state for sr.
func NewSurface(sr int) *Surface {
	return &Surface{sr: sr}
}

// SetSampleRate updates the sample rate used by rate-dependent smoothing
// steps (mute envelopes, headroom).
func (s *Surface) SetSampleRate(sr int) {
	s.sr = sr
}

func step(cur, target int32) int32 {
	switch {
	case cur < target:
		return cur + 1
	case cur > target:
		return cur - 1
	default:
		return cur
	}
}

// Tick advances every smoothed current value one step toward its target and
// recomputes the derived Gains. It is called roughly every 100 samples by
// the mix kernel, never per-sample.
func (s *Surface) Tick(t *Targets, anyMicOpen, jinglesPlaying, anyMainPlaying bool) Gains {
	s.volume = step(s.volume, t.Volume())
	s.volume2 = step(s.volume2, t.Volume2())
	s.jinglesVolume = step(s.jinglesVolume, t.JinglesVolume())
	s.jinglesVol2 = step(s.jinglesVol2, t.JinglesVolume2())
	s.interludeVol = step(s.interludeVol, t.InterludeVol())
	s.mixbackVol = step(s.mixbackVol, t.MixbackVol())
	s.crossfade = step(s.crossfade, t.Crossfade())

	s.tickInterludeAutovol(anyMainPlaying)
	s.tickHeadroom(t.HeadroomDB(), anyMicOpen)
	s.tickMutes(t)

	volRescale := math.Pow(10, -float64(s.volume)/55.0)
	vol2Rescale := math.Pow(10, -float64(s.volume2)/55.0)
	jinglesRescale := math.Pow(10, -float64(s.jinglesVolume)/55.0)
	jingles2Rescale := math.Pow(10, -float64(s.jinglesVol2)/55.0)
	interludeRescale := math.Pow(10, -float64(s.interludeVol)/55.0) * math.Pow(10, s.interludeAutovol/20.0)
	mixbackRescale := math.Pow(10, -(float64(s.mixbackVol) * 0.018181818))

	crossL, crossR := crossfadeGains(t.CrossPattern(), s.crossfade)

	dfmod := s.dfmod(jinglesPlaying)
	headroomClamp := math.Pow(10, s.headroom/20.0)

	g := Gains{
		LeftStream:       crossL * volRescale * s.mutes.LeftStream,
		RightStream:      crossR * volRescale * s.mutes.RightStream,
		LeftAudio:        crossL * vol2Rescale * s.mutes.LeftAudio,
		RightAudio:       crossR * vol2Rescale * s.mutes.RightAudio,
		JinglesStream:    jinglesRescale,
		JinglesAudio:     jingles2Rescale,
		InterludeStream:  interludeRescale,
		InterludeAudio:   interludeRescale,
		VolRescale:       volRescale,
		Vol2Rescale:      vol2Rescale,
		MixbackRescale:   mixbackRescale,
		CrossLeft:        crossL,
		CrossRight:       crossR,
		DJAudioGain:      math.Pow(10, t.DJAudioLevel()/20.0),
		Headroom:         s.headroom,
		HeadroomClampGain: headroomClamp,
		DFMod:            dfmod,
	}
	return g
}

// tickInterludeAutovol drifts the interlude auto-volume toward -20 dB while
// any main player plays, and climbs it back toward 0 dB once none do. The
// climb rate is piecewise, matching the source's observable behavior: both
// the below-(-10dB) and below-0dB rules are evaluated in the same tick, so
// a climb starting below -10 dB can advance by both increments at once.
func (s *Surface) tickInterludeAutovol(anyMainPlaying bool) {
	if anyMainPlaying {
		s.interludeAutovol -= 0.3
		if s.interludeAutovol < -20 {
			s.interludeAutovol = -20
		}
		return
	}
	if s.interludeAutovol < -10 {
		s.interludeAutovol += 0.5
	}
	if s.interludeAutovol < 0 {
		s.interludeAutovol += 0.3
	} else {
		s.interludeAutovol -= 0.05
	}
	if s.interludeAutovol > 0 {
		s.interludeAutovol = 0
	}
}

func (s *Surface) tickHeadroom(headroomDB float64, anyMicOpen bool) {
	target := 0.0
	if anyMicOpen {
		target = -headroomDB
	}
	diff := target - s.headroom
	if math.Abs(diff) < 1e-6 {
		s.headroom = target
		return
	}
	sr := float64(s.sr)
	if sr <= 0 {
		sr = refSampleRate
	}
	s.headroom += diff * 1600.0 / (sr * math.Pow(headroomDB+10.0, 0.93))
}

func (s *Surface) tickMutes(t *Targets) {
	sr := float64(s.sr)
	if sr <= 0 {
		sr = refSampleRate
	}
	muteButton(&s.mutes.LeftStream, t.LeftStream(), sr)
	muteButton(&s.mutes.LeftAudio, t.LeftAudio(), sr)
	muteButton(&s.mutes.RightStream, t.RightStream(), sr)
	muteButton(&s.mutes.RightAudio, t.RightAudio(), sr)
	muteButton(&s.mutes.StreamMonitor, t.StreamMonitor(), sr)
}

// muteButton advances one asymmetric attack/release envelope toward 1
// (open) or 0 (muted) depending on switchOn.
func muteButton(gain *float64, switchOn bool, sr float64) {
	g := *gain
	if switchOn {
		g += (1.0 - g) * muteAttackRate * refSampleRate / sr
		if g >= 0.99 {
			g = 1.0
		}
	} else {
		g -= g * muteReleaseRate * (2.0 - g) * (2.0 - g) * refSampleRate / sr
		if g < 2e-5 {
			g = 0.0
		}
	}
	*gain = g
}

// dfmod is the slowly-updated ducking modifier: it rises with jingles
// volume while jingles play, and with the average main-player volume
// otherwise. Both are normalized to [0,1] by dividing the raw 0-127
// setting, then squared and offset by 1 so the modifier stays in [1,2].
func (s *Surface) dfmod(jinglesPlaying bool) float64 {
	var base float64
	if jinglesPlaying {
		base = float64(s.jinglesVolume) / 127.0
	} else {
		base = (float64(s.volume) + float64(s.volume2)) / 2.0 / 127.0
	}
	return base*base + 1.0
}

// crossfadeGains computes the (left-player, right-player) crossfader
// weights for the requested pattern and current position (0-100).
func crossfadeGains(pattern CrossPattern, current int32) (float64, float64) {
	switch pattern {
	case PatternPlateau:
		return crossfadePlateau(current)
	case PatternExponential:
		return crossfadeExponential(current)
	default:
		return crossfadeBiasedLinear(current)
	}
}

func crossfadeBiasedLinear(current int32) (float64, float64) {
	x := float64(current) / 100.0
	y := 1.0 - x
	b := crossBias

	l := y / ((x*b)/(x+b) + y)
	r := x / ((y*b)/(y+b) + x)

	if x > 0.5 {
		r = r / (1 + (x-0.5)*8)
	} else if y > 0.5 {
		l = l / (1 + (y-0.5)*8)
	}
	return l, r
}

func crossfadePlateau(current int32) (float64, float64) {
	l, r := 1.0, 1.0
	switch {
	case current < 45:
		r = math.Pow(10, 0.8*(float64(current)-45))
	case current > 55:
		l = math.Pow(10, 0.8*(55-float64(current)))
	}
	return clamp01(l), clamp01(r)
}

func crossfadeExponential(current int32) (float64, float64) {
	if current <= 0 {
		return 1, 0
	}
	if current >= 100 {
		return 0, 1
	}
	l := math.Pow(crossExpBase, float64(current))
	r := math.Pow(crossExpBase, 100-float64(current))
	return l, r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
