// Package mix implements the four-mode hot loop that combines player
// output, microphone contributions, and VOIP return into the engine's four
// stereo output buses. It is the audio-thread-facing core described in
// spec.md §4.1/§4.4: the port/graph glue in internal/audioio pulls raw JACK
// buffers and hands them to Kernel.Process, which does not know JACK exists.
//
// The per-sample loops are adapted from grimnir_radio's playout/crossfade
// mixing loop shape (read-then-sum-then-limit per callback); the four
// monomorphized mode bodies follow spec.md §9's "retain four monomorphized
// loops (preferred for realtime)" guidance rather than a single
// branch-per-sample dispatcher.
package mix

import (
	"sync/atomic"

	"mixengine/internal/alarm"
	"mixengine/internal/control"
	"mixengine/internal/limiter"
	"mixengine/internal/mic"
	"mixengine/internal/midi"
	"mixengine/internal/normalizer"
	"mixengine/internal/peak"
	"mixengine/internal/player"
)

// livenessTimeout is the number of callbacks (spec.md §4.1 step 1) without
// a requestlevels poll before the engine presumes its controlling UI dead.
const livenessTimeout = 8000

// twoDBLimitScale is applied to the stream bus when twodblimit is set
// (spec.md §4.4), roughly -2 dB.
const twoDBLimitScale = 0.7943

// Buses are the four stereo output ports, sized to the current callback's
// nframes and owned by the caller (internal/audioio writes these directly
// into JACK port buffers).
type Buses struct {
	StreamL, StreamR   []float32
	MonitorL, MonitorR []float32
	VoipOutL, VoipOutR []float32
	DSPOutL, DSPOutR   []float32
}

// slot is one of the four player channels plus the per-callback read
// buffers and the frozen mix-time gain snapshot captured at buffer swap.
type slot struct {
	ch                   *player.Channel
	outL, outR           []float32
	fadeL, fadeR         []float32
	speedCapable         bool // true for left/right: spec.md's speed_variance applies only to the two main players
	strGain, audGain     func(g control.Gains) float64
	strGainF, audGainF   float64
}

func newSlot(ch *player.Channel, speedCapable bool, strGain, audGain func(g control.Gains) float64) *slot {
	return &slot{ch: ch, speedCapable: speedCapable, strGain: strGain, audGain: audGain}
}

func (s *slot) resize(n int) {
	if len(s.outL) == n {
		return
	}
	s.outL = make([]float32, n)
	s.outR = make([]float32, n)
	s.fadeL = make([]float32, n)
	s.fadeR = make([]float32, n)
}

func (s *slot) read(speedVariance bool) {
	if speedVariance && s.speedCapable {
		s.ch.ReadSpeedVaried(s.outL, s.outR, s.fadeL, s.fadeR)
	} else {
		s.ch.Read(s.outL, s.outR, s.fadeL, s.fadeR)
	}
}

func (s *slot) captureSwap(g control.Gains) {
	if s.ch.HaveSwappedBuffers() {
		s.strGainF = s.strGain(g)
		s.audGainF = s.audGain(g)
	}
}

// Kernel owns every piece of per-process engine state the mix loop touches:
// the smoothed control surface, the four player slots, the microphone bank,
// the limiter/normalizer/peak chain, the EOT alarm, and the MIDI queue.
type Kernel struct {
	sr       int
	nframes  int
	liveness int

	targets *control.Targets
	surface *control.Surface
	gains   control.Gains

	left, right, jingles, interlude *slot

	mics       *mic.Bank
	micContrib *mic.Contributions

	streamLimiter  *limiter.Limiter
	monitorLimiter *limiter.Limiter
	voipLimiter    *limiter.Limiter
	normalizer     *normalizer.Normalizer
	pendingStats   atomic.Pointer[normalizer.Stats]

	streamPeakL, streamPeakR     *peak.Filter
	monitorPeakL, monitorPeakR   *peak.Filter
	voipPeakL, voipPeakR         *peak.Filter

	rmsSumL, rmsSumR float64
	rmsCount         int

	alarmTable   *alarm.Table
	alarmPlayer  *alarm.Player
	alarmWasSet  bool

	midiQueue *midi.Queue

	shutdown atomic.Bool
}

// New builds a Kernel for sample rate sr and a microphone bank of micCount
// mics, using factory to open media files for the four player channels.
func New(sr int, micCount int, factory player.Factory) *Kernel {
	k := &Kernel{
		sr:      sr,
		targets: control.NewTargets(),
		surface: control.NewSurface(sr),

		mics: mic.NewBank(micCount, 0),

		streamLimiter:  limiter.New(limiter.DefaultCeilingDB),
		monitorLimiter: limiter.New(limiter.DefaultCeilingDB),
		voipLimiter:    limiter.New(limiter.DefaultCeilingDB),
		normalizer:     normalizer.New(sr),

		streamPeakL:  peak.New(sr),
		streamPeakR:  peak.New(sr),
		monitorPeakL: peak.New(sr),
		monitorPeakR: peak.New(sr),
		voipPeakL:    peak.New(sr),
		voipPeakR:    peak.New(sr),

		alarmTable: alarm.New(sr),

		midiQueue: midi.NewQueue(),
	}
	k.alarmPlayer = alarm.NewPlayer(k.alarmTable)

	k.left = newSlot(player.NewChannel(sr, factory), true,
		func(g control.Gains) float64 { return g.LeftStream },
		func(g control.Gains) float64 { return g.LeftAudio })
	k.right = newSlot(player.NewChannel(sr, factory), true,
		func(g control.Gains) float64 { return g.RightStream },
		func(g control.Gains) float64 { return g.RightAudio })
	k.jingles = newSlot(player.NewChannel(sr, factory), false,
		func(g control.Gains) float64 { return g.JinglesStream },
		func(g control.Gains) float64 { return g.JinglesAudio })
	k.interlude = newSlot(player.NewChannel(sr, factory), false,
		func(g control.Gains) float64 { return g.InterludeStream },
		func(g control.Gains) float64 { return g.InterludeAudio })

	return k
}

// Targets returns the dispatcher-writable parameter block.
func (k *Kernel) Targets() *control.Targets { return k.targets }

// MidiQueue returns the bounded textual MIDI queue drained by telemetry.
func (k *Kernel) MidiQueue() *midi.Queue { return k.midiQueue }

// Left, Right, Jingles, Interlude return the four player channels for
// dispatcher control (play/stop/pause/etc).
func (k *Kernel) Left() *player.Channel      { return k.left.ch }
func (k *Kernel) Right() *player.Channel     { return k.right.ch }
func (k *Kernel) Jingles() *player.Channel   { return k.jingles.ch }
func (k *Kernel) Interlude() *player.Channel { return k.interlude.ch }

// Mics returns the microphone bank for dispatcher control (mic_control).
func (k *Kernel) Mics() *mic.Bank { return k.mics }

// SetNormalizerStats queues a normalizer configuration update, applied
// atomically (preserving the running level) at the start of the next
// callback (spec.md §4.1 step 6). Safe to call from the dispatcher thread.
func (k *Kernel) SetNormalizerStats(s normalizer.Stats) {
	k.pendingStats.Store(&s)
}

// RequestLevels resets the liveness counter (spec.md §4.1 step 1) and the
// RMS tally (spec.md §3 "rms_tally_count is reset to 0 whenever telemetry
// is read"), returning the mean-square values accumulated since the
// previous call.
func (k *Kernel) RequestLevels() (strLMeanSq, strRMeanSq float64) {
	k.liveness = 0
	if k.rmsCount > 0 {
		strLMeanSq = k.rmsSumL / float64(k.rmsCount)
		strRMeanSq = k.rmsSumR / float64(k.rmsCount)
	}
	k.rmsSumL, k.rmsSumR = 0, 0
	k.rmsCount = 0
	return strLMeanSq, strRMeanSq
}

// StreamPeak, MonitorPeak, VoipPeak return the most recently read-and-decayed
// linear peak for each bus; the dispatcher converts it to dB for telemetry.
func (k *Kernel) StreamPeak() (l, r float64)   { return k.streamPeakL.Read(), k.streamPeakR.Read() }
func (k *Kernel) MonitorPeak() (l, r float64)  { return k.monitorPeakL.Read(), k.monitorPeakR.Read() }
func (k *Kernel) VoipPeak() (l, r float64)     { return k.voipPeakL.Read(), k.voipPeakR.Read() }

// ShouldShutdown reports whether the liveness watchdog (spec.md §4.1 step 1)
// has tripped.
func (k *Kernel) ShouldShutdown() bool { return k.shutdown.Load() }

func (k *Kernel) ensureCapacity(n int) {
	if n == k.nframes {
		return
	}
	k.nframes = n
	k.left.resize(n)
	k.right.resize(n)
	k.jingles.resize(n)
	k.interlude.resize(n)
	k.micContrib = mic.NewContributions(n)
}

// DrainMidi decodes each raw JACK MIDI message in events and enqueues its
// telemetry token, dropping (and counting) any that would overflow the
// queue (spec.md §4.1 step 2).
func (k *Kernel) DrainMidi(events [][]byte) {
	for _, raw := range events {
		if ev, ok := midi.Decode(raw); ok {
			k.midiQueue.Push(ev.Token())
		}
	}
}

// Process runs one audio callback: it drains pending normalizer
// configuration, reads all four player channels, runs the microphone
// chain, and dispatches into the mixer mode selected by the current
// targets, writing every sample of out (the simple mixer writes only the
// stream and monitor buses). dspIn/voipIn are the DSP-return and
// VOIP-return input ports; micInputs is one capture frame per microphone,
// indexed like Mics().Mic(i).
func (k *Kernel) Process(nframes int, dspInL, dspInR, voipInL, voipInR []float32, micInputs [][]float32, out *Buses) {
	k.liveness++
	if k.liveness > livenessTimeout {
		k.shutdown.Store(true)
	}

	k.ensureCapacity(nframes)

	if s := k.pendingStats.Swap(nil); s != nil {
		k.normalizer.SetStats(*s)
	}

	speedVariance := k.targets.SpeedVariance()
	k.left.read(speedVariance)
	k.right.read(speedVariance)
	k.jingles.read(false)
	k.interlude.read(false)

	k.left.captureSwap(k.gains)
	k.right.captureSwap(k.gains)
	k.jingles.captureSwap(k.gains)
	k.interlude.captureSwap(k.gains)

	duck := k.mics.ProcessBlock(micInputs, k.micContrib)

	anyMainPlaying := isPlaying(k.left.ch) || isPlaying(k.right.ch)
	jinglesPlaying := isPlaying(k.jingles.ch)

	remaining := nframes
	off := 0
	for remaining > 0 {
		n := remaining
		if n > 100 {
			n = 100
		}
		k.gains = k.surface.Tick(k.targets, k.mics.AnyOpen(), jinglesPlaying, anyMainPlaying)
		df := k.effectiveDuck(duck)

		k.processRange(off, off+n, df, dspInL, dspInR, voipInL, voipInR, out)

		off += n
		remaining -= n
	}

	k.tallyRMS(out.StreamL, out.StreamR)
	for i := range out.StreamL {
		k.streamPeakL.Process(float64(out.StreamL[i]))
		k.streamPeakR.Process(float64(out.StreamR[i]))
		k.monitorPeakL.Process(float64(out.MonitorL[i]))
		k.monitorPeakR.Process(float64(out.MonitorR[i]))
		k.voipPeakL.Process(float64(out.VoipOutL[i]))
		k.voipPeakR.Process(float64(out.VoipOutR[i]))
	}
}

func isPlaying(ch *player.Channel) bool {
	m := ch.Playmode()
	return m == player.Playing || m == player.Initiate
}

// effectiveDuck applies dfmod and the headroom clamp on top of the bank's
// raw per-block duck amount (spec.md §4.2).
func (k *Kernel) effectiveDuck(rawDuck float64) float64 {
	df := rawDuck * k.gains.DFMod
	if clamp := k.gains.HeadroomClampGain; df > clamp {
		df = clamp
	}
	return df
}

func (k *Kernel) tallyRMS(l, r []float32) {
	for i := range l {
		k.rmsSumL += float64(l[i]) * float64(l[i])
		k.rmsSumR += float64(r[i]) * float64(r[i])
	}
	k.rmsCount += len(l)
}

func (k *Kernel) processRange(start, end int, df float64, dspInL, dspInR, voipInL, voipInR []float32, out *Buses) {
	k.updateAlarm()

	if k.targets.SimpleMixer() {
		k.simpleMixer(start, end, out)
		return
	}

	switch k.targets.MixerMode() {
	case control.PhonePublic:
		k.phonePublic(start, end, df, voipInL, voipInR, out)
	case control.PhonePrivate:
		if k.targets.MicOn() {
			k.phonePrivateMicOn(start, end, df, dspInL, dspInR, out)
		} else {
			k.phonePrivateMicOff(start, end, voipInL, voipInR, out)
		}
	default:
		k.noPhone(start, end, df, dspInL, dspInR, out)
	}
}

func (k *Kernel) updateAlarm() {
	set := k.targets.EOTAlarmSet()
	if set && !k.alarmWasSet {
		k.alarmPlayer.Arm()
	}
	k.alarmWasSet = set
}
