package protocol

import (
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"

	"mixengine/internal/dbtable"
	"mixengine/internal/fade"
	"mixengine/internal/mic"
	"mixengine/internal/mix"
	"mixengine/internal/normalizer"
	"mixengine/internal/player"
)

// PortController is the seam to the audio-server's port graph (out of
// scope per spec.md §1: "the UI front-end" and port/graph glue are
// consumed through an interface). internal/audioio supplies the concrete
// go-jack-backed implementation; a nil PortController makes jackconnect,
// jackdisconnect, jackportread, and every remake* action silent no-ops,
// which keeps the dispatcher independently testable.
type PortController interface {
	Connect(source, dest string) error
	Disconnect(source, dest string) error
	ListPorts(pattern string) []string
	Rename(logicalPort, targetPortName string) error
}

// Dispatcher drives engine state from the control protocol described in
// spec.md §4.6. It owns nothing about JACK; internal/audioio's process
// callback calls into the Kernel directly, while the Dispatcher only
// mutates Targets, player, and mic state between callbacks, exactly the
// "dispatcher thread... mutates parameter targets, invokes player
// controls" split of spec.md §5.
type Dispatcher struct {
	kernel *mix.Kernel
	ports  PortController
	out    io.Writer
	logger *log.Logger

	synced   bool
	shutdown bool
}

// New returns a Dispatcher writing telemetry to out and logging protocol
// errors via logger (nil selects log.Default()).
func New(k *mix.Kernel, ports PortController, out io.Writer, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{kernel: k, ports: ports, out: out, logger: logger}
}

// Shutdown reports whether the dispatcher loop has been asked to end,
// either by a parse failure, EOF, or the kernel's own liveness watchdog.
func (d *Dispatcher) Shutdown() bool { return d.shutdown || d.kernel.ShouldShutdown() }

// Run reads records from r until EOF, a parse failure, or Shutdown()
// becomes true, dispatching each to its handler (spec.md §4.6). It
// ignores every action until the first ACTN=sync record is seen.
func (d *Dispatcher) Run(r *Reader) error {
	for !d.Shutdown() {
		rec, err := r.Next()
		if err == io.EOF {
			d.shutdown = true
			return nil
		}
		if err != nil {
			d.shutdown = true
			return err
		}
		if !d.synced {
			if rec.Action == "sync" {
				d.synced = true
				if err := WriteSyncReply(d.out); err != nil {
					return err
				}
			}
			continue
		}
		d.dispatch(rec)
	}
	return nil
}

func (d *Dispatcher) dispatch(rec Record) {
	switch rec.Action {
	case "mixstats":
		d.handleMixStats(rec)
	case "normalizerstats":
		d.handleNormalizerStats(rec)
	case "mic_control":
		d.handleMicControl(rec)
	case "new_channel_mode_string":
		d.handleChannelMode(rec)
	case "headroom":
		d.kernel.Targets().SetHeadroomDB(rec.GetFloat("HEAD"))
	case "anymic":
		// Telemetry-only query in the original; AnyOpen() is read directly
		// by callers via the kernel, nothing to mutate here.
	case "fademode_left":
		d.kernel.Left().FadeMode(fadeModeFromString(rec.Get("FADE")))
	case "fademode_right":
		d.kernel.Right().FadeMode(fadeModeFromString(rec.Get("FADE")))
	case "playleft":
		d.play(d.kernel.Left(), rec)
	case "playright":
		d.play(d.kernel.Right(), rec)
	case "noflushleft":
		d.play(d.kernel.Left(), rec)
	case "noflushright":
		d.play(d.kernel.Right(), rec)
	case "manyjingles":
		d.playMany(d.kernel.Jingles(), rec)
	case "manyinterlude":
		d.playMany(d.kernel.Interlude(), rec)
	case "stopleft":
		d.kernel.Left().Eject()
	case "stopright":
		d.kernel.Right().Eject()
	case "stopjingles":
		d.kernel.Jingles().Eject()
	case "stopinterlude":
		d.kernel.Interlude().Eject()
	case "dither":
		d.setDither(true)
	case "dontdither":
		d.setDither(false)
	case "resamplequality":
		q := rec.GetInt("RSQT")
		d.kernel.Left().SetResampleQuality(q)
		d.kernel.Right().SetResampleQuality(q)
		d.kernel.Jingles().SetResampleQuality(q)
		d.kernel.Interlude().SetResampleQuality(q)
	case "ogginforequest", "sndfileinforequest", "avformatinforequest":
		// Concrete tag extraction is an external collaborator (spec.md §1);
		// without one registered, report the request as unfulfillable
		// rather than fabricate metadata.
		_ = WriteOIRInvalid(d.out)
	case "mp3status":
		fmt.Fprintf(d.out, "IDJC: mp3=%d\n", 0)
	case "jackportread":
		d.handleJackPortRead(rec)
	case "jackconnect":
		d.handleJackConnect(rec, true)
	case "jackdisconnect":
		d.handleJackConnect(rec, false)
	case "serverbind":
		d.handleRemake(rec, "serverbind")
	case "requestlevels":
		d.handleRequestLevels()
	default:
		if strings.HasPrefix(rec.Action, "remake") {
			d.handleRemake(rec, strings.TrimPrefix(rec.Action, "remake"))
			return
		}
		d.logger.Printf("protocol: unrecognized action %q", rec.Action)
	}
}

func (d *Dispatcher) handleMixStats(rec Record) {
	ms, err := ParseMixStats(rec.Get("MIXR"))
	if err != nil {
		d.logger.Print("mixer got bad mixer string")
		d.shutdown = true
		return
	}
	applyMixStats(d.kernel, ms)
}

func (d *Dispatcher) handleNormalizerStats(rec Record) {
	ns, err := ParseNormalizerStats(rec.Get("NORM"))
	if err != nil {
		d.logger.Print("mixer got bad normalizer string")
		d.shutdown = true
		return
	}
	d.kernel.SetNormalizerStats(normalizer.Stats{
		MaxLevel: ns.MaxLevel,
		Ceiling:  ns.Ceiling,
		Rise:     ns.Rise,
		Fall:     ns.Fall,
		Active:   ns.Active,
	})
}

// handleMicControl sets one mic's open flag and its gate/level settings
// (the mic's role is set by new_channel_mode_string instead).
// Field layout follows the original's kvpdict entries INDX (mic index),
// FLAG (open/closed), AGCP (colon-separated "thresholdDB:targetDB"
// level-control parameters).
func (d *Dispatcher) handleMicControl(rec Record) {
	idx := rec.GetInt("INDX")
	bank := d.kernel.Mics()
	if idx < 0 || idx >= bank.Count() {
		return
	}
	m := bank.Mic(idx)
	m.SetOpen(rec.Get("FLAG") == "1")

	if agcp := rec.Get("AGCP"); agcp != "" {
		parts := strings.Split(agcp, ":")
		if len(parts) >= 1 {
			if v, err := strconv.ParseFloat(parts[0], 64); err == nil {
				m.SetGateThresholdDB(v)
			}
		}
		if len(parts) >= 2 {
			if v, err := strconv.ParseFloat(parts[1], 64); err == nil {
				m.SetLevelTargetDB(v)
			}
		}
	}
}

func (d *Dispatcher) handleChannelMode(rec Record) {
	idx := rec.GetInt("INDX")
	bank := d.kernel.Mics()
	if idx < 0 || idx >= bank.Count() {
		return
	}
	switch rec.Get("CMOD") {
	case "aux":
		bank.Mic(idx).Role = mic.RoleAux
	case "monitor":
		bank.Mic(idx).Role = mic.RoleMonitorOnly
	default:
		bank.Mic(idx).Role = mic.RoleMain
	}
}

func (d *Dispatcher) play(ch *player.Channel, rec Record) {
	seek := rec.GetFloat("SEEK")
	cid, err := ch.Play(rec.Get("PLRP"), seek)
	if err != nil {
		d.logger.Printf("protocol: play failed: %v", err)
	}
	fmt.Fprintf(d.out, "context_id=%d\n", cid)
}

func (d *Dispatcher) playMany(ch *player.Channel, rec Record) {
	list := strings.Split(rec.Get("PLPL"), "\n")
	loop := rec.Get("LOOP") == "1"
	cid, err := ch.Playmany(list, loop)
	if err != nil {
		d.logger.Printf("protocol: playmany failed: %v", err)
	}
	fmt.Fprintf(d.out, "context_id=%d\n", cid)
}

func (d *Dispatcher) setDither(on bool) {
	d.kernel.Left().SetDither(on)
	d.kernel.Right().SetDither(on)
	d.kernel.Jingles().SetDither(on)
	d.kernel.Interlude().SetDither(on)
}

func (d *Dispatcher) handleJackPortRead(rec Record) {
	if d.ports == nil {
		return
	}
	names := d.ports.ListPorts(rec.Get("JFIL"))
	fmt.Fprintf(d.out, "ports=%s\n", strings.Join(names, ","))
}

func (d *Dispatcher) handleJackConnect(rec Record, connect bool) {
	if d.ports == nil {
		return
	}
	src, dst := rec.Get("JPRT"), rec.Get("JPT2")
	var err error
	if connect {
		err = d.ports.Connect(src, dst)
	} else {
		err = d.ports.Disconnect(src, dst)
	}
	if err != nil {
		d.logger.Printf("protocol: jack %s(%s, %s): %v", rec.Action, src, dst, err)
	}
}

func (d *Dispatcher) handleRemake(rec Record, logical string) {
	if d.ports == nil {
		return
	}
	target := rec.Get("MIC")
	if target == "" {
		target = rec.Get("AUDL")
	}
	if err := d.ports.Rename(logical, target); err != nil {
		d.logger.Printf("protocol: remake%s: %v", logical, err)
	}
}

func fadeModeFromString(s string) fade.Mode {
	switch s {
	case "0":
		return fade.Off
	case "2":
		return fade.Slow
	default:
		return fade.Fast
	}
}

// dbToTelemetryInt mirrors the original's peak_to_log: str_l_peak_db =
// peak_to_log(peakfilter_read(str_pf_l)), converting a linear peak
// reading to the telemetry's integer dB.
func dbToTelemetryInt(linearPeak float64) int { return dbtable.PeakToLog(linearPeak) }

// rmsToTelemetryInt mirrors the original's rms reply: 120 ("silent") when
// the tally is empty, otherwise the absolute dB value of the RMS level.
func rmsToTelemetryInt(meanSquare float64) int {
	if meanSquare == 0 {
		return 120
	}
	return int(math.Abs(dbtable.Level2DB(math.Sqrt(meanSquare))))
}

func (d *Dispatcher) handleRequestLevels() {
	strL, strR := d.kernel.RequestLevels()
	pl, pr := d.kernel.StreamPeak()

	midi := StripLeadingComma(d.kernel.MidiQueue().Drain())

	left, right := d.kernel.Left(), d.kernel.Right()
	leftMeta, leftHasMeta := left.TakeMetadata()
	rightMeta, rightHasMeta := right.TakeMetadata()

	t := Telemetry{
		StrLPeak: dbToTelemetryInt(pl),
		StrRPeak: dbToTelemetryInt(pr),
		StrLRms:  rmsToTelemetryInt(strL),
		StrRRms:  rmsToTelemetryInt(strR),

		JinglesPlaying: d.kernel.Jingles().ContextID()&1 == 1,

		LeftElapsedSec:  int(left.ProgressMs() / 1000),
		RightElapsedSec: int(right.ProgressMs() / 1000),

		LeftPlaying:      left.ContextID()&1 == 1,
		RightPlaying:     right.ContextID()&1 == 1,
		InterludePlaying: d.kernel.Interlude().ContextID()&1 == 1,

		LeftSignal:  left.Peak() > 0.001,
		RightSignal: right.Peak() > 0.001,

		LeftCID:      left.ContextID(),
		RightCID:     right.ContextID(),
		JinglesCID:   d.kernel.Jingles().ContextID(),
		InterludeCID: d.kernel.Interlude().ContextID(),

		LeftAudioRunout:  left.Avail() == 0 && left.ContextID()&1 == 0,
		RightAudioRunout: right.Avail() == 0 && right.ContextID()&1 == 0,

		LeftAdditionalMetadata:  leftHasMeta,
		RightAdditionalMetadata: rightHasMeta,

		Midi: midi,
	}
	left.ResetPeak()
	right.ResetPeak()

	if err := WriteTelemetry(d.out, t); err != nil {
		d.logger.Printf("protocol: telemetry write: %v", err)
	}
	if leftHasMeta {
		_ = WriteMetadataUpdate(d.out, "left", leftMeta.Artist, leftMeta.Title, leftMeta.Album)
	}
	if rightHasMeta {
		_ = WriteMetadataUpdate(d.out, "right", rightMeta.Artist, rightMeta.Title, rightMeta.Album)
	}
}
