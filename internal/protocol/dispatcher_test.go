package protocol

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"mixengine/internal/mix"
	"mixengine/internal/player"
)

const testSR = 44100

func newTestDispatcher(t *testing.T) (*Dispatcher, *mix.Kernel, *bytes.Buffer) {
	t.Helper()
	k := mix.New(testSR, 2, player.NewSilenceFactory())
	var out bytes.Buffer
	d := New(k, nil, &out, log.New(&out, "", 0))
	return d, k, &out
}

func rec(action string, fields map[string]string) Record {
	r := Record{Action: action, Fields: map[string]string{"ACTN": action}}
	for k, v := range fields {
		r.Fields[k] = v
	}
	return r
}

// TestDispatchAppliesHeadroomDirectly exercises a single handler in
// isolation: dispatch (not Run) applies its action immediately regardless
// of sync state, since the sync gate lives in Run's loop, not dispatch.
func TestDispatchAppliesHeadroomDirectly(t *testing.T) {
	d, k, out := newTestDispatcher(t)
	r := NewReader(strings.NewReader("ACTN=headroom\tHEAD=3.0\n"))
	rec1, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if rec1.Action != "headroom" {
		t.Fatalf("Action = %q", rec1.Action)
	}
	d.dispatch(rec1)
	if k.Targets().HeadroomDB() != 3.0 {
		t.Fatalf("HeadroomDB = %f, want 3.0", k.Targets().HeadroomDB())
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output from a bare headroom dispatch, got %q", out.String())
	}
}

// TestRunIgnoresUntilSyncThenReplies exercises the actual Run loop's
// pre-sync gate end to end.
func TestRunIgnoresUntilSyncThenReplies(t *testing.T) {
	d, k, out := newTestDispatcher(t)
	in := strings.NewReader("ACTN=headroom\tHEAD=9.0\nACTN=sync\nACTN=headroom\tHEAD=4.5\n")
	if err := d.Run(NewReader(in)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if k.Targets().HeadroomDB() != 4.5 {
		t.Fatalf("HeadroomDB = %f, want 4.5 (pre-sync headroom must be ignored)", k.Targets().HeadroomDB())
	}
	if !strings.Contains(out.String(), "IDJC: sync reply\n") {
		t.Fatalf("output missing sync reply: %q", out.String())
	}
}

// TestMixStatsRoundTrip feeds a full 31-field mixstats payload through the
// dispatcher and checks a representative sample of fields landed on the
// kernel's targets.
func TestMixStatsRoundTrip(t *testing.T) {
	d, k, _ := newTestDispatcher(t)
	payload := ":064:070:050:080:090:032:016:1:10010:01:0000:1:0:1:1:1:1.500000:0.900000:1:-3.000000:2:1:0:"
	d.dispatch(rec("mixstats", map[string]string{"MIXR": payload}))

	tg := k.Targets()
	if tg.Volume() != 64 || tg.Volume2() != 70 {
		t.Fatalf("Volume/Volume2 = %d/%d, want 64/70", tg.Volume(), tg.Volume2())
	}
	if tg.Crossfade() != 50 {
		t.Fatalf("Crossfade = %d, want 50", tg.Crossfade())
	}
	if !tg.LeftStream() || tg.LeftAudio() || !tg.RightAudio() {
		t.Fatalf("mute mask mis-decoded: LeftStream=%v LeftAudio=%v RightAudio=%v", tg.LeftStream(), tg.LeftAudio(), tg.RightAudio())
	}
	if tg.RightPause() {
		t.Fatalf("RightPause target set; mixstats pauses the channel directly and leaves the pause targets alone")
	}
	if !tg.SimpleMixer() || tg.EOTAlarmSet() {
		t.Fatalf("SimpleMixer/EOTAlarmSet = %v/%v", tg.SimpleMixer(), tg.EOTAlarmSet())
	}
	if tg.MixerMode() != 1 {
		t.Fatalf("MixerMode = %v, want 1 (PhonePublic)", tg.MixerMode())
	}
	if tg.LeftSpeed() != 1.5 || tg.RightSpeed() != 0.9 {
		t.Fatalf("LeftSpeed/RightSpeed = %f/%f, want 1.5/0.9", tg.LeftSpeed(), tg.RightSpeed())
	}
	if tg.CrossPattern() != 2 {
		t.Fatalf("CrossPattern = %v, want 2", tg.CrossPattern())
	}
}

// TestMixStatsBadFieldCountShutsDown exercises spec.md §4.6's "a bad field
// count aborts the loop": a malformed MIXR payload must set shutdown.
func TestMixStatsBadFieldCountShutsDown(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	d.dispatch(rec("mixstats", map[string]string{"MIXR": ":1:2:3:"}))
	if !d.shutdown {
		t.Fatal("expected shutdown after a bad mixstats field count")
	}
}

// TestRequestLevelsEmitsOneTelemetryBlock exercises spec.md §8's
// protocol-round-trip scenario: sync, then requestlevels, produces exactly
// one telemetry block terminated by "end".
func TestRequestLevelsEmitsOneTelemetryBlock(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	in := strings.NewReader("ACTN=sync\nACTN=requestlevels\n")
	var out bytes.Buffer
	d.out = &out
	if err := d.Run(NewReader(in)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	text := out.String()
	if strings.Count(text, "end\n") != 1 {
		t.Fatalf("expected exactly one telemetry terminator, got: %q", text)
	}
	if !strings.Contains(text, "str_l_peak=") {
		t.Fatalf("missing telemetry fields: %q", text)
	}
}

// TestPlayLeftReportsContextID exercises playleft's reply line and its
// effect on the left channel's playmode.
func TestPlayLeftReportsContextID(t *testing.T) {
	d, k, _ := newTestDispatcher(t)
	var out bytes.Buffer
	d.out = &out
	d.dispatch(rec("playleft", map[string]string{"PLRP": "track.flac", "SEEK": "0"}))
	if !strings.HasPrefix(out.String(), "context_id=") {
		t.Fatalf("expected a context_id reply, got %q", out.String())
	}
	if k.Left().Playmode() != player.Initiate {
		t.Fatalf("Playmode = %v, want Initiate", k.Left().Playmode())
	}
}

// TestMicControlAppliesOpenFlag exercises mic_control's FLAG field against
// the mic bank.
func TestMicControlAppliesOpenFlag(t *testing.T) {
	d, k, _ := newTestDispatcher(t)
	d.kernel.Mics().Mic(0).SetOpen(true)
	d.dispatch(rec("mic_control", map[string]string{"INDX": "0", "FLAG": "0"}))
	if k.Mics().Mic(0).Open() {
		t.Fatal("expected mic 0 to be closed after FLAG=0")
	}
}
