package protocol

import (
	"fmt"
	"io"
)

// Telemetry is one requestlevels snapshot, matching the key=value block
// emitted by original_source/c/idjcmixer.c's requestlevels handler
// (§1879-1935) field-for-field.
type Telemetry struct {
	StrLPeak, StrRPeak int // dB, integer
	StrLRms, StrRRms   int // dB, integer; 120 means "no signal"

	JinglesPlaying bool

	LeftElapsedSec, RightElapsedSec int

	LeftPlaying, RightPlaying, InterludePlaying bool
	LeftSignal, RightSignal                     bool

	LeftCID, RightCID, JinglesCID, InterludeCID uint64

	LeftAudioRunout, RightAudioRunout bool

	LeftAdditionalMetadata, RightAdditionalMetadata bool

	Midi string // already drained from the queue, leading comma stripped

	SilenceL, SilenceR float64 // linear
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// WriteTelemetry writes one telemetry block terminated by the literal
// "end" line (spec.md §6).
func WriteTelemetry(w io.Writer, t Telemetry) error {
	_, err := fmt.Fprintf(w,
		"str_l_peak=%d\nstr_r_peak=%d\n"+
			"str_l_rms=%d\nstr_r_rms=%d\n"+
			"jingles_playing=%d\n"+
			"left_elapsed=%d\n"+
			"right_elapsed=%d\n"+
			"left_playing=%d\n"+
			"right_playing=%d\n"+
			"interlude_playing=%d\n"+
			"left_signal=%d\n"+
			"right_signal=%d\n"+
			"left_cid=%d\n"+
			"right_cid=%d\n"+
			"jingles_cid=%d\n"+
			"interlude_cid=%d\n"+
			"left_audio_runout=%d\n"+
			"right_audio_runout=%d\n"+
			"left_additional_metadata=%d\n"+
			"right_additional_metadata=%d\n"+
			"midi=%s\n"+
			"silence_l=%f\n"+
			"silence_r=%f\n"+
			"end\n",
		t.StrLPeak, t.StrRPeak,
		t.StrLRms, t.StrRRms,
		b2i(t.JinglesPlaying),
		t.LeftElapsedSec, t.RightElapsedSec,
		b2i(t.LeftPlaying), b2i(t.RightPlaying), b2i(t.InterludePlaying),
		b2i(t.LeftSignal), b2i(t.RightSignal),
		t.LeftCID, t.RightCID, t.JinglesCID, t.InterludeCID,
		b2i(t.LeftAudioRunout), b2i(t.RightAudioRunout),
		b2i(t.LeftAdditionalMetadata), b2i(t.RightAdditionalMetadata),
		t.Midi,
		t.SilenceL, t.SilenceR,
	)
	return err
}

// StripLeadingComma removes the first comma from a drained MIDI queue
// string, matching the original's "exclude leading `,`" telemetry
// convention (idjcmixer.c §1898).
func StripLeadingComma(s string) string {
	if len(s) > 0 && s[0] == ',' {
		return s[1:]
	}
	return s
}

// WriteSyncReply writes the handshake reply to ACTN=sync.
func WriteSyncReply(w io.Writer) error {
	_, err := fmt.Fprint(w, "IDJC: sync reply\n")
	return err
}

// WriteSampleRate announces the active sample rate at startup.
func WriteSampleRate(w io.Writer, sr int) error {
	_, err := fmt.Fprintf(w, "IDJC: Sample rate %d\n", sr)
	return err
}

// OIR is the metadata block emitted for an ogginforequest/sndfileinforequest
// /avformatinforequest action.
type OIR struct {
	Artist, Title, Album string
	LengthSec            float64
	ReplayGainTrackGain   string
}

// WriteOIR writes an "OIR:" prefixed metadata block terminated by
// "OIR:end".
func WriteOIR(w io.Writer, o OIR) error {
	_, err := fmt.Fprintf(w, "OIR:ARTIST=%s\nOIR:TITLE=%s\nOIR:ALBUM=%s\nOIR:LENGTH=%f\nOIR:REPLAYGAIN_TRACK_GAIN=%s\nOIR:end\n",
		o.Artist, o.Title, o.Album, o.LengthSec, o.ReplayGainTrackGain)
	return err
}

// WriteOIRInvalid writes the failure form of an inforequest reply.
func WriteOIRInvalid(w io.Writer) error {
	_, err := fmt.Fprint(w, "OIR:NOT VALID\n")
	return err
}

// WriteMetadataUpdate writes one channel's pending dynamic metadata as its
// own key/value block (idjcmixer.c §1305's "new_metadata" line), emitted
// by requestlevels alongside the main telemetry block whenever
// TakeMetadata reports fresh data for that channel.
func WriteMetadataUpdate(w io.Writer, channel, artist, title, album string) error {
	_, err := fmt.Fprintf(w, "new_metadata_%s_artist=%s\nnew_metadata_%s_title=%s\nnew_metadata_%s_album=%s\n",
		channel, artist, channel, title, channel, album)
	return err
}
