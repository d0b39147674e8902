package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// MixStats is the decoded form of the mixstats payload (spec.md §6): 31
// values in 23 colon-separated fields, the mute, pause and flush masks
// being one field of 5, 2 and 4 digits. Its field order is fixed by original_source/c/idjcmixer.c's
// sscanf format string (§1737):
//
//	:%03d:%03d:%03d:%03d:%03d:%03d:%03d:%d:%1d%1d%1d%1d%1d:%1d%1d:%1d%1d%1d%1d:
//	%1d:%1d:%1d:%1d:%1d:%f:%f:%1d:%f:%d:%d:%d:
type MixStats struct {
	Volume, Volume2                     int
	Crossfade                           int
	JinglesVolume, JinglesVolume2       int
	InterludeVol, MixbackVol            int
	JinglesPlaying                      bool
	LeftStream, LeftAudio               bool
	RightStream, RightAudio             bool
	StreamMonitor                       bool
	LeftPause, RightPause               bool
	FlushLeft, FlushRight               bool
	FlushJingles, FlushInterlude        bool
	SimpleMixer                         bool
	EOTAlarmSet                         bool
	MixerMode                           int
	FadeoutF                            bool
	MainPlay                            bool
	LeftSpeed, RightSpeed               float64
	SpeedVariance                       bool
	DJAudioLevel                        float64
	CrossPattern                        int
	UseDSP                              bool
	TwoDBLimit                          bool
}

// mixStatsFieldCount is the number of colon-delimited fields a mixstats
// payload must carry (spec.md §6: "A bad field count aborts the loop").
const mixStatsFieldCount = 23

// ParseMixStats decodes a colon-prefixed mixstats payload (the MIXR field
// value). An error return corresponds to the original's "mixer got bad
// mixer string" parse failure.
func ParseMixStats(s string) (MixStats, error) {
	fields := splitColonFields(s)
	if len(fields) != mixStatsFieldCount {
		return MixStats{}, fmt.Errorf("protocol: mixstats has %d fields, want %d", len(fields), mixStatsFieldCount)
	}

	var m MixStats
	var err error
	geti := func(i int) int {
		v, e := strconv.Atoi(fields[i])
		if e != nil && err == nil {
			err = fmt.Errorf("protocol: mixstats field %d (%q): %w", i, fields[i], e)
		}
		return v
	}
	getf := func(i int) float64 {
		v, e := strconv.ParseFloat(fields[i], 64)
		if e != nil && err == nil {
			err = fmt.Errorf("protocol: mixstats field %d (%q): %w", i, fields[i], e)
		}
		return v
	}
	getMask := func(field string, i int) bool { return i < len(field) && field[i] == '1' }

	m.Volume = geti(0)
	m.Volume2 = geti(1)
	m.Crossfade = geti(2)
	m.JinglesVolume = geti(3)
	m.JinglesVolume2 = geti(4)
	m.InterludeVol = geti(5)
	m.MixbackVol = geti(6)
	m.JinglesPlaying = geti(7) != 0

	muteMask := fields[8]
	m.LeftStream = getMask(muteMask, 0)
	m.LeftAudio = getMask(muteMask, 1)
	m.RightStream = getMask(muteMask, 2)
	m.RightAudio = getMask(muteMask, 3)
	m.StreamMonitor = getMask(muteMask, 4)

	pauseMask := fields[9]
	m.LeftPause = getMask(pauseMask, 0)
	m.RightPause = getMask(pauseMask, 1)

	flushMask := fields[10]
	m.FlushLeft = getMask(flushMask, 0)
	m.FlushRight = getMask(flushMask, 1)
	m.FlushJingles = getMask(flushMask, 2)
	m.FlushInterlude = getMask(flushMask, 3)

	m.SimpleMixer = geti(11) != 0
	m.EOTAlarmSet = geti(12) != 0
	m.MixerMode = geti(13)
	m.FadeoutF = geti(14) != 0
	m.MainPlay = geti(15) != 0
	m.LeftSpeed = getf(16)
	m.RightSpeed = getf(17)
	m.SpeedVariance = geti(18) != 0
	m.DJAudioLevel = getf(19)
	m.CrossPattern = geti(20)
	m.UseDSP = geti(21) != 0
	m.TwoDBLimit = geti(22) != 0

	if err != nil {
		return MixStats{}, err
	}
	return m, nil
}

// NormalizerStats is the decoded form of the 5-field normalizerstats
// payload (":%f:%f:%f:%f:%d:" in the original — maxlevel, ceiling, rise
// seconds, fall seconds, active).
type NormalizerStats struct {
	MaxLevel float64
	Ceiling  float64
	Rise     float64
	Fall     float64
	Active   bool
}

const normalizerStatsFieldCount = 5

// ParseNormalizerStats decodes a colon-prefixed normalizerstats payload.
func ParseNormalizerStats(s string) (NormalizerStats, error) {
	fields := splitColonFields(s)
	if len(fields) != normalizerStatsFieldCount {
		return NormalizerStats{}, fmt.Errorf("protocol: normalizerstats has %d fields, want %d", len(fields), normalizerStatsFieldCount)
	}
	var n NormalizerStats
	var err error
	getf := func(i int) float64 {
		v, e := strconv.ParseFloat(fields[i], 64)
		if e != nil && err == nil {
			err = fmt.Errorf("protocol: normalizerstats field %d (%q): %w", i, fields[i], e)
		}
		return v
	}
	n.MaxLevel = getf(0)
	n.Ceiling = getf(1)
	n.Rise = getf(2)
	n.Fall = getf(3)
	active, e := strconv.Atoi(fields[4])
	if e != nil && err == nil {
		err = fmt.Errorf("protocol: normalizerstats field 4 (%q): %w", 4, e)
	}
	n.Active = active != 0
	if err != nil {
		return NormalizerStats{}, err
	}
	return n, nil
}

// splitColonFields splits a colon-delimited payload, dropping the leading
// and trailing empty fields a leading/trailing ':' produces.
func splitColonFields(s string) []string {
	parts := strings.Split(s, ":")
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
