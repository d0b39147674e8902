package protocol

import (
	"mixengine/internal/control"
	"mixengine/internal/mix"
)

// applyMixStats writes a decoded MixStats payload into the kernel's
// dispatcher-writable targets and issues the player pause/unpause calls
// the original performs as an immediate side effect of the mixstats
// handler (idjcmixer.c §1737-1769), rather than through the smoothed
// control surface. Flush-mask bits are parsed (to keep the field count
// honest) but are a no-op: spec.md §4.5's player-channel interface has no
// flush operation, only play/playmany/pause/eject, so there is nothing in
// scope for them to drive.
func applyMixStats(k *mix.Kernel, ms MixStats) {
	t := k.Targets()

	t.SetVolume(int32(ms.Volume))
	t.SetVolume2(int32(ms.Volume2))
	t.SetCrossfade(int32(ms.Crossfade))
	t.SetJinglesVolume(int32(ms.JinglesVolume))
	t.SetJinglesVolume2(int32(ms.JinglesVolume2))
	t.SetInterludeVol(int32(ms.InterludeVol))
	t.SetMixbackVol(int32(ms.MixbackVol))

	t.SetLeftStream(ms.LeftStream)
	t.SetLeftAudio(ms.LeftAudio)
	t.SetRightStream(ms.RightStream)
	t.SetRightAudio(ms.RightAudio)
	t.SetStreamMonitor(ms.StreamMonitor)

	t.SetSimpleMixer(ms.SimpleMixer)
	t.SetEOTAlarmSet(ms.EOTAlarmSet)
	t.SetMixerMode(control.MixerMode(ms.MixerMode))
	t.SetFadeoutF(ms.FadeoutF)
	t.SetMainPlay(ms.MainPlay)
	t.SetLeftSpeed(ms.LeftSpeed)
	t.SetRightSpeed(ms.RightSpeed)
	t.SetSpeedVariance(ms.SpeedVariance)
	t.SetDJAudioLevel(ms.DJAudioLevel)
	t.SetCrossPattern(control.CrossPattern(ms.CrossPattern))
	t.SetUsingDSP(ms.UseDSP)
	t.SetTwoDBLimit(ms.TwoDBLimit)

	if ms.LeftPause {
		k.Left().Pause()
	} else {
		k.Left().Unpause()
	}
	if ms.RightPause {
		k.Right().Pause()
	} else {
		k.Right().Unpause()
	}
}
