package mix

// noPhone implements spec.md §4.4's fully-featured mixer: stream carries
// ducked players plus mic, aux, interlude and the four fade tails;
// normalizer then limiter; using_dsp substitutes the external DSP return
// for the computed bus; twodblimit trims -2 dB. Monitor mirrors the stream
// when stream_monitor is set, otherwise is built from the "aud" gain
// family plus the EOT alarm, limited and scaled by the DJ audio gain. The
// DSP send always carries the dry computed stream so an external processor
// can return it via dsp_in.
func (k *Kernel) noPhone(start, end int, df float64, dspInL, dspInR []float32, out *Buses) {
	lp, rp, jp, ip := k.left, k.right, k.jingles, k.interlude
	mc := k.micContrib
	g := k.gains
	usingDSP := k.targets.UsingDSP()
	twoDBLimit := k.targets.TwoDBLimit()
	streamMonitor := k.targets.StreamMonitor()

	for i := start; i < end; i++ {
		streamL := (lp.outL[i]*float32(g.LeftStream) + rp.outL[i]*float32(g.RightStream) + jp.outL[i]*float32(g.JinglesStream))*float32(df) +
			mc.MainL[i] + mc.AuxL[i] + ip.outL[i]*float32(g.InterludeStream) +
			ip.fadeL[i]*float32(ip.strGainF) + lp.fadeL[i]*float32(lp.strGainF) +
			rp.fadeL[i]*float32(rp.strGainF) + jp.fadeL[i]*float32(jp.strGainF)
		streamR := (lp.outR[i]*float32(g.LeftStream) + rp.outR[i]*float32(g.RightStream) + jp.outR[i]*float32(g.JinglesStream))*float32(df) +
			mc.MainR[i] + mc.AuxR[i] + ip.outR[i]*float32(g.InterludeStream) +
			ip.fadeR[i]*float32(ip.strGainF) + lp.fadeR[i]*float32(lp.strGainF) +
			rp.fadeR[i]*float32(rp.strGainF) + jp.fadeR[i]*float32(jp.strGainF)

		out.DSPOutL[i], out.DSPOutR[i] = streamL, streamR

		nl, nr := k.normalizer.Process(float64(streamL), float64(streamR))
		ll, lr := k.streamLimiter.Process(nl, nr)
		if usingDSP {
			ll, lr = float64(dspInL[i]), float64(dspInR[i])
		}
		if twoDBLimit {
			ll *= twoDBLimitScale
			lr *= twoDBLimitScale
		}
		out.StreamL[i], out.StreamR[i] = float32(ll), float32(lr)
		out.VoipOutL[i], out.VoipOutR[i] = 0, 0

		if streamMonitor {
			out.MonitorL[i], out.MonitorR[i] = out.StreamL[i], out.StreamR[i]
			continue
		}

		monL := (lp.outL[i]*float32(g.LeftAudio) + rp.outL[i]*float32(g.RightAudio) + jp.outL[i]*float32(g.JinglesAudio))*float32(df) +
			mc.MonitorUnpannedDJ[i] + ip.outL[i]*float32(g.InterludeAudio) +
			ip.fadeL[i]*float32(ip.audGainF) + lp.fadeL[i]*float32(lp.audGainF) +
			rp.fadeL[i]*float32(rp.audGainF) + jp.fadeL[i]*float32(jp.audGainF)
		monR := (lp.outR[i]*float32(g.LeftAudio) + rp.outR[i]*float32(g.RightAudio) + jp.outR[i]*float32(g.JinglesAudio))*float32(df) +
			mc.MonitorUnpannedDJ[i] + ip.outR[i]*float32(g.InterludeAudio) +
			ip.fadeR[i]*float32(ip.audGainF) + lp.fadeR[i]*float32(lp.audGainF) +
			rp.fadeR[i]*float32(rp.audGainF) + jp.fadeR[i]*float32(jp.audGainF)

		monL, monR = k.applyAlarm(monL, monR)

		ml, mr := k.monitorLimiter.Process(float64(monL), float64(monR))
		out.MonitorL[i] = float32(ml * g.DJAudioGain)
		out.MonitorR[i] = float32(mr * g.DJAudioGain)
	}
}

// phonePublic implements spec.md §4.4's caller-audible mixer: the VOIP send
// carries mic+jingles, the stream additionally folds in the VOIP return and
// the VOIP send itself so listeners hear the caller, and ducking is pinned
// to the headroom clamp alone (no mic-driven duck).
func (k *Kernel) phonePublic(start, end int, df float64, voipInL, voipInR []float32, out *Buses) {
	lp, rp, jp, ip := k.left, k.right, k.jingles, k.interlude
	mc := k.micContrib
	g := k.gains
	hdf := float32(g.HeadroomClampGain)

	for i := start; i < end; i++ {
		voipSendL := mc.MainL[i] + jp.outL[i]*float32(g.JinglesStream)
		voipSendR := mc.MainR[i] + jp.outR[i]*float32(g.JinglesStream)

		streamL := (lp.outL[i]*float32(g.LeftStream)+rp.outL[i]*float32(g.RightStream))*hdf +
			voipInL[i] + voipSendL + mc.AuxL[i] + ip.outL[i]*float32(g.InterludeStream) +
			ip.fadeL[i]*float32(ip.strGainF) + lp.fadeL[i]*float32(lp.strGainF) +
			rp.fadeL[i]*float32(rp.strGainF) + jp.fadeL[i]*float32(jp.strGainF)
		streamR := (lp.outR[i]*float32(g.LeftStream)+rp.outR[i]*float32(g.RightStream))*hdf +
			voipInR[i] + voipSendR + mc.AuxR[i] + ip.outR[i]*float32(g.InterludeStream) +
			ip.fadeR[i]*float32(ip.strGainF) + lp.fadeR[i]*float32(lp.strGainF) +
			rp.fadeR[i]*float32(rp.strGainF) + jp.fadeR[i]*float32(jp.strGainF)

		nl, nr := k.normalizer.Process(float64(streamL), float64(streamR))
		ll, lr := k.streamLimiter.Process(nl, nr)
		out.StreamL[i], out.StreamR[i] = float32(ll), float32(lr)
		out.DSPOutL[i], out.DSPOutR[i] = streamL, streamR

		sl, sr := k.voipLimiter.Process(float64(voipSendL), float64(voipSendR))
		out.VoipOutL[i], out.VoipOutR[i] = float32(sl), float32(sr)

		monL := (lp.outL[i]*float32(g.LeftAudio)+rp.outL[i]*float32(g.RightAudio)+jp.outL[i]*float32(g.JinglesAudio)+ip.outL[i]*float32(g.InterludeAudio))*hdf +
			voipInL[i] + mc.AuxL[i] + mc.MonitorUnpannedDJ[i] +
			ip.fadeL[i]*float32(ip.audGainF) + lp.fadeL[i]*float32(lp.audGainF) +
			rp.fadeL[i]*float32(rp.audGainF) + jp.fadeL[i]*float32(jp.audGainF)
		monR := (lp.outR[i]*float32(g.LeftAudio)+rp.outR[i]*float32(g.RightAudio)+jp.outR[i]*float32(g.JinglesAudio)+ip.outR[i]*float32(g.InterludeAudio))*hdf +
			voipInR[i] + mc.AuxR[i] + mc.MonitorUnpannedDJ[i] +
			ip.fadeR[i]*float32(ip.audGainF) + lp.fadeR[i]*float32(lp.audGainF) +
			rp.fadeR[i]*float32(rp.audGainF) + jp.fadeR[i]*float32(jp.audGainF)

		monL, monR = k.applyAlarm(monL, monR)
		ml, mr := k.monitorLimiter.Process(float64(monL), float64(monR))
		out.MonitorL[i] = float32(ml * g.DJAudioGain)
		out.MonitorR[i] = float32(mr * g.DJAudioGain)
	}
}

// phonePrivateMicOff implements spec.md §4.4's private-call mixer with the
// host mic muted from the listener stream: the stream is players+aux only,
// the VOIP send carries the stream (attenuated by mixback) plus jingles and
// the raw mic sum unducked, and ducking is disabled entirely.
func (k *Kernel) phonePrivateMicOff(start, end int, voipInL, voipInR []float32, out *Buses) {
	lp, rp, jp, ip := k.left, k.right, k.jingles, k.interlude
	mc := k.micContrib
	g := k.gains
	mixback := float32(g.MixbackRescale)

	for i := start; i < end; i++ {
		streamL := lp.outL[i]*float32(g.LeftStream) + rp.outL[i]*float32(g.RightStream) + ip.outL[i]*float32(g.InterludeStream) +
			mc.AuxL[i] +
			ip.fadeL[i]*float32(ip.strGainF) + lp.fadeL[i]*float32(lp.strGainF) +
			rp.fadeL[i]*float32(rp.strGainF) + jp.fadeL[i]*float32(jp.strGainF)
		streamR := lp.outR[i]*float32(g.LeftStream) + rp.outR[i]*float32(g.RightStream) + ip.outR[i]*float32(g.InterludeStream) +
			mc.AuxR[i] +
			ip.fadeR[i]*float32(ip.strGainF) + lp.fadeR[i]*float32(lp.strGainF) +
			rp.fadeR[i]*float32(rp.strGainF) + jp.fadeR[i]*float32(jp.strGainF)

		nl, nr := k.normalizer.Process(float64(streamL), float64(streamR))
		ll, lr := k.streamLimiter.Process(nl, nr)
		out.StreamL[i], out.StreamR[i] = float32(ll), float32(lr)
		out.DSPOutL[i], out.DSPOutR[i] = streamL, streamR

		voipSendL := out.StreamL[i]*mixback + jp.outL[i]*float32(g.JinglesAudio) + jp.fadeL[i]*float32(jp.strGainF) + mc.MainL[i]
		voipSendR := out.StreamR[i]*mixback + jp.outR[i]*float32(g.JinglesAudio) + jp.fadeR[i]*float32(jp.strGainF) + mc.MainR[i]
		sl, sr := k.voipLimiter.Process(float64(voipSendL), float64(voipSendR))
		out.VoipOutL[i], out.VoipOutR[i] = float32(sl), float32(sr)

		monL := out.StreamL[i]*mixback + jp.outL[i]*float32(g.JinglesAudio) + jp.fadeL[i]*float32(jp.audGainF) + mc.AuxL[i]*mixback + mc.MonitorUnpannedDJ[i] + voipInL[i]
		monR := out.StreamR[i]*mixback + jp.outR[i]*float32(g.JinglesAudio) + jp.fadeR[i]*float32(jp.audGainF) + mc.AuxR[i]*mixback + mc.MonitorUnpannedDJ[i] + voipInR[i]
		monL, monR = k.applyAlarm(monL, monR)
		ml, mr := k.monitorLimiter.Process(float64(monL), float64(monR))
		out.MonitorL[i] = float32(ml * g.DJAudioGain)
		out.MonitorR[i] = float32(mr * g.DJAudioGain)
	}
}

// phonePrivateMicOn implements spec.md §4.4's private-call mixer with the
// host mic live: stream and monitor are identical to noPhone, but the VOIP
// send carries the finished stream attenuated by mixback instead of a raw
// mic+jingles feed.
func (k *Kernel) phonePrivateMicOn(start, end int, df float64, dspInL, dspInR []float32, out *Buses) {
	k.noPhone(start, end, df, dspInL, dspInR, out)
	mixback := float32(k.gains.MixbackRescale)
	for i := start; i < end; i++ {
		sl, sr := k.voipLimiter.Process(float64(out.StreamL[i]*mixback), float64(out.StreamR[i]*mixback))
		out.VoipOutL[i], out.VoipOutR[i] = float32(sl), float32(sr)
	}
}

// simpleMixer implements spec.md §4.4's passthrough: left player copied
// straight to monitor and/or stream gated by the raw left_audio/left_stream
// switches, VOIP and DSP buses left untouched.
func (k *Kernel) simpleMixer(start, end int, out *Buses) {
	lp := k.left
	djGain := float32(k.gains.DJAudioGain)
	leftAudio := k.targets.LeftAudio()
	leftStream := k.targets.LeftStream()

	for i := start; i < end; i++ {
		if leftAudio {
			out.MonitorL[i] = lp.outL[i] * djGain
			out.MonitorR[i] = lp.outR[i] * djGain
		} else {
			out.MonitorL[i], out.MonitorR[i] = 0, 0
		}
		if leftStream {
			out.StreamL[i] = lp.outL[i]
			out.StreamR[i] = lp.outR[i]
		} else {
			out.StreamL[i], out.StreamR[i] = 0, 0
		}
	}
}

// applyAlarm mixes the next EOT alarm sample into a monitor-bus pair and
// halves the result (spec.md §4.4: "summed then halved"), disarming once
// the table wraps.
func (k *Kernel) applyAlarm(l, r float32) (float32, float32) {
	if !k.alarmPlayer.Armed() {
		return l, r
	}
	a := k.alarmPlayer.Next()
	return (l + a) * 0.5, (r + a) * 0.5
}
