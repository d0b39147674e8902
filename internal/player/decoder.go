package player

import (
	"encoding/binary"
	"io"

	opus "gopkg.in/hraban/opus.v2"
)

// Decoder produces sample pairs into a channel's ring buffer. Concrete
// audio-file decoding (Ogg, MP3, FLAC, AVCodec, Speex demuxing) is an
// external collaborator; a Decoder here only needs to satisfy "produce up
// to N sample pairs," so the channel and mix kernel never depend on any
// particular codec.
type Decoder interface {
	// Fill decodes up to len(l) sample pairs into l and r, returning how
	// many were produced. n == 0 with a nil error signals end of stream.
	Fill(l, r []float32) (n int, err error)
	Close() error
}

// ConfigurableDecoder is an optional extension a Decoder may implement to
// honor the dispatcher's dither and resamplequality commands (spec.md
// §4.6). Decoders that don't implement it simply ignore both settings.
type ConfigurableDecoder interface {
	SetDither(on bool)
	SetResampleQuality(q int)
}

// Factory creates a Decoder for a media path, seeking to seekSec before the
// first Fill call. It is chosen once at player-start time, matching the
// source's dynamic codec loading — here replaced by a plain function value
// instead of a runtime-loaded shared library.
type Factory func(path string, seekSec float64) (Decoder, error)

// silenceDecoder produces zero sample pairs forever. Used when no factory
// is registered for a requested path's format, or in tests.
type silenceDecoder struct{}

func (silenceDecoder) Fill(l, r []float32) (int, error) {
	for i := range l {
		l[i] = 0
		r[i] = 0
	}
	return len(l), nil
}

func (silenceDecoder) Close() error { return nil }

// NewSilenceFactory returns a Factory producing an endless silent decoder,
// useful as a safe default and in tests that don't care about content.
func NewSilenceFactory() Factory {
	return func(path string, seekSec float64) (Decoder, error) {
		return silenceDecoder{}, nil
	}
}

// opusDecoder adapts gopkg.in/hraban/opus.v2 to the Decoder contract. It
// reads a minimal length-prefixed stream of raw Opus packets rather than a
// full Ogg container — container demuxing is out of scope, but this gives
// the Opus codec library a concrete, exercised home as one pluggable
// decoder implementation among several a real deployment would register.
type opusDecoder struct {
	dec         *opus.Decoder
	src         io.Reader
	channels    int
	interleaved []float32
	lenBuf      [4]byte
}

// NewOpusDecoder wraps src, a stream of uint32-length-prefixed Opus
// packets, decoding at sr with the given channel count (1 or 2).
func NewOpusDecoder(src io.Reader, sr, channels int) (Decoder, error) {
	dec, err := opus.NewDecoder(sr, channels)
	if err != nil {
		return nil, err
	}
	return &opusDecoder{dec: dec, src: src, channels: channels}, nil
}

func (d *opusDecoder) Fill(l, r []float32) (int, error) {
	n := len(l)
	need := n * d.channels
	if cap(d.interleaved) < need {
		d.interleaved = make([]float32, need)
	}
	buf := d.interleaved[:need]

	if _, err := io.ReadFull(d.src, d.lenBuf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, nil
		}
		return 0, err
	}
	plen := binary.BigEndian.Uint32(d.lenBuf[:])
	packet := make([]byte, plen)
	if _, err := io.ReadFull(d.src, packet); err != nil {
		return 0, err
	}

	decoded, err := d.dec.DecodeFloat32(packet, buf)
	if err != nil {
		return 0, err
	}
	for i := 0; i < decoded; i++ {
		if d.channels == 1 {
			l[i] = buf[i]
			r[i] = buf[i]
		} else {
			l[i] = buf[i*2]
			r[i] = buf[i*2+1]
		}
	}
	return decoded, nil
}

func (d *opusDecoder) Close() error {
	if c, ok := d.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
