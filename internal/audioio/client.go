// Package audioio is the only package in this module that imports
// go-jack. It wraps a JACK client, registers the fixed port topology
// named in spec.md §6, and drives internal/mix.Kernel from JACK's
// process callback. Grounded on
// _examples/other_examples/...gosfzplayer__jack.go, generalized from
// that example's one-audio-out/one-midi-in port pair to this engine's
// eight audio outputs, four audio inputs, one MIDI input, and N
// per-microphone inputs.
package audioio

import (
	"fmt"
	"log"
	"os"

	"github.com/xthexder/go-jack"

	"mixengine/internal/mix"
)

// Client owns the JACK client handle, every registered port, and the
// process-callback glue into a *mix.Kernel. It implements
// protocol.PortController so the dispatcher can drive jackconnect,
// jackdisconnect, jackportread, and remake* directly against it.
type Client struct {
	jc     *jack.Client
	kernel *mix.Kernel
	logger *log.Logger

	djOutL, djOutR     *jack.Port
	dspOutL, dspOutR   *jack.Port
	strOutL, strOutR   *jack.Port
	voipOutL, voipOutR *jack.Port
	dspInL, dspInR     *jack.Port
	voipInL, voipInR   *jack.Port
	midiIn             *jack.Port

	mics     []*jack.Port
	micNames []string

	// scratch is every per-callback float32 buffer this client hands to
	// mix.Kernel.Process, reused across callbacks and reallocated by
	// ensureScratch whenever nframes differs from the previous callback's,
	// a smaller block size included.
	// jack.AudioSample is a distinct named type from float32, so the
	// JACK-native buffers are copied into these each callback rather
	// than passed through directly.
	scratch struct {
		n                  int
		djL, djR           []float32
		dspOutL, dspOutR   []float32
		strL, strR         []float32
		voipOutL, voipOutR []float32
		dspInL, dspInR     []float32
		voipInL, voipInR   []float32
		mics               [][]float32
	}

	midiScratch [][]byte

	shutdownHook func()
}

// Open opens a JACK client named clientName (optionally against
// serverName, empty selects the default server) and registers the fixed
// port topology. micNames supplies one input-port name per microphone
// (spec.md §6: "one mic input port per microphone whose name is
// supplied by the mic component"). The client's sample rate is available
// via SampleRate() immediately; callers size a *mix.Kernel to that rate
// and pass it to Bind before calling Activate, since JACK reports its
// rate only once at client open (spec.md §6 "read at startup").
func Open(clientName, serverName string, micNames []string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	// go-jack has no client-open parameter for a non-default server name;
	// jackd honors JACK_DEFAULT_SERVER from the environment instead, so
	// that's how jack_server_name (spec.md §6) is threaded through.
	if serverName != "" {
		os.Setenv("JACK_DEFAULT_SERVER", serverName)
	}
	jc, err := jack.ClientOpen(clientName, jack.NoStartServer)
	if err != nil || jc == nil {
		return nil, fmt.Errorf("audioio: jack client open failed: %w", err)
	}

	c := &Client{jc: jc, logger: logger, micNames: micNames}

	var perr error
	if c.djOutL, perr = c.out("dj_out_l"); perr != nil {
		return nil, perr
	}
	if c.djOutR, perr = c.out("dj_out_r"); perr != nil {
		return nil, perr
	}
	if c.dspOutL, perr = c.out("dsp_out_l"); perr != nil {
		return nil, perr
	}
	if c.dspOutR, perr = c.out("dsp_out_r"); perr != nil {
		return nil, perr
	}
	if c.strOutL, perr = c.out("str_out_l"); perr != nil {
		return nil, perr
	}
	if c.strOutR, perr = c.out("str_out_r"); perr != nil {
		return nil, perr
	}
	if c.voipOutL, perr = c.out("voip_out_l"); perr != nil {
		return nil, perr
	}
	if c.voipOutR, perr = c.out("voip_out_r"); perr != nil {
		return nil, perr
	}
	if c.dspInL, perr = c.in("dsp_in_l"); perr != nil {
		return nil, perr
	}
	if c.dspInR, perr = c.in("dsp_in_r"); perr != nil {
		return nil, perr
	}
	if c.voipInL, perr = c.in("voip_in_l"); perr != nil {
		return nil, perr
	}
	if c.voipInR, perr = c.in("voip_in_r"); perr != nil {
		return nil, perr
	}

	midiIn, err := jc.PortRegister("midi_control", jack.DEFAULT_MIDI_TYPE, jack.PortIsInput, 0)
	if err != nil {
		jc.Close()
		return nil, fmt.Errorf("audioio: register midi_control: %w", err)
	}
	c.midiIn = midiIn

	c.mics = make([]*jack.Port, len(micNames))
	for i, name := range micNames {
		p, err := c.in(name)
		if err != nil {
			jc.Close()
			return nil, err
		}
		c.mics[i] = p
	}
	c.scratch.mics = make([][]float32, len(micNames))

	jc.OnShutdown(c.onShutdown)

	return c, nil
}

func (c *Client) out(name string) (*jack.Port, error) {
	p, err := c.jc.PortRegister(name, jack.DEFAULT_AUDIO_TYPE, jack.PortIsOutput, 0)
	if err != nil {
		return nil, fmt.Errorf("audioio: register output port %s: %w", name, err)
	}
	return p, nil
}

func (c *Client) in(name string) (*jack.Port, error) {
	p, err := c.jc.PortRegister(name, jack.DEFAULT_AUDIO_TYPE, jack.PortIsInput, 0)
	if err != nil {
		return nil, fmt.Errorf("audioio: register input port %s: %w", name, err)
	}
	return p, nil
}

// Bind attaches the mix kernel that JACK's process callback drives.
// Must be called, with a kernel sized to SampleRate(), before Activate.
func (c *Client) Bind(k *mix.Kernel) {
	c.kernel = k
	c.jc.SetProcessCallback(c.process)
}

// SampleRate reports JACK's negotiated sample rate, read once at client
// open per spec.md §6.
func (c *Client) SampleRate() int { return int(c.jc.GetSampleRate()) }

// Activate starts JACK's process thread calling into c.process.
func (c *Client) Activate() error {
	if err := c.jc.Activate(); err != nil {
		return fmt.Errorf("audioio: activate: %w", err)
	}
	return nil
}

// Close deactivates and closes the client, releasing every port.
func (c *Client) Close() error {
	return c.jc.Close()
}

// OnShutdown registers a hook invoked once when the JACK server
// disconnects the client. Running the hook is all that happens: nothing
// here sets a flag or stops the protocol dispatcher loop.
func (c *Client) OnShutdown(hook func()) { c.shutdownHook = hook }

func (c *Client) onShutdown() {
	if c.shutdownHook != nil {
		c.shutdownHook()
	}
}

func (c *Client) ensureScratch(n int) {
	if c.scratch.n == n {
		return
	}
	c.scratch.n = n
	c.scratch.djL = make([]float32, n)
	c.scratch.djR = make([]float32, n)
	c.scratch.dspOutL = make([]float32, n)
	c.scratch.dspOutR = make([]float32, n)
	c.scratch.strL = make([]float32, n)
	c.scratch.strR = make([]float32, n)
	c.scratch.voipOutL = make([]float32, n)
	c.scratch.voipOutR = make([]float32, n)
	c.scratch.dspInL = make([]float32, n)
	c.scratch.dspInR = make([]float32, n)
	c.scratch.voipInL = make([]float32, n)
	c.scratch.voipInR = make([]float32, n)
	for i := range c.scratch.mics {
		c.scratch.mics[i] = make([]float32, n)
	}
	c.midiScratch = make([][]byte, 0, 256)
}

func copyIn(dst []float32, src []jack.AudioSample) {
	for i := range dst {
		dst[i] = float32(src[i])
	}
}

func copyOut(dst []jack.AudioSample, src []float32) {
	for i := range dst {
		dst[i] = jack.AudioSample(src[i])
	}
}

// process is JACK's realtime callback. ensureScratch reallocates its
// buffers whenever nframes changes, growing or shrinking.
func (c *Client) process(nframes uint32) int {
	n := int(nframes)
	c.ensureScratch(n)

	dspInRaw := jack.GetAudioSamples(c.dspInL.GetBuffer(nframes), nframes)
	copyIn(c.scratch.dspInL, dspInRaw)
	copyIn(c.scratch.dspInR, jack.GetAudioSamples(c.dspInR.GetBuffer(nframes), nframes))
	copyIn(c.scratch.voipInL, jack.GetAudioSamples(c.voipInL.GetBuffer(nframes), nframes))
	copyIn(c.scratch.voipInR, jack.GetAudioSamples(c.voipInR.GetBuffer(nframes), nframes))

	c.midiScratch = c.midiScratch[:0]
	midiBuf := c.midiIn.GetBuffer(nframes)
	count := jack.MidiGetEventCount(midiBuf)
	for i := uint32(0); i < count; i++ {
		ev, err := jack.MidiEventGet(midiBuf, i)
		if err != nil {
			continue
		}
		c.midiScratch = append(c.midiScratch, ev.Buffer)
	}
	c.kernel.DrainMidi(c.midiScratch)

	for i, p := range c.mics {
		copyIn(c.scratch.mics[i], jack.GetAudioSamples(p.GetBuffer(nframes), nframes))
	}

	buses := &mix.Buses{
		StreamL: c.scratch.strL, StreamR: c.scratch.strR,
		MonitorL: c.scratch.djL, MonitorR: c.scratch.djR,
		VoipOutL: c.scratch.voipOutL, VoipOutR: c.scratch.voipOutR,
		DSPOutL: c.scratch.dspOutL, DSPOutR: c.scratch.dspOutR,
	}
	c.kernel.Process(n, c.scratch.dspInL, c.scratch.dspInR, c.scratch.voipInL, c.scratch.voipInR, c.scratch.mics, buses)

	copyOut(jack.GetAudioSamples(c.djOutL.GetBuffer(nframes), nframes), c.scratch.djL)
	copyOut(jack.GetAudioSamples(c.djOutR.GetBuffer(nframes), nframes), c.scratch.djR)
	copyOut(jack.GetAudioSamples(c.dspOutL.GetBuffer(nframes), nframes), c.scratch.dspOutL)
	copyOut(jack.GetAudioSamples(c.dspOutR.GetBuffer(nframes), nframes), c.scratch.dspOutR)
	copyOut(jack.GetAudioSamples(c.strOutL.GetBuffer(nframes), nframes), c.scratch.strL)
	copyOut(jack.GetAudioSamples(c.strOutR.GetBuffer(nframes), nframes), c.scratch.strR)
	copyOut(jack.GetAudioSamples(c.voipOutL.GetBuffer(nframes), nframes), c.scratch.voipOutL)
	copyOut(jack.GetAudioSamples(c.voipOutR.GetBuffer(nframes), nframes), c.scratch.voipOutR)

	return 0
}

// Connect, Disconnect, ListPorts, and Rename implement
// protocol.PortController.
func (c *Client) Connect(source, dest string) error {
	if err := c.jc.Connect(source, dest); err != nil {
		return fmt.Errorf("audioio: connect %s->%s: %w", source, dest, err)
	}
	return nil
}

func (c *Client) Disconnect(source, dest string) error {
	if err := c.jc.Disconnect(source, dest); err != nil {
		return fmt.Errorf("audioio: disconnect %s->%s: %w", source, dest, err)
	}
	return nil
}

func (c *Client) ListPorts(pattern string) []string {
	return c.jc.GetPorts(pattern, "", 0)
}

// Rename re-registers a named logical port under a new external name
// (spec.md §10's remakemic/remakeaudl/.../remakedir). go-jack has no live
// port-rename call, so this unregisters the existing port and registers a
// replacement with the requested name, matching the original's "recreate
// the port" semantics for these actions. The dispatcher also routes
// serverbind here with logical name "serverbind", which portSlot does not
// recognize, so that call returns the unknown-port error.
func (c *Client) Rename(logicalPort, targetPortName string) error {
	slot := c.portSlot(logicalPort)
	if slot == nil {
		return fmt.Errorf("audioio: unknown logical port %q", logicalPort)
	}
	old := *slot
	isInput := old.Flags()&jack.PortIsInput != 0
	if err := c.jc.PortUnregister(old); err != nil {
		return fmt.Errorf("audioio: unregister %s: %w", logicalPort, err)
	}
	var p *jack.Port
	var err error
	if isInput {
		p, err = c.in(targetPortName)
	} else {
		p, err = c.out(targetPortName)
	}
	if err != nil {
		return err
	}
	*slot = p
	return nil
}

// portSlot returns the address of the struct field backing a logical
// port name, so Rename can swap in the freshly re-registered *jack.Port.
func (c *Client) portSlot(name string) **jack.Port {
	switch name {
	case "mic":
		if len(c.mics) > 0 {
			return &c.mics[0]
		}
		return nil
	case "audl":
		return &c.djOutL
	case "audr":
		return &c.djOutR
	case "dsp":
		return &c.dspOutL
	case "dir":
		return &c.voipInL
	default:
		for i, n := range c.micNames {
			if n == name {
				return &c.mics[i]
			}
		}
		return nil
	}
}
