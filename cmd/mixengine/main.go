// Command mixengine is the realtime audio mixing engine's process
// entry point: it opens a JACK client, builds the mix kernel and player
// factory, starts the watchdog ticker, and runs the control-protocol
// dispatcher against stdin/stdout until shutdown (spec.md §6/§7).
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"mixengine/internal/audioio"
	"mixengine/internal/mix"
	"mixengine/internal/player"
	"mixengine/internal/protocol"
	"mixengine/internal/watchdog"
)

// exit codes per spec.md §6.
const (
	exitOK      = 0
	exitStartup = 1
	exitFatal   = 5
)

func main() {
	logLevel := pflag.String("log-level", "info", "log verbosity (debug, info, warn)")
	alarmHz := pflag.Int("alarm-hz", 1, "watchdog tick rate in Hz, for test tuning")
	pflag.Parse()

	logger := log.New(os.Stderr, fmt.Sprintf("mixengine[%s]: ", *logLevel), log.LstdFlags)

	defer func() {
		if r := recover(); r != nil {
			// Go has no recoverable SIGSEGV; a panic reaching main is the
			// closest equivalent to the original's SIGSEGV handler
			// (spec.md §4.7/§7): fixed diagnostic, exit 5.
			logger.Printf("fatal: %v", r)
			os.Exit(exitFatal)
		}
	}()

	clientID := os.Getenv("mx_client_id")
	if clientID == "" {
		clientID = "mixer"
	}
	micQty, _ := strconv.Atoi(os.Getenv("mx_mic_qty"))
	if micQty < 0 {
		micQty = 0
	}
	scClientID := os.Getenv("sc_client_id")
	jackServerName := os.Getenv("jack_server_name")

	micNames := make([]string, micQty)
	for i := range micNames {
		micNames[i] = "mic" + strconv.Itoa(i)
	}

	client, err := audioio.Open(clientID, jackServerName, micNames, logger)
	if err != nil {
		logger.Printf("startup: %v", err)
		os.Exit(exitStartup)
	}

	sr := client.SampleRate()
	fmt.Fprintf(os.Stdout, "IDJC: Sample rate %d\n", sr)

	k := mix.New(sr, micQty, decoderFactory())
	client.Bind(k)

	wd := watchdog.New(*alarmHz, logger, func(name string) {
		logger.Printf("watchdog timer frozen on channel %s, shutting down", name)
		os.Exit(exitFatal)
	})
	wd.Watch("left", k.Left())
	wd.Watch("right", k.Right())
	wd.Watch("jingles", k.Jingles())
	wd.Watch("interlude", k.Interlude())
	wd.Start()
	defer wd.Stop()

	client.OnShutdown(func() {
		logger.Print("jack server shut down the client")
	})

	if err := client.Activate(); err != nil {
		logger.Printf("startup: %v", err)
		os.Exit(exitStartup)
	}
	defer client.Close()

	if scClientID != "" {
		// serverbind's default target: connect the stream bus to the
		// streaming client's capture ports at startup, matching the
		// original's behavior of wiring str_out_* to the configured
		// streaming client by name on launch.
		if err := client.Connect(clientID+":str_out_l", scClientID+":in_l"); err != nil {
			logger.Printf("startup: initial serverbind: %v", err)
		}
		if err := client.Connect(clientID+":str_out_r", scClientID+":in_r"); err != nil {
			logger.Printf("startup: initial serverbind: %v", err)
		}
	}

	d := protocol.New(k, client, os.Stdout, logger)
	if err := d.Run(protocol.NewReader(os.Stdin)); err != nil {
		logger.Printf("dispatcher: %v", err)
	}

	os.Exit(exitOK)
}

// decoderFactory chooses a Decoder implementation by file extension. Only
// ".opus" is wired to a concrete decoder (gopkg.in/hraban/opus.v2, the
// only codec dependency this module carries per SPEC_FULL.md §0); every
// other extension is an external collaborator per spec.md §1 and falls
// back to silence rather than fail play() outright.
func decoderFactory() player.Factory {
	return func(path string, seekSec float64) (player.Decoder, error) {
		if strings.EqualFold(filepath.Ext(path), ".opus") {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			return player.NewOpusDecoder(f, 48000, 2)
		}
		return player.NewSilenceFactory()(path, seekSec)
	}
}
