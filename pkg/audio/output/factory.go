// ABOUTME: Runtime sink factory
// ABOUTME: Probes backends in preference order and falls back to the no-op sink
package output

import (
	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"
	"github.com/google/uuid"
)

// Backend names accepted by New
const (
	BackendAuto      = "auto"
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
	BackendOto       = "oto"
	BackendDummy     = "dummy"
)

// Options selects and configures the sink created by New
type Options struct {
	// Backend forces a backend; empty or "auto" probes in order
	Backend string

	// PreferPortAudio tries PortAudio before the other hardware backends
	PreferPortAudio bool

	// MalgoBackend restricts miniaudio to one host API, see MalgoBackends
	MalgoBackend string

	DeviceID     uuid.UUID
	DeviceNumber int

	Logger *log.Logger
}

type openFunc func(opts Options, logger *log.Logger) (Sink, error)

var openers = map[string]openFunc{
	BackendPortAudio: func(_ Options, logger *log.Logger) (Sink, error) {
		return NewPortAudio(logger)
	},
	BackendMalgo: func(opts Options, logger *log.Logger) (Sink, error) {
		var backends []malgo.Backend
		if b, ok := MalgoBackends[opts.MalgoBackend]; ok {
			backends = []malgo.Backend{b}
		}
		return NewMalgo(backends, logger)
	},
	BackendOto: func(_ Options, logger *log.Logger) (Sink, error) {
		return NewOto(logger)
	},
}

// probeOrder returns the backends New tries, most preferred first
func probeOrder(opts Options) []string {
	var order []string
	if opts.Backend != "" && opts.Backend != BackendAuto {
		order = append(order, opts.Backend)
	}
	if opts.PreferPortAudio {
		order = append(order, BackendPortAudio)
	}
	order = append(order, BackendMalgo, BackendOto)
	if !opts.PreferPortAudio {
		order = append(order, BackendPortAudio)
	}
	return order
}

// New opens the first backend that initializes and selects the configured
// device. It never fails: when nothing opens, a Dummy sink is returned.
func New(opts Options) Sink {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	tried := map[string]bool{}
	for _, name := range probeOrder(opts) {
		if tried[name] {
			continue
		}
		tried[name] = true
		if name == BackendDummy {
			break
		}

		open, ok := openers[name]
		if !ok {
			logger.Warn("unknown audio backend", "backend", name)
			continue
		}
		sink, err := open(opts, logger)
		if err != nil {
			logger.Warn("audio backend unavailable", "backend", name, "err", err)
			continue
		}
		sink.SelectDevice(opts.DeviceID, opts.DeviceNumber)
		logger.Info("audio backend ready", "backend", name, "device", sink.DeviceNumber())
		return sink
	}

	logger.Warn("no audio backend available, playback disabled")
	return NewDummy()
}

// MalgoBackends maps backend names to miniaudio backends for NewMalgo
var MalgoBackends = map[string]malgo.Backend{
	"wasapi":     malgo.BackendWasapi,
	"dsound":     malgo.BackendDsound,
	"coreaudio":  malgo.BackendCoreaudio,
	"pulseaudio": malgo.BackendPulseaudio,
	"alsa":       malgo.BackendAlsa,
	"jack":       malgo.BackendJack,
}
