//go:build portaudio

// ABOUTME: PortAudio-based audio sink
// ABOUTME: Callback stream over any PortAudio output device
package output

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/utauplay/pkg/audio"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
)

// PortAudio plays through a PortAudio output stream
type PortAudio struct {
	logger *log.Logger

	mu       sync.Mutex
	infos    []*portaudio.DeviceInfo
	devices  []Device
	selected int
	pa       *portaudio.Stream
	stream   atomic.Pointer[stream]
	state    atomic.Int32
}

// NewPortAudio initializes PortAudio and enumerates output devices
func NewPortAudio(logger *log.Logger) (Sink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	all, err := portaudio.Devices()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	p := &PortAudio{logger: logger.WithPrefix("portaudio")}
	for _, info := range all {
		if info.MaxOutputChannels < audio.Channels {
			continue
		}
		api := ""
		if info.HostApi != nil {
			api = info.HostApi.Name
		}
		p.infos = append(p.infos, info)
		p.devices = append(p.devices, Device{
			Name:         info.Name,
			API:          api,
			DeviceNumber: len(p.devices),
			ID:           DeviceID("portaudio", []byte(api+"/"+info.Name)),
		})
	}
	if len(p.devices) == 0 {
		portaudio.Terminate()
		return nil, fmt.Errorf("no portaudio output devices")
	}
	return p, nil
}

func (p *PortAudio) Devices() []Device {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Device(nil), p.devices...)
}

func (p *PortAudio) SelectDevice(id uuid.UUID, number int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	index := ResolveDevice(p.devices, id, number)
	if index == p.selected {
		return
	}
	p.selected = index
	p.logger.Info("selected device", "number", index, "name", p.devices[index].Name)
	p.closeStream()
	p.state.Store(int32(Stopped))
}

func (p *PortAudio) Init(provider SampleProvider) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeStream()
	p.stream.Store(newStream(provider))
	p.state.Store(int32(Stopped))

	params := portaudio.HighLatencyParameters(nil, p.infos[p.selected])
	params.Output.Channels = audio.Channels
	params.SampleRate = audio.SampleRate

	pa, err := portaudio.OpenStream(params, p.callback)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	p.pa = pa
	return nil
}

func (p *PortAudio) callback(out []float32) {
	s := p.stream.Load()
	if s == nil || TransportState(p.state.Load()) != Playing {
		clear(out)
		return
	}
	s.fill(out)
	if s.ended.Load() {
		p.state.Store(int32(Stopped))
	}
}

func (p *PortAudio) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pa == nil {
		return ErrNotInitialized
	}
	if TransportState(p.state.Load()) == Playing {
		return nil
	}
	p.state.Store(int32(Playing))
	if err := p.pa.Start(); err != nil {
		p.state.Store(int32(Stopped))
		return fmt.Errorf("failed to start stream: %w", err)
	}
	return nil
}

func (p *PortAudio) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pa == nil || TransportState(p.state.Load()) != Playing {
		return nil
	}
	p.state.Store(int32(Paused))
	if err := p.pa.Stop(); err != nil {
		return fmt.Errorf("failed to pause stream: %w", err)
	}
	return nil
}

func (p *PortAudio) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeStream()
	p.state.Store(int32(Stopped))
	return nil
}

// closeStream must be called with p.mu held
func (p *PortAudio) closeStream() {
	if p.pa == nil {
		return
	}
	if TransportState(p.state.Load()) == Playing {
		if err := p.pa.Stop(); err != nil {
			p.logger.Warn("stream stop failed", "err", err)
		}
	}
	if err := p.pa.Close(); err != nil {
		p.logger.Warn("stream close failed", "err", err)
	}
	p.pa = nil
}

func (p *PortAudio) Position() int64 {
	if s := p.stream.Load(); s != nil {
		return s.frames.Load()
	}
	return 0
}

func (p *PortAudio) State() TransportState {
	return TransportState(p.state.Load())
}

func (p *PortAudio) DeviceNumber() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeStream()
	p.state.Store(int32(Stopped))
	return portaudio.Terminate()
}
