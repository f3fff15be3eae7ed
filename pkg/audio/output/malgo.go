// ABOUTME: Malgo-based audio sink
// ABOUTME: Callback device over miniaudio with device enumeration and selection
package output

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/utauplay/pkg/audio"
	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"
	"github.com/google/uuid"
)

// Malgo plays through miniaudio and can target any enumerated device
type Malgo struct {
	logger   *log.Logger
	malgoCtx *malgo.AllocatedContext

	mu       sync.Mutex
	devices  []Device
	infos    []malgo.DeviceInfo
	selected int
	device   *malgo.Device
	stream   atomic.Pointer[stream]
	state    atomic.Int32
}

// NewMalgo initializes a miniaudio context. A nil backends list lets
// miniaudio pick the platform default.
func NewMalgo(backends []malgo.Backend, logger *log.Logger) (*Malgo, error) {
	logger = logger.WithPrefix("malgo")
	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, func(message string) {
		logger.Debug(message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	m := &Malgo{
		logger:   logger,
		malgoCtx: ctx,
	}
	if err := m.enumerate(); err != nil {
		m.release()
		return nil, err
	}
	return m, nil
}

func (m *Malgo) enumerate() error {
	infos, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return fmt.Errorf("failed to enumerate playback devices: %w", err)
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		id := info.ID
		devices[i] = Device{
			Name:         info.Name(),
			API:          "miniaudio",
			DeviceNumber: i,
			ID:           DeviceID("miniaudio", []byte(id.String())),
		}
	}
	m.infos = infos
	m.devices = devices
	return nil
}

func (m *Malgo) Devices() []Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Device(nil), m.devices...)
}

func (m *Malgo) SelectDevice(id uuid.UUID, number int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index := ResolveDevice(m.devices, id, number)
	if index == m.selected {
		return
	}
	m.selected = index
	m.logger.Info("selected device", "number", index)

	// The next Init opens the new device.
	m.closeDevice()
	m.state.Store(int32(Stopped))
}

func (m *Malgo) Init(provider SampleProvider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()
	m.stream.Store(newStream(provider))
	m.state.Store(int32(Stopped))

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatF32
	config.Playback.Channels = audio.Channels
	config.SampleRate = audio.SampleRate
	config.Alsa.NoMMap = 1
	if m.selected < len(m.infos) {
		info := m.infos[m.selected]
		config.Playback.DeviceID = info.ID.Pointer()
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, config, malgo.DeviceCallbacks{
		Data: m.dataCallback,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	m.device = device
	return nil
}

// dataCallback runs on the miniaudio thread
func (m *Malgo) dataCallback(out, _ []byte, frameCount uint32) {
	s := m.stream.Load()
	if s == nil || TransportState(m.state.Load()) != Playing {
		clear(out)
		return
	}
	s.fillBytes(out[:int(frameCount)*audio.BusFormat.FrameBytes()])
	if s.ended.Load() {
		m.state.Store(int32(Stopped))
	}
}

func (m *Malgo) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return ErrNotInitialized
	}
	m.state.Store(int32(Playing))
	if !m.device.IsStarted() {
		if err := m.device.Start(); err != nil {
			m.state.Store(int32(Stopped))
			return fmt.Errorf("failed to start device: %w", err)
		}
	}
	return nil
}

func (m *Malgo) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return nil
	}
	m.state.Store(int32(Paused))
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to pause device: %w", err)
	}
	return nil
}

func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()
	m.state.Store(int32(Stopped))
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.device == nil {
		return
	}
	if m.device.IsStarted() {
		if err := m.device.Stop(); err != nil {
			m.logger.Warn("device stop failed", "err", err)
		}
	}
	m.device.Uninit()
	m.device = nil
}

func (m *Malgo) Position() int64 {
	if s := m.stream.Load(); s != nil {
		return s.frames.Load()
	}
	return 0
}

func (m *Malgo) State() TransportState {
	return TransportState(m.state.Load())
}

func (m *Malgo) DeviceNumber() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()
	m.state.Store(int32(Stopped))
	return m.release()
}

func (m *Malgo) release() error {
	if m.malgoCtx == nil {
		return nil
	}
	err := m.malgoCtx.Uninit()
	m.malgoCtx.Free()
	m.malgoCtx = nil
	if err != nil {
		return fmt.Errorf("failed to release malgo context: %w", err)
	}
	return nil
}
