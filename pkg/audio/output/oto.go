// ABOUTME: Oto-based audio sink
// ABOUTME: Pull player over the default device using the oto library
package output

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/utauplay/pkg/audio"
	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
	"github.com/google/uuid"
)

// oto allows one context per process, shared by every Oto sink
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func sharedOtoContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   audio.SampleRate,
			ChannelCount: audio.Channels,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// Oto plays through the system default device
type Oto struct {
	logger *log.Logger
	ctx    *oto.Context
	device Device

	mu     sync.Mutex
	player *oto.Player
	stream *stream
	state  atomic.Int32
}

// NewOto opens the shared oto context
func NewOto(logger *log.Logger) (*Oto, error) {
	ctx, err := sharedOtoContext()
	if err != nil {
		return nil, err
	}
	return &Oto{
		logger: logger.WithPrefix("oto"),
		ctx:    ctx,
		device: Device{
			Name:         "Default",
			API:          "oto",
			DeviceNumber: 0,
			ID:           DeviceID("oto", []byte("default")),
		},
	}, nil
}

func (o *Oto) Devices() []Device {
	return []Device{o.device}
}

// SelectDevice is a no-op; oto only drives the default device
func (o *Oto) SelectDevice(id uuid.UUID, number int) {
	if id != uuid.Nil && id != o.device.ID {
		o.logger.Warn("device not available, using default", "id", id)
	}
}

func (o *Oto) Init(provider SampleProvider) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closePlayer()
	o.stream = newStream(provider)
	o.player = o.ctx.NewPlayer(o.stream)
	o.state.Store(int32(Stopped))
	return nil
}

func (o *Oto) Play() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotInitialized
	}
	o.player.Play()
	o.state.Store(int32(Playing))
	return nil
}

func (o *Oto) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}
	o.player.Pause()
	o.state.Store(int32(Paused))
	return nil
}

func (o *Oto) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closePlayer()
	o.state.Store(int32(Stopped))
	return nil
}

// closePlayer must be called with o.mu held
func (o *Oto) closePlayer() {
	if o.player != nil {
		o.player.Pause()
		o.player.Close()
		o.player = nil
	}
}

func (o *Oto) Position() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stream == nil {
		return 0
	}
	frames := o.stream.frames.Load()
	if o.player != nil {
		frames -= int64(o.player.BufferedSize() / audio.BusFormat.FrameBytes())
	}
	return max(0, frames)
}

func (o *Oto) State() TransportState {
	o.mu.Lock()
	defer o.mu.Unlock()

	state := TransportState(o.state.Load())
	if state == Playing && o.stream != nil && o.stream.ended.Load() && (o.player == nil || !o.player.IsPlaying()) {
		o.state.Store(int32(Stopped))
		return Stopped
	}
	return state
}

func (o *Oto) DeviceNumber() int {
	return 0
}

// Close releases the player; the shared context stays alive for the process
func (o *Oto) Close() error {
	return o.Stop()
}
