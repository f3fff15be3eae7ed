// ABOUTME: Audio sink interface definition
// ABOUTME: Common contract, device model and transport state for playback backends
package output

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotInitialized is returned when transport control is used before Init
var ErrNotInitialized = errors.New("output: sink not initialized")

// TransportState is the playback state reported by a sink
type TransportState int32

const (
	Stopped TransportState = iota
	Playing
	Paused
)

func (s TransportState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// SampleProvider is pulled by a sink from its audio thread.
// Read fills buffer[offset:offset+count] with interleaved float32 samples in
// the bus format and returns how many it produced; zero ends the stream.
type SampleProvider interface {
	Read(buffer []float32, offset, count int) int
}

// Device describes one output endpoint
type Device struct {
	Name         string
	API          string
	DeviceNumber int
	ID           uuid.UUID
}

// Sink is an audio output backend
type Sink interface {
	// Devices lists the available output endpoints
	Devices() []Device

	// SelectDevice chooses an endpoint by id, preferring number when its id matches.
	// Unknown ids fall back to the first device.
	SelectDevice(id uuid.UUID, number int)

	// Init binds a provider; the sink is left stopped
	Init(provider SampleProvider) error

	Play() error
	Pause() error
	Stop() error

	// Position returns the frames played since the last Init
	Position() int64

	State() TransportState

	// DeviceNumber returns the selected device index
	DeviceNumber() int

	Close() error
}

var deviceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("utauplay:audio-device"))

// DeviceID derives a stable identifier for an endpoint from its backend and native id
func DeviceID(api string, native []byte) uuid.UUID {
	return uuid.NewSHA1(deviceNamespace, append([]byte(api+":"), native...))
}

// ResolveDevice returns the index of the device to open.
// The device at number wins if its id matches; otherwise the first device
// with a matching id; otherwise index 0.
func ResolveDevice(devices []Device, id uuid.UUID, number int) int {
	if number >= 0 && number < len(devices) && devices[number].ID == id {
		return number
	}
	for i, d := range devices {
		if d.ID == id {
			return i
		}
	}
	return 0
}
