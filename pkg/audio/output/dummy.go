// ABOUTME: No-op audio sink
// ABOUTME: Always-available fallback when no hardware backend can be opened
package output

import "github.com/google/uuid"

// Dummy is a sink without devices that never plays
type Dummy struct{}

// NewDummy creates a no-op sink
func NewDummy() *Dummy {
	return &Dummy{}
}

func (d *Dummy) Devices() []Device                    { return nil }
func (d *Dummy) SelectDevice(id uuid.UUID, number int) {}
func (d *Dummy) Init(provider SampleProvider) error   { return nil }
func (d *Dummy) Play() error                          { return nil }
func (d *Dummy) Pause() error                         { return nil }
func (d *Dummy) Stop() error                          { return nil }
func (d *Dummy) Position() int64                      { return 0 }
func (d *Dummy) State() TransportState                { return Stopped }
func (d *Dummy) DeviceNumber() int                    { return 0 }
func (d *Dummy) Close() error                         { return nil }
