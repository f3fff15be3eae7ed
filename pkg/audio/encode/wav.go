// ABOUTME: 16-bit PCM WAV encoder
// ABOUTME: Downmixes the stereo bus and writes WAVE files via go-audio
package encode

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Resonate-Protocol/utauplay/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotWritable is returned when an export target cannot be opened for writing
var ErrNotWritable = errors.New("file is not writable")

// CheckWritable verifies that path can be created or overwritten
// without leaving anything behind. An existing file is opened read-write
// and released; for a new file a probe file is created in its directory
// and removed.
func CheckWritable(path string) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return notWritable(err)
		}
		return f.Close()
	case !errors.Is(err, fs.ErrNotExist):
		return notWritable(err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".utauplay-*")
	if err != nil {
		return notWritable(&fs.PathError{Op: "create", Path: path, Err: unwrapPathErr(err)})
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func notWritable(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, pathErr.Path, pathErr.Err)
	}
	return fmt.Errorf("%w: %v", ErrNotWritable, err)
}

func unwrapPathErr(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}

// WAVEncoder writes 16-bit WAVE files, downmixing the stereo bus to
// the requested channel count
type WAVEncoder struct {
	file     *os.File
	encoder  *wav.Encoder
	channels int
	buf      *goaudio.IntBuffer
}

// NewWAV creates path and prepares a 16-bit WAVE writer
func NewWAV(path string, sampleRate, channels int) (*WAVEncoder, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", channels)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	return &WAVEncoder{
		file:     f,
		encoder:  wav.NewEncoder(f, sampleRate, 16, channels, 1),
		channels: channels,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
			SourceBitDepth: 16,
		},
	}, nil
}

// Encode writes interleaved stereo bus samples
func (e *WAVEncoder) Encode(samples []float32) error {
	frames := len(samples) / audio.Channels
	data := e.buf.Data[:0]
	for i := 0; i < frames; i++ {
		left, right := samples[i*2], samples[i*2+1]
		if e.channels == 1 {
			data = append(data, int(audio.FloatToInt16((left+right)/2)))
			continue
		}
		data = append(data, int(audio.FloatToInt16(left)), int(audio.FloatToInt16(right)))
	}
	e.buf.Data = data
	if err := e.encoder.Write(e.buf); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	return nil
}

// Close finalizes the WAVE header and closes the file
func (e *WAVEncoder) Close() error {
	return errors.Join(e.encoder.Close(), e.file.Close())
}

// WriteWAV16Mono drains reader into a 16-bit mono WAVE file at path
func WriteWAV16Mono(path string, reader SampleReader, sampleRate int) error {
	return writeWAV(path, reader, sampleRate, 1)
}

// WriteWAV16Stereo drains reader into a 16-bit stereo WAVE file at path
func WriteWAV16Stereo(path string, reader SampleReader, sampleRate int) error {
	return writeWAV(path, reader, sampleRate, 2)
}

func writeWAV(path string, reader SampleReader, sampleRate, channels int) (err error) {
	enc, err := NewWAV(path, sampleRate, channels)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, enc.Close())
	}()

	buf := make([]float32, 4096)
	for {
		n := reader.Read(buf, 0, len(buf))
		if n <= 0 {
			return nil
		}
		if err := enc.Encode(buf[:n]); err != nil {
			return err
		}
	}
}
