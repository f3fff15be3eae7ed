// ABOUTME: Unit tests for the WAV encoder
// ABOUTME: Tests mono downmix, stereo output and writability checks
package encode

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

// fixedReader yields frames stereo frames of (left, right), then ends
type fixedReader struct {
	left, right float32
	remaining   int
}

func (r *fixedReader) Read(buffer []float32, offset, count int) int {
	n := 0
	for n+2 <= count && r.remaining > 0 {
		buffer[offset+n] = r.left
		buffer[offset+n+1] = r.right
		n += 2
		r.remaining--
	}
	return n
}

func readWAV(t *testing.T, path string) (*wav.Decoder, []int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	t.Cleanup(func() { f.Close() })

	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	return d, buf.Data
}

func TestWriteWAV16Mono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.wav")
	if err := WriteWAV16Mono(path, &fixedReader{left: 0.5, right: 0, remaining: 5000}, 44100); err != nil {
		t.Fatalf("WriteWAV16Mono() failed: %v", err)
	}

	d, data := readWAV(t, path)
	if d.NumChans != 1 || d.BitDepth != 16 || d.SampleRate != 44100 {
		t.Errorf("unexpected format: %d ch %d bit %d Hz", d.NumChans, d.BitDepth, d.SampleRate)
	}
	if len(data) != 5000 {
		t.Fatalf("expected 5000 samples, got %d", len(data))
	}
	if data[0] != 8191 {
		t.Errorf("expected downmixed sample 8191, got %d", data[0])
	}
}

func TestWriteWAV16Stereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.wav")
	if err := WriteWAV16Stereo(path, &fixedReader{left: 1, right: -1, remaining: 10}, 44100); err != nil {
		t.Fatalf("WriteWAV16Stereo() failed: %v", err)
	}
	d, data := readWAV(t, path)
	if d.NumChans != 2 {
		t.Errorf("expected 2 channels, got %d", d.NumChans)
	}
	if len(data) != 20 || data[0] != 32767 || data[1] != -32767 {
		t.Errorf("unexpected samples %v", data)
	}
}

func TestNewWAVUnsupportedChannels(t *testing.T) {
	if _, err := NewWAV(filepath.Join(t.TempDir(), "x.wav"), 44100, 6); err == nil {
		t.Error("expected error for 6 channels")
	}
}

func TestCheckWritable(t *testing.T) {
	dir := t.TempDir()
	if err := CheckWritable(filepath.Join(dir, "new.wav")); err != nil {
		t.Errorf("expected new file to be writable, got %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("expected the check to leave no files, got %d", len(entries))
	}

	err := CheckWritable(filepath.Join(dir, "missing", "x.wav"))
	if !errors.Is(err, ErrNotWritable) {
		t.Errorf("expected ErrNotWritable, got %v", err)
	}

	err = CheckWritable(dir)
	if !errors.Is(err, ErrNotWritable) {
		t.Errorf("expected ErrNotWritable for a directory, got %v", err)
	}
}

func TestCheckWritableKeepsContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.wav")
	if err := os.WriteFile(path, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CheckWritable(path); err != nil {
		t.Fatalf("CheckWritable() failed: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "keep" {
		t.Errorf("expected contents preserved, got %q", got)
	}
}
