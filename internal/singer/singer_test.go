// ABOUTME: Tests for voicebank loading and the singer registry
// ABOUTME: Covers character/oto parsing, encodings, search and release
package singer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/utauplay/internal/project"
	"golang.org/x/text/encoding/japanese"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func shiftJIS(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func makeVoicebank(t *testing.T, dir, name string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "character.txt"), shiftJIS(t, "name="+name+"\r\nauthor=someone\r\n"))
	writeFile(t, filepath.Join(dir, "oto.ini"), shiftJIS(t, "あ.wav=- あ,10,100,-200,50,20\r\nい.wav=,5,80,-150,40,10\r\n"))
}

func TestReadInfoShiftJIS(t *testing.T) {
	dir := t.TempDir()
	makeVoicebank(t, dir, "重音テト")

	info, err := ReadInfo(dir)
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "重音テト" {
		t.Errorf("Expected name 重音テト, got %q", info.Name)
	}
	if info.Author != "someone" {
		t.Errorf("Expected author someone, got %q", info.Author)
	}
	if info.Type != Classic {
		t.Errorf("Expected classic singer, got %s", info.Type)
	}
}

func TestReadInfoCharacterYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "character.txt"), []byte("\xef\xbb\xbfname=テト\n"))
	writeFile(t, filepath.Join(dir, "character.yaml"), []byte("singer_type: enunu\ntext_file_encoding: utf-8\nauthor: yaml author\n"))

	info, err := ReadInfo(dir)
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "テト" {
		t.Errorf("Expected BOM-prefixed name テト, got %q", info.Name)
	}
	if info.Type != Enunu {
		t.Errorf("Expected enunu, got %s", info.Type)
	}
	if info.Author != "yaml author" {
		t.Errorf("Expected yaml author to override, got %q", info.Author)
	}
}

func TestReadInfoErrors(t *testing.T) {
	if _, err := ReadInfo(t.TempDir()); err == nil {
		t.Error("Expected an error for a directory without character.txt")
	}

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "character.txt"), []byte("name=x\n"))
	writeFile(t, filepath.Join(dir, "character.yaml"), []byte("text_file_encoding: klingon\n"))
	if _, err := ReadInfo(dir); err == nil {
		t.Error("Expected an error for an unknown encoding")
	}
}

func TestParseOtoLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    OtoEntry
		wantErr bool
	}{
		{
			name: "full",
			line: "a.wav=- a,10,100,-200,50,20",
			want: OtoEntry{File: "a.wav", Alias: "- a", Offset: 10, Consonant: 100, Cutoff: -200, Preutter: 50, Overlap: 20},
		},
		{
			name: "empty alias uses file stem",
			line: "ka.wav=,1,2,3,4,5",
			want: OtoEntry{File: "ka.wav", Alias: "ka", Offset: 1, Consonant: 2, Cutoff: 3, Preutter: 4, Overlap: 5},
		},
		{
			name: "missing values",
			line: "a.wav=a,10",
			want: OtoEntry{File: "a.wav", Alias: "a", Offset: 10},
		},
		{name: "no separator", line: "garbage", wantErr: true},
		{name: "bad number", line: "a.wav=a,x,1,2,3,4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOtoLine(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected an error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestReadOtoSubdirectories(t *testing.T) {
	dir := t.TempDir()
	makeVoicebank(t, dir, "tester")
	writeFile(t, filepath.Join(dir, "high", "oto.ini"), shiftJIS(t, "か.wav=か↑,1,2,3,4,5\r\n"))

	entries, err := ReadOto(dir, DefaultEncoding)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	byAlias := make(map[string]OtoEntry)
	for _, e := range entries {
		byAlias[e.Alias] = e
	}
	if e, ok := byAlias["い"]; !ok || e.File != "い.wav" {
		t.Errorf("Expected alias い from the file stem, got %+v", e)
	}
	if e := byAlias["か↑"]; e.File != filepath.Join("high", "か.wav") {
		t.Errorf("Expected subdirectory file path, got %q", e.File)
	}
}

func TestClassicSingerLoadAndFree(t *testing.T) {
	dir := t.TempDir()
	makeVoicebank(t, dir, "tester")

	s, err := LoadClassic(dir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Loaded() {
		t.Error("Expected phoneme data to load lazily")
	}
	entries, err := s.Oto()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || !s.Loaded() {
		t.Errorf("Expected 2 loaded entries, got %d (loaded=%v)", len(entries), s.Loaded())
	}

	s.FreeMemory()
	if s.Loaded() {
		t.Error("Expected FreeMemory to unload")
	}
	if !s.Found() {
		t.Error("Expected the voicebank to be found")
	}
	os.Remove(filepath.Join(dir, "character.txt"))
	if s.Found() {
		t.Error("Expected a removed voicebank to be missing")
	}
}

func TestManagerSearchAndGet(t *testing.T) {
	root := t.TempDir()
	makeVoicebank(t, filepath.Join(root, "b"), "Beta")
	makeVoicebank(t, filepath.Join(root, "a"), "alpha")
	makeVoicebank(t, filepath.Join(root, "dup"), "Beta")
	writeFile(t, filepath.Join(root, "ds", "character.txt"), []byte("name=Gamma\n"))
	writeFile(t, filepath.Join(root, "ds", "character.yaml"), []byte("singer_type: diffsinger\n"))

	m := NewManager([]string{root, filepath.Join(root, "missing")}, nil, nil)
	m.SearchAll()

	if n := len(m.Singers()); n != 3 {
		t.Fatalf("Expected 3 singers, got %d", n)
	}
	if s := m.Get("%VOICE%alpha"); s == nil || s.ID() != "alpha" {
		t.Errorf("Expected %%VOICE%% to be stripped, got %v", s)
	}
	if s := m.Get("nobody"); s != nil {
		t.Errorf("Expected nil for an unknown singer, got %v", s)
	}

	groups := m.Groups()
	classic := groups[Classic]
	if len(classic) != 2 || classic[0].Name() != "alpha" || classic[1].Name() != "Beta" {
		t.Errorf("Expected classic group [alpha Beta], got %v", classic)
	}
	if len(groups[DiffSinger]) != 1 {
		t.Errorf("Expected 1 diffsinger, got %d", len(groups[DiffSinger]))
	}
}

func TestReleaseNotInUse(t *testing.T) {
	root := t.TempDir()
	makeVoicebank(t, filepath.Join(root, "a"), "alpha")
	makeVoicebank(t, filepath.Join(root, "b"), "beta")

	m := NewManager([]string{root}, nil, nil)
	m.SearchAll()

	alpha := m.Get("alpha").(*ClassicSinger)
	beta := m.Get("beta").(*ClassicSinger)
	alpha.Oto()
	beta.Oto()

	p := project.New("song")
	p.Tracks = []project.Track{{Singer: "alpha"}, {Singer: "beta"}}
	m.ReleaseNotInUse(p)
	if !alpha.Loaded() || !beta.Loaded() {
		t.Fatal("Expected singers in use to stay loaded")
	}

	p.Tracks = []project.Track{{Singer: "alpha"}}
	m.ReleaseNotInUse(p)
	if !alpha.Loaded() {
		t.Error("Expected alpha to stay loaded")
	}
	if beta.Loaded() {
		t.Error("Expected beta to be released")
	}
}
