package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBuiltinsValid(t *testing.T) {
	for name, v := range Variants {
		if err := Validate(v); err != nil {
			t.Log(name, err)
			t.Fail()
		}
		if v.Name != name {
			t.Log("variant registered as", name, "is named", v.Name)
			t.Fail()
		}
	}
}

func TestLoadVariantDefaultsToLyrics(t *testing.T) {
	v, err := LoadVariantFromReader(strings.NewReader("name: slow\ntravel_duration: 3.5\n"))
	if err != nil {
		t.Fatal(err)
	}
	if v.Name != "slow" || v.TravelDuration != 3.5 {
		t.Log("got", v.Name, v.TravelDuration)
		t.Fail()
	}
	if v.Target != Lyrics.Target || v.Bands != Lyrics.Bands || v.Offset != Lyrics.Offset {
		t.Log("unset fields should keep the lyrics values")
		t.Fail()
	}
}

func TestLoadVariantBase(t *testing.T) {
	v, err := LoadVariantFromReader(strings.NewReader("base: words\nname: wide\nleniency: 2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if v.Spawn != Words.Spawn || v.Leniency != 2 {
		t.Log("got", v.Spawn, v.Leniency)
		t.Fail()
	}
}

func TestLoadVariantErrors(t *testing.T) {
	tests := []struct {
		name, yaml, want string
	}{
		{"unknown field", "name: x\ntravel: 1\n", "travel"},
		{"unknown base", "base: drums\n", "drums"},
		{"negative travel", "name: x\ntravel_duration: -1\n", "travel_duration"},
		{"bands out of order", "name: x\nbands: {perfect: 0.2, great: 0.1, good: 0.3}\n", "bands"},
		{"few taps", "name: x\noffset: {tap_count: 2, interval: 0.75, pre_roll: 0.5, min: -0.3, max: 0.3, timeout: 1}\n", "tap_count"},
		{"empty", "", "config"},
	}
	for _, test := range tests {
		_, err := LoadVariantFromReader(strings.NewReader(test.yaml))
		if err == nil || !strings.Contains(err.Error(), test.want) {
			t.Log(test.name, "got error", err)
			t.Fail()
		}
	}
}

func TestLoadVariantFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "variant.yaml")
	if err := os.WriteFile(path, []byte("base: words\nname: file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := LoadVariant(path)
	if err != nil {
		t.Fatal(err)
	}
	if v.Name != "file" || v.TravelDuration != Words.TravelDuration {
		t.Log("got", v)
		t.Fail()
	}

	if _, err := LoadVariant(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Log("missing file should fail")
		t.Fail()
	}
}

func TestJudgeConfig(t *testing.T) {
	c := Words.Judge()
	if c.TravelDuration != Words.TravelDuration || c.Target != Words.Target || c.Leniency != Words.Leniency {
		t.Log("judge config does not mirror the variant", c)
		t.Fail()
	}
}

func songFiles(t *testing.T) (string, string) {
	dir := t.TempDir()
	song := filepath.Join(dir, "song.ogg")
	lyrics := filepath.Join(dir, "song.yaml")
	for _, p := range []string{song, lyrics} {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return song, lyrics
}

func TestParseFlagsDefaults(t *testing.T) {
	song, lyrics := songFiles(t)
	f, err := ParseFlags([]string{song, lyrics})
	if err != nil {
		t.Fatal(err)
	}
	if f.Variant != "lyrics" || f.SampleRate != 44100 || f.FramePeriod != 4*time.Millisecond {
		t.Log("unexpected defaults", f)
		t.Fail()
	}
	if _, ok := f.OffsetOverride(); ok {
		t.Log("offset should not be overridden by default")
		t.Fail()
	}
	v, err := f.LoadVariant()
	if err != nil || v.Name != "lyrics" {
		t.Log("variant", v.Name, err)
		t.Fail()
	}
}

func TestParseFlagsOverrides(t *testing.T) {
	song, lyrics := songFiles(t)
	f, err := ParseFlags([]string{song, lyrics, "--variant", "words", "--offset=-30ms", "--recalibrate", "--log-level", "debug"})
	if err != nil {
		t.Fatal(err)
	}
	offset, ok := f.OffsetOverride()
	if !ok || offset != -0.03 {
		t.Log("offset", offset, ok)
		t.Fail()
	}
	if !f.Recalibrate || f.Variant != "words" {
		t.Log("flags not applied", f)
		t.Fail()
	}
}

func TestParseFlagsRejects(t *testing.T) {
	song, lyrics := songFiles(t)
	tests := [][]string{
		{song},
		{song, lyrics, "--variant", "drums"},
		{song, lyrics, "--log-level", "loud"},
		{song, lyrics, "--sample-rate", "0"},
		{song, filepath.Join(t.TempDir(), "nope.yaml")},
	}
	for _, args := range tests {
		if _, err := ParseFlags(args); err == nil {
			t.Log("expected an error for", args)
			t.Fail()
		}
	}
}
