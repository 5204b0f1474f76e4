// Package config holds the host's command line flags and the per variant
// engine settings.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"
)

const Version = "0.1.0"

type Flags struct {
	Song        string
	Timeline    string
	Variant     string
	VariantFile string
	Database    string
	Offset      time.Duration
	offsetSet   bool
	Recalibrate bool
	SampleRate  int
	Buffer      time.Duration
	FramePeriod time.Duration
	LogLevel    string
	LogFile     string
}

// ParseFlags parses the command line, without the program name.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	app := kingpin.New("tapsync", "Tap along to the lyrics of a song.")
	app.Version(Version)
	app.Arg("song", "Song audio file (mp3, ogg or wav)").Required().ExistingFileVar(&f.Song)
	app.Arg("timeline", "Lyric timeline file (yaml or json)").Required().ExistingFileVar(&f.Timeline)
	app.Flag("variant", "Built-in variant: lyrics or words").Default("lyrics").Short('v').EnumVar(&f.Variant, "lyrics", "words")
	app.Flag("variant-file", "YAML variant settings, overrides --variant").ExistingFileVar(&f.VariantFile)
	app.Flag("database", "Calibration and score database").Default("./tapsync.db").StringVar(&f.Database)
	app.Flag("offset", "Use this user offset instead of the saved one").Short('o').
		Action(func(*kingpin.ParseContext) error { f.offsetSet = true; return nil }).DurationVar(&f.Offset)
	app.Flag("recalibrate", "Run the tap calibration even if an offset is saved").Short('c').BoolVar(&f.Recalibrate)
	app.Flag("sample-rate", "Output sample rate").Default("44100").IntVar(&f.SampleRate)
	app.Flag("buffer", "Speaker buffer length").Default("20ms").DurationVar(&f.Buffer)
	app.Flag("frame-period", "Update loop period").Default("4ms").Short('p').DurationVar(&f.FramePeriod)
	app.Flag("log-level", "debug, info, warn or error").Default("info").StringVar(&f.LogLevel)
	app.Flag("log-file", "Write logs here instead of discarding them").StringVar(&f.LogFile)

	if _, err := app.Parse(args); nil != err {
		return nil, err
	}
	if _, err := f.Level(); nil != err {
		return nil, err
	}
	if f.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate %v must be positive", f.SampleRate)
	}
	return f, nil
}

// OffsetOverride returns the --offset value in seconds if it was given.
func (f *Flags) OffsetOverride() (float64, bool) {
	return f.Offset.Seconds(), f.offsetSet
}

func (f *Flags) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(f.LogLevel)); nil != err {
		return l, fmt.Errorf("log level %q is invalid; valid values: debug, info, warn, error", f.LogLevel)
	}
	return l, nil
}

// LoadVariant resolves the variant selected on the command line.
func (f *Flags) LoadVariant() (Variant, error) {
	if f.VariantFile != "" {
		return LoadVariant(f.VariantFile)
	}
	v, ok := Variants[f.Variant]
	if !ok {
		return Variant{}, fmt.Errorf("unknown variant %q", f.Variant)
	}
	return v, nil
}
