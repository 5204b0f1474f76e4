package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"git.lost.host/meutraa/tapsync/internal/calibrate"
	"git.lost.host/meutraa/tapsync/internal/game"
	"git.lost.host/meutraa/tapsync/internal/judge"
	"gopkg.in/yaml.v3"
)

// Variant holds every tunable of one minigame. Positions are in screen
// fractions, (0,0) top left and (1,1) bottom right.
type Variant struct {
	Name           string                  `yaml:"name"`
	TravelDuration float64                 `yaml:"travel_duration"`
	LingerGrace    float64                 `yaml:"linger_grace"`
	Leniency       float64                 `yaml:"leniency"`
	Bands          game.Bands              `yaml:"bands"`
	Spawn          game.Point              `yaml:"spawn"`
	Target         game.Point              `yaml:"target"`
	ZoneRadius     float64                 `yaml:"zone_radius"`
	HitRadius      float64                 `yaml:"hit_radius"` // How close a tap must be to a note to reach it
	CleanupDelay   float64                 `yaml:"cleanup_delay"`
	Countdown      float64                 `yaml:"countdown"`
	StartLead      float64                 `yaml:"start_lead"`
	DefaultLatency float64                 `yaml:"default_latency"`
	Latency        calibrate.LatencyConfig `yaml:"latency"`
	Offset         calibrate.OffsetConfig  `yaml:"offset"`
}

var (
	// Lyrics scrolls tokens right to left onto a marker near the left edge.
	Lyrics = Variant{
		Name:           "lyrics",
		TravelDuration: 2.0,
		LingerGrace:    0.15,
		Leniency:       1.0,
		Bands:          game.DefaultBands,
		Spawn:          game.Point{X: 1.0, Y: 0.5},
		Target:         game.Point{X: 0.15, Y: 0.5},
		ZoneRadius:     0.12,
		HitRadius:      0.2,
		CleanupDelay:   0.4,
		Countdown:      3,
		StartLead:      0.5,
		DefaultLatency: 0,
		Latency:        calibrate.DefaultLatencyConfig,
		Offset:         calibrate.DefaultOffsetConfig,
	}

	// Words drops tokens from the top onto a bar near the bottom with a
	// shorter travel and a wider grace.
	Words = Variant{
		Name:           "words",
		TravelDuration: 1.4,
		LingerGrace:    0.25,
		Leniency:       1.25,
		Bands:          game.DefaultBands,
		Spawn:          game.Point{X: 0.5, Y: 0},
		Target:         game.Point{X: 0.5, Y: 0.85},
		ZoneRadius:     0.1,
		HitRadius:      0.25,
		CleanupDelay:   0.4,
		Countdown:      3,
		StartLead:      0.5,
		DefaultLatency: 0,
		Latency:        calibrate.DefaultLatencyConfig,
		Offset:         calibrate.DefaultOffsetConfig,
	}

	Variants = map[string]Variant{
		Lyrics.Name: Lyrics,
		Words.Name:  Words,
	}
)

// Judge returns the per note judgement configuration.
func (v Variant) Judge() *judge.Config {
	return &judge.Config{
		TravelDuration: v.TravelDuration,
		LingerGrace:    v.LingerGrace,
		Bands:          v.Bands,
		Leniency:       v.Leniency,
		Spawn:          v.Spawn,
		Target:         v.Target,
		ZoneRadius:     v.ZoneRadius,
	}
}

// LoadVariant reads a variant from a YAML file.
func LoadVariant(path string) (Variant, error) {
	f, err := os.Open(path)
	if err != nil {
		return Variant{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	v, err := LoadVariantFromReader(f)
	if err != nil {
		return Variant{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return v, nil
}

// LoadVariantFromReader decodes a variant. Fields left out keep the value
// of the built-in variant named by "base" (lyrics when unset).
func LoadVariantFromReader(r io.Reader) (Variant, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Variant{}, fmt.Errorf("config: read: %w", err)
	}

	var head struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Variant{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	base := Lyrics
	if head.Base != "" {
		b, ok := Variants[head.Base]
		if !ok {
			return Variant{}, fmt.Errorf("config: unknown base variant %q", head.Base)
		}
		base = b
	}

	file := struct {
		Base    string `yaml:"base"`
		Variant `yaml:",inline"`
	}{Variant: base}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return Variant{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(file.Variant); err != nil {
		return Variant{}, fmt.Errorf("config: invalid variant: %w", err)
	}
	return file.Variant, nil
}

// Validate returns a joined error listing every problem with v.
func Validate(v Variant) error {
	var errs []error
	if v.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if v.TravelDuration <= 0 {
		errs = append(errs, fmt.Errorf("travel_duration %v must be positive", v.TravelDuration))
	}
	if v.LingerGrace < 0 {
		errs = append(errs, fmt.Errorf("linger_grace %v must not be negative", v.LingerGrace))
	}
	if v.Leniency <= 0 {
		errs = append(errs, fmt.Errorf("leniency %v must be positive", v.Leniency))
	}
	if !v.Bands.Valid() {
		errs = append(errs, fmt.Errorf("bands %+v must be positive and ascending", v.Bands))
	}
	if v.ZoneRadius <= 0 || v.HitRadius <= 0 {
		errs = append(errs, errors.New("zone_radius and hit_radius must be positive"))
	}
	if v.CleanupDelay < 0 || v.Countdown < 0 || v.StartLead < 0 || v.DefaultLatency < 0 {
		errs = append(errs, errors.New("cleanup_delay, countdown, start_lead and default_latency must not be negative"))
	}
	if v.Latency.Lead <= 0 || v.Latency.Threshold <= 0 || v.Latency.Window <= 0 || v.Latency.Timeout <= 0 {
		errs = append(errs, errors.New("latency lead, threshold, window and timeout must be positive"))
	}
	if v.Offset.TapCount < calibrate.MinTaps {
		errs = append(errs, fmt.Errorf("offset.tap_count %v must be at least %v", v.Offset.TapCount, calibrate.MinTaps))
	}
	if v.Offset.Interval <= 0 || v.Offset.Min > v.Offset.Max {
		errs = append(errs, errors.New("offset.interval must be positive and offset.min must not exceed offset.max"))
	}
	return errors.Join(errs...)
}
