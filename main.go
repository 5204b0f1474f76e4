package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"git.lost.host/meutraa/tapsync/internal/audio"
	"git.lost.host/meutraa/tapsync/internal/config"
	"git.lost.host/meutraa/tapsync/internal/input"
	"git.lost.host/meutraa/tapsync/internal/observe"
	"git.lost.host/meutraa/tapsync/internal/parser"
	"git.lost.host/meutraa/tapsync/internal/render"
	"git.lost.host/meutraa/tapsync/internal/round"
	"git.lost.host/meutraa/tapsync/internal/store"
	"git.lost.host/meutraa/tapsync/internal/theme"
	"github.com/faiface/beep"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args[1:]); nil != err {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger writes to the log file, or nowhere, since the terminal belongs
// to the renderer.
func newLogger(flags *config.Flags) (*slog.Logger, func() error, error) {
	level, err := flags.Level()
	if nil != err {
		return nil, nil, err
	}
	var w io.Writer = io.Discard
	closer := func() error { return nil }
	if flags.LogFile != "" {
		f, err := os.OpenFile(flags.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if nil != err {
			return nil, nil, fmt.Errorf("unable to open log file: %w", err)
		}
		w, closer = f, f.Close
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closer, nil
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if nil != err {
		return err
	}
	variant, err := flags.LoadVariant()
	if nil != err {
		return err
	}
	log, closeLog, err := newLogger(flags)
	if nil != err {
		return err
	}
	defer closeLog()
	slog.SetDefault(log)

	// Ensure our Default implementations are used as interfaces
	var psr parser.Parser = &parser.DefaultParser{Log: log}
	var r render.Renderer = render.NewDefaultRenderer()
	var th theme.Theme = &theme.DefaultTheme{}

	timeline, err := psr.Parse(flags.Timeline)
	if nil != err {
		return err
	}
	song, err := audio.LoadClip(flags.Song)
	if nil != err {
		return err
	}

	var db store.Store
	db, err = store.Open(flags.Database, log)
	if nil != err {
		return err
	}
	defer func() {
		if err := db.Close(); nil != err {
			log.Error("unable to close database", "err", err)
		}
	}()

	device := audio.NewDevice(beep.SampleRate(flags.SampleRate), log)
	if err := device.Open(flags.Buffer); nil != err {
		return err
	}

	keys, closeKeys, err := input.Open(128)
	if nil != err {
		return err
	}
	defer func() {
		if err := closeKeys(); nil != err {
			log.Error("unable to close keyboard", "err", err)
		}
	}()

	p := &Program{
		Renderer:    r,
		Theme:       th,
		Variant:     variant,
		Log:         log,
		FramePeriod: flags.FramePeriod,
	}
	opts := round.Options{
		Player:      device,
		Store:       db,
		Metrics:     observe.DefaultMetrics(),
		Log:         log,
		Timeline:    timeline,
		Variant:     variant,
		Song:        song,
		Tone:        tone(device),
		Click:       click(device),
		Recalibrate: flags.Recalibrate,
		OnJudgement: p.Judged,
	}
	if offset, ok := flags.OffsetOverride(); ok {
		opts.UserOffset = &offset
	}
	p.Round = round.New(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan input.Event, 128)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return input.Forward(ctx, keys, device, events)
	})
	g.Go(func() error {
		// The input goroutine only stops with the context.
		defer cancel()
		return p.Run(ctx, events)
	})
	if err := g.Wait(); nil != err && !errors.Is(err, context.Canceled) {
		return err
	}

	if p.Round.Phase() == round.Complete {
		sum := p.Round.Summary()
		fmt.Printf("accuracy %.2f%%  mean %+.1fms  stdev %.1fms\n", sum.Accuracy, sum.Mean*1000, sum.Stdev*1000)
	}
	return nil
}
