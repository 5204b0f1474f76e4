// Package input turns key presses into player commands.
package input

import (
	"context"
	"fmt"

	"git.lost.host/meutraa/tapsync/internal/clock"
	"github.com/eiannone/keyboard"
)

type Action uint8

const (
	Tap Action = iota
	Pause
	Freeze
	OffsetUp
	OffsetDown
	Retry
	Quit
)

func (a Action) String() string {
	switch a {
	case Tap:
		return "tap"
	case Pause:
		return "pause"
	case Freeze:
		return "freeze"
	case OffsetUp:
		return "offset up"
	case OffsetDown:
		return "offset down"
	case Retry:
		return "retry"
	case Quit:
		return "quit"
	}
	return "unknown"
}

// Event is an action stamped with the audio clock at the moment the key
// was read.
type Event struct {
	Action Action
	Clock  float64
}

// Map returns the action bound to a key.
func Map(key keyboard.KeyEvent) (Action, bool) {
	switch key.Key {
	case keyboard.KeySpace, keyboard.KeyEnter:
		return Tap, true
	case keyboard.KeyEsc, keyboard.KeyCtrlC:
		return Quit, true
	}
	switch key.Rune {
	case 'p':
		return Pause, true
	case 'f':
		return Freeze, true
	case '+', '=':
		return OffsetUp, true
	case '-', '_':
		return OffsetDown, true
	case 'r':
		return Retry, true
	case 'q':
		return Quit, true
	}
	return 0, false
}

// Forward stamps every mapped key with c and sends it to events until keys
// is closed or ctx is done. It closes events when it returns.
func Forward(ctx context.Context, keys <-chan keyboard.KeyEvent, c clock.Clock, events chan<- Event) error {
	defer close(events)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case key, ok := <-keys:
			if !ok {
				return nil
			}
			if nil != key.Err {
				return fmt.Errorf("unable to read keyboard: %w", key.Err)
			}
			at := c.Now()
			action, ok := Map(key)
			if !ok {
				continue
			}
			select {
			case events <- Event{Action: action, Clock: at}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Open starts reading the keyboard. The returned close function restores
// the terminal.
func Open(buffer int) (<-chan keyboard.KeyEvent, func() error, error) {
	keys, err := keyboard.GetKeys(buffer)
	if nil != err {
		return nil, nil, fmt.Errorf("unable to open keyboard: %w", err)
	}
	return keys, keyboard.Close, nil
}
