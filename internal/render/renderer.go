// Package render draws frames onto an ANSI terminal.
package render

import (
	"context"
	"image/color"
	"time"
)

type Renderer interface {
	Init() error
	Deinit() error
	// Size is the drawable area in columns and rows.
	Size() (int, int)
	AddDecoration(col, row int, content string, frames int)
	// RenderLoop calls frame once per period until it returns false or ctx
	// is done.
	RenderLoop(ctx context.Context, period time.Duration, frame func(now time.Time) bool) error
	Clear()
	Fill(row, column int, message string)
	FillColor(row, column int, color color.RGBA, message string)
}
