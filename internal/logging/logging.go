// Package logging builds the slog logger used by the nvsedit command line.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// TimeFormat is time.TimeOnly plus milliseconds.
const TimeFormat = "15:04:05.000"

// New returns a tint logger writing to w. Colour is enabled only when w is a
// terminal.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
		if !noColor {
			w = colorable.NewColorable(f)
		}
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       level,
		TimeFormat:  TimeFormat,
		NoColor:     noColor,
		ReplaceAttr: dropEmpty,
	}))
}

// dropEmpty removes attributes carrying zero values.
func dropEmpty(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.MessageKey || len(groups) > 0 {
		return a
	}
	if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
		return slog.Attr{}
	}
	return a
}
