package tui

import (
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/mathieusouflis/turing"
	"github.com/mathieusouflis/turing/pkg/domain"
)

// DefaultWidth is the number of cells shown when the output is not a terminal.
const DefaultWidth = 80

// Width returns the usable width of w, or DefaultWidth when w is not a terminal.
func Width(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return DefaultWidth
}

// TapeRenderer returns a renderer that highlights the head cell and the state.
// Colors are dropped automatically when w does not support them. Tapes longer
// than the available width are shown as a window around the head.
func TapeRenderer(w io.Writer) turing.TapeRenderer {
	out := termenv.NewOutput(w)
	// Room for the step number, the rule and the state label.
	cells := Width(w) - 40
	if cells < 16 {
		cells = 16
	}

	return func(tape *domain.Tape, state string) string {
		return renderTape(out, tape.Cells(), tape.Head(), state, cells)
	}
}

func renderTape(out *termenv.Output, cells []domain.Symbol, head int, state string, width int) string {
	for len(cells) <= head {
		cells = append(cells, domain.Blank)
	}

	from, to := window(len(cells), head, width)

	var b strings.Builder
	if from > 0 {
		b.WriteString(out.String("…").Faint().String())
	}
	for i := from; i < to; i++ {
		c := cells[i].String()
		switch {
		case i == head:
			b.WriteString(out.String(c).Reverse().Bold().String())
		case cells[i] == domain.Blank:
			b.WriteString(out.String(c).Faint().String())
		default:
			b.WriteString(c)
		}
	}
	if to < len(cells) {
		b.WriteString(out.String("…").Faint().String())
	}

	b.WriteString("  ")
	b.WriteString(out.String(state).Foreground(out.Color("#a78bfa")).String())
	return b.String()
}

// window returns the [from, to) range of at most width cells that contains head.
func window(n, head, width int) (int, int) {
	if n <= width {
		return 0, n
	}
	from := head - width/2
	if from < 0 {
		from = 0
	}
	to := from + width
	if to > n {
		to = n
		from = n - width
	}
	return from, to
}
