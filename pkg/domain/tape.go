package domain

import (
	"fmt"
	"unicode/utf8"
)

// Symbol is a single tape character.
// It is serialized as a one-character string.
type Symbol rune

// Blank is the symbol read from cells that were never written.
const Blank Symbol = '_'

// ParseSymbol converts a one-character string into a Symbol.
func ParseSymbol(s string) (Symbol, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return Symbol(r), nil
}

// String returns the symbol as a one-character string.
func (s Symbol) String() string {
	return string(rune(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Symbol) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Symbol) UnmarshalText(text []byte) error {
	parsed, err := ParseSymbol(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Tape is a one-dimensional sequence of cells, bounded on the left and unbounded on the right.
// Cells beyond the written content read as Blank; they are only allocated on write.
// A Tape is not safe for concurrent use.
type Tape struct {
	cells []Symbol
	head  int
}

// NewTape creates a tape from content with the head at the given offset.
// It has the same semantics as Reset.
func NewTape(content string, head int) *Tape {
	t := &Tape{}
	t.Reset(content, head)
	return t
}

// RestoreTape rebuilds a tape from a persisted snapshot.
// Unlike NewTape it does not pad the content up to the head, so that
// content and head round-trip through storage unchanged.
func RestoreTape(content string, head int) *Tape {
	if head < 0 {
		head = 0
	}
	return &Tape{cells: toSymbols(content), head: head}
}

// Read returns the symbol under the head, or Blank outside the written cells.
func (t *Tape) Read() Symbol {
	if t.head < 0 || t.head >= len(t.cells) {
		return Blank
	}
	return t.cells[t.head]
}

// Write stores symbol under the head, growing the tape with blanks as needed.
func (t *Tape) Write(symbol Symbol) error {
	if t.head < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHeadPosition, t.head)
	}
	for len(t.cells) <= t.head {
		t.cells = append(t.cells, Blank)
	}
	t.cells[t.head] = symbol
	return nil
}

// MoveLeft moves the head one cell left. Moving left from 0 is a no-op.
func (t *Tape) MoveLeft() {
	if t.head > 0 {
		t.head--
	}
}

// MoveRight moves the head one cell right. Growth is deferred to the next Write.
func (t *Tape) MoveRight() {
	t.head++
}

// Move applies a rule direction. Stay leaves the head where it is.
func (t *Tape) Move(d Direction) {
	switch d {
	case Left:
		t.MoveLeft()
	case Right:
		t.MoveRight()
	}
}

// Reset replaces all cells with content and places the head at head, clamped to 0.
// When the head lies beyond the content, the tape is padded with blanks up to and including it.
// Prior cell history is discarded.
func (t *Tape) Reset(content string, head int) {
	if head < 0 {
		head = 0
	}
	t.cells = toSymbols(content)
	t.head = head
	for len(t.cells) <= t.head {
		t.cells = append(t.cells, Blank)
	}
}

// Head returns the current head position.
func (t *Tape) Head() int {
	return t.head
}

// Len returns the number of allocated cells.
func (t *Tape) Len() int {
	return len(t.cells)
}

// Cells returns a copy of the allocated cells.
func (t *Tape) Cells() []Symbol {
	out := make([]Symbol, len(t.cells))
	copy(out, t.cells)
	return out
}

// Content joins all cells in order.
func (t *Tape) Content() string {
	buf := make([]rune, len(t.cells))
	for i, c := range t.cells {
		buf[i] = rune(c)
	}
	return string(buf)
}

// String implements fmt.Stringer.
func (t *Tape) String() string {
	return t.Content()
}

func toSymbols(content string) []Symbol {
	cells := make([]Symbol, 0, utf8.RuneCountInString(content))
	for _, r := range content {
		cells = append(cells, Symbol(r))
	}
	return cells
}
