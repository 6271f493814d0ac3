package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Console prints the human-readable progress lines of a run
type Console struct {
	out io.Writer

	info    *color.Color
	success *color.Color
	failure *color.Color
	dim     *color.Color
}

// NewConsole writes to out. Colors are used only when out is a terminal and
// noColor is false.
func NewConsole(out io.Writer, noColor bool) *Console {
	c := &Console{
		out:     out,
		info:    color.New(color.FgCyan),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		dim:     color.New(color.Faint),
	}

	enable := !noColor && isTerminal(out)
	for _, col := range []*color.Color{c.info, c.success, c.failure, c.dim} {
		if enable {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}

	return c
}

// Stdout returns a console on standard output
func Stdout(noColor bool) *Console {
	return NewConsole(os.Stdout, noColor)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Step announces a phase of the run
func (c *Console) Step(msg string) {
	c.println(c.info, msg)
}

// Item prints a per-item line such as a found URL
func (c *Console) Item(msg string) {
	c.println(c.dim, msg)
}

// Success prints a line in green
func (c *Console) Success(msg string) {
	c.println(c.success, msg)
}

// Error prints a line in red
func (c *Console) Error(msg string) {
	c.println(c.failure, msg)
}

// Plain prints a line without color
func (c *Console) Plain(msg string) {
	fmt.Fprintln(c.out, msg)
}

func (c *Console) println(col *color.Color, msg string) {
	fmt.Fprintln(c.out, col.Sprint(msg))
}
