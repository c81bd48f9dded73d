package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
	ansiDim   = "\033[2m"
)

// Console writes dispatcher progress to a pair of writers.
type Console struct {
	mu        sync.Mutex
	out       io.Writer
	errOut    io.Writer
	colorize  bool
	printer   *message.Printer
	total     int
	completed int
	idle      chan struct{}
	idleOnce  sync.Once
}

// NewConsole builds a Console. Color is enabled when out is a terminal and
// NO_COLOR is unset.
func NewConsole(out, errOut io.Writer) *Console {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = out
	}
	return &Console{
		out:      out,
		errOut:   errOut,
		colorize: shouldColorize(out),
		printer:  message.NewPrinter(language.English),
		idle:     make(chan struct{}),
	}
}

// SetTotal records the number of discovered entries.
func (c *Console) SetTotal(total int) {
	c.mu.Lock()
	c.total = total
	c.mu.Unlock()
}

// Advance records the completed count.
func (c *Console) Advance(completed int) {
	c.mu.Lock()
	c.completed = completed
	c.mu.Unlock()
}

func (c *Console) LogLine(text string)     { c.write(c.out, "", text) }
func (c *Console) SuccessLine(text string) { c.write(c.out, ansiGreen, text) }
func (c *Console) ErrorLine(text string)   { c.write(c.errOut, ansiRed, text) }

// Idle marks the run finished. Done is closed on the first call.
func (c *Console) Idle() {
	c.idleOnce.Do(func() { close(c.idle) })
}

// Done is closed once the dispatcher reports idle.
func (c *Console) Done() <-chan struct{} {
	return c.idle
}

// Counter renders the current position, e.g. "[1,024/2,048]".
func (c *Console) Counter() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counterLocked()
}

func (c *Console) counterLocked() string {
	return c.printer.Sprintf("[%d/%d]", c.completed, c.total)
}

func (c *Console) write(w io.Writer, color, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text = strings.TrimRight(text, "\n")
	counter := c.counterLocked()
	if c.colorize {
		counter = ansiDim + counter + ansiReset
		if color != "" {
			text = color + text + ansiReset
		}
	}
	fmt.Fprintf(w, "%s %s\n", counter, text)
}

func shouldColorize(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
