package term

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	xansi "github.com/charmbracelet/x/ansi"
)

const (
	keyCtrlC     = 0x03
	keyBackspace = 0x08
	keyEnter     = 0x0d
	keyLinefeed  = 0x0a
	keyCtrlL     = 0x0c
	keyCtrlU     = 0x15
	keyEsc       = 0x1b
	keyDelete    = 0x7f
)

// Console is a line-oriented terminal emulator over a request/response
// command API. Keystrokes edit a local line buffer; Enter hands the buffered
// command to the caller, which executes it remotely and reports the result
// through FinishCommand. There is no byte stream and no PTY: the console owns
// echo, editing, history and scrollback entirely on this side.
type Console struct {
	mu sync.Mutex

	prompt        string
	lines         []string
	scrollbackMax int

	input []rune

	history []string
	histIdx int // len(history) means editing the live line
	live    []rune

	busy   bool
	status Status
}

type ConsoleOptions struct {
	Prompt string
	// ScrollbackMax caps completed lines; the head is trimmed past it.
	ScrollbackMax int
	// Banner lines are written before the first prompt.
	Banner []string
	// History seeds recall with earlier commands, oldest first.
	History []string
}

func NewConsole(opts ConsoleOptions) *Console {
	prompt := opts.Prompt
	if prompt == "" {
		prompt = "$ "
	}
	maxLines := opts.ScrollbackMax
	if maxLines <= 0 {
		maxLines = 10000
	}
	c := &Console{
		prompt:        prompt,
		scrollbackMax: maxLines,
		history:       append([]string(nil), opts.History...),
		status:        StatusActive,
	}
	c.histIdx = len(c.history)
	for _, line := range opts.Banner {
		c.appendLineLocked(line)
	}
	return c
}

// HandleKey consumes one key event's byte sequence. When the sequence
// completes a command it returns (command, true) and the console enters the
// busy state until FinishCommand; everything else returns ("", false).
//
// Recognized input: printable runes, backspace/DEL, Enter, Ctrl+C (discard
// line), Ctrl+U (clear line), Ctrl+L (clear screen), and the xterm cursor-up/
// down sequences for history recall. All other control bytes and escape
// sequences are dropped.
func (c *Console) HandleKey(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusStopped {
		if data[0] == keyEnter || data[0] == keyLinefeed {
			c.appendLineLocked("[session stopped]")
		}
		return "", false
	}
	if c.status != StatusActive {
		return "", false
	}
	// While a command is in flight only Enter is rejected; editing keys keep
	// shaping the next buffer so fast typists don't lose keystrokes.
	if c.busy && (data[0] == keyEnter || data[0] == keyLinefeed) {
		return "", false
	}

	if data[0] == keyEsc {
		c.handleEscapeLocked(data)
		return "", false
	}

	switch data[0] {
	case keyEnter, keyLinefeed:
		return c.submitLocked()
	case keyBackspace, keyDelete:
		if len(c.input) > 0 {
			c.input = c.input[:len(c.input)-1]
		}
		c.histIdx = len(c.history)
		return "", false
	case keyCtrlC:
		c.appendLineLocked(c.prompt + string(c.input) + "^C")
		c.input = nil
		c.histIdx = len(c.history)
		return "", false
	case keyCtrlU:
		c.input = nil
		c.histIdx = len(c.history)
		return "", false
	case keyCtrlL:
		c.lines = nil
		return "", false
	}

	if data[0] < 0x20 {
		return "", false
	}

	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if unicode.IsPrint(r) {
			c.input = append(c.input, r)
		}
	}
	c.histIdx = len(c.history)
	return "", false
}

// handleEscapeLocked interprets cursor-up/down for history recall. Both the
// CSI form (ESC [ A) and the application-keypad form (ESC O A) are accepted;
// every other sequence, including a bare ESC, is ignored.
func (c *Console) handleEscapeLocked(data []byte) {
	if len(data) != 3 {
		return
	}
	if data[1] != '[' && data[1] != 'O' {
		return
	}
	switch data[2] {
	case 'A':
		c.recallLocked(-1)
	case 'B':
		c.recallLocked(+1)
	}
}

func (c *Console) recallLocked(dir int) {
	if len(c.history) == 0 {
		return
	}
	if c.histIdx == len(c.history) {
		if dir > 0 {
			return
		}
		// Stash the in-progress line so cursor-down can restore it.
		c.live = append([]rune(nil), c.input...)
	}
	next := c.histIdx + dir
	if next < 0 {
		return
	}
	if next >= len(c.history) {
		c.histIdx = len(c.history)
		c.input = append([]rune(nil), c.live...)
		return
	}
	c.histIdx = next
	c.input = []rune(c.history[c.histIdx])
}

func (c *Console) submitLocked() (string, bool) {
	command := strings.TrimSpace(string(c.input))
	c.appendLineLocked(c.prompt + string(c.input))
	c.input = nil
	c.live = nil
	if command == "" {
		c.histIdx = len(c.history)
		return "", false
	}
	c.history = append(c.history, command)
	c.histIdx = len(c.history)
	c.busy = true
	return command, true
}

// FinishCommand reports the remote result for the in-flight command and
// reopens the console for input. Escape sequences in the output are stripped
// before it joins the scrollback. A non-zero exit code adds one marker line
// after the output.
func (c *Console) FinishCommand(output string, exitCode int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		c.appendLineLocked("error: " + err.Error())
		return
	}
	c.appendOutputLocked(output)
	if exitCode != 0 {
		c.appendLineLocked(fmt.Sprintf("[exit %d]", exitCode))
	}
}

// AppendOutput writes server-initiated text (notices, MOTD refreshes) to the
// scrollback without touching the input line.
func (c *Console) AppendOutput(output string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendOutputLocked(output)
}

// SetStopped marks the session terminated. Further input is rejected locally;
// only the stop notice and Enter feedback reach the scrollback.
func (c *Console) SetStopped(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	c.status = StatusStopped
	if message != "" {
		c.appendLineLocked(message)
	}
}

// SetErrored marks the session unusable after a transport failure.
func (c *Console) SetErrored(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	c.status = StatusErrored
	if message != "" {
		c.appendLineLocked("error: " + message)
	}
}

func (c *Console) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Console) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// History returns the recall ring, oldest first.
func (c *Console) History() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.history...)
}

// Snapshot returns the render view: completed lines plus the live input
// line. A stopped or busy console renders no cursor.
func (c *Console) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Lines:  append([]string(nil), c.lines...),
		Busy:   c.busy,
		Status: c.status,
	}
	if c.status == StatusActive && !c.busy {
		snap.Input = c.prompt + string(c.input)
		snap.CursorCol = len([]rune(snap.Input))
	}
	return snap
}

func (c *Console) appendOutputLocked(output string) {
	if output == "" {
		return
	}
	plain := xansi.Strip(output)
	plain = strings.ReplaceAll(plain, "\r", "")
	plain = strings.TrimRight(plain, "\n")
	for _, line := range strings.Split(plain, "\n") {
		c.appendLineLocked(line)
	}
}

func (c *Console) appendLineLocked(line string) {
	c.lines = append(c.lines, line)
	if len(c.lines) > c.scrollbackMax {
		over := len(c.lines) - c.scrollbackMax
		c.lines = c.lines[over:]
	}
}
