package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/longkey1/llmchat/internal/llmc"
)

// terminalUI renders session notifications on the terminal. Replies go to
// out; everything else goes to errOut.
type terminalUI struct {
	out         io.Writer
	errOut      io.Writer
	interactive bool // prefix replies with "Assistant>"
	spinner     bool

	mu       sync.Mutex
	stopSpin chan struct{}
	spinDone chan struct{}
}

func newTerminalUI(interactive bool) *terminalUI {
	return &terminalUI{
		out:         os.Stdout,
		errOut:      os.Stderr,
		interactive: interactive,
		spinner:     isTerminal(os.Stderr.Fd()),
	}
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// RenderMessage prints assistant replies. User turns were typed by the user
// and error turns are reported through RenderError.
func (u *terminalUI) RenderMessage(msg llmc.Message) {
	if msg.Role != llmc.RoleAssistant || msg.Error {
		return
	}
	if u.interactive {
		fmt.Fprintf(u.out, "\nAssistant> %s\n\n", msg.Text)
		return
	}
	fmt.Fprintln(u.out, msg.Text)
}

func (u *terminalUI) RenderError(message string) {
	fmt.Fprintf(u.errOut, "Error: %s\n", message)
}

func (u *terminalUI) Warn(message string) {
	fmt.Fprintf(u.errOut, "Warning: %s\n", message)
}

func (u *terminalUI) Info(message string) {
	fmt.Fprintln(u.errOut, message)
}

func (u *terminalUI) ThumbnailAdded(att llmc.Attachment) {
	fmt.Fprintf(u.errOut, "Attached %s (%s, %s) [%s]\n", att.Name, att.MimeType, humanSize(att.SizeBytes), shortID(att.ID))
}

func (u *terminalUI) ThumbnailRemoved(id string) {
	log.WithField("id", id).Debug("Attachment removed")
}

// SetLoading shows a spinner while a request is in flight, on terminals only.
func (u *terminalUI) SetLoading(loading bool) {
	if !u.spinner {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if loading {
		if u.stopSpin != nil {
			return
		}
		u.stopSpin = make(chan struct{})
		u.spinDone = make(chan struct{})
		go spin(u.errOut, u.stopSpin, u.spinDone)
		return
	}

	if u.stopSpin == nil {
		return
	}
	close(u.stopSpin)
	<-u.spinDone
	u.stopSpin, u.spinDone = nil, nil
}

// spin displays a spinner animation until stop is closed
func spin(w io.Writer, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(spinners) {
		fmt.Fprintf(w, "\r%s Waiting for response... (Ctrl+C to cancel)", spinners[i])
		select {
		case <-stop:
			// Clear the spinner line
			fmt.Fprint(w, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
