package scene

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Recorder is a Sink that keeps every command it receives.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
}

func (r *Recorder) Publish(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

// Commands returns a copy of the recorded commands.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// Ops returns the recorded commands with the given op.
func (r *Recorder) Ops(op string) []Command {
	var out []Command
	for _, cmd := range r.Commands() {
		if cmd.Op == op {
			out = append(out, cmd)
		}
	}
	return out
}

// WriteTimeline prints one line per command, e.g.
//
//	100.0ms  animate    3f2a9c1e  ...t0,-100 over 100ms
func (r *Recorder) WriteTimeline(w io.Writer) error {
	for _, cmd := range r.Commands() {
		if _, err := fmt.Fprintln(w, FormatCommand(cmd)); err != nil {
			return err
		}
	}
	return nil
}

// FormatCommand renders cmd as a single human-readable line.
func FormatCommand(cmd Command) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%9.1fms  %-9s", cmd.AtMs, cmd.Op)
	if cmd.Sprite != "" {
		fmt.Fprintf(&b, "  %s", shortID(cmd.Sprite))
	}

	switch cmd.Op {
	case OpLoad:
		fmt.Fprintf(&b, "  %s", cmd.URL)
	case OpTransform:
		fmt.Fprintf(&b, "  %s", cmd.Transform)
	case OpAnimate:
		if cmd.Transform != "" {
			fmt.Fprintf(&b, "  %s", cmd.Transform)
		}
		if cmd.Opacity != nil {
			fmt.Fprintf(&b, "  opacity=%g", *cmd.Opacity)
		}
		fmt.Fprintf(&b, " over %gms", cmd.DurationMs)
	case OpOpacity:
		if cmd.Opacity != nil {
			fmt.Fprintf(&b, "  %g", *cmd.Opacity)
		}
	case OpScroll:
		fmt.Fprintf(&b, "  left=%g top=%g", cmd.Left, cmd.Top)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
