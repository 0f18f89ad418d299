package printer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Result formats.
const (
	FormatPlain = "plain"
	FormatShort = "short"
	FormatJSON  = "json"
)

// Message is one line of command output.
type Message interface {
	plain() string
	short() string
	jsonValue() any
	isError() bool
}

// IDMessage reports the artifact id of a file.
type IDMessage struct {
	Path string
	ID   string
}

func (m IDMessage) plain() string  { return fmt.Sprintf("%s => %s", m.Path, m.ID) }
func (m IDMessage) short() string  { return m.ID }
func (m IDMessage) isError() bool  { return false }
func (m IDMessage) jsonValue() any { return map[string]string{"path": m.Path, "id": m.ID} }

// FindMessage reports a file whose id matched a search.
type FindMessage struct {
	Path string
	ID   string
}

func (m FindMessage) plain() string  { return fmt.Sprintf("%s => %s", m.ID, m.Path) }
func (m FindMessage) short() string  { return m.Path }
func (m FindMessage) isError() bool  { return false }
func (m FindMessage) jsonValue() any { return map[string]string{"path": m.Path, "id": m.ID} }

// ManifestMessage reports a stored manifest.
type ManifestMessage struct {
	Target     string
	ManifestID string
	Path       string
}

func (m ManifestMessage) plain() string {
	if m.Path != "" {
		return fmt.Sprintf("%s => %s (%s)", m.Target, m.ManifestID, m.Path)
	}
	return fmt.Sprintf("%s => %s", m.Target, m.ManifestID)
}
func (m ManifestMessage) short() string { return m.ManifestID }
func (m ManifestMessage) isError() bool { return false }
func (m ManifestMessage) jsonValue() any {
	v := map[string]string{"target": m.Target, "manifest": m.ManifestID}
	if m.Path != "" {
		v["path"] = m.Path
	}
	return v
}

// ErrorMessage reports a per-item failure that does not stop the command.
type ErrorMessage struct {
	Path string
	Err  error
}

func (m ErrorMessage) plain() string  { return fmt.Sprintf("error: %s: %v", m.Path, m.Err) }
func (m ErrorMessage) short() string  { return m.plain() }
func (m ErrorMessage) isError() bool  { return true }
func (m ErrorMessage) jsonValue() any { return map[string]string{"path": m.Path, "error": m.Err.Error()} }

// Printer writes messages in one format. Results go to out; in the plain
// and short formats errors go to errOut. JSON output is one object per line
// on out, errors included. Safe for concurrent use.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	format string
	errors int
}

// New returns a printer for format.
func New(out, errOut io.Writer, format string) (*Printer, error) {
	switch format {
	case FormatPlain, FormatShort, FormatJSON:
	default:
		return nil, fmt.Errorf("unknown output format '%s' (valid: plain, short, json)", format)
	}
	return &Printer{out: out, errOut: errOut, format: format}, nil
}

// Print writes one message.
func (p *Printer) Print(msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if msg.isError() {
		p.errors++
	}

	switch p.format {
	case FormatJSON:
		data, err := json.Marshal(msg.jsonValue())
		if err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		_, err = fmt.Fprintf(p.out, "%s\n", data)
		return err
	case FormatShort:
		return p.writeLine(msg, msg.short())
	default:
		return p.writeLine(msg, msg.plain())
	}
}

func (p *Printer) writeLine(msg Message, line string) error {
	w := p.out
	if msg.isError() {
		w = p.errOut
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

// Run prints messages until msgs is closed or ctx is done.
func (p *Printer) Run(ctx context.Context, msgs <-chan Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := p.Print(msg); err != nil {
				return err
			}
		}
	}
}

// Errors returns how many error messages were printed.
func (p *Printer) Errors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errors
}
