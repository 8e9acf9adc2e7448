package display

import (
	"fmt"
	"io"
	"sync"

	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/hfjobs/jobs"
)

const (
	// DataFormat prints the log text only.
	DataFormat = "{data}"
	// TimestampFormat prefixes each line with its timestamp.
	TimestampFormat = "{timestamp} {data}"
)

// Printer writes log events to an io.Writer, one per line. It is
// safe for concurrent use.
type Printer struct {
	mu  sync.Mutex
	w   io.Writer
	tpl *fasttemplate.Template
}

// NewPrinter returns a Printer rendering events with format. An
// empty format means DataFormat. Placeholders other than
// {timestamp} and {data} are written verbatim.
func NewPrinter(w io.Writer, format string) (*Printer, error) {
	const errCtx = "creating printer"

	if w == nil {
		return nil, fmt.Errorf("%s: writer must be set", errCtx)
	}

	if format == "" {
		format = DataFormat
	}

	tpl, err := fasttemplate.NewTemplate(format, "{", "}")
	if err != nil {
		return nil, fmt.Errorf(
			"%s: parse format %q: %w", errCtx, format, err,
		)
	}

	return &Printer{w: w, tpl: tpl}, nil
}

// FormatFor returns the format selected by the timestamps flag.
// custom, usually from the config file, applies only when the
// flag is off.
func FormatFor(timestamps bool, custom string) string {
	switch {
	case timestamps:
		return TimestampFormat
	case custom != "":
		return custom
	default:
		return DataFormat
	}
}

// Consume writes event followed by a newline.
func (p *Printer) Consume(event jobs.LogEvent) error {
	const errCtx = "printing log event"

	p.mu.Lock()
	defer p.mu.Unlock()

	line := p.tpl.ExecuteStringStd(map[string]any{
		"timestamp": event.Timestamp,
		"data":      event.Data,
	})

	if _, err := io.WriteString(p.w, line+"\n"); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
