// Package detector provides a scripted ports.Detector that reads events from
// text lines, one per line:
//
//	120.5 88       coordinate hit (space or comma separated)
//	start          lifecycle signals
//	stop
//	pause
//	text <msg>     text message, rest of the line verbatim
//
// Blank lines and lines starting with '#' are ignored.
package detector

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/internal/ports"
	"github.com/bft-labs/gesturelink/pkg/message"
)

// EventKind identifies the kind of a parsed line.
type EventKind int

const (
	EventHit EventKind = iota
	EventSignal
	EventText
)

// Event is one parsed line.
type Event struct {
	Kind   EventKind
	Point  domain.Point
	Signal domain.Signal
	Text   string
}

// ParseLine parses one non-empty, non-comment line.
func ParseLine(line string) (Event, error) {
	line = strings.TrimSpace(line)

	if rest, ok := strings.CutPrefix(line, "text"); ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t') {
		text := strings.TrimLeft(rest, " \t")
		if err := message.ValidateText(text); err != nil {
			return Event{}, fmt.Errorf("detector: %w", err)
		}
		return Event{Kind: EventText, Text: text}, nil
	}

	switch strings.ToLower(line) {
	case "start":
		return Event{Kind: EventSignal, Signal: domain.SignalStart}, nil
	case "stop":
		return Event{Kind: EventSignal, Signal: domain.SignalStop}, nil
	case "pause":
		return Event{Kind: EventSignal, Signal: domain.SignalPause}, nil
	}

	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == '\t' || r == ',' })
	if len(fields) != 2 {
		return Event{}, fmt.Errorf("detector: unrecognized line %q: %w", line, domain.ErrInvalidArgument)
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Event{}, fmt.Errorf("detector: bad x in %q: %w", line, domain.ErrInvalidArgument)
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Event{}, fmt.Errorf("detector: bad y in %q: %w", line, domain.ErrInvalidArgument)
	}
	return Event{Kind: EventHit, Point: domain.Point{X: x, Y: y}}, nil
}

// Option configures a LineDetector.
type Option func(*LineDetector)

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(d *LineDetector) { d.logger = logger }
}

// WithStrict makes Run stop at the first unparsable line instead of skipping
// it.
func WithStrict() Option {
	return func(d *LineDetector) { d.strict = true }
}

// LineDetector reads events from an io.Reader.
type LineDetector struct {
	r      io.Reader
	logger ports.Logger
	strict bool
}

var _ ports.Detector = (*LineDetector)(nil)

// NewLineDetector returns a detector reading lines from r.
func NewLineDetector(r io.Reader, opts ...Option) *LineDetector {
	d := &LineDetector{r: r}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = ports.OrNoop(d.logger)
	return d
}

type scanned struct {
	n    int
	line string
}

// Run feeds every parsed line to sink until the input ends, ctx is cancelled,
// or sink returns an error. Reading happens on a separate goroutine, so a
// reader blocked on an interactive input does not hold up cancellation; that
// goroutine exits once the reader returns.
func (d *LineDetector) Run(ctx context.Context, sink ports.EventSink) error {
	lines := make(chan scanned)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(d.r)
		n := 0
		for sc.Scan() {
			n++
			select {
			case lines <- scanned{n: n, line: sc.Text()}:
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	var hits int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("detector: reading input: %w: %w", domain.ErrIO, err)
					}
				default:
				}
				d.logger.Info("detector input exhausted", ports.Int("hits", hits))
				return nil
			}

			text := strings.TrimSpace(l.line)
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}
			ev, err := ParseLine(text)
			if err != nil {
				if d.strict {
					return fmt.Errorf("line %d: %w", l.n, err)
				}
				d.logger.Warn("skipping line", ports.Int("line", l.n), ports.Err(err))
				continue
			}
			if err := dispatch(sink, ev); err != nil {
				return err
			}
			if ev.Kind == EventHit {
				hits++
			}
		}
	}
}

func dispatch(sink ports.EventSink, ev Event) error {
	switch ev.Kind {
	case EventHit:
		return sink.Hit(ev.Point.X, ev.Point.Y)
	case EventSignal:
		return sink.Signal(ev.Signal)
	case EventText:
		return sink.Text(ev.Text)
	default:
		return fmt.Errorf("detector: unknown event kind %d: %w", ev.Kind, domain.ErrInvalidArgument)
	}
}
