// Package message defines gameplay messages and their fixed-size wire record.
//
// Every message is encoded as one RecordSize-byte record: a little-endian
// uint32 tag followed by a PayloadSize-byte payload. Framing is fixed, so a
// reader consumes exactly RecordSize bytes per message.
//
//	offset 0   tag      uint32 (LE)
//	offset 4   payload  [128]byte
//
// Coordinate stores X and Y as IEEE-754 float64 bits at payload[0:8] and
// payload[8:16]. Text stores up to MaxTextLen bytes followed by a NUL. Unused
// payload bytes are zero.
package message

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/pkg/list"
)

const (
	// TagSize is the size of the record discriminant.
	TagSize = 4
	// PayloadSize is the size of the payload union, which fits the text
	// buffer and two float64 values.
	PayloadSize = 128
	// RecordSize is the size of one encoded message.
	RecordSize = TagSize + PayloadSize
	// MaxTextLen is the longest text payload, excluding the terminator.
	MaxTextLen = PayloadSize - 1
)

var (
	// ErrTextTooLong is returned by NewText for strings over MaxTextLen bytes.
	ErrTextTooLong = fmt.Errorf("message: text exceeds %d bytes: %w", MaxTextLen, domain.ErrInvalidArgument)

	// ErrTextNUL is returned by NewText for strings containing a NUL byte.
	ErrTextNUL = fmt.Errorf("message: text contains NUL: %w", domain.ErrInvalidArgument)

	// ErrShortBuffer is returned when a buffer cannot hold a record.
	ErrShortBuffer = fmt.Errorf("message: buffer shorter than %d bytes: %w", RecordSize, domain.ErrInvalidArgument)

	// ErrUnknownKind is returned when decoding a record with an unknown tag.
	ErrUnknownKind = fmt.Errorf("message: unknown kind: %w", domain.ErrInvalidArgument)

	// ErrMalformed is returned when a record's payload is inconsistent with
	// its tag.
	ErrMalformed = fmt.Errorf("message: malformed record: %w", domain.ErrInvalidArgument)
)

// Kind is the record discriminant. The numeric values are part of the wire
// format.
type Kind uint32

const (
	KindDummy Kind = iota
	KindCoordinate
	KindStart
	KindStop
	KindPause
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindDummy:
		return "dummy"
	case KindCoordinate:
		return "coordinate"
	case KindStart:
		return "start"
	case KindStop:
		return "stop"
	case KindPause:
		return "pause"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k <= KindText }

// KindFromSignal maps a lifecycle signal to its message kind.
func KindFromSignal(s domain.Signal) (Kind, error) {
	switch s {
	case domain.SignalStart:
		return KindStart, nil
	case domain.SignalStop:
		return KindStop, nil
	case domain.SignalPause:
		return KindPause, nil
	default:
		return 0, fmt.Errorf("message: unknown signal %d: %w", int(s), domain.ErrInvalidArgument)
	}
}

// Message is one gameplay message. X and Y are meaningful for
// KindCoordinate only; Text for KindText only.
type Message struct {
	Kind Kind
	X, Y float64

	text string
	link list.Link[Message]
}

// QueueLink returns the message's intrusive link, for use with
// workqueue.New and list.New.
func QueueLink(m *Message) *list.Link[Message] { return &m.link }

// NewDummy returns a message with no payload.
func NewDummy() *Message { return &Message{Kind: KindDummy} }

// NewCoordinate returns a coordinate hit.
func NewCoordinate(x, y float64) *Message {
	return &Message{Kind: KindCoordinate, X: x, Y: y}
}

// NewCoordinateAt returns a coordinate hit for p.
func NewCoordinateAt(p domain.Point) *Message { return NewCoordinate(p.X, p.Y) }

// NewStart returns a start signal.
func NewStart() *Message { return &Message{Kind: KindStart} }

// NewStop returns a stop signal.
func NewStop() *Message { return &Message{Kind: KindStop} }

// NewPause returns a pause signal.
func NewPause() *Message { return &Message{Kind: KindPause} }

// NewSignal returns the message for a lifecycle signal.
func NewSignal(s domain.Signal) (*Message, error) {
	k, err := KindFromSignal(s)
	if err != nil {
		return nil, err
	}
	return &Message{Kind: k}, nil
}

// ValidateText reports whether s fits a text record: at most MaxTextLen
// bytes and no NUL.
func ValidateText(s string) error {
	if len(s) > MaxTextLen {
		return ErrTextTooLong
	}
	if strings.IndexByte(s, 0) >= 0 {
		return ErrTextNUL
	}
	return nil
}

// NewText returns a text message. s must pass ValidateText.
func NewText(s string) (*Message, error) {
	if err := ValidateText(s); err != nil {
		return nil, err
	}
	return &Message{Kind: KindText, text: s}, nil
}

// Text returns the text payload of a KindText message.
func (m *Message) Text() string { return m.text }

// Point returns the coordinate of a KindCoordinate message.
func (m *Message) Point() domain.Point { return domain.Point{X: m.X, Y: m.Y} }

func (m *Message) String() string {
	switch m.Kind {
	case KindCoordinate:
		return fmt.Sprintf("coordinate(%g, %g)", m.X, m.Y)
	case KindText:
		return fmt.Sprintf("text(%q)", m.text)
	default:
		return m.Kind.String()
	}
}

// MarshalTo encodes m into the first RecordSize bytes of buf, zeroing unused
// payload bytes.
func (m *Message) MarshalTo(buf []byte) error {
	if len(buf) < RecordSize {
		return ErrShortBuffer
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint32(m.Kind))
	}

	rec := buf[:RecordSize]
	clear(rec)
	binary.LittleEndian.PutUint32(rec[0:TagSize], uint32(m.Kind))
	payload := rec[TagSize:]

	switch m.Kind {
	case KindCoordinate:
		binary.LittleEndian.PutUint64(payload[0:8], math.Float64bits(m.X))
		binary.LittleEndian.PutUint64(payload[8:16], math.Float64bits(m.Y))
	case KindText:
		if len(m.text) > MaxTextLen {
			return ErrTextTooLong
		}
		copy(payload, m.text)
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Message) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	if err := m.MarshalTo(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. data must hold at
// least one record; bytes past RecordSize are ignored. The message's queue
// link is left untouched.
func (m *Message) UnmarshalBinary(data []byte) error {
	if len(data) < RecordSize {
		return ErrShortBuffer
	}

	kind := Kind(binary.LittleEndian.Uint32(data[0:TagSize]))
	if !kind.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint32(kind))
	}
	payload := data[TagSize:RecordSize]

	m.Kind = kind
	m.X, m.Y = 0, 0
	m.text = ""

	switch kind {
	case KindCoordinate:
		m.X = math.Float64frombits(binary.LittleEndian.Uint64(payload[0:8]))
		m.Y = math.Float64frombits(binary.LittleEndian.Uint64(payload[8:16]))
	case KindText:
		n := bytes.IndexByte(payload, 0)
		if n < 0 {
			return fmt.Errorf("%w: unterminated text", ErrMalformed)
		}
		m.text = string(payload[:n])
	}
	return nil
}

// Decode returns the message encoded in the first record of buf.
func Decode(buf []byte) (*Message, error) {
	m := &Message{}
	if err := m.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	return m, nil
}

// Encode returns the wire record for m.
func Encode(m *Message) ([]byte, error) { return m.MarshalBinary() }
