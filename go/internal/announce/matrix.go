package announce

import (
	"fmt"
	"io"
	"sync"
)

type Color struct {
	R, G, B uint8
}

var (
	White = Color{255, 255, 255}
	Cyan  = Color{0, 255, 255}
	Red   = Color{255, 0, 0}
)

// Matrix is the LED countdown matrix.
type Matrix interface {
	PutText(c Color, x, y int, text string, font int, clear bool) error
	BeginScreen() error
	EndScreen() error
	Clear() error
}

type matrixOp uint8

const (
	matrixText matrixOp = iota
	matrixSetPixel
	matrixCircle
	matrixLine
	matrixFill
	matrixRect
	matrixClear
	matrixBegin
	matrixEnd
)

// SerialMatrix speaks the matrix controller's section protocol: every
// command is {len, opcode, args..., 0xFF} where len counts the whole
// section including itself and the terminator.
type SerialMatrix struct {
	mu sync.Mutex
	w  io.Writer
}

func NewSerialMatrix(w io.Writer) *SerialMatrix {
	return &SerialMatrix{w: w}
}

func (m *SerialMatrix) PutText(c Color, x, y int, text string, font int, clear bool) error {
	return m.send(matrixText, byte(x), byte(y), c, text, byte(font), clear)
}

func (m *SerialMatrix) SetPixel(x, y int, c Color) error {
	return m.send(matrixSetPixel, byte(x), byte(y), c)
}

func (m *SerialMatrix) Fill(c Color) error {
	return m.send(matrixFill, c)
}

func (m *SerialMatrix) Clear() error       { return m.send(matrixClear) }
func (m *SerialMatrix) BeginScreen() error { return m.send(matrixBegin) }
func (m *SerialMatrix) EndScreen() error   { return m.send(matrixEnd) }

func (m *SerialMatrix) send(op matrixOp, args ...any) error {
	section, err := encodeSection(op, args...)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.w.Write(section); err != nil {
		return fmt.Errorf("write matrix section: %w", err)
	}
	return nil
}

func encodeSection(op matrixOp, args ...any) ([]byte, error) {
	body := []byte{byte(op)}
	for _, arg := range args {
		switch v := arg.(type) {
		case byte:
			body = append(body, v)
		case bool:
			if v {
				body = append(body, 1)
			} else {
				body = append(body, 0)
			}
		case string:
			if len(v) > 0xFF {
				return nil, fmt.Errorf("matrix text too long: %d bytes", len(v))
			}
			body = append(body, byte(len(v)))
			body = append(body, v...)
		case Color:
			body = append(body, v.R, v.G, v.B)
		default:
			return nil, fmt.Errorf("unsupported matrix argument %T", arg)
		}
	}
	if len(body)+2 > 0xFF {
		return nil, fmt.Errorf("matrix section too long: %d bytes", len(body)+2)
	}

	section := make([]byte, 0, len(body)+2)
	section = append(section, byte(len(body)+2))
	section = append(section, body...)
	return append(section, 0xFF), nil
}
