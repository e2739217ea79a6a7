// Package serialize implements the versioned snapshot format of spec §4.6:
// a graph is encoded as a sequence of virtual keys, each a header plus a run
// of tagged, count-prefixed payload sections, so that streaming decode never
// needs to buffer a whole payload in memory.
package serialize

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cortexgraph/kernel/pkg/value"
)

// CurrentVersion is the snapshot format version this package writes.
// Decoders for versions 9-14 are expected to coexist at the host layer
// (spec §6); this package only speaks 14.
const CurrentVersion = 14

// PayloadTag discriminates one section of a virtual key's body.
type PayloadTag byte

const (
	TagNodes PayloadTag = iota + 1
	TagDeletedNodes
	TagEdges
	TagDeletedEdges
	TagGraphSchema
)

// ErrUnsupportedVersion is returned by DecodeInto and PeekHeader when the leading version byte
// names a version this package does not implement.
var ErrUnsupportedVersion = errors.New("serialize: unsupported snapshot version")

// ErrUnknownPayloadTag is a fatal assertion per spec §7: a corrupt or
// forward-incompatible stream.
var ErrUnknownPayloadTag = errors.New("serialize: unknown payload tag")

// Header carries the per-virtual-key metadata spec §4.6 lists.
type Header struct {
	GraphName           string
	NodeCount           int
	EdgeCount           int
	DeletedNodeCount    int
	DeletedEdgeCount    int
	LabelMatrixCount    int
	RelationMatrixCount int
	MultiEdgeRelations  map[uint16]bool
	TotalKeyCount       int
	Schema              []byte
}

func writeUint64(w *bufio.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func writeUint32(w *bufio.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func writeByte(w *bufio.Writer, b byte) error { return w.WriteByte(b) }

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// writeString: length-prefixed, NUL-terminated (spec §4.6).
func writeString(w *bufio.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	return w.WriteByte(0)
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	if _, err := readByte(r); err != nil { // trailing NUL
		return "", err
	}
	return string(buf), nil
}

func writeBytes(w *bufio.Writer, b []byte) error {
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeHeader(w *bufio.Writer, h Header) error {
	if err := writeByte(w, CurrentVersion); err != nil {
		return err
	}
	if err := writeString(w, h.GraphName); err != nil {
		return err
	}
	for _, n := range []int{h.NodeCount, h.EdgeCount, h.DeletedNodeCount, h.DeletedEdgeCount, h.LabelMatrixCount, h.RelationMatrixCount, h.TotalKeyCount} {
		if err := writeUint32(w, uint32(n)); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint32(len(h.MultiEdgeRelations))); err != nil {
		return err
	}
	for rel, multi := range h.MultiEdgeRelations {
		if err := writeUint32(w, uint32(rel)); err != nil {
			return err
		}
		b := byte(0)
		if multi {
			b = 1
		}
		if err := writeByte(w, b); err != nil {
			return err
		}
	}
	return writeBytes(w, h.Schema)
}

func readHeader(r io.Reader) (Header, error) {
	var h Header
	v, err := readByte(r)
	if err != nil {
		return h, err
	}
	if v != CurrentVersion {
		return h, fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, v)
	}
	if h.GraphName, err = readString(r); err != nil {
		return h, err
	}
	counts := make([]int, 7)
	for i := range counts {
		n, err := readUint32(r)
		if err != nil {
			return h, err
		}
		counts[i] = int(n)
	}
	h.NodeCount, h.EdgeCount, h.DeletedNodeCount, h.DeletedEdgeCount = counts[0], counts[1], counts[2], counts[3]
	h.LabelMatrixCount, h.RelationMatrixCount, h.TotalKeyCount = counts[4], counts[5], counts[6]

	relCount, err := readUint32(r)
	if err != nil {
		return h, err
	}
	h.MultiEdgeRelations = make(map[uint16]bool, relCount)
	for i := uint32(0); i < relCount; i++ {
		rel, err := readUint32(r)
		if err != nil {
			return h, err
		}
		multi, err := readByte(r)
		if err != nil {
			return h, err
		}
		h.MultiEdgeRelations[uint16(rel)] = multi != 0
	}
	if h.Schema, err = readBytes(r); err != nil {
		return h, err
	}
	return h, nil
}

// writeValue encodes a value.Value per spec §4.6's variant wire format.
func writeValue(w *bufio.Writer, v value.Value) error {
	if err := writeByte(w, byte(v.Kind())); err != nil {
		return err
	}
	switch v.Kind() {
	case value.KindNull:
		return nil
	case value.KindBool:
		b := byte(0)
		if v.AsBool() {
			b = 1
		}
		return writeByte(w, b)
	case value.KindInt64:
		return writeUint64(w, uint64(v.AsInt64()))
	case value.KindDouble:
		return writeUint64(w, math.Float64bits(v.AsDouble()))
	case value.KindString:
		return writeString(w, v.AsString())
	case value.KindPoint:
		p := v.AsPoint()
		if err := writeUint64(w, math.Float64bits(p.Lat)); err != nil {
			return err
		}
		return writeUint64(w, math.Float64bits(p.Lon))
	case value.KindArray:
		arr := v.AsArray()
		if err := writeUint32(w, uint32(len(arr))); err != nil {
			return err
		}
		for _, e := range arr {
			if err := writeValue(w, e); err != nil {
				return err
			}
		}
		return nil
	case value.KindMap:
		m := v.AsMap()
		if err := writeUint32(w, uint32(len(m))); err != nil {
			return err
		}
		for _, e := range m {
			if err := writeString(w, e.Key); err != nil {
				return err
			}
			if err := writeValue(w, e.Val); err != nil {
				return err
			}
		}
		return nil
	case value.KindVector:
		vec := v.AsVector()
		if err := writeUint32(w, uint32(len(vec))); err != nil {
			return err
		}
		for _, f := range vec {
			if err := writeUint32(w, math.Float32bits(f)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("serialize: unknown value kind %d", v.Kind())
	}
}

func readValue(r io.Reader) (value.Value, error) {
	tag, err := readByte(r)
	if err != nil {
		return value.Value{}, err
	}
	switch value.Kind(tag) {
	case value.KindNull:
		return value.Null(), nil
	case value.KindBool:
		b, err := readByte(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(b != 0), nil
	case value.KindInt64:
		u, err := readUint64(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.Int64(int64(u)), nil
	case value.KindDouble:
		u, err := readUint64(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.Double(math.Float64frombits(u)), nil
	case value.KindString:
		s, err := readString(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.String(s), nil
	case value.KindPoint:
		lat, err := readUint64(r)
		if err != nil {
			return value.Value{}, err
		}
		lon, err := readUint64(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.PointOf(math.Float64frombits(lat), math.Float64frombits(lon)), nil
	case value.KindArray:
		n, err := readUint32(r)
		if err != nil {
			return value.Value{}, err
		}
		items := make([]value.Value, n)
		for i := range items {
			if items[i], err = readValue(r); err != nil {
				return value.Value{}, err
			}
		}
		return value.Array(items), nil
	case value.KindMap:
		n, err := readUint32(r)
		if err != nil {
			return value.Value{}, err
		}
		entries := make([]value.MapEntry, n)
		for i := range entries {
			key, err := readString(r)
			if err != nil {
				return value.Value{}, err
			}
			val, err := readValue(r)
			if err != nil {
				return value.Value{}, err
			}
			entries[i] = value.MapEntry{Key: key, Val: val}
		}
		return value.Map(entries), nil
	case value.KindVector:
		n, err := readUint32(r)
		if err != nil {
			return value.Value{}, err
		}
		vec := make([]float32, n)
		for i := range vec {
			bits, err := readUint32(r)
			if err != nil {
				return value.Value{}, err
			}
			vec[i] = math.Float32frombits(bits)
		}
		return value.Vector(vec), nil
	default:
		return value.Value{}, fmt.Errorf("serialize: unknown value kind tag %d", tag)
	}
}
