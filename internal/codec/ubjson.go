package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"mutostats/internal/domain"
)

// UBJSON type markers
const (
	ubNull        = 'Z'
	ubNoop        = 'N'
	ubTrue        = 'T'
	ubFalse       = 'F'
	ubInt8        = 'i'
	ubUint8       = 'U'
	ubInt16       = 'I'
	ubInt32       = 'l'
	ubInt64       = 'L'
	ubFloat32     = 'd'
	ubFloat64     = 'D'
	ubHighPrec    = 'H'
	ubChar        = 'C'
	ubString      = 'S'
	ubArrayStart  = '['
	ubArrayEnd    = ']'
	ubObjectStart = '{'
	ubObjectEnd   = '}'
	ubType        = '$'
	ubCount       = '#'
)

// UBJSONCodec handles Universal Binary JSON result trees, including
// optimized containers with '$' type and '#' count headers
type UBJSONCodec struct{}

// NewUBJSONCodec creates a new UBJSON codec
func NewUBJSONCodec() *UBJSONCodec {
	return &UBJSONCodec{}
}

// Format returns the codec format identifier
func (c *UBJSONCodec) Format() string {
	return "ubjson"
}

// Decode reads a result tree, keeping object keys in document order
func (c *UBJSONCodec) Decode(r io.Reader) (*domain.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read UBJSON: %w", err)
	}
	ur := &ubjsonReader{data: data}
	n, err := ur.next()
	if err != nil {
		return nil, fmt.Errorf("failed to parse UBJSON at offset %d: %w", ur.pos, err)
	}
	if ur.pos != len(ur.data) {
		return nil, fmt.Errorf("failed to parse UBJSON: %d trailing bytes after result tree", len(ur.data)-ur.pos)
	}
	return rootTable(n)
}

type ubjsonReader struct {
	data []byte
	pos  int
}

func (r *ubjsonReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *ubjsonReader) peek() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	return r.data[r.pos], nil
}

func (r *ubjsonReader) take(n int) ([]byte, error) {
	if n < 0 || len(r.data)-r.pos < n {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// next reads one marker-prefixed value, skipping no-ops
func (r *ubjsonReader) next() (domain.Node, error) {
	for {
		m, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if m != ubNoop {
			return r.value(m)
		}
	}
}

func (r *ubjsonReader) value(marker byte) (domain.Node, error) {
	switch marker {
	case ubNull, ubNoop:
		return domain.Scalar{}, nil
	case ubTrue:
		return domain.Scalar{Value: true}, nil
	case ubFalse:
		return domain.Scalar{Value: false}, nil
	case ubInt8, ubUint8, ubInt16, ubInt32, ubInt64:
		v, err := r.integer(marker)
		if err != nil {
			return nil, err
		}
		return domain.Scalar{Value: v}, nil
	case ubFloat32:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return domain.Scalar{Value: float64(math.Float32frombits(binary.BigEndian.Uint32(b)))}, nil
	case ubFloat64:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return domain.Scalar{Value: math.Float64frombits(binary.BigEndian.Uint64(b))}, nil
	case ubHighPrec:
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return domain.Scalar{Value: f}, nil
		}
		return domain.Scalar{Value: s}, nil
	case ubChar:
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		return domain.Scalar{Value: string(rune(b))}, nil
	case ubString:
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		return domain.Scalar{Value: s}, nil
	case ubArrayStart:
		return r.array()
	case ubObjectStart:
		return r.object()
	}
	return nil, fmt.Errorf("unknown marker %q", marker)
}

func (r *ubjsonReader) integer(marker byte) (int64, error) {
	switch marker {
	case ubInt8:
		b, err := r.take(1)
		if err != nil {
			return 0, err
		}
		return int64(int8(b[0])), nil
	case ubUint8:
		b, err := r.take(1)
		if err != nil {
			return 0, err
		}
		return int64(b[0]), nil
	case ubInt16:
		b, err := r.take(2)
		if err != nil {
			return 0, err
		}
		return int64(int16(binary.BigEndian.Uint16(b))), nil
	case ubInt32:
		b, err := r.take(4)
		if err != nil {
			return 0, err
		}
		return int64(int32(binary.BigEndian.Uint32(b))), nil
	case ubInt64:
		b, err := r.take(8)
		if err != nil {
			return 0, err
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	}
	return 0, fmt.Errorf("marker %q is not an integer type", marker)
}

// length reads a marker-prefixed non-negative integer
func (r *ubjsonReader) length() (int, error) {
	m, err := r.readByte()
	if err != nil {
		return 0, err
	}
	n, err := r.integer(m)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > int64(len(r.data)) {
		return 0, fmt.Errorf("invalid length %d", n)
	}
	return int(n), nil
}

func (r *ubjsonReader) str() (string, error) {
	n, err := r.length()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// header reads the optional '$' type and '#' count of a container.
// count is -1 for containers closed by an end marker.
func (r *ubjsonReader) header() (typ byte, count int, err error) {
	count = -1
	m, err := r.peek()
	if err != nil {
		return 0, 0, err
	}
	if m == ubType {
		r.pos++
		if typ, err = r.readByte(); err != nil {
			return 0, 0, err
		}
		if m, err = r.peek(); err != nil {
			return 0, 0, err
		}
		if m != ubCount {
			return 0, 0, errors.New("typed container without count")
		}
	}
	if m == ubCount {
		r.pos++
		if count, err = r.length(); err != nil {
			return 0, 0, err
		}
	}
	return typ, count, nil
}

func (r *ubjsonReader) element(typ byte) (domain.Node, error) {
	if typ != 0 {
		return r.value(typ)
	}
	return r.next()
}

func (r *ubjsonReader) array() (domain.Node, error) {
	typ, count, err := r.header()
	if err != nil {
		return nil, err
	}

	if count >= 0 {
		elems := make([]domain.Node, 0, min(count, len(r.data)-r.pos))
		for i := 0; i < count; i++ {
			n, err := r.element(typ)
			if err != nil {
				return nil, err
			}
			elems = append(elems, n)
		}
		return sequence(elems), nil
	}

	var elems []domain.Node
	for {
		m, err := r.peek()
		if err != nil {
			return nil, err
		}
		switch m {
		case ubArrayEnd:
			r.pos++
			return sequence(elems), nil
		case ubNoop:
			r.pos++
			continue
		}
		n, err := r.next()
		if err != nil {
			return nil, err
		}
		elems = append(elems, n)
	}
}

func (r *ubjsonReader) object() (domain.Node, error) {
	typ, count, err := r.header()
	if err != nil {
		return nil, err
	}

	t := domain.NewTable()
	for i := 0; count < 0 || i < count; i++ {
		if count < 0 {
			m, err := r.peek()
			if err != nil {
				return nil, err
			}
			if m == ubNoop {
				r.pos++
				continue
			}
			if m == ubObjectEnd {
				r.pos++
				break
			}
		}
		key, err := r.str()
		if err != nil {
			return nil, err
		}
		n, err := r.element(typ)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		t.Set(key, n)
	}
	return t, nil
}

// Encode writes the tree with keys sorted. Trials are written as
// optimized float64 arrays.
func (c *UBJSONCodec) Encode(w io.Writer, tree *domain.Table) error {
	var buf bytes.Buffer
	if err := writeUBJSON(&buf, tree); err != nil {
		return fmt.Errorf("failed to encode UBJSON: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to encode UBJSON: %w", err)
	}
	return nil
}

func writeUBJSON(buf *bytes.Buffer, n domain.Node) error {
	switch v := n.(type) {
	case *domain.Table:
		keys := v.Keys()
		sort.Strings(keys)
		buf.WriteByte(ubObjectStart)
		for _, k := range keys {
			writeUBInt(buf, int64(len(k)))
			buf.WriteString(k)
			child, _ := v.Get(k)
			if err := writeUBJSON(buf, child); err != nil {
				return err
			}
		}
		buf.WriteByte(ubObjectEnd)
	case domain.Trials:
		buf.Write([]byte{ubArrayStart, ubType, ubFloat64, ubCount})
		writeUBInt(buf, int64(len(v)))
		for _, f := range v {
			buf.Write(binary.BigEndian.AppendUint64(nil, math.Float64bits(f)))
		}
	case domain.List:
		buf.WriteByte(ubArrayStart)
		for _, child := range v {
			if err := writeUBJSON(buf, child); err != nil {
				return err
			}
		}
		buf.WriteByte(ubArrayEnd)
	case domain.Scalar:
		return writeUBScalar(buf, v.Value)
	default:
		return fmt.Errorf("unsupported node %T", n)
	}
	return nil
}

func writeUBScalar(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case nil:
		buf.WriteByte(ubNull)
	case bool:
		if v {
			buf.WriteByte(ubTrue)
		} else {
			buf.WriteByte(ubFalse)
		}
	case float64:
		buf.WriteByte(ubFloat64)
		buf.Write(binary.BigEndian.AppendUint64(nil, math.Float64bits(v)))
	case int64:
		writeUBInt(buf, v)
	case uint64:
		if v > math.MaxInt64 {
			s := strconv.FormatUint(v, 10)
			buf.WriteByte(ubHighPrec)
			writeUBInt(buf, int64(len(s)))
			buf.WriteString(s)
			return nil
		}
		writeUBInt(buf, int64(v))
	case string:
		buf.WriteByte(ubString)
		writeUBInt(buf, int64(len(v)))
		buf.WriteString(v)
	default:
		return fmt.Errorf("unsupported scalar %T", value)
	}
	return nil
}

// writeUBInt writes v with the smallest integer marker that holds it
func writeUBInt(buf *bytes.Buffer, v int64) {
	switch {
	case v >= 0 && v <= math.MaxUint8:
		buf.Write([]byte{ubUint8, byte(v)})
	case v >= math.MinInt8 && v < 0:
		buf.Write([]byte{ubInt8, byte(int8(v))})
	case v >= math.MinInt16 && v <= math.MaxInt16:
		buf.WriteByte(ubInt16)
		buf.Write(binary.BigEndian.AppendUint16(nil, uint16(int16(v))))
	case v >= math.MinInt32 && v <= math.MaxInt32:
		buf.WriteByte(ubInt32)
		buf.Write(binary.BigEndian.AppendUint32(nil, uint32(int32(v))))
	default:
		buf.WriteByte(ubInt64)
		buf.Write(binary.BigEndian.AppendUint64(nil, uint64(v)))
	}
}
