package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"mutostats/internal/domain"
)

const (
	cborMajorArray = 4
	cborMajorMap   = 5
	cborBreak      = 0xff
)

// CBORCodec handles CBOR result trees. Maps and arrays are walked here so
// that key order survives; every other item goes through fxamacker/cbor.
type CBORCodec struct {
	enc cbor.EncMode
}

// NewCBORCodec creates a new CBOR codec
func NewCBORCodec() *CBORCodec {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: invalid canonical options: %v", err))
	}
	return &CBORCodec{enc: em}
}

// Format returns the codec format identifier
func (c *CBORCodec) Format() string {
	return "cbor"
}

// Decode reads a result tree, keeping map keys in document order
func (c *CBORCodec) Decode(r io.Reader) (*domain.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CBOR: %w", err)
	}
	n, rest, err := decodeCBOR(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CBOR: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("failed to parse CBOR: %d trailing bytes", len(rest))
	}
	return rootTable(n)
}

// Encode writes the tree with map keys in lexical order. Scalars use the
// shortest lossless float encoding.
func (c *CBORCodec) Encode(w io.Writer, tree *domain.Table) error {
	var buf bytes.Buffer
	if err := c.encode(&buf, tree); err != nil {
		return fmt.Errorf("failed to encode CBOR: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to encode CBOR: %w", err)
	}
	return nil
}

func (c *CBORCodec) encode(buf *bytes.Buffer, n domain.Node) error {
	switch v := n.(type) {
	case *domain.Table:
		keys := v.Keys()
		sort.Strings(keys)
		cborHead(buf, cborMajorMap, uint64(len(keys)))
		for _, k := range keys {
			if err := c.scalar(buf, k); err != nil {
				return err
			}
			child, _ := v.Get(k)
			if err := c.encode(buf, child); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
	case domain.Trials:
		cborHead(buf, cborMajorArray, uint64(len(v)))
		for _, f := range v {
			if err := c.scalar(buf, f); err != nil {
				return err
			}
		}
	case domain.List:
		cborHead(buf, cborMajorArray, uint64(len(v)))
		for _, child := range v {
			if err := c.encode(buf, child); err != nil {
				return err
			}
		}
	case domain.Scalar:
		return c.scalar(buf, v.Value)
	default:
		return fmt.Errorf("unsupported node %T", n)
	}
	return nil
}

func (c *CBORCodec) scalar(buf *bytes.Buffer, v any) error {
	b, err := c.enc.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// cborHead writes the head of a definite-length array or map
func cborHead(buf *bytes.Buffer, major byte, n uint64) {
	m := major << 5
	switch {
	case n < 24:
		buf.WriteByte(m | byte(n))
	case n <= math.MaxUint8:
		buf.Write([]byte{m | 24, byte(n)})
	case n <= math.MaxUint16:
		buf.WriteByte(m | 25)
		buf.Write(binary.BigEndian.AppendUint16(nil, uint16(n)))
	case n <= math.MaxUint32:
		buf.WriteByte(m | 26)
		buf.Write(binary.BigEndian.AppendUint32(nil, uint32(n)))
	default:
		buf.WriteByte(m | 27)
		buf.Write(binary.BigEndian.AppendUint64(nil, n))
	}
}

func decodeCBOR(data []byte) (domain.Node, []byte, error) {
	if len(data) == 0 {
		return nil, nil, io.ErrUnexpectedEOF
	}

	switch data[0] >> 5 {
	case cborMajorArray:
		count, indefinite, rest, err := cborHeader(data)
		if err != nil {
			return nil, nil, err
		}
		var elems []domain.Node
		for i := uint64(0); indefinite || i < count; i++ {
			if indefinite {
				if len(rest) == 0 {
					return nil, nil, io.ErrUnexpectedEOF
				}
				if rest[0] == cborBreak {
					rest = rest[1:]
					break
				}
			}
			var n domain.Node
			n, rest, err = decodeCBOR(rest)
			if err != nil {
				return nil, nil, err
			}
			elems = append(elems, n)
		}
		return sequence(elems), rest, nil

	case cborMajorMap:
		count, indefinite, rest, err := cborHeader(data)
		if err != nil {
			return nil, nil, err
		}
		t := domain.NewTable()
		for i := uint64(0); indefinite || i < count; i++ {
			if indefinite {
				if len(rest) == 0 {
					return nil, nil, io.ErrUnexpectedEOF
				}
				if rest[0] == cborBreak {
					rest = rest[1:]
					break
				}
			}
			var k, v domain.Node
			k, rest, err = decodeCBOR(rest)
			if err != nil {
				return nil, nil, err
			}
			key, err := cborKey(k)
			if err != nil {
				return nil, nil, err
			}
			v, rest, err = decodeCBOR(rest)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", key, err)
			}
			t.Set(key, v)
		}
		return t, rest, nil
	}

	var v any
	rest, err := cbor.UnmarshalFirst(data, &v)
	if err != nil {
		return nil, nil, err
	}
	return domain.Scalar{Value: v}, rest, nil
}

// cborHeader returns the element count of an array or map head
func cborHeader(data []byte) (count uint64, indefinite bool, rest []byte, err error) {
	info := data[0] & 0x1f
	rest = data[1:]

	var size int
	switch {
	case info < 24:
		return uint64(info), false, rest, nil
	case info == 31:
		return 0, true, rest, nil
	case info == 24:
		size = 1
	case info == 25:
		size = 2
	case info == 26:
		size = 4
	case info == 27:
		size = 8
	default:
		return 0, false, nil, fmt.Errorf("reserved additional information %d", info)
	}

	if len(rest) < size {
		return 0, false, nil, io.ErrUnexpectedEOF
	}
	switch size {
	case 1:
		count = uint64(rest[0])
	case 2:
		count = uint64(binary.BigEndian.Uint16(rest))
	case 4:
		count = uint64(binary.BigEndian.Uint32(rest))
	case 8:
		count = binary.BigEndian.Uint64(rest)
	}
	return count, false, rest[size:], nil
}

func cborKey(n domain.Node) (string, error) {
	s, ok := n.(domain.Scalar)
	if !ok {
		return "", errors.New("map key is not a scalar")
	}
	switch v := s.Value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", errors.New("map key is null")
	}
	return fmt.Sprint(s.Value), nil
}
