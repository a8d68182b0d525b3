package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"mutostats/internal/domain"
)

// SnappySuffix marks a snappy-framed file, e.g. results.cbor.sz
const SnappySuffix = ".sz"

// Codec reads and writes result trees in one serialization format
type Codec interface {
	Decode(r io.Reader) (*domain.Table, error)
	Encode(w io.Writer, tree *domain.Table) error
	Format() string
}

var codecs = map[string]Codec{
	".json":   NewJSONCodec(),
	".cbor":   NewCBORCodec(),
	".ubjson": NewUBJSONCodec(),
}

// ForPath selects the codec by file extension. compressed is true when
// the name carries SnappySuffix after the format extension.
func ForPath(path string) (c Codec, compressed bool, err error) {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, SnappySuffix) {
		compressed = true
		name = strings.TrimSuffix(name, SnappySuffix)
	}
	ext := filepath.Ext(name)
	c, ok := codecs[ext]
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", domain.ErrUnknownFormat, path)
	}
	return c, compressed, nil
}

// Formats lists the supported extensions
func Formats() []string {
	return []string{".json", ".cbor", ".ubjson"}
}

// sequence builds Trials when every element is numeric, otherwise a List
func sequence(elems []domain.Node) domain.Node {
	trials := make(domain.Trials, 0, len(elems))
	for _, e := range elems {
		s, ok := e.(domain.Scalar)
		if !ok {
			return domain.List(elems)
		}
		f, ok := s.Float()
		if !ok {
			return domain.List(elems)
		}
		trials = append(trials, f)
	}
	return trials
}

// plain converts a node into maps and slices for encoders that sort map
// keys on their own
func plain(n domain.Node) any {
	switch v := n.(type) {
	case *domain.Table:
		out := make(map[string]any, v.Len())
		for k, child := range v.All() {
			out[k] = plain(child)
		}
		return out
	case domain.Trials:
		out := make([]float64, len(v))
		copy(out, v)
		return out
	case domain.List:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = plain(child)
		}
		return out
	case domain.Scalar:
		return v.Value
	}
	return nil
}

func rootTable(n domain.Node) (*domain.Table, error) {
	t, ok := n.(*domain.Table)
	if !ok {
		return nil, fmt.Errorf("root of result tree is a %s, not a table", n.Kind())
	}
	return t, nil
}
