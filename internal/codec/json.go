package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"mutostats/internal/domain"
)

// JSONCodec handles JSON result trees
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Decode reads a result tree, keeping object keys in document order
func (c *JSONCodec) Decode(r io.Reader) (*domain.Table, error) {
	dec := json.NewDecoder(r)
	n, err := decodeJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("failed to parse JSON: trailing data after result tree")
	}
	return rootTable(n)
}

func decodeJSONValue(dec *json.Decoder) (domain.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return domain.Scalar{Value: tok}, nil
	}

	switch delim {
	case '{':
		t := domain.NewTable()
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v is not a string", kt)
			}
			val, err := decodeJSONValue(dec)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			t.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return t, nil
	case '[':
		var elems []domain.Node
		for dec.More() {
			val, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			elems = append(elems, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return sequence(elems), nil
	}
	return nil, fmt.Errorf("unexpected delimiter %q", delim)
}

// Encode writes the tree with keys sorted
func (c *JSONCodec) Encode(w io.Writer, tree *domain.Table) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(plain(tree)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
