package codec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/golang/snappy"

	"mutostats/internal/domain"
)

// Document is a decoded result file together with where it came from
type Document struct {
	Location    string
	Format      string
	Compressed  bool
	Fingerprint string // of the bytes as stored, before decompression
	Tree        *domain.Table
}

// Loader decodes and encodes result files through a Sources
type Loader struct {
	sources *Sources
}

// NewLoader creates a loader. A nil sources reads local files and uses
// the default AWS configuration for s3:// locations.
func NewLoader(sources *Sources) *Loader {
	if sources == nil {
		sources = NewSources(S3Config{})
	}
	return &Loader{sources: sources}
}

// Read loads and decodes one result file
func (l *Loader) Read(ctx context.Context, location string) (*Document, error) {
	c, compressed, err := ForPath(location)
	if err != nil {
		return nil, err
	}

	raw, err := l.sources.ReadAll(ctx, location)
	if err != nil {
		return nil, err
	}

	data := raw
	if compressed {
		data, err = io.ReadAll(snappy.NewReader(bytes.NewReader(raw)))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %s: %w", location, err)
		}
	}

	tree, err := c.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", location, err)
	}

	return &Document{
		Location:    location,
		Format:      c.Format(),
		Compressed:  compressed,
		Fingerprint: Fingerprint(raw),
		Tree:        tree,
	}, nil
}

// Load returns the tree stored at location with keys in document order
func (l *Loader) Load(ctx context.Context, location string) (*domain.Table, error) {
	doc, err := l.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	return doc.Tree, nil
}

// LoadCorpus loads a result corpus and orders its scenarios by key
func (l *Loader) LoadCorpus(ctx context.Context, location string) (*domain.Table, error) {
	tree, err := l.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	return SortScenarios(tree), nil
}

// Save encodes tree in the format named by location's extension
func (l *Loader) Save(ctx context.Context, location string, tree *domain.Table) error {
	c, compressed, err := ForPath(location)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if compressed {
		sw := snappy.NewBufferedWriter(&buf)
		if err := c.Encode(sw, tree); err != nil {
			return err
		}
		if err := sw.Close(); err != nil {
			return fmt.Errorf("failed to compress %s: %w", location, err)
		}
	} else if err := c.Encode(&buf, tree); err != nil {
		return err
	}

	return l.sources.WriteAll(ctx, location, buf.Bytes())
}

var defaultLoader = NewLoader(nil)

// Load reads a result tree with the default loader
func Load(ctx context.Context, location string) (*domain.Table, error) {
	return defaultLoader.Load(ctx, location)
}

// LoadCorpus reads a result corpus with the default loader
func LoadCorpus(ctx context.Context, location string) (*domain.Table, error) {
	return defaultLoader.LoadCorpus(ctx, location)
}

// Save writes a result tree with the default loader
func Save(ctx context.Context, location string, tree *domain.Table) error {
	return defaultLoader.Save(ctx, location, tree)
}

// SortScenarios returns a table holding the top-level entries of corpus
// ordered by key. Values are shared, not copied.
func SortScenarios(corpus *domain.Table) *domain.Table {
	keys := corpus.Keys()
	slices.Sort(keys)

	out := domain.NewTable()
	for _, k := range keys {
		n, _ := corpus.Get(k)
		out.Set(k, n)
	}
	return out
}

// FilterByIndex keeps the scenarios at the given positions, in the order
// the indices are listed. No indices keeps the whole corpus.
func FilterByIndex(corpus *domain.Table, indices []int) (*domain.Table, error) {
	if len(indices) == 0 {
		return corpus, nil
	}

	keys := corpus.Keys()
	out := domain.NewTable()
	for _, i := range indices {
		if i < 0 || i >= len(keys) {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", domain.ErrScenarioIndex, i, len(keys))
		}
		n, _ := corpus.Get(keys[i])
		out.Set(keys[i], n)
	}
	return out, nil
}
