package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"mutostats/internal/codec"
	"mutostats/internal/domain"
	"mutostats/internal/merge"
)

// Corpus is a loaded set of scenarios with the files it came from
type Corpus struct {
	Tree    *domain.Table
	Sources []*codec.Document
	// Provenance maps merged leaf paths to the location that last wrote
	// them. It is nil when a single file was loaded.
	Provenance domain.SourceMap
}

// CorpusLoader reads result files and merges them into one corpus
type CorpusLoader struct {
	loader *codec.Loader
	events *EventBus
	log    logrus.FieldLogger
}

// NewCorpusLoader creates a corpus loader
func NewCorpusLoader(loader *codec.Loader, events *EventBus, log logrus.FieldLogger) *CorpusLoader {
	if loader == nil {
		loader = codec.NewLoader(nil)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CorpusLoader{
		loader: loader,
		events: events,
		log:    log.WithField("component", "corpus"),
	}
}

// Load reads every location. With more than one, the files are merged in
// order: the first keeps its scenario descriptions, later ones
// contribute results only. Scenarios are ordered by key.
func (c *CorpusLoader) Load(ctx context.Context, locations ...string) (*Corpus, error) {
	if len(locations) == 0 {
		return nil, errors.New("no result files given")
	}

	corpus := &Corpus{}
	for _, loc := range locations {
		doc, err := c.loader.Read(ctx, loc)
		if err != nil {
			return nil, err
		}
		c.log.WithFields(logrus.Fields{
			"location":    loc,
			"format":      doc.Format,
			"compressed":  doc.Compressed,
			"scenarios":   doc.Tree.Len(),
			"fingerprint": doc.Fingerprint[:12],
		}).Debug("loaded result file")
		c.events.Publish(Event{
			Type:    EventSourceLoaded,
			Payload: map[string]string{"location": loc, "fingerprint": doc.Fingerprint},
		})
		corpus.Sources = append(corpus.Sources, doc)
	}

	if len(corpus.Sources) == 1 {
		corpus.Tree = codec.SortScenarios(corpus.Sources[0].Tree)
		return corpus, nil
	}

	sources := make([]merge.Source, len(corpus.Sources))
	for i, doc := range corpus.Sources {
		sources[i] = merge.Source{Name: doc.Location, Tree: doc.Tree}
	}
	merged, provenance := merge.MergeCorpora(sources)
	corpus.Tree = codec.SortScenarios(merged)
	corpus.Provenance = provenance

	c.log.WithFields(logrus.Fields{
		"files":     len(corpus.Sources),
		"scenarios": corpus.Tree.Len(),
	}).Info("merged result files")
	c.events.Publish(Event{
		Type:    EventCorpusMerged,
		Payload: map[string]int{"files": len(corpus.Sources), "scenarios": corpus.Tree.Len()},
	})
	return corpus, nil
}
