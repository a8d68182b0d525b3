package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"mutostats/internal/codec"
	"mutostats/internal/domain"
	"mutostats/internal/repository"
)

// Persist records the files a corpus came from and saves series to
// store, replacing earlier series with the same keys
func Persist(ctx context.Context, store repository.SeriesStore, docs []*codec.Document, series []domain.ScenarioSeries, events *EventBus, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "store")

	now := time.Now().UTC()
	for _, doc := range docs {
		err := store.RecordSource(ctx, repository.Source{
			Location:    doc.Location,
			Format:      doc.Format,
			Fingerprint: doc.Fingerprint,
			LoadedAt:    now,
		})
		if err != nil {
			return err
		}
	}

	if err := store.SaveSeries(ctx, series); err != nil {
		return fmt.Errorf("failed to save %d series: %w", len(series), err)
	}

	log.WithFields(logrus.Fields{
		"sources": len(docs),
		"series":  len(series),
	}).Info("stored series")
	events.Publish(Event{Type: EventSeriesStored, Payload: len(series)})
	return nil
}

// ReplaceScenarios deletes every stored series of the scenarios that
// series belong to, so that a following Persist leaves only the new ones
func ReplaceScenarios(ctx context.Context, store repository.SeriesStore, series []domain.ScenarioSeries, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}

	seen := make(map[string]bool)
	for _, ss := range series {
		scenario := ss.Key.Scenario
		if seen[scenario] {
			continue
		}
		seen[scenario] = true
		if err := store.DeleteScenario(ctx, scenario); err != nil {
			return fmt.Errorf("failed to clear scenario %q: %w", scenario, err)
		}
	}
	log.WithFields(logrus.Fields{
		"component": "store",
		"scenarios": len(seen),
	}).Debug("cleared stored scenarios")
	return nil
}
