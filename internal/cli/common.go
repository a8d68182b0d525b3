package cli

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"mutostats/internal/codec"
	"mutostats/internal/config"
	"mutostats/internal/service"
)

// loadConfig reads the config file at path, or the first one found in
// the usual locations when path is empty
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, _, err = config.LoadFromPath(path)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return nil, configErrorf("%v", err)
	}
	return cfg, nil
}

func sourcesFor(cfg *config.Config) *codec.Sources {
	return codec.NewSources(codec.S3Config{
		Region:       cfg.S3.Region,
		Endpoint:     cfg.S3.Endpoint,
		UsePathStyle: cfg.S3.UsePathStyle,
	})
}

// watchEvents logs every event published on bus at debug level until
// the returned stop function is called
func watchEvents(bus *service.EventBus, log logrus.FieldLogger) (stop func()) {
	ch := make(chan service.Event, 256)
	bus.Subscribe(ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			log.WithField("event", string(ev.Type)).WithField("payload", ev.Payload).Debug("event")
		}
	}()
	return func() {
		close(ch)
		<-done
	}
}

// parseInts parses a comma separated list such as "1,3,4"
func parseInts(flagName, raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, invalidInvocationf("invalid -%s entry %q", flagName, part)
		}
		out = append(out, n)
	}
	return out, nil
}
