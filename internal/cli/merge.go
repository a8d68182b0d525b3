package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"mutostats/internal/codec"
	"mutostats/internal/service"
)

// MergeInvocation describes one run of the merge command
type MergeInvocation struct {
	Inputs     []string
	Output     string
	Manifest   string // provenance YAML, empty to skip
	ConfigPath string
	LogLevel   string
}

// ParseMerge parses "[flags] input input... output"
func ParseMerge(args []string) (MergeInvocation, error) {
	fs := flag.NewFlagSet("mutomerge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var inv MergeInvocation
	fs.StringVar(&inv.Manifest, "manifest", "", "Write the inputs and the source of every merged value to this YAML file")
	fs.StringVar(&inv.ConfigPath, "config", "", "Config file path")
	fs.StringVar(&inv.LogLevel, "log-level", "info", "Log level")

	if err := fs.Parse(args); err != nil {
		return MergeInvocation{}, invalidInvocationf("%v", err)
	}
	if fs.NArg() < 3 {
		return MergeInvocation{}, invalidInvocationf("usage: mutomerge [flags] input input... output")
	}

	positional := fs.Args()
	inv.Inputs = positional[:len(positional)-1]
	inv.Output = positional[len(positional)-1]
	if _, _, err := codec.ForPath(inv.Output); err != nil {
		return MergeInvocation{}, invalidInvocationf("output %s: %v", inv.Output, err)
	}
	return inv, nil
}

type manifestInput struct {
	Location    string `yaml:"location"`
	Format      string `yaml:"format"`
	Fingerprint string `yaml:"fingerprint"`
}

type manifestEntry struct {
	Path   []string `yaml:"path,flow"`
	Source string   `yaml:"source"`
}

type manifest struct {
	Output     string          `yaml:"output"`
	Inputs     []manifestInput `yaml:"inputs"`
	Provenance []manifestEntry `yaml:"provenance"`
}

// RunMerge merges the inputs into one result file. The first input keeps
// its scenario descriptions; the output is written with sorted keys.
func RunMerge(ctx context.Context, inv MergeInvocation, stderr io.Writer) error {
	log, err := NewLogger(stderr, inv.LogLevel)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(inv.ConfigPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.S3Timeout())
	defer cancel()

	sources := sourcesFor(cfg)
	loader := codec.NewLoader(sources)
	events := service.NewEventBus()
	stop := watchEvents(events, log)
	defer stop()

	corpus, err := service.NewCorpusLoader(loader, events, log).Load(ctx, inv.Inputs...)
	if err != nil {
		return err
	}
	if err := loader.Save(ctx, inv.Output, corpus.Tree); err != nil {
		return fmt.Errorf("failed to write %s: %w", inv.Output, err)
	}
	log.WithFields(logrus.Fields{
		"output":    inv.Output,
		"scenarios": corpus.Tree.Len(),
	}).Info("wrote merged results")

	if inv.Manifest == "" {
		return nil
	}

	m := manifest{Output: inv.Output}
	for _, doc := range corpus.Sources {
		m.Inputs = append(m.Inputs, manifestInput{Location: doc.Location, Format: doc.Format, Fingerprint: doc.Fingerprint})
	}
	for _, p := range corpus.Provenance.Paths() {
		src, _ := corpus.Provenance.Source(p)
		m.Provenance = append(m.Provenance, manifestEntry{Path: p, Source: src})
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return sources.WriteAll(ctx, inv.Manifest, data)
}
