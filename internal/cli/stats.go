package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"mutostats/internal/codec"
	"mutostats/internal/config"
	"mutostats/internal/domain"
	"mutostats/internal/repository/sqlite"
	"mutostats/internal/service"
	"mutostats/internal/watcher"
)

// Commands understood by the analysis tool
const (
	CommandList    = "list"
	CommandExtract = "extract"
	CommandCompare = "compare"
	CommandExport  = "export"
	CommandImport  = "import"
)

// StatsInvocation describes one run of the analysis tool. Zero values
// leave the configured setting in place.
type StatsInvocation struct {
	Command    string
	Inputs     []string
	ConfigPath string
	LogLevel   string

	Statistic   string
	Confidence  float64
	StripPrefix string
	Aligned     bool
	SortByX     bool
	Format      string
	Output      string
	StorePath   string
	Watch       bool

	Group          string
	TrafficClasses []int
	BySize         bool
	Scenarios      []int

	// compare
	First, Second int
	Against       []string
	Relation      string

	// export
	Scenario string

	// import, and extract into the store
	Replace bool
}

// ParseStats parses "command [flags] input..."
func ParseStats(args []string) (StatsInvocation, error) {
	if len(args) == 0 {
		return StatsInvocation{}, invalidInvocationf("usage: mutostats list|extract|compare|export|import [flags] [input...]")
	}

	inv := StatsInvocation{Command: args[0]}
	fs := flag.NewFlagSet("mutostats "+inv.Command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&inv.ConfigPath, "config", "", "Config file path")
	fs.StringVar(&inv.LogLevel, "log-level", "", "Log level")
	fs.StringVar(&inv.StripPrefix, "strip-prefix", "", "Remove this prefix from scenario keys")

	var tcs, scenarios, against string
	switch inv.Command {
	case CommandList:
		fs.StringVar(&inv.Group, "group", "", "Group named in scenario titles")
	case CommandExtract, CommandCompare:
		fs.StringVar(&inv.Statistic, "statistic", "", "Statistic to extract")
		fs.Float64Var(&inv.Confidence, "confidence", 0, "Confidence level of interval half-widths")
		fs.BoolVar(&inv.SortByX, "sort-x", false, "Order points by intensity")
		fs.StringVar(&inv.Format, "format", "", "Output format: json|yaml|sqlite")
		fs.StringVar(&inv.Output, "o", "", "Output file, stdout when empty")
		fs.StringVar(&inv.StorePath, "db", "", "Series store path for -format sqlite")
		fs.StringVar(&inv.Group, "group", "", "Group or layer identifier")
		fs.StringVar(&tcs, "tc", "", "Comma separated traffic class ids")
		fs.BoolVar(&inv.Watch, "watch", false, "Run again whenever a result file changes")
		if inv.Command == CommandExtract {
			fs.BoolVar(&inv.Aligned, "aligned", false, "Keep points of unserved traffic classes as [0.0]")
			fs.StringVar(&scenarios, "scenarios", "", "Comma separated scenario indices")
			fs.BoolVar(&inv.BySize, "by-size", false, "Sum -group over traffic classes of equal size")
			fs.BoolVar(&inv.Replace, "replace", false, "Drop stored series of extracted scenarios first")
		} else {
			fs.IntVar(&inv.First, "a", 0, "Index of the first scenario")
			fs.IntVar(&inv.Second, "b", 1, "Index of the second scenario")
			fs.StringVar(&against, "against", "", "Comma separated result files holding the second scenario")
			fs.StringVar(&inv.Relation, "relation", "", "ratio|difference")
		}
	case CommandExport:
		fs.StringVar(&inv.Format, "format", "", "Output format: json|yaml")
		fs.StringVar(&inv.Output, "o", "", "Output file, stdout when empty")
		fs.StringVar(&inv.StorePath, "db", "", "Series store path")
		fs.StringVar(&inv.Scenario, "scenario", "", "Export only this scenario")
	case CommandImport:
		fs.StringVar(&inv.StorePath, "db", "", "Series store path")
		fs.BoolVar(&inv.Replace, "replace", false, "Drop stored series of imported scenarios first")
	default:
		return StatsInvocation{}, invalidInvocationf("unknown command %q", inv.Command)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return StatsInvocation{}, invalidInvocationf("%v", err)
	}
	inv.Inputs = fs.Args()

	var err error
	if inv.TrafficClasses, err = parseInts("tc", tcs); err != nil {
		return StatsInvocation{}, err
	}
	if inv.Scenarios, err = parseInts("scenarios", scenarios); err != nil {
		return StatsInvocation{}, err
	}
	for _, loc := range strings.Split(against, ",") {
		if loc = strings.TrimSpace(loc); loc != "" {
			inv.Against = append(inv.Against, loc)
		}
	}

	switch {
	case inv.Command == CommandExport && len(inv.Inputs) > 0:
		return StatsInvocation{}, invalidInvocationf("export reads the series store and takes no inputs")
	case inv.Command == CommandImport && len(inv.Inputs) == 0:
		return StatsInvocation{}, invalidInvocationf("import needs at least one series document")
	case inv.Command != CommandExport && len(inv.Inputs) == 0:
		return StatsInvocation{}, invalidInvocationf("%s needs at least one result file", inv.Command)
	case inv.Command == CommandCompare && inv.Group == "":
		return StatsInvocation{}, invalidInvocationf("-group is required")
	case inv.BySize && inv.Group == "":
		return StatsInvocation{}, invalidInvocationf("-group is required with -by-size")
	case inv.BySize && len(inv.TrafficClasses) > 0:
		return StatsInvocation{}, invalidInvocationf("-by-size sums every traffic class and takes no -tc")
	case inv.Command == CommandExtract && inv.Group != "" && !inv.BySize && len(inv.TrafficClasses) == 0:
		return StatsInvocation{}, invalidInvocationf("-tc is required with -group")
	case inv.Confidence < 0 || inv.Confidence >= 1:
		return StatsInvocation{}, invalidInvocationf("-confidence must be between 0 and 1")
	}

	switch inv.Format {
	case "", "json", "yaml", "yml", "sqlite", "db":
	default:
		return StatsInvocation{}, invalidInvocationf("unknown output format %q", inv.Format)
	}
	if inv.Relation != "" {
		if _, err := service.RelationFor(inv.Relation); err != nil {
			return StatsInvocation{}, invalidInvocationf("%v", err)
		}
	}
	return inv, nil
}

// apply overrides configured settings with the ones given on the
// command line
func (inv StatsInvocation) apply(cfg *config.Config) error {
	if inv.LogLevel != "" {
		cfg.LogLevel = inv.LogLevel
	}
	if inv.Statistic != "" {
		cfg.Statistic = inv.Statistic
	}
	if inv.Confidence != 0 {
		cfg.Confidence = inv.Confidence
	}
	if inv.StripPrefix != "" {
		cfg.StripPrefix = inv.StripPrefix
	}
	if inv.Aligned {
		cfg.Aligned = true
	}
	if inv.SortByX {
		cfg.Output.SortByX = true
	}
	if inv.Format != "" {
		cfg.Output.Format = config.ParseOutputFormat(inv.Format)
	}
	if inv.Output != "" {
		cfg.Output.Path = inv.Output
	}
	if inv.StorePath != "" {
		cfg.Store.Path = inv.StorePath
	}
	if inv.Relation != "" {
		cfg.Comparison = config.Comparison(inv.Relation)
	}
	if err := cfg.Validate(); err != nil {
		return configErrorf("%v", err)
	}
	return nil
}

// statsRun carries what every command needs once configuration is done
type statsRun struct {
	inv    StatsInvocation
	cfg    *config.Config
	log    *logrus.Logger
	events *service.EventBus
	loader *service.CorpusLoader
	stdout io.Writer
}

// RunStats executes an analysis command, writing results to stdout and
// logs to stderr
func RunStats(ctx context.Context, inv StatsInvocation, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(inv.ConfigPath)
	if err != nil {
		return err
	}
	if err := inv.apply(cfg); err != nil {
		return err
	}
	log, err := NewLogger(stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	log.WithField("component", "cli").Debug(cfg.Summary())

	events := service.NewEventBus()
	stop := watchEvents(events, log)
	defer stop()

	r := &statsRun{
		inv:    inv,
		cfg:    cfg,
		log:    log,
		events: events,
		loader: service.NewCorpusLoader(codec.NewLoader(sourcesFor(cfg)), events, log),
		stdout: stdout,
	}
	if err := r.run(ctx); err != nil {
		return err
	}
	if !inv.Watch {
		return nil
	}

	w := watcher.New(append(append([]string(nil), inv.Inputs...), inv.Against...), log)
	err = w.Watch(ctx, func([]string) {
		if err := r.run(ctx); err != nil {
			log.WithError(err).Error("rerun failed")
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// run executes the command once. Each run gets its own deadline for
// reading remote locations.
func (r *statsRun) run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.S3Timeout())
	defer cancel()

	switch r.inv.Command {
	case CommandList:
		return r.list(ctx)
	case CommandExtract:
		return r.extract(ctx)
	case CommandCompare:
		return r.compare(ctx)
	case CommandExport:
		return r.export(ctx)
	case CommandImport:
		return r.importSeries(ctx)
	}
	return invalidInvocationf("unknown command %q", r.inv.Command)
}

func (r *statsRun) session(ctx context.Context, locations []string) (*service.Session, *service.Corpus, error) {
	corpus, err := r.loader.Load(ctx, locations...)
	if err != nil {
		return nil, nil, err
	}
	s := service.NewSession(corpus.Tree, r.events, r.log, service.Options{
		Confidence: r.cfg.Confidence,
		Aligned:    r.cfg.Aligned,
		SortByX:    r.cfg.Output.SortByX,
	})
	s.RemovePrefix(r.cfg.StripPrefix)
	return s, corpus, nil
}

func (r *statsRun) list(ctx context.Context) error {
	s, _, err := r.session(ctx, r.inv.Inputs)
	if err != nil {
		return err
	}
	for i, key := range s.ScenarioKeys() {
		var title, classes string
		if desc, err := s.Describe(i); err != nil {
			r.log.WithField("scenario", key).WithError(err).Warn("scenario has no description")
		} else {
			title, _ = s.Title(i, r.inv.Group)
			labels := make([]string, 0, len(desc.TrafficClasses))
			for _, id := range desc.TrafficClassIDs() {
				labels = append(labels, desc.Label(id))
			}
			classes = strings.Join(labels, ",")
		}
		fmt.Fprintf(r.stdout, "%d\t%s\t%s\t%s\t%s\n", i, key, service.Variant(key), title, classes)
	}
	return nil
}

func (r *statsRun) extract(ctx context.Context) error {
	s, corpus, err := r.session(ctx, r.inv.Inputs)
	if err != nil {
		return err
	}
	if err := s.SelectScenarios(r.inv.Scenarios); err != nil {
		return invalidInvocationf("%v", err)
	}

	var series []domain.ScenarioSeries
	switch {
	case r.inv.BySize:
		for i := range s.ScenarioKeys() {
			sel := service.Selection{Index: i, Statistic: r.cfg.Statistic}
			bySize, err := s.PrepareBySize(sel, domain.ParseEntity(r.inv.Group))
			if err != nil {
				return err
			}
			series = append(series, bySize...)
		}
	case r.inv.Group == "":
		series, err = s.PrepareAll(r.cfg.Statistic, r.inv.TrafficClasses)
	default:
		selections := make([]service.Selection, len(s.ScenarioKeys()))
		for i := range selections {
			selections[i] = service.Selection{Index: i, Statistic: r.cfg.Statistic}
		}
		series, err = s.Prepare(selections, domain.ParseEntity(r.inv.Group), r.inv.TrafficClasses)
	}
	if err != nil {
		return err
	}
	return r.emit(ctx, series, corpus.Sources)
}

func (r *statsRun) compare(ctx context.Context) error {
	s, corpus, err := r.session(ctx, r.inv.Inputs)
	if err != nil {
		return err
	}
	other, docs := s, corpus.Sources
	if len(r.inv.Against) > 0 {
		var against *service.Corpus
		if other, against, err = r.session(ctx, r.inv.Against); err != nil {
			return err
		}
		docs = append(docs, against.Sources...)
	}

	rel, err := service.RelationFor(string(r.cfg.Comparison))
	if err != nil {
		return invalidInvocationf("%v", err)
	}
	cmp, err := s.Compare(other, r.inv.First, r.inv.Second, domain.ParseEntity(r.inv.Group), r.cfg.Statistic, rel)
	if err != nil {
		return err
	}
	return r.emit(ctx, cmp.Series, docs)
}

func (r *statsRun) export(ctx context.Context) error {
	if !r.cfg.Output.Format.IsDocument() {
		return invalidInvocationf("export writes json or yaml, not %s", r.cfg.Output.Format)
	}
	store, err := r.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	series, err := store.ListSeries(ctx, r.inv.Scenario)
	if err != nil {
		return err
	}
	return r.write(series)
}

// importSeries saves series documents written by extract or export
func (r *statsRun) importSeries(ctx context.Context) error {
	var series []domain.ScenarioSeries
	for _, path := range r.inv.Inputs {
		confidence, read, err := readSeriesFile(path)
		if err != nil {
			return err
		}
		if confidence != r.cfg.Confidence {
			r.log.WithFields(logrus.Fields{
				"path":       path,
				"confidence": confidence,
			}).Warn("series document uses a different confidence level")
		}
		series = append(series, read...)
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if r.inv.Replace {
		if err := service.ReplaceScenarios(ctx, store, series, r.log); err != nil {
			return err
		}
	}
	return service.Persist(ctx, store, nil, series, r.events, r.log)
}

func readSeriesFile(path string) (float64, []domain.ScenarioSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	confidence, series, err := codec.ReadSeries(f)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", path, err)
	}
	return confidence, series, nil
}

func (r *statsRun) openStore() (*sqlite.Repository, error) {
	store, err := sqlite.Open(r.cfg.Store.Path, sqlite.Options{
		JournalMode:   r.cfg.Store.JournalMode,
		BusyTimeoutMS: r.cfg.Store.BusyTimeoutMS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open series store: %w", err)
	}
	return store, nil
}

// emit sends series to the configured output
func (r *statsRun) emit(ctx context.Context, series []domain.ScenarioSeries, docs []*codec.Document) error {
	if r.cfg.Output.Format.IsDocument() {
		return r.write(series)
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if r.inv.Replace {
		if err := service.ReplaceScenarios(ctx, store, series, r.log); err != nil {
			return err
		}
	}
	return service.Persist(ctx, store, docs, series, r.events, r.log)
}

func (r *statsRun) write(series []domain.ScenarioSeries) error {
	exporter, err := codec.SeriesExporterFor(string(r.cfg.Output.Format), r.cfg.Confidence)
	if err != nil {
		return err
	}

	w := r.stdout
	if r.cfg.Output.Path != "" {
		f, err := os.Create(r.cfg.Output.Path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", r.cfg.Output.Path, err)
		}
		defer f.Close()
		w = f
	}
	if err := exporter.Export(series, w); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{
		"series": len(series),
		"format": exporter.Format(),
	}).Info("exported series")
	return nil
}
