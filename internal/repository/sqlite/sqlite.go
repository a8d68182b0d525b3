package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"mutostats/internal/domain"
	"mutostats/internal/repository"

	_ "modernc.org/sqlite"
)

// Options tunes the SQLite connection
type Options struct {
	JournalMode   string // WAL, DELETE, TRUNCATE, MEMORY or OFF
	BusyTimeoutMS int
}

var journalModes = map[string]bool{"WAL": true, "DELETE": true, "TRUNCATE": true, "MEMORY": true, "OFF": true}

// Repository implements repository.SeriesStore using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.SeriesStore = (*Repository)(nil)

// New creates a new SQLite series store
func New(dbPath string) (*Repository, error) {
	return Open(dbPath, Options{})
}

// Open creates a SQLite series store with explicit options
func Open(dbPath string, opts Options) (*Repository, error) {
	if opts.JournalMode == "" {
		opts.JournalMode = "WAL"
	}
	opts.JournalMode = strings.ToUpper(opts.JournalMode)
	if !journalModes[opts.JournalMode] {
		return nil, fmt.Errorf("unsupported journal mode %q", opts.JournalMode)
	}
	if opts.BusyTimeoutMS <= 0 {
		opts.BusyTimeoutMS = 5000
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps pragmas and in-memory databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = " + opts.JournalMode,
		fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeoutMS),
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		location TEXT PRIMARY KEY,
		format TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		loaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS series (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scenario TEXT NOT NULL,
		scenario_name TEXT NOT NULL DEFAULT '',
		group_id TEXT NOT NULL,
		traffic_class INTEGER NOT NULL,
		statistic TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (scenario, group_id, traffic_class, statistic)
	);

	CREATE TABLE IF NOT EXISTS points (
		series_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		x REAL NOT NULL,
		mean REAL,
		half_width REAL,
		trials JSON NOT NULL,
		PRIMARY KEY (series_id, position),
		FOREIGN KEY (series_id) REFERENCES series(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_series_scenario ON series(scenario);
	`

	_, err := r.db.Exec(schema)
	return err
}

// RecordSource stores or refreshes a source file entry
func (r *Repository) RecordSource(ctx context.Context, src repository.Source) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (location, format, fingerprint, loaded_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(location) DO UPDATE SET
			format = excluded.format,
			fingerprint = excluded.fingerprint,
			loaded_at = CURRENT_TIMESTAMP
	`, src.Location, src.Format, src.Fingerprint)
	if err != nil {
		return fmt.Errorf("failed to record source %s: %w", src.Location, err)
	}
	return nil
}

// ListSources returns all recorded sources ordered by location
func (r *Repository) ListSources(ctx context.Context) ([]repository.Source, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT location, format, fingerprint, loaded_at FROM sources ORDER BY location
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []repository.Source
	for rows.Next() {
		var (
			src      repository.Source
			loadedAt sql.NullString
		)
		if err := rows.Scan(&src.Location, &src.Format, &src.Fingerprint, &loadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		src.LoadedAt = parseTimestamp(loadedAt)
		sources = append(sources, src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sources: %w", err)
	}
	return sources, nil
}

// SaveSeries stores every series in one transaction, replacing the
// points of series whose key is already present
func (r *Repository) SaveSeries(ctx context.Context, series []domain.ScenarioSeries) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pointStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (series_id, position, x, mean, half_width, trials)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare point statement: %w", err)
	}
	defer pointStmt.Close()

	for _, ss := range series {
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO series (scenario, scenario_name, group_id, traffic_class, statistic, name)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(scenario, group_id, traffic_class, statistic) DO UPDATE SET
				scenario_name = excluded.scenario_name,
				name = excluded.name,
				updated_at = CURRENT_TIMESTAMP
			RETURNING id
		`, ss.Key.Scenario, ss.ScenarioName, ss.Key.Group, ss.Key.TrafficClass, ss.Key.Statistic, ss.Series.Name).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to upsert series %s: %w", ss.Key, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE series_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear points of %s: %w", ss.Key, err)
		}

		args, err := pointInsertArgs(id, &ss.Series)
		if err != nil {
			return fmt.Errorf("failed to encode points of %s: %w", ss.Key, err)
		}
		for _, a := range args {
			if _, err := pointStmt.ExecContext(ctx, a...); err != nil {
				return fmt.Errorf("failed to insert point of %s: %w", ss.Key, err)
			}
		}
	}

	return tx.Commit()
}

// GetSeries returns the series stored under key
func (r *Repository) GetSeries(ctx context.Context, key domain.SeriesKey) (*domain.ScenarioSeries, error) {
	var row seriesRow
	err := r.db.QueryRowContext(ctx, `
		SELECT `+seriesColumns+` FROM series
		WHERE scenario = ? AND group_id = ? AND traffic_class = ? AND statistic = ?
	`, key.Scenario, key.Group, key.TrafficClass, key.Statistic).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}

	ss := row.toDomain()
	if err := r.loadPoints(ctx, row.ID, &ss.Series); err != nil {
		return nil, err
	}
	return &ss, nil
}

// ListSeries returns the series of one scenario, or of all scenarios when
// scenario is empty, in the order they were first saved
func (r *Repository) ListSeries(ctx context.Context, scenario string) ([]domain.ScenarioSeries, error) {
	query := `SELECT ` + seriesColumns + ` FROM series`
	var args []any
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}

	var found []seriesRow
	for rows.Next() {
		var row seriesRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		found = append(found, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating series: %w", err)
	}
	rows.Close()

	// points are loaded after the series cursor is closed; the store runs
	// on a single connection
	out := make([]domain.ScenarioSeries, 0, len(found))
	for _, row := range found {
		ss := row.toDomain()
		if err := r.loadPoints(ctx, row.ID, &ss.Series); err != nil {
			return nil, err
		}
		out = append(out, ss)
	}
	return out, nil
}

func (r *Repository) loadPoints(ctx context.Context, seriesID int64, s *domain.Series) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT position, x, mean, half_width, trials FROM points
		WHERE series_id = ? ORDER BY position
	`, seriesID)
	if err != nil {
		return fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	var points []pointRow
	for rows.Next() {
		var p pointRow
		if err := rows.Scan(p.scanArgs()...); err != nil {
			return fmt.Errorf("failed to scan point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating points: %w", err)
	}

	return fillSeries(s, points)
}

// DeleteScenario removes every series of scenario together with its points
func (r *Repository) DeleteScenario(ctx context.Context, scenario string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM series WHERE scenario = ?`, scenario)
	if err != nil {
		return fmt.Errorf("failed to delete scenario %s: %w", scenario, err)
	}
	return nil
}

// Stats counts stored records
func (r *Repository) Stats(ctx context.Context) (repository.Stats, error) {
	var stats repository.Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sources),
			(SELECT COUNT(*) FROM series),
			(SELECT COUNT(*) FROM points)
	`).Scan(&stats.SourceCount, &stats.SeriesCount, &stats.PointCount)
	if err != nil {
		return stats, fmt.Errorf("failed to count records: %w", err)
	}
	return stats, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
