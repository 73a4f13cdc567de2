package config

import (
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/chrissnell/mineralspec/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations returns the schema of the SQLite configuration database
func Migrations() *migrate.Schema {
	return migrate.NewSchema(migrationFS, "migrations", migrate.DefaultHistoryTable)
}

// Tables names the tables a current configuration database must have
var Tables = []string{"settings", "minerals"}

// SQLiteProvider implements ConfigProvider for SQLite database configuration.
// Scalar settings live in a key/value table; the mineral list keeps its order
// in a separate table.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens dbPath and brings its schema up to date
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	migrator := migrate.NewMigrator(db, Migrations())
	if _, err := migrator.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// setting maps one settings row onto a ConfigData field
type setting struct {
	key string
	get func(c *ConfigData) string
	set func(c *ConfigData, v string) error
}

func stringSetting(key string, field func(c *ConfigData) *string) setting {
	return setting{
		key: key,
		get: func(c *ConfigData) string { return *field(c) },
		set: func(c *ConfigData, v string) error { *field(c) = v; return nil },
	}
}

func intSetting(key string, field func(c *ConfigData) *int) setting {
	return setting{
		key: key,
		get: func(c *ConfigData) string { return strconv.Itoa(*field(c)) },
		set: func(c *ConfigData, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*field(c) = n
			return nil
		},
	}
}

func floatSetting(key string, field func(c *ConfigData) *float64) setting {
	return setting{
		key: key,
		get: func(c *ConfigData) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *ConfigData, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			*field(c) = f
			return nil
		},
	}
}

func boolSetting(key string, field func(c *ConfigData) *bool) setting {
	return setting{
		key: key,
		get: func(c *ConfigData) string { return strconv.FormatBool(*field(c)) },
		set: func(c *ConfigData, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*field(c) = b
			return nil
		},
	}
}

var settings = []setting{
	stringSetting("library.dir", func(c *ConfigData) *string { return &c.Library.Dir }),
	stringSetting("library.wavelength_file", func(c *ConfigData) *string { return &c.Library.WavelengthFile }),
	stringSetting("library.extension", func(c *ConfigData) *string { return &c.Library.Extension }),
	{
		key: "library.tags",
		get: func(c *ConfigData) string { return strings.Join(c.Library.Tags, ",") },
		set: func(c *ConfigData, v string) error {
			c.Library.Tags = []string{}
			for _, tag := range strings.Split(v, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					c.Library.Tags = append(c.Library.Tags, tag)
				}
			}
			return nil
		},
	},
	stringSetting("output.dir", func(c *ConfigData) *string { return &c.Output.Dir }),
	intSetting("derivative.window_length", func(c *ConfigData) *int { return &c.Derivative.WindowLength }),
	intSetting("derivative.polyorder", func(c *ConfigData) *int { return &c.Derivative.PolyOrder }),
	intSetting("plot.dpi", func(c *ConfigData) *int { return &c.Plot.DPI }),
	floatSetting("plot.width_in", func(c *ConfigData) *float64 { return &c.Plot.WidthIn }),
	floatSetting("plot.height_in", func(c *ConfigData) *float64 { return &c.Plot.HeightIn }),
	boolSetting("swir.enabled", func(c *ConfigData) *bool { return &c.SWIR.Enabled }),
	floatSetting("swir.min", func(c *ConfigData) *float64 { return &c.SWIR.Min }),
	floatSetting("swir.max", func(c *ConfigData) *float64 { return &c.SWIR.Max }),
	boolSetting("export.csv", func(c *ConfigData) *bool { return &c.Export.CSV }),
	stringSetting("geochem.workbook", func(c *ConfigData) *string { return &c.Geochem.Workbook }),
	stringSetting("classifier.endpoint", func(c *ConfigData) *string { return &c.Classifier.Endpoint }),
	stringSetting("classifier.model", func(c *ConfigData) *string { return &c.Classifier.Model }),
	stringSetting("classifier.token_env", func(c *ConfigData) *string { return &c.Classifier.TokenEnv }),
	intSetting("classifier.timeout_secs", func(c *ConfigData) *int { return &c.Classifier.TimeoutSecs }),
	stringSetting("logging.file", func(c *ConfigData) *string { return &c.Logging.File }),
	intSetting("logging.max_size_mb", func(c *ConfigData) *int { return &c.Logging.MaxSizeMB }),
	intSetting("logging.max_backups", func(c *ConfigData) *int { return &c.Logging.MaxBackups }),
}

// LoadConfig loads the complete configuration from the SQLite database.
// Settings missing from the database keep their default values.
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := Defaults()

	values, err := s.loadSettings()
	if err != nil {
		return nil, err
	}
	for _, st := range settings {
		v, ok := values[st.key]
		if !ok {
			continue
		}
		if err := st.set(config, v); err != nil {
			return nil, fmt.Errorf("invalid value %q for setting %s: %w", v, st.key, err)
		}
	}

	minerals, err := s.GetMinerals()
	if err != nil {
		return nil, err
	}
	if len(minerals) > 0 {
		config.Library.Minerals = minerals
	}

	applyDefaults(config)
	return config, nil
}

func (s *SQLiteProvider) loadSettings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan settings row: %w", err)
		}
		values[key] = value
	}
	return values, rows.Err()
}

// GetMinerals returns the configured mineral names in processing order
func (s *SQLiteProvider) GetMinerals() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM minerals ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query minerals: %w", err)
	}
	defer rows.Close()

	var minerals []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan mineral row: %w", err)
		}
		minerals = append(minerals, name)
	}
	return minerals, rows.Err()
}

// SaveConfig replaces the stored configuration with config
func (s *SQLiteProvider) SaveConfig(config *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM settings`); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	for _, st := range settings {
		if _, err := tx.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`, st.key, st.get(config)); err != nil {
			return fmt.Errorf("failed to insert setting %s: %w", st.key, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM minerals`); err != nil {
		return fmt.Errorf("failed to clear minerals: %w", err)
	}
	for i, name := range config.Library.Minerals {
		if _, err := tx.Exec(`INSERT INTO minerals (position, name) VALUES (?, ?)`, i, name); err != nil {
			return fmt.Errorf("failed to insert mineral %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit configuration: %w", err)
	}
	return nil
}

// IsReadOnly returns false; the SQLite backend supports SaveConfig
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
