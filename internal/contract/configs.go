package contract

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/crtscope/crtscope/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit       = 25
	MaxResultLimit           = 1000
	DefaultPrecision         = 1
	DefaultWindow            = "7d"
	DefaultEvidencePerSource = 3
	DefaultCacheTTL          = 5 * time.Minute
	DefaultEmbedTimeout      = 10 * time.Second
	DefaultGraphTimeout      = 15 * time.Second
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// WeightsRawInput holds custom per-source severity weights from the YAML
// config file. Use float64 pointers so absent fields fall back to defaults.
type WeightsRawInput struct {
	Git     *float64 `mapstructure:"git"`
	Slack   *float64 `mapstructure:"slack"`
	Support *float64 `mapstructure:"support"`
	Doc     *float64 `mapstructure:"doc"`
}

// HalfLivesRawInput holds custom per-source decay half-lives in hours.
type HalfLivesRawInput struct {
	Git     *float64 `mapstructure:"git"`
	Slack   *float64 `mapstructure:"slack"`
	Support *float64 `mapstructure:"support"`
	Doc     *float64 `mapstructure:"doc"`
}

// ThresholdsRawInput holds incident promotion thresholds from the YAML
// config file.
type ThresholdsRawInput struct {
	Incident        *float64 `mapstructure:"incident"`
	Dissatisfaction *float64 `mapstructure:"dissatisfaction"`
	DriftMatch      *float64 `mapstructure:"drift-match"`
}

// Config holds the runtime configuration for the engine.
// This struct remains the "final, validated" config.
type Config struct {
	ComponentID string
	Window      time.Duration
	ResultLimit int
	Workers     int
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	Explain     bool
	UseColors   bool

	GraphBackend   schema.DatabaseBackend
	GraphDBConnect string // Please use env var as this is plaintext
	CursorDir      string

	SourceWeights map[schema.Source]float64
	HalfLifeHours map[schema.Source]float64

	IncidentThreshold        float64
	DissatisfactionThreshold float64
	DriftMatchThreshold      float64
	ImpactMaxDepth           int
	EvidencePerSource        int

	// Query API / cache
	APIAddr   string
	RedisAddr string
	CacheTTL  time.Duration

	// Scheduler
	CronSpec string

	// Embedding service (optional; local embedding is the fallback)
	EmbedServiceURL string
	EmbedTimeout    time.Duration
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config
// file). Viper unmarshals into this struct.
type ConfigRawInput struct {
	Component      string `mapstructure:"component"`
	Window         string `mapstructure:"window"`
	Top            int    `mapstructure:"top"`
	Workers        int    `mapstructure:"workers"`
	Precision      int    `mapstructure:"precision"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Explain        bool   `mapstructure:"explain"`
	Color          string `mapstructure:"color"`
	GraphBackend   string `mapstructure:"graph-backend"`
	GraphDBConnect string `mapstructure:"graph-db-connect"`
	CursorDir      string `mapstructure:"cursor-dir"`
	MaxDepth       int    `mapstructure:"max-depth"`
	Evidence       int    `mapstructure:"evidence"`
	APIAddr        string `mapstructure:"api-addr"`
	RedisAddr      string `mapstructure:"redis-addr"`
	CacheTTL       string `mapstructure:"cache-ttl"`
	CronSpec       string `mapstructure:"cron"`
	EmbedURL       string `mapstructure:"embed-url"`
	EmbedTimeout   string `mapstructure:"embed-timeout"`

	// --- Custom weights from config file ---
	Weights WeightsRawInput `mapstructure:"weights"`

	// --- Custom half-lives from config file ---
	HalfLives HalfLivesRawInput `mapstructure:"half-lives"`

	// --- Incident thresholds from config file ---
	Thresholds ThresholdsRawInput `mapstructure:"thresholds"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.SourceWeights != nil {
		clone.SourceWeights = make(map[schema.Source]float64, len(c.SourceWeights))
		maps.Copy(clone.SourceWeights, c.SourceWeights)
	}
	if c.HalfLifeHours != nil {
		clone.HalfLifeHours = make(map[schema.Source]float64, len(c.HalfLifeHours))
		maps.Copy(clone.HalfLifeHours, c.HalfLifeHours)
	}
	return &clone
}

// WindowHours returns the configured window in fractional hours.
func (c *Config) WindowHours() float64 {
	return c.Window.Hours()
}

// ProcessAndValidate performs all complex parsing and validation on the raw
// inputs and updates the final Config struct. Threshold misconfiguration is
// returned as a fatal error here, at startup, never discovered at runtime.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processWindow(cfg, input); err != nil {
		return err
	}
	if err := processWeights(cfg, input); err != nil {
		return err
	}
	if err := processHalfLives(cfg, input); err != nil {
		return err
	}
	if err := processThresholds(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return processServiceInputs(cfg, input)
}

// validateSimpleInputs handles the scalar flags.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.ComponentID = strings.TrimSpace(input.Component)
	if cfg.ComponentID != "" {
		cfg.ComponentID = schema.ComponentID(cfg.ComponentID)
	}

	if input.Top < 0 {
		return fmt.Errorf("--top must be positive, got %d", input.Top)
	}
	cfg.ResultLimit = input.Top
	if cfg.ResultLimit == 0 {
		cfg.ResultLimit = DefaultResultLimit
	}
	if cfg.ResultLimit > MaxResultLimit {
		return fmt.Errorf("--top cannot exceed %d", MaxResultLimit)
	}

	cfg.Workers = input.Workers
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	cfg.Precision = input.Precision
	if cfg.Precision < 1 {
		cfg.Precision = 1
	}
	if cfg.Precision > 2 {
		cfg.Precision = 2
	}

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output mode '%s'. must be text, json, csv, parquet", input.Output)
	}
	cfg.OutputFile = input.OutputFile
	cfg.Explain = input.Explain

	if input.Color != "" {
		useColors, err := ParseBoolString(input.Color)
		if err != nil {
			return err
		}
		cfg.UseColors = useColors
	}

	cfg.ImpactMaxDepth = input.MaxDepth
	if cfg.ImpactMaxDepth <= 0 {
		cfg.ImpactMaxDepth = schema.DefaultImpactMaxDepth
	}
	cfg.EvidencePerSource = input.Evidence
	if cfg.EvidencePerSource <= 0 {
		cfg.EvidencePerSource = DefaultEvidencePerSource
	}
	return nil
}

// processWindow parses the rolling window duration.
func processWindow(cfg *Config, input *ConfigRawInput) error {
	windowStr := input.Window
	if windowStr == "" {
		windowStr = DefaultWindow
	}
	window, err := ParseWindowDuration(windowStr)
	if err != nil {
		return fmt.Errorf("invalid --window: %w", err)
	}
	cfg.Window = window
	return nil
}

// processWeights merges custom severity weights over the defaults and
// validates that they sum to 1.0 within tolerance.
func processWeights(cfg *Config, input *ConfigRawInput) error {
	weights := schema.DefaultSourceWeights()
	overrides := map[schema.Source]*float64{
		schema.GitSource:     input.Weights.Git,
		schema.SlackSource:   input.Weights.Slack,
		schema.SupportSource: input.Weights.Support,
		schema.DocSource:     input.Weights.Doc,
	}
	for source, v := range overrides {
		if v == nil {
			continue
		}
		if *v < 0 || *v > 1 {
			return fmt.Errorf("weight for source %s must be within [0,1], got %g", source, *v)
		}
		weights[source] = *v
	}

	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("source weights must sum to 1.0, got %g", sum)
	}
	cfg.SourceWeights = weights
	return nil
}

// processHalfLives merges custom decay half-lives over the defaults.
func processHalfLives(cfg *Config, input *ConfigRawInput) error {
	halfLives := make(map[schema.Source]float64, len(schema.DefaultHalfLifeHours))
	maps.Copy(halfLives, schema.DefaultHalfLifeHours)
	overrides := map[schema.Source]*float64{
		schema.GitSource:     input.HalfLives.Git,
		schema.SlackSource:   input.HalfLives.Slack,
		schema.SupportSource: input.HalfLives.Support,
		schema.DocSource:     input.HalfLives.Doc,
	}
	for source, v := range overrides {
		if v == nil {
			continue
		}
		if *v <= 0 {
			return fmt.Errorf("half-life for source %s must be positive hours, got %g", source, *v)
		}
		halfLives[source] = *v
	}
	cfg.HalfLifeHours = halfLives
	return nil
}

// processThresholds validates incident promotion thresholds. A nonsensical
// threshold is a startup failure by design.
func processThresholds(cfg *Config, input *ConfigRawInput) error {
	cfg.IncidentThreshold = schema.DefaultIncidentThreshold
	if input.Thresholds.Incident != nil {
		cfg.IncidentThreshold = *input.Thresholds.Incident
	}
	if cfg.IncidentThreshold < 0 || cfg.IncidentThreshold > 10 {
		return &ThresholdMisconfigurationError{
			Name:  "incident",
			Value: cfg.IncidentThreshold,
			Hint:  "must be within the 0-10 CRT severity scale",
		}
	}

	cfg.DissatisfactionThreshold = schema.DefaultDissatisfactionThreshold
	if input.Thresholds.Dissatisfaction != nil {
		cfg.DissatisfactionThreshold = *input.Thresholds.Dissatisfaction
	}
	if cfg.DissatisfactionThreshold < 0 || cfg.DissatisfactionThreshold > 100 {
		return &ThresholdMisconfigurationError{
			Name:  "dissatisfaction",
			Value: cfg.DissatisfactionThreshold,
			Hint:  "must be within the 0-100 scale",
		}
	}

	cfg.DriftMatchThreshold = schema.DefaultDriftMatchThreshold
	if input.Thresholds.DriftMatch != nil {
		cfg.DriftMatchThreshold = *input.Thresholds.DriftMatch
	}
	if cfg.DriftMatchThreshold <= 0 || cfg.DriftMatchThreshold > 1 {
		return &ThresholdMisconfigurationError{
			Name:  "drift-match",
			Value: cfg.DriftMatchThreshold,
			Hint:  "must be within (0,1]",
		}
	}
	return nil
}

// validateBackendConfigs validates the graph store backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.GraphBackend = schema.DatabaseBackend(strings.ToLower(input.GraphBackend))
	if cfg.GraphBackend == "" {
		cfg.GraphBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.GraphBackend]; !ok {
		return fmt.Errorf("invalid graph backend '%s'. must be sqlite, mysql, postgresql, none", input.GraphBackend)
	}
	cfg.GraphDBConnect = input.GraphDBConnect
	if err := ValidateDatabaseConnectionString(cfg.GraphBackend, cfg.GraphDBConnect); err != nil {
		return err
	}

	cfg.CursorDir = input.CursorDir
	if cfg.CursorDir == "" {
		cfg.CursorDir = GetCursorDirPath()
	}
	return nil
}

// processServiceInputs handles the API server, cache, scheduler and
// embedding service settings.
func processServiceInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.APIAddr = input.APIAddr
	if cfg.APIAddr == "" {
		cfg.APIAddr = ":8787"
	}
	cfg.RedisAddr = input.RedisAddr

	cfg.CacheTTL = DefaultCacheTTL
	if input.CacheTTL != "" {
		ttl, err := time.ParseDuration(input.CacheTTL)
		if err != nil || ttl <= 0 {
			return fmt.Errorf("invalid cache-ttl '%s'", input.CacheTTL)
		}
		cfg.CacheTTL = ttl
	}

	cfg.CronSpec = input.CronSpec
	if cfg.CronSpec == "" {
		cfg.CronSpec = "0 */30 * * * *" // every 30 minutes
	}

	cfg.EmbedServiceURL = input.EmbedURL
	cfg.EmbedTimeout = DefaultEmbedTimeout
	if input.EmbedTimeout != "" {
		d, err := time.ParseDuration(input.EmbedTimeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid embed-timeout '%s'", input.EmbedTimeout)
		}
		cfg.EmbedTimeout = d
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database
// connection strings for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("graph-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("graph-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// GetGraphDBFilePath returns the path to the SQLite DB file for graph storage.
func GetGraphDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".crtscope_graph.db"
	}
	return filepath.Join(homeDir, ".crtscope_graph.db")
}

// GetCursorDirPath returns the directory holding per-source cursor files.
func GetCursorDirPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".crtscope_cursors"
	}
	return filepath.Join(homeDir, ".crtscope_cursors")
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
