package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/OCAP2/geoanchor/internal/placement"
)

// FileName is the config file looked up in the config directory.
const FileName = "geoanchor.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// StorageConfig selects and configures the session journal backend
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName    string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout   time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint       string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `json:"insecure" mapstructure:"insecure"`
	MetricInterval time.Duration `json:"metricInterval" mapstructure:"metricInterval"`
}

// InfluxConfig holds InfluxDB telemetry settings
type InfluxConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Protocol  string `json:"protocol" mapstructure:"protocol"`
	Host      string `json:"host" mapstructure:"host"`
	Port      string `json:"port" mapstructure:"port"`
	Token     string `json:"token" mapstructure:"token"`
	Org       string `json:"org" mapstructure:"org"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	BackupDir string `json:"backupDir" mapstructure:"backupDir"`
}

// StreamConfig holds the remote render client settings
type StreamConfig struct {
	URL        string        `json:"url" mapstructure:"url"`
	Secret     string        `json:"secret" mapstructure:"secret"`
	AckTimeout time.Duration `json:"ackTimeout" mapstructure:"ackTimeout"`
}

// RenderConfig selects the renderer
type RenderConfig struct {
	Type     string       `json:"type" mapstructure:"type"` // "scene" or "stream"
	ModelDir string       `json:"modelDir" mapstructure:"modelDir"`
	Stream   StreamConfig `json:"stream" mapstructure:"stream"`
}

// TrackConfig controls the location feed
type TrackConfig struct {
	DistanceFilter     float64       `json:"distanceFilter" mapstructure:"distanceFilter"`
	Step               float64       `json:"step" mapstructure:"step"`
	Interval           time.Duration `json:"interval" mapstructure:"interval"`
	HorizontalAccuracy float64       `json:"horizontalAccuracy" mapstructure:"horizontalAccuracy"`
	VerticalAccuracy   float64       `json:"verticalAccuracy" mapstructure:"verticalAccuracy"`
}

// APIConfig holds the session upload endpoint
type APIConfig struct {
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
	Upload    bool   `json:"upload" mapstructure:"upload"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("sessionName", "walk")
	viper.SetDefault("tag", "demo")

	defaults := placement.DefaultConfig()
	viper.SetDefault("placement.setup.horizontal", defaults.Setup.Horizontal)
	viper.SetDefault("placement.setup.vertical", defaults.Setup.Vertical)
	viper.SetDefault("placement.running.horizontal", defaults.Running.Horizontal)
	viper.SetDefault("placement.running.vertical", defaults.Running.Vertical)

	viper.SetDefault("catalog.source", "builtin:tokyo-station")
	viper.SetDefault("catalog.dir", "./catalogs")

	viper.SetDefault("render.type", "scene")
	viper.SetDefault("render.modelDir", "./models")
	viper.SetDefault("render.stream.url", "ws://localhost:8765/render")
	viper.SetDefault("render.stream.secret", "")
	viper.SetDefault("render.stream.ackTimeout", "10s")

	viper.SetDefault("track.distanceFilter", 3.0)
	viper.SetDefault("track.step", 1.4)
	viper.SetDefault("track.interval", "1s")
	viper.SetDefault("track.horizontalAccuracy", 3.0)
	viper.SetDefault("track.verticalAccuracy", 2.0)

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./sessions")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpPath", "./sessions/geoanchor.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "geoanchor")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "geoanchor")
	viper.SetDefault("influx.bucket", "placement")
	viper.SetDefault("influx.backupDir", "./telemetry")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "geoanchor")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.metricInterval", "30s")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults stay in
// effect when the file cannot be read.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// BindFlags makes command line flags override config keys of the same name.
func BindFlags(fs *pflag.FlagSet) error {
	return viper.BindPFlags(fs)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetPlacementConfig returns the accuracy gate thresholds.
func GetPlacementConfig() placement.Config {
	return placement.Config{
		Setup: placement.Thresholds{
			Horizontal: viper.GetFloat64("placement.setup.horizontal"),
			Vertical:   viper.GetFloat64("placement.setup.vertical"),
		},
		Running: placement.Thresholds{
			Horizontal: viper.GetFloat64("placement.running.horizontal"),
			Vertical:   viper.GetFloat64("placement.running.vertical"),
		},
	}
}

// GetStorageConfig returns the journal backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:   viper.GetBool("influx.enabled"),
		Protocol:  viper.GetString("influx.protocol"),
		Host:      viper.GetString("influx.host"),
		Port:      viper.GetString("influx.port"),
		Token:     viper.GetString("influx.token"),
		Org:       viper.GetString("influx.org"),
		Bucket:    viper.GetString("influx.bucket"),
		BackupDir: viper.GetString("influx.backupDir"),
	}
}

// GetRenderConfig returns the renderer settings.
func GetRenderConfig() RenderConfig {
	return RenderConfig{
		Type:     viper.GetString("render.type"),
		ModelDir: viper.GetString("render.modelDir"),
		Stream: StreamConfig{
			URL:        viper.GetString("render.stream.url"),
			Secret:     viper.GetString("render.stream.secret"),
			AckTimeout: viper.GetDuration("render.stream.ackTimeout"),
		},
	}
}

// GetTrackConfig returns the location feed settings.
func GetTrackConfig() TrackConfig {
	return TrackConfig{
		DistanceFilter:     viper.GetFloat64("track.distanceFilter"),
		Step:               viper.GetFloat64("track.step"),
		Interval:           viper.GetDuration("track.interval"),
		HorizontalAccuracy: viper.GetFloat64("track.horizontalAccuracy"),
		VerticalAccuracy:   viper.GetFloat64("track.verticalAccuracy"),
	}
}

// GetAPIConfig returns the upload endpoint settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
		Upload:    viper.GetBool("api.upload"),
	}
}
