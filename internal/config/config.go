package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/OCAP2/tactical/internal/clock"
	"github.com/OCAP2/tactical/internal/simulation"
	"github.com/OCAP2/tactical/pkg/core"
)

// FileName is the name of the JSON config file looked up by Load.
const FileName = "tactical.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
}

// WebSocketConfig holds settings for the live event stream backend
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Protocol string `mapstructure:"protocol"`
	Token    string `mapstructure:"token"`
	Org      string `mapstructure:"org"`
	Bucket   string `mapstructure:"bucket"`
}

// TracingConfig holds span export settings
type TracingConfig struct {
	Enabled     bool
	Exporter    string
	Endpoint    string
	SampleRatio float64
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
	Tracing      TracingConfig
}

// MonitorConfig holds status monitor settings
type MonitorConfig struct {
	Interval    time.Duration
	MetricsAddr string
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logFormat", "text")
	viper.SetDefault("defaultTag", "Skirmish")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("simulation.tickRate", "100ms")
	viper.SetDefault("simulation.mode", "realtime")
	viper.SetDefault("simulation.seed", 1)
	viper.SetDefault("simulation.lookAroundFrequency", "500ms")
	viper.SetDefault("simulation.engageFrequency", "2s")
	viper.SetDefault("simulation.killProbability", 0.25)
	viper.SetDefault("simulation.inboxSize", 1024)
	viper.SetDefault("simulation.stopWhenDecided", true)

	for kind, p := range simulation.DefaultProfiles {
		prefix := "profiles." + kind.String() + "."
		viper.SetDefault(prefix+"walk", p.Walk.String())
		viper.SetDefault(prefix+"run", p.Run.String())
		viper.SetDefault(prefix+"crawl", p.Crawl.String())
		viper.SetDefault(prefix+"rotationPerDegree", p.RotationPerDegree.String())
		viper.SetDefault(prefix+"coefficient", p.Coefficient)
	}

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "tactical")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "tactical-metrics")
	viper.SetDefault("influx.bucket", "simulation")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./replays")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.outputDir", "./replays")
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("monitor.interval", "10s")
	viper.SetDefault("monitor.metricsAddr", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "tactical-sim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.logLevel", "info")
	viper.SetDefault("otel.tracing.enabled", false)
	viper.SetDefault("otel.tracing.exporter", "stdout")
	viper.SetDefault("otel.tracing.endpoint", "")
	viper.SetDefault("otel.tracing.sampleRatio", 1.0)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// LoadDefaults sets default values without reading a file.
func LoadDefaults() {
	setDefaults()
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

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			OutputDir:    viper.GetString("storage.sqlite.outputDir"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetDBConfig returns the Postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
		Tracing: TracingConfig{
			Enabled:     viper.GetBool("otel.tracing.enabled"),
			Exporter:    viper.GetString("otel.tracing.exporter"),
			Endpoint:    viper.GetString("otel.tracing.endpoint"),
			SampleRatio: viper.GetFloat64("otel.tracing.sampleRatio"),
		},
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:    viper.GetDuration("monitor.interval"),
		MetricsAddr: viper.GetString("monitor.metricsAddr"),
	}
}

// Profile returns the movement profile configured for kind.
func Profile(kind core.Kind) core.MovementProfile {
	prefix := "profiles." + kind.String() + "."
	return core.MovementProfile{
		Walk:              viper.GetDuration(prefix + "walk"),
		Run:               viper.GetDuration(prefix + "run"),
		Crawl:             viper.GetDuration(prefix + "crawl"),
		RotationPerDegree: viper.GetDuration(prefix + "rotationPerDegree"),
		Coefficient:       viper.GetFloat64(prefix + "coefficient"),
	}
}

// GetSimulationSettings builds the simulation settings from config.
func GetSimulationSettings() (simulation.Settings, error) {
	mode, err := clock.ParseMode(viper.GetString("simulation.mode"))
	if err != nil {
		return simulation.Settings{}, err
	}
	p := viper.GetFloat64("simulation.killProbability")
	if p < 0 || p > 1 {
		return simulation.Settings{}, fmt.Errorf("simulation.killProbability must be within [0,1], got %v", p)
	}
	tick := viper.GetDuration("simulation.tickRate")
	if tick <= 0 {
		return simulation.Settings{}, fmt.Errorf("simulation.tickRate must be positive, got %v", tick)
	}

	return simulation.Settings{
		TickRate:            tick,
		LookAroundFrequency: viper.GetDuration("simulation.lookAroundFrequency"),
		EngageFrequency:     viper.GetDuration("simulation.engageFrequency"),
		KillProbability:     p,
		Seed:                viper.GetUint64("simulation.seed"),
		InboxSize:           viper.GetInt("simulation.inboxSize"),
		Mode:                mode,
		Profiles: map[core.Kind]core.MovementProfile{
			core.KindSoldier: Profile(core.KindSoldier),
			core.KindVehicle: Profile(core.KindVehicle),
		},
	}, nil
}
