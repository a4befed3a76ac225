package handlers

import (
	"context"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/spf13/viper"

	"github.com/jmylchreest/mcsstheme/internal/config"
)

// ConfigHandler serves the effective runtime configuration.
type ConfigHandler struct {
	cfg *config.Config
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// Register registers the config routes with the API.
func (h *ConfigHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getConfig",
		Method:      "GET",
		Path:        "/api/v1/config",
		Summary:     "Get configuration",
		Description: "Returns the effective configuration. Database credentials are never included.",
		Tags:        []string{"Configuration"},
	}, h.GetConfig)
}

// ConfigInput is the input for getting the config.
type ConfigInput struct{}

// ConfigOutput is the output for getting the config.
type ConfigOutput struct {
	Body ConfigResponse
}

// ConfigResponse is the sanitized configuration.
type ConfigResponse struct {
	Theme    ThemeConfigData    `json:"theme"`
	Server   ServerConfigData   `json:"server"`
	Database DatabaseConfigData `json:"database"`
	Logging  LoggingConfigData  `json:"logging"`
	Snapshot SnapshotConfigData `json:"snapshot"`
	Meta     ConfigMeta         `json:"meta"`
}

// ThemeConfigData describes theme loading settings.
type ThemeConfigData struct {
	Default          string `json:"default"`
	ThemesDir        string `json:"themes_dir"`
	MaxFileSize      string `json:"max_file_size"`
	MaxFileSizeBytes int64  `json:"max_file_size_bytes"`
	ColorFormat      string `json:"color_format"`
	Strict           bool   `json:"strict"`
}

// ServerConfigData describes the HTTP server settings.
type ServerConfigData struct {
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	ReadTimeout     string   `json:"read_timeout"`
	WriteTimeout    string   `json:"write_timeout"`
	ShutdownTimeout string   `json:"shutdown_timeout"`
	CORSOrigins     []string `json:"cors_origins"`
}

// DatabaseConfigData describes the database pool without the DSN.
type DatabaseConfigData struct {
	Driver          string `json:"driver"`
	MaxOpenConns    int    `json:"max_open_conns"`
	MaxIdleConns    int    `json:"max_idle_conns"`
	ConnMaxLifetime string `json:"conn_max_lifetime"`
	LogLevel        string `json:"log_level"`
}

// LoggingConfigData describes logging settings.
type LoggingConfigData struct {
	Level          string `json:"level"`
	Format         string `json:"format"`
	RequestLogging bool   `json:"request_logging"`
}

// SnapshotConfigData describes the snapshot schedule.
type SnapshotConfigData struct {
	Enabled   bool     `json:"enabled"`
	Cron      string   `json:"cron"`
	Retention int      `json:"retention"`
	Themes    []string `json:"themes"`
}

// ConfigMeta describes where the configuration came from.
type ConfigMeta struct {
	ConfigPath string `json:"config_path,omitempty"`
	Source     string `json:"source"`
	LastLoaded string `json:"last_loaded"`
}

// GetConfig returns the effective configuration.
func (h *ConfigHandler) GetConfig(ctx context.Context, input *ConfigInput) (*ConfigOutput, error) {
	if h.cfg == nil {
		return nil, huma.Error503ServiceUnavailable("configuration not loaded")
	}
	c := h.cfg

	return &ConfigOutput{
		Body: ConfigResponse{
			Theme: ThemeConfigData{
				Default:          c.Theme.Default,
				ThemesDir:        c.Theme.ThemesDir(),
				MaxFileSize:      c.Theme.MaxFileSize.String(),
				MaxFileSizeBytes: c.Theme.MaxFileSize.Bytes(),
				ColorFormat:      c.Theme.ColorFormat,
				Strict:           c.Theme.Strict,
			},
			Server: ServerConfigData{
				Host:            c.Server.Host,
				Port:            c.Server.Port,
				ReadTimeout:     c.Server.ReadTimeout.String(),
				WriteTimeout:    c.Server.WriteTimeout.String(),
				ShutdownTimeout: c.Server.ShutdownTimeout.String(),
				CORSOrigins:     c.Server.CORSOrigins,
			},
			Database: DatabaseConfigData{
				Driver:          c.Database.Driver,
				MaxOpenConns:    c.Database.MaxOpenConns,
				MaxIdleConns:    c.Database.MaxIdleConns,
				ConnMaxLifetime: c.Database.ConnMaxLifetime.String(),
				LogLevel:        c.Database.LogLevel,
			},
			Logging: LoggingConfigData{
				Level:          c.Logging.Level,
				Format:         c.Logging.Format,
				RequestLogging: c.Logging.RequestLogging,
			},
			Snapshot: SnapshotConfigData{
				Enabled:   c.Snapshot.Schedule.Enabled,
				Cron:      c.Snapshot.Schedule.Cron,
				Retention: c.Snapshot.Schedule.Retention,
				Themes:    c.SnapshotThemes(),
			},
			Meta: configMeta(),
		},
	}, nil
}

func configMeta() ConfigMeta {
	meta := ConfigMeta{
		Source:     "defaults",
		LastLoaded: time.Now().UTC().Format(time.RFC3339),
	}
	if path := viper.ConfigFileUsed(); path != "" {
		meta.ConfigPath = path
		meta.Source = "file"
		if info, err := os.Stat(path); err == nil {
			meta.LastLoaded = info.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return meta
}
