// Package config loads server settings from flags, environment and an optional file
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Backends and transports
const (
	BackendMemory   = "memory"
	BackendAlfresco = "alfresco"

	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportGRPC  = "grpc"
)

// Config is the resolved server configuration
type Config struct {
	Backend  string
	Alfresco AlfrescoConfig

	Transport     string
	HTTPListen    string
	HTTPPath      string
	GRPCListen    string
	MetricsListen string
	EnablePprof   bool

	WorkspaceDir string
	MaxFileSize  int64

	LogLevel  string
	LogPretty bool

	OTLPEndpoint string
}

// AlfrescoConfig describes the repository connection
type AlfrescoConfig struct {
	URL        string
	Username   string
	Password   string
	VerifySSL  bool
	Timeout    time.Duration
	MaxRetries int
}

// flag name -> environment variables consulted, in order
var envNames = map[string][]string{
	"alfresco-url":         {"ALFRESCO_URL"},
	"alfresco-username":    {"ALFRESCO_USERNAME"},
	"alfresco-password":    {"ALFRESCO_PASSWORD"},
	"alfresco-verify-ssl":  {"ALFRESCO_VERIFY_SSL"},
	"alfresco-timeout":     {"ALFRESCO_TIMEOUT"},
	"alfresco-max-retries": {"ALFRESCO_MAX_RETRIES"},
	"max-file-size":        {"ALFRESCO_MAX_FILE_SIZE", "CONTENTMCP_MAX_FILE_SIZE", "MAX_FILE_SIZE"},
	"log-level":            {"CONTENTMCP_LOG_LEVEL", "LOG_LEVEL"},
}

// RegisterFlags defines every setting on flags
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to a YAML, TOML or JSON config file")
	flags.String("backend", BackendAlfresco, "repository backend: alfresco or memory")
	flags.String("alfresco-url", "http://localhost:8080", "repository server root URL")
	flags.String("alfresco-username", "admin", "repository user")
	flags.String("alfresco-password", "admin", "repository password")
	flags.Bool("alfresco-verify-ssl", false, "verify the repository TLS certificate")
	flags.String("alfresco-timeout", "30s", "repository request timeout (duration or seconds)")
	flags.Int("alfresco-max-retries", 2, "retries for read-only repository requests")
	flags.String("transport", TransportStdio, "tool transport: stdio, http or grpc")
	flags.String("http-listen", "localhost:8000", "listen address for the http transport")
	flags.String("http-path", "/mcp", "URL path of the http transport")
	flags.String("grpc-listen", "localhost:50061", "listen address for the grpc transport")
	flags.String("metrics-listen", "", "listen address for /metrics, /health and /ready (empty disables)")
	flags.Bool("enable-pprof", false, "serve pprof handlers on the metrics listener")
	flags.String("workspace-dir", defaultWorkspaceDir(), "directory for downloads and checked-out working files")
	flags.String("max-file-size", "100MB", "largest upload or checkin accepted")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Bool("log-pretty", false, "human-readable console logs")
	flags.String("otlp-endpoint", "", "OTLP/HTTP trace collector endpoint, e.g. localhost:4318 (empty disables)")
}

// Load resolves settings with precedence flag > environment > file > default
func Load(v *viper.Viper, flags *pflag.FlagSet) (*Config, error) {
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("config: bind flags: %w", err)
	}
	v.SetEnvPrefix("CONTENTMCP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, names := range envNames {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("config: bind env %s: %w", key, err)
		}
	}

	if path := strings.TrimSpace(v.GetString("config")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	timeout, err := parseTimeout(v.GetString("alfresco-timeout"))
	if err != nil {
		return nil, err
	}
	maxFile, err := humanize.ParseBytes(v.GetString("max-file-size"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid max-file-size %q: %w", v.GetString("max-file-size"), err)
	}

	cfg := &Config{
		Backend: strings.ToLower(strings.TrimSpace(v.GetString("backend"))),
		Alfresco: AlfrescoConfig{
			URL:        strings.TrimSpace(v.GetString("alfresco-url")),
			Username:   v.GetString("alfresco-username"),
			Password:   v.GetString("alfresco-password"),
			VerifySSL:  v.GetBool("alfresco-verify-ssl"),
			Timeout:    timeout,
			MaxRetries: v.GetInt("alfresco-max-retries"),
		},
		Transport:     strings.ToLower(strings.TrimSpace(v.GetString("transport"))),
		HTTPListen:    v.GetString("http-listen"),
		HTTPPath:      v.GetString("http-path"),
		GRPCListen:    v.GetString("grpc-listen"),
		MetricsListen: v.GetString("metrics-listen"),
		EnablePprof:   v.GetBool("enable-pprof"),
		WorkspaceDir:  v.GetString("workspace-dir"),
		MaxFileSize:   int64(maxFile),
		LogLevel:      strings.ToLower(v.GetString("log-level")),
		LogPretty:     v.GetBool("log-pretty"),
		OTLPEndpoint:  strings.TrimSpace(v.GetString("otlp-endpoint")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendMemory:
	case BackendAlfresco:
		u, err := url.Parse(c.Alfresco.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("alfresco-url %q must be an http(s) URL", c.Alfresco.URL))
		}
		if c.Alfresco.Username == "" {
			errs = append(errs, errors.New("alfresco-username is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendAlfresco, BackendMemory))
	}
	if c.Alfresco.Timeout <= 0 {
		errs = append(errs, errors.New("alfresco-timeout must be positive"))
	}
	if c.Alfresco.MaxRetries < 0 {
		errs = append(errs, errors.New("alfresco-max-retries must not be negative"))
	}
	switch c.Transport {
	case TransportStdio:
	case TransportHTTP:
		if c.HTTPListen == "" {
			errs = append(errs, errors.New("http-listen is required for the http transport"))
		}
		if !strings.HasPrefix(c.HTTPPath, "/") {
			errs = append(errs, fmt.Errorf("http-path %q must start with /", c.HTTPPath))
		}
	case TransportGRPC:
		if c.GRPCListen == "" {
			errs = append(errs, errors.New("grpc-listen is required for the grpc transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q (want stdio, http or grpc)", c.Transport))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, errors.New("max-file-size must be positive"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log-level %q", c.LogLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// User is the identity tools act as
func (c *Config) User() string {
	if c.Backend == BackendMemory && c.Alfresco.Username == "" {
		return "admin"
	}
	return c.Alfresco.Username
}

// parseTimeout accepts Go durations and bare seconds
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid alfresco-timeout %q: %w", s, err)
	}
	return d, nil
}
