// Package config loads client settings from a TOML file with an
// environment overlay.
//
// A file names one or more servers and the shared client, logging,
// transport, metrics and tracing settings:
//
//	[client]
//	name = "ClaudeAgents"
//	request_timeout = "30s"
//
//	[log]
//	level = "debug"
//
//	[servers.files]
//	command = "mcp-server-files"
//	args = ["--root", "/srv"]
//	env = { TOKEN = "x" }
//
//	[metrics]
//	enabled = true
//	listen = ":9090"
package config

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joeshaw/envdecode"

	"github.com/ajitpratap0/mcp-client-go/pkg/client"
	mcperrors "github.com/ajitpratap0/mcp-client-go/pkg/errors"
	"github.com/ajitpratap0/mcp-client-go/pkg/logging"
	"github.com/ajitpratap0/mcp-client-go/pkg/observability"
	"github.com/ajitpratap0/mcp-client-go/pkg/transport"
)

// File is the decoded configuration file
type File struct {
	Client    ClientSection            `toml:"client"`
	Log       LogSection               `toml:"log"`
	Servers   map[string]ServerSection `toml:"servers"`
	Transport TransportSection         `toml:"transport"`
	Metrics   MetricsSection           `toml:"metrics"`
	Tracing   TracingSection           `toml:"tracing"`
}

// ClientSection sets the identity the client announces
type ClientSection struct {
	Name            string `toml:"name"`
	Version         string `toml:"version"`
	ProtocolVersion string `toml:"protocol_version"`

	// RequestTimeout applies to servers that do not set their own
	RequestTimeout time.Duration `toml:"request_timeout"`
}

type LogSection struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerSection describes one server process
type ServerSection struct {
	Command        string            `toml:"command"`
	Args           []string          `toml:"args"`
	Env            map[string]string `toml:"env"`
	Dir            string            `toml:"dir"`
	RequestTimeout time.Duration     `toml:"request_timeout"`
	ShutdownGrace  time.Duration     `toml:"shutdown_grace"`
	MaxLineSize    int               `toml:"max_line_size"`
}

// TransportSection holds the middleware settings shared by all servers
type TransportSection struct {
	Features      transport.FeatureConfig       `toml:"features"`
	Reliability   transport.ReliabilityConfig   `toml:"reliability"`
	Observability transport.ObservabilityConfig `toml:"observability"`
}

type MetricsSection struct {
	Enabled   bool   `toml:"enabled"`
	Listen    string `toml:"listen"`
	Path      string `toml:"path"`
	Namespace string `toml:"namespace"`
}

type TracingSection struct {
	Enabled bool `toml:"enabled"`
	observability.TracingConfig
}

// envOverlay lists the variables that override file settings. Values that
// fail to parse are errors, not silently skipped.
type envOverlay struct {
	LogLevel       string        `env:"MCP_LOG_LEVEL"`
	LogFormat      string        `env:"MCP_LOG_FORMAT"`
	RequestTimeout time.Duration `env:"MCP_REQUEST_TIMEOUT,strict"`
	OTLPEndpoint   string        `env:"MCP_OTLP_ENDPOINT"`
}

// Default returns the settings used for keys a file leaves out
func Default() *File {
	tc := transport.DefaultTransportConfig()
	return &File{
		Client: ClientSection{
			Name:           client.DefaultClientName,
			Version:        client.DefaultClientVersion,
			RequestTimeout: transport.DefaultRequestTimeout,
		},
		Log:     LogSection{Level: "info", Format: "text"},
		Servers: map[string]ServerSection{},
		Transport: TransportSection{
			Features:      tc.Features,
			Reliability:   tc.Reliability,
			Observability: tc.Observability,
		},
		Metrics: MetricsSection{Listen: ":9090", Path: "/metrics", Namespace: "mcp"},
		Tracing: TracingSection{TracingConfig: observability.TracingConfig{
			Exporter:   observability.ExporterTypeOTLPGRPC,
			SampleRate: 1.0,
		}},
	}
}

// Load reads path, applies the environment overlay and validates the
// result
func Load(path string) (*File, error) {
	f := Default()
	meta, err := toml.DecodeFile(path, f)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return finish(f, meta)
}

// Parse is Load for a configuration already in memory
func Parse(r io.Reader) (*File, error) {
	f := Default()
	meta, err := toml.NewDecoder(r).Decode(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finish(f, meta)
}

func finish(f *File, meta toml.MetaData) (*File, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, mcperrors.InvalidConfig(keys[0], "unknown key").
			WithDetail("unknown keys: " + strings.Join(keys, ", "))
	}
	if err := f.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// ApplyEnv overrides settings from MCP_* environment variables
func (f *File) ApplyEnv() error {
	var env envOverlay
	if err := envdecode.Decode(&env); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return nil
		}
		return mcperrors.InvalidConfig("environment", err.Error())
	}

	if env.LogLevel != "" {
		f.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		f.Log.Format = env.LogFormat
	}
	if env.RequestTimeout > 0 {
		f.Client.RequestTimeout = env.RequestTimeout
	}
	if env.OTLPEndpoint != "" {
		f.Tracing.Endpoint = env.OTLPEndpoint
	}
	return nil
}

// Validate reports every invalid setting at once
func (f *File) Validate() error {
	var errs []mcperrors.MCPError

	if _, err := logging.ParseLevel(f.Log.Level); err != nil {
		errs = append(errs, mcperrors.InvalidConfig("log.level", err.Error()))
	}
	switch strings.ToLower(f.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, mcperrors.InvalidConfig("log.format", fmt.Sprintf("unknown format %q", f.Log.Format)))
	}
	if f.Client.RequestTimeout < 0 {
		errs = append(errs, mcperrors.InvalidConfig("client.request_timeout", "must not be negative"))
	}

	for _, name := range f.ServerNames() {
		s := f.Servers[name]
		if strings.TrimSpace(s.Command) == "" {
			errs = append(errs, mcperrors.InvalidConfig("servers."+name+".command", "must not be empty"))
		}
		if s.RequestTimeout < 0 || s.ShutdownGrace < 0 {
			errs = append(errs, mcperrors.InvalidConfig("servers."+name, "durations must not be negative"))
		}
	}

	if f.Metrics.Enabled && f.Metrics.Listen == "" {
		errs = append(errs, mcperrors.InvalidConfig("metrics.listen", "required when metrics are enabled"))
	}
	if f.Tracing.Enabled {
		switch f.Tracing.Exporter {
		case observability.ExporterTypeOTLPGRPC, observability.ExporterTypeOTLPHTTP, observability.ExporterTypeNoop:
		default:
			errs = append(errs, mcperrors.InvalidConfig("tracing.exporter", fmt.Sprintf("unsupported exporter %q", f.Tracing.Exporter)))
		}
		if f.Tracing.SampleRate < 0 || f.Tracing.SampleRate > 1 {
			errs = append(errs, mcperrors.InvalidConfig("tracing.sample_rate", "must be between 0 and 1"))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return mcperrors.CombineValidationErrors(errs)
}

// ServerNames returns the configured server names in sorted order
func (f *File) ServerNames() []string {
	names := make([]string, 0, len(f.Servers))
	for name := range f.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StdioConfig converts the named server section. Unset timing fields take
// the client-wide or package defaults.
func (f *File) StdioConfig(name string) (transport.StdioConfig, error) {
	s, ok := f.Servers[name]
	if !ok {
		return transport.StdioConfig{}, mcperrors.InvalidConfig("servers."+name, "no such server")
	}

	cfg := transport.DefaultStdioConfig()
	cfg.Command = s.Command
	cfg.Args = append([]string(nil), s.Args...)
	cfg.Dir = s.Dir
	if len(s.Env) > 0 {
		cfg.Env = make(map[string]string, len(s.Env))
		for k, v := range s.Env {
			cfg.Env[k] = v
		}
	}
	if f.Client.RequestTimeout > 0 {
		cfg.RequestTimeout = f.Client.RequestTimeout
	}
	if s.RequestTimeout > 0 {
		cfg.RequestTimeout = s.RequestTimeout
	}
	if s.ShutdownGrace > 0 {
		cfg.ShutdownGrace = s.ShutdownGrace
	}
	if s.MaxLineSize > 0 {
		cfg.MaxLineSize = s.MaxLineSize
	}
	return cfg, nil
}

// TransportConfig combines the named server with the shared middleware
// settings
func (f *File) TransportConfig(name string) (transport.TransportConfig, error) {
	stdio, err := f.StdioConfig(name)
	if err != nil {
		return transport.TransportConfig{}, err
	}
	return transport.TransportConfig{
		Stdio:         stdio,
		Features:      f.Transport.Features,
		Reliability:   f.Transport.Reliability,
		Observability: f.Transport.Observability,
	}, nil
}

// ClientOptions returns the client options the [client] section implies
func (f *File) ClientOptions() []client.Option {
	var opts []client.Option
	if f.Client.Name != "" {
		opts = append(opts, client.WithName(f.Client.Name))
	}
	if f.Client.Version != "" {
		opts = append(opts, client.WithVersion(f.Client.Version))
	}
	if f.Client.ProtocolVersion != "" {
		opts = append(opts, client.WithProtocolVersion(f.Client.ProtocolVersion))
	}
	return opts
}

// Logger builds the logger described by [log], writing to out
func (f *File) Logger(out io.Writer) (logging.Logger, error) {
	logger, err := logging.NewWithOptions(logging.Options{
		Level:  f.Log.Level,
		Format: f.Log.Format,
		Output: out,
	})
	if err != nil {
		return nil, mcperrors.InvalidConfig("log", err.Error())
	}
	return logger, nil
}

// MetricsConfig returns the collector settings from [metrics]
func (f *File) MetricsConfig() observability.MetricsConfig {
	return observability.MetricsConfig{Namespace: f.Metrics.Namespace}
}
