// Package config loads the core's runtime configuration: a YAML file,
// overlaid by KISMET_-prefixed environment variables, overlaid by CLI
// flags (§6 "CLI surface" and "Environment").
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the core's runtime configuration.
type Config struct {
	// Server / logging
	HTTPAddr  string `koanf:"httpd_port"`
	LogPrefix string `koanf:"log_prefix"`
	Debug     bool   `koanf:"debug"`

	// Datasource tracker defaults (§3 "config-defaults").
	Datasource DatasourceConfig `koanf:"datasource"`

	// Remote capture listener (§4.4 "Remote listener").
	Remote RemoteConfig `koanf:"remote"`

	// Device tracker reap policy (§4.6 "Reap policy").
	Tracker TrackerConfig `koanf:"tracker"`

	// Archival/tag store location.
	DBPath string `koanf:"db_path"`

	// Operator-supplied decrypt keys (§5 step 5, "if a key is registered
	// for the BSSID"). Absent unless the operator configures one.
	Keys []KeyConfig `koanf:"keys"`

	// Static GPS fix for a stationary sensor (§4.8 geo bounds). Real GPS
	// driver backends are an external collaborator's concern; this is
	// the whole of the core's own location story.
	GPS GPSConfig `koanf:"gps"`
}

// GPSConfig configures the static location provider.
type GPSConfig struct {
	Enabled   bool    `koanf:"enabled"`
	Latitude  float64 `koanf:"latitude"`
	Longitude float64 `koanf:"longitude"`
	Altitude  float64 `koanf:"altitude"`
}

// KeyConfig registers one BSSID's decrypt material: either a raw WEP
// key (hex-encoded) or a WPA/WPA2-PSK passphrase plus its SSID.
type KeyConfig struct {
	BSSID      string `koanf:"bssid"`
	WEPKeyHex  string `koanf:"wep_key_hex"`
	SSID       string `koanf:"ssid"`
	Passphrase string `koanf:"passphrase"`
}

// DatasourceConfig mirrors the datasource tracker's config-defaults.
type DatasourceConfig struct {
	HopRate         float64 `koanf:"hop_rate"`
	HopOn           bool    `koanf:"hop_on"`
	SplitSameSource bool    `koanf:"split_same_source"`
	RandomHopOrder  bool    `koanf:"random_hop_order"`
	RetryOnError    bool    `koanf:"retry_on_error"`
}

// RemoteConfig configures the TCP remote-datasource listener.
type RemoteConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"`
}

// TrackerConfig configures device reap and stale-state cleanup.
type TrackerConfig struct {
	MaxAgeSeconds      int `koanf:"max_age_seconds"`
	KeepPacketMinimum  int `koanf:"keep_packet_minimum"`
	ReapIntervalSecond int `koanf:"reap_interval_seconds"`
}

const envPrefix = "KISMET_"

// Load builds a Config from defaults, an optional YAML file, environment
// variables, and command-line flags, in that precedence order (later
// wins). args is typically os.Args[1:]; pass nil to skip flag parsing
// (useful in tests).
func Load(args []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaultsProvider(), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	fs := flag.NewFlagSet("kismet", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	logPrefix := fs.String("log-prefix", "", "directory for archival logs")
	debug := fs.Bool("debug", false, "enable verbose debug logging")
	noConsoleWrapper := fs.Bool("no-console-wrapper", false, "disable console wrapper framing (accepted, unused by the core)")
	overrides := multiFlag{}
	fs.Var(&overrides, "override", "k=v override, repeatable")

	if args != nil {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("config: parsing flags: %w", err)
		}
	}
	_ = noConsoleWrapper

	if *configPath != "" {
		if err := k.Load(file.Provider(*configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading file %s: %w", *configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, "__", ".")
		return s
	}), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	for _, kv := range overrides {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("config: malformed --override %q, want k=v", kv)
		}
		if err := k.Set(parts[0], parts[1]); err != nil {
			return nil, fmt.Errorf("config: applying --override %q: %w", kv, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if *logPrefix != "" {
		cfg.LogPrefix = *logPrefix
	}
	if *debug {
		cfg.Debug = true
	}

	return &cfg, nil
}

func defaultsProvider() koanf.Provider {
	return confmapProvider{
		"httpd_port":                      ":2501",
		"log_prefix":                      "./kismet_logs",
		"debug":                           false,
		"db_path":                         "./kismet.db",
		"datasource.hop_rate":             5.0,
		"datasource.hop_on":               true,
		"datasource.split_same_source":    true,
		"datasource.random_hop_order":     false,
		"datasource.retry_on_error":       true,
		"remote.enabled":                  false,
		"remote.listen":                   ":3501",
		"tracker.max_age_seconds":         0,
		"tracker.keep_packet_minimum":     0,
		"tracker.reap_interval_seconds":   30,
	}
}

// confmapProvider is a tiny in-process koanf.Provider over a flat map,
// used only to seed defaults before file/env overlays.
type confmapProvider map[string]interface{}

func (c confmapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("confmapProvider: ReadBytes unsupported")
}

func (c confmapProvider) Read() (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out, nil
}

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// EnvOr overlays a single environment variable onto a value already
// resolved from file/defaults, used by callers that need the raw
// KISMET_CONF semantics from §6 directly (the name of the file Load
// should read, resolved before Load is even called).
func EnvOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
