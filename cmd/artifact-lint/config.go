package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/exploopio/artifact/pkg/compress"
	"github.com/exploopio/artifact/pkg/core"
	"github.com/exploopio/artifact/pkg/envelope"
	"github.com/exploopio/artifact/pkg/schema"
)

// Config represents the lint configuration. Every field has a flag of the
// same meaning; flags given on the command line win over the file.
type Config struct {
	// Kind is the document kind of the inputs.
	Kind string `yaml:"kind"`

	// Format is the input format: json, jsonc, yaml or cbor. Empty means
	// detect from the file extension.
	Format string `yaml:"format"`

	// Envelope settings for -seal
	Envelope struct {
		Encoding        string `yaml:"encoding"`
		Compression     string `yaml:"compression"`
		AutoCompression bool   `yaml:"auto_compression"`
	} `yaml:"envelope"`

	Verbose bool `yaml:"verbose"`

	// LogLevel is used when Verbose is off: debug, info, warn, error or
	// silent. Empty means silent.
	LogLevel string `yaml:"log_level"`

	// MetricsFile is the Prometheus textfile written on exit.
	MetricsFile string `yaml:"metrics_file"`
}

// defaultConfig returns the configuration used when neither a file nor a
// flag sets a value.
func defaultConfig() *Config {
	cfg := &Config{Kind: string(schema.KindVerdict)}
	cfg.Envelope.Encoding = string(envelope.EncodingJSON)
	cfg.Envelope.Compression = string(compress.AlgorithmNone)
	return cfg
}

func loadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables in config
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	return nil
}

// flagValues holds the raw flag values before they are merged into Config.
type flagValues struct {
	kind            string
	format          string
	encoding        string
	compression     string
	autoCompression bool
	verbose         bool
	logLevel        string
	metricsFile     string
}

// apply copies the flags that were set on the command line into cfg.
func (v *flagValues) apply(fs *flag.FlagSet, cfg *Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "kind":
			cfg.Kind = v.kind
		case "format":
			cfg.Format = v.format
		case "encoding":
			cfg.Envelope.Encoding = v.encoding
		case "compression":
			cfg.Envelope.Compression = v.compression
		case "auto-compression":
			cfg.Envelope.AutoCompression = v.autoCompression
		case "verbose":
			cfg.Verbose = v.verbose
		case "log-level":
			cfg.LogLevel = v.logLevel
		case "metrics-file":
			cfg.MetricsFile = v.metricsFile
		}
	})
}

// validate checks the merged configuration and resolves its names.
func (c *Config) validate() (schema.Kind, envelope.Encoding, compress.Algorithm, error) {
	kind, err := parseKind(c.Kind)
	if err != nil {
		return "", "", "", err
	}
	if c.Format != "" {
		if _, err := parseFormat(c.Format); err != nil {
			return "", "", "", err
		}
	}
	encoding, err := envelope.ParseEncoding(c.Envelope.Encoding)
	if err != nil {
		return "", "", "", err
	}
	algorithm, err := compress.ParseAlgorithm(c.Envelope.Compression)
	if err != nil {
		return "", "", "", err
	}
	return kind, encoding, algorithm, nil
}

// logger builds the logger selected by Verbose and LogLevel.
func (c *Config) logger(prefix string) core.Logger {
	if c.Verbose {
		return core.LoggerFromVerbose(prefix, true)
	}
	if c.LogLevel == "" {
		return core.LoggerForLevel(prefix, core.LogLevelSilent)
	}
	return core.LoggerForLevel(prefix, core.ParseLogLevel(c.LogLevel))
}

func parseKind(s string) (schema.Kind, error) {
	for _, k := range schema.Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}
