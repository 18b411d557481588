// artifact-lint validates bounty, assertion and verdict documents.
//
// Usage:
//
//  1. VALIDATE (default):
//     artifact-lint -kind verdict verdict.json other.yaml
//
//  2. CANONICALISE:
//     artifact-lint -kind bounty -canonical bounty.jsonc
//
//  3. SEAL / OPEN:
//     artifact-lint -kind assertion -seal -encoding cbor -compression zstd assertion.json
//     artifact-lint -open envelope.json
//
//  4. SCHEMA:
//     artifact-lint -kind verdict -schema
//
// Inputs are read from the named files, or standard input when none (or
// "-") is given. The exit status is 1 when any input is rejected.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/exploopio/artifact/pkg/codec"
	"github.com/exploopio/artifact/pkg/compress"
	"github.com/exploopio/artifact/pkg/core"
	"github.com/exploopio/artifact/pkg/envelope"
	"github.com/exploopio/artifact/pkg/fingerprint"
	"github.com/exploopio/artifact/pkg/metrics"
	"github.com/exploopio/artifact/pkg/schema"
)

const (
	appName    = "artifact-lint"
	appVersion = "1.0.0"
)

const (
	exitOK       = 0
	exitRejected = 1
	exitUsage    = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// mode is what run does with each accepted input.
type mode struct {
	canonical   bool
	fingerprint bool
	diag        bool
	dedupe      bool
	seal        bool
	open        bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var fv flagValues
	var m mode
	configPath := fs.String("config", "", "Path to config file")
	fs.StringVar(&fv.kind, "kind", string(schema.KindVerdict), "Document kind (verdict, bounty, assertion, file_artifact, url_artifact, scanner, stix_signature)")
	fs.StringVar(&fv.format, "format", "", "Input format: json, jsonc, yaml, cbor (default: from file extension)")
	fs.StringVar(&fv.encoding, "encoding", string(envelope.EncodingJSON), "Envelope payload encoding for -seal: json, cbor")
	fs.StringVar(&fv.compression, "compression", string(compress.AlgorithmNone), "Envelope compression for -seal: none, zstd, gzip")
	fs.BoolVar(&fv.autoCompression, "auto-compression", false, "Let the payload analyzer pick the compression for -seal")
	fs.BoolVar(&fv.verbose, "verbose", false, "Verbose output")
	fs.StringVar(&fv.logLevel, "log-level", "", "Log level when not verbose: debug, info, warn, error, silent")
	fs.StringVar(&fv.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile on exit")
	fs.BoolVar(&m.canonical, "canonical", false, "Print the canonical JSON of each accepted input")
	fs.BoolVar(&m.fingerprint, "fingerprint", false, "Print the fingerprint of each accepted input")
	fs.BoolVar(&m.diag, "diag", false, "Print the CBOR diagnostic notation of each accepted input")
	fs.BoolVar(&m.dedupe, "dedupe", false, "Drop repeated artifacts from bounties before output")
	fs.BoolVar(&m.seal, "seal", false, "Print each accepted input sealed in an envelope")
	fs.BoolVar(&m.open, "open", false, "Inputs are envelopes: open them and print the canonical JSON")
	printSchema := fs.Bool("schema", false, "Print the JSON schema of -kind and exit")
	showVersion := fs.Bool("version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s version %s\n", appName, appVersion)
		return exitOK
	}

	cfg := defaultConfig()
	if *configPath != "" {
		if err := loadConfig(*configPath, cfg); err != nil {
			fmt.Fprintf(stderr, "Error loading config: %v\n", err)
			return exitUsage
		}
	}
	fv.apply(fs, cfg)

	kind, encoding, algorithm, err := cfg.validate()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if m.seal && m.open {
		fmt.Fprintln(stderr, "Error: -seal and -open are mutually exclusive")
		return exitUsage
	}

	logger := cfg.logger(appName)
	if l, ok := logger.(*core.DefaultLogger); ok {
		l.SetOutput(stderr)
	}
	core.SetDefaultLogger(logger)
	defer core.SetDefaultLogger(nil)

	if cfg.MetricsFile != "" {
		collector := metrics.NewPrometheusCollector(&metrics.PrometheusConfig{RegisterDefaultMetrics: true})
		metrics.SetDefaultCollector(collector)
		defer func() {
			metrics.SetDefaultCollector(nil)
			if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
				fmt.Fprintf(stderr, "Error writing metrics: %v\n", err)
			}
		}()
	}

	if *printSchema {
		raw, err := schema.RawSchema(kind)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		_, _ = stdout.Write(raw)
		return exitOK
	}

	sealOpts := []envelope.Option{envelope.WithEncoding(encoding), envelope.WithCompression(algorithm)}
	if cfg.Envelope.AutoCompression {
		sealOpts = append(sealOpts, envelope.WithAutoCompression(nil))
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	status := exitOK
	for _, path := range inputs {
		data, err := readInput(path, stdin)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			status = exitRejected
			continue
		}

		var doc schema.Document
		if m.open {
			doc, err = openEnvelope(data)
		} else {
			doc, err = lint(kind, formatFor(cfg.Format, path), data)
		}
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			status = exitRejected
			continue
		}
		core.GetDefaultLogger().Info("%s: valid %s", path, doc.Kind())

		if err := emit(stdout, path, doc, m, sealOpts); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			status = exitRejected
		}
	}
	return status
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(filepath.Clean(path))
}

// lint decodes one input and validates it as a document of kind.
func lint(kind schema.Kind, format Format, data []byte) (schema.Document, error) {
	value, err := decode(format, data)
	if err != nil {
		return nil, err
	}
	return schema.Check(kind, value)
}

func openEnvelope(data []byte) (schema.Document, error) {
	env, err := envelope.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return envelope.Open(env)
}

// emit writes the outputs selected by m for an accepted document.
func emit(w io.Writer, path string, doc schema.Document, m mode, sealOpts []envelope.Option) error {
	if b, ok := doc.(*schema.Bounty); ok && m.dedupe {
		doc = fingerprint.DedupeBounty(b)
	}

	if m.canonical || m.open {
		out, err := schema.Marshal(doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", out)
	}

	if m.fingerprint {
		digest, err := fingerprint.Document(doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s  %s\n", digest, path)
	}

	if m.diag {
		data, err := codec.Marshal(doc)
		if err != nil {
			return err
		}
		notation, err := codec.Diagnose(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, notation)
	}

	if m.seal {
		env, err := envelope.Seal(doc, sealOpts...)
		if err != nil {
			return err
		}
		out, err := env.Marshal()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", out)
	}
	return nil
}
