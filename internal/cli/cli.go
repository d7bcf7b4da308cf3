package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Command names.
const (
	CommandSample = "sample"
	CommandImport = "import"
)

// Options is the parsed command line.
type Options struct {
	Command     string
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	MetricsAddr string

	Sample SampleOptions
	Import ImportOptions
}

// SampleOptions are the flags of the sample command.
type SampleOptions struct {
	// Epochs overrides training.epochs when positive.
	Epochs int
	// Offline loads the graph into memory before sampling.
	Offline bool
}

// ImportOptions are the flags of the import command.
type ImportOptions struct {
	NodesPath         string
	RelationshipsPath string
	RelationType      string
	MatchLabel        string
	BatchSize         int
}

const usage = `
neosage - GraphSAGE batch sampling over Neo4j.

Usage:
  neosage [options] sample [--epochs N] [--offline]
  neosage [options] import --nodes FILE [--relationships FILE] [--rel-type TYPE]

Commands:
  sample   Sample training epochs and print one JSON summary per batch.
  import   Load nodes and relationships from neo4j-admin style CSV files.

Options:
`

// Parse processes command-line arguments. It returns the parsed Options, a boolean
// indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	flagSet := flag.NewFlagSet("neosage", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usage)
		flagSet.PrintDefaults()
	}

	opts := &Options{}
	flagSet.StringVar(&opts.ConfigPath, "config", "", "Path to the YAML configuration file.")
	flagSet.StringVar(&opts.LogFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flagSet.StringVar(&opts.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.StringVar(&opts.MetricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on, e.g. ':9464'. Empty disables it.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	opts.LogFormat = strings.ToLower(opts.LogFormat)
	if opts.LogFormat != "text" && opts.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	opts.LogLevel = strings.ToLower(opts.LogLevel)
	switch opts.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	opts.Command = flagSet.Arg(0)
	rest := flagSet.Args()[1:]

	var err error
	switch opts.Command {
	case CommandSample:
		err = parseSample(opts, rest, output)
	case CommandImport:
		err = parseImport(opts, rest, output)
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", opts.Command)}
	}
	if errors.Is(err, flag.ErrHelp) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return opts, false, nil
}

func parseSample(opts *Options, args []string, output io.Writer) error {
	fs := flag.NewFlagSet("neosage sample", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&opts.Sample.Epochs, "epochs", 0, "Number of epochs; overrides training.epochs when positive.")
	fs.BoolVar(&opts.Sample.Offline, "offline", false, "Load the graph into memory once and sample from the copy.")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}
	if opts.Sample.Epochs < 0 {
		return &ExitError{Code: 2, Message: "epochs must not be negative"}
	}
	if fs.NArg() > 0 {
		return &ExitError{Code: 2, Message: fmt.Sprintf("unexpected argument %q", fs.Arg(0))}
	}
	return nil
}

func parseImport(opts *Options, args []string, output io.Writer) error {
	fs := flag.NewFlagSet("neosage import", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.Import.NodesPath, "nodes", "", "Node CSV file.")
	fs.StringVar(&opts.Import.RelationshipsPath, "relationships", "", "Relationship CSV file.")
	fs.StringVar(&opts.Import.RelationType, "rel-type", "CITES", "Relationship type for rows without a :TYPE column.")
	fs.StringVar(&opts.Import.MatchLabel, "match-label", "", "Only match relationship endpoints carrying this label.")
	fs.IntVar(&opts.Import.BatchSize, "batch-size", 1000, "Rows per write query.")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}
	if opts.Import.NodesPath == "" && opts.Import.RelationshipsPath == "" {
		return &ExitError{Code: 2, Message: "import needs --nodes, --relationships or both"}
	}
	if opts.Import.BatchSize <= 0 {
		return &ExitError{Code: 2, Message: "batch-size must be positive"}
	}
	return nil
}
