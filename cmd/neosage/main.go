package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	neosage "github.com/saulfrancisco-ruizacevedo/go-neosage"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/dataset"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/internal/cli"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/internal/config"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/internal/ctxlog"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

// offlineQuery copies every node and relationship; isolated nodes come back with
// null relationship columns.
const offlineQuery = `MATCH (a) OPTIONAL MATCH (a)-[r]->(b) RETURN a, r, b`

func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return &cli.ExitError{Code: 2, Message: err.Error()}
	}

	logger := ctxlog.NewLogger(opts.LogLevel, opts.LogFormat, os.Stderr).
		With("run_id", uuid.New().String(), "command", opts.Command)
	ctx, stop := signal.NotifyContext(ctxlog.WithLogger(context.Background(), logger), os.Interrupt)
	defer stop()

	if opts.MetricsAddr != "" {
		srv := serveMetrics(ctx, opts.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	executor, err := neosage.NewNeo4jExecutor(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return err
	}
	defer executor.Close(context.Background())
	if err := executor.Verify(ctx); err != nil {
		return fmt.Errorf("could not connect to database '%s': %w", cfg.Neo4j.Database, err)
	}

	switch opts.Command {
	case cli.CommandImport:
		return runImport(ctx, outW, executor, opts.Import)
	default:
		return runSample(ctx, outW, executor, cfg, opts.Sample)
	}
}

func serveMetrics(ctx context.Context, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ctxlog.FromContext(ctx).Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	ctxlog.FromContext(ctx).Info("serving metrics", "addr", addr)
	return srv
}

func runSample(ctx context.Context, outW io.Writer, executor *neosage.Neo4jExecutor, cfg config.Config, opts cli.SampleOptions) error {
	logger := ctxlog.FromContext(ctx)
	pm := neosage.NewPersistenceManager(executor)

	ids, err := pm.NodeIDs(ctx, cfg.Training.LabelFilter())
	if err != nil {
		return fmt.Errorf("could not list training nodes: %w", err)
	}
	logger.Info("training nodes listed", "labels", cfg.Training.LabelFilter().String(), "count", len(ids))

	var source neosage.GraphSource = executor
	if opts.Offline {
		g, err := pm.LoadCypher(ctx, offlineQuery, nil)
		if err != nil {
			return fmt.Errorf("could not load graph: %w", err)
		}
		logger.Info("graph loaded into memory", "nodes", g.Len(), "relationships", g.EdgeCount())
		source = g
	}

	epochs := cfg.Training.Epochs
	if opts.Epochs > 0 {
		epochs = opts.Epochs
	}
	return sampleEpochs(ctx, outW, source, ids, cfg, epochs)
}

// sampleEpochs runs the epochs with a backend that prints one summary per batch
// instead of training.
func sampleEpochs(ctx context.Context, outW io.Writer, source neosage.GraphSource, ids []string, cfg config.Config, epochs int) error {
	samplingCfg, err := cfg.SamplingConfig()
	if err != nil {
		return &cli.ExitError{Code: 2, Message: err.Error()}
	}
	ds, err := dataset.New(ids, neosage.NewSamplingManager(source, samplingCfg), cfg.Training.DatasetOptions())
	if err != nil {
		return &cli.ExitError{Code: 2, Message: err.Error()}
	}
	_, err = dataset.Fit(ctx, ds, &summaryBackend{enc: json.NewEncoder(outW)}, epochs)
	return err
}

// batchSummary is the JSON line printed for every sampled batch.
type batchSummary struct {
	Seed      int64  `json:"seed"`
	Nodes     int    `json:"nodes"`
	Features  [2]int `json:"features"`
	Positive  int    `json:"positive"`
	Negative  int    `json:"negative"`
	Adjacency int    `json:"adjacency"`
}

type summaryBackend struct {
	enc *json.Encoder
}

func (b *summaryBackend) TrainBatch(ctx context.Context, batch *sampling.Batch) (float64, error) {
	rows, cols := batch.Graph.Features.Dims()
	return 0, b.enc.Encode(batchSummary{
		Seed:      batch.Seed,
		Nodes:     len(batch.Nodes),
		Features:  [2]int{rows, cols},
		Positive:  batch.Positive.Len(),
		Negative:  batch.Negative.Len(),
		Adjacency: batch.Graph.Adjacency.Len(),
	})
}

func runImport(ctx context.Context, outW io.Writer, runner neosage.DBRunner, opts cli.ImportOptions) error {
	im := neosage.NewImporter(runner)
	im.RelationType = opts.RelationType
	im.MatchLabel = opts.MatchLabel
	im.BatchSize = opts.BatchSize

	if opts.NodesPath != "" {
		n, err := importFile(opts.NodesPath, func(r io.Reader) (int, error) { return im.ImportNodes(ctx, r) })
		if err != nil {
			return err
		}
		fmt.Fprintf(outW, "imported %d nodes from %s\n", n, opts.NodesPath)
	}
	if opts.RelationshipsPath != "" {
		n, err := importFile(opts.RelationshipsPath, func(r io.Reader) (int, error) { return im.ImportRelationships(ctx, r) })
		if err != nil {
			return err
		}
		fmt.Fprintf(outW, "imported %d relationships from %s\n", n, opts.RelationshipsPath)
	}
	return nil
}

func importFile(path string, load func(io.Reader) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()
	n, err := load(f)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}
