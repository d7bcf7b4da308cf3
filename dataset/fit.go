package dataset

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/internal/ctxlog"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/metrics"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

// Backend is the training side: it runs one optimisation step on a batch and
// reports the batch loss.
type Backend interface {
	TrainBatch(ctx context.Context, b *sampling.Batch) (float64, error)
}

// EpochResult summarises one epoch.
type EpochResult struct {
	Epoch    int
	Batches  int
	MeanLoss float64
	Duration time.Duration
}

// Report is the outcome of Fit.
type Report struct {
	Epochs []EpochResult
}

// MeanEpochDuration returns the average epoch duration, or zero without epochs.
func (r *Report) MeanEpochDuration() time.Duration {
	if len(r.Epochs) == 0 {
		return 0
	}
	var total time.Duration
	for _, e := range r.Epochs {
		total += e.Duration
	}
	return total / time.Duration(len(r.Epochs))
}

// Fit trains backend for epochs passes over ds. It stops at the first sampling or
// training error and returns the epochs finished so far together with the error.
func Fit(ctx context.Context, ds *Dataset, backend Backend, epochs int) (*Report, error) {
	if epochs <= 0 {
		return nil, fmt.Errorf("%w: epochs must be positive, got %d", sampling.ErrConfiguration, epochs)
	}
	logger := ctxlog.FromContext(ctx)
	report := &Report{Epochs: make([]EpochResult, 0, epochs)}

	for epoch := range epochs {
		start := time.Now()
		losses := make([]float64, 0, ds.Len())
		err := ds.Each(ctx, epoch, func(i int, b *sampling.Batch) error {
			loss, err := backend.TrainBatch(ctx, b)
			if err != nil {
				return fmt.Errorf("could not train batch %d of epoch %d: %w", i, epoch, err)
			}
			losses = append(losses, loss)
			return nil
		})
		if err != nil {
			logger.Error("epoch failed", "epoch", epoch, "batches", len(losses), "error", err)
			return report, err
		}

		res := EpochResult{
			Epoch:    epoch,
			Batches:  len(losses),
			MeanLoss: stat.Mean(losses, nil),
			Duration: time.Since(start),
		}
		report.Epochs = append(report.Epochs, res)
		metrics.EpochLoss.Set(res.MeanLoss)
		metrics.EpochDuration.Observe(res.Duration.Seconds())
		logger.Info("epoch finished",
			"epoch", epoch,
			"batches", res.Batches,
			"loss", res.MeanLoss,
			"duration", res.Duration,
		)
	}
	logger.Info("training finished", "epochs", epochs, "mean_epoch_duration", report.MeanEpochDuration())
	return report, nil
}
