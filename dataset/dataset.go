// Package dataset turns a set of training node ids into epochs of sampled batches.
//
// An epoch shuffles the ids with a generator seeded from the dataset seed and the
// epoch number, cuts them into fixed-size chunks and samples one batch per chunk.
// Each batch gets its own derived seed, so batches may be sampled concurrently and
// ahead of consumption without changing what they contain.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

// ErrEmpty is returned when a dataset would yield no batch at all.
var ErrEmpty = errors.New("dataset has no batches")

// BatchSampler samples one batch for a chunk of seed ids.
type BatchSampler interface {
	SampleBatch(ctx context.Context, seedIDs []string, seed int64) (*sampling.Batch, error)
}

// Options controls batching.
type Options struct {
	// BatchSize is the number of seed nodes per batch. Required.
	BatchSize int
	// DropLast drops the trailing chunk when it is smaller than BatchSize.
	DropLast bool
	// Shuffle reorders the ids at the start of every epoch.
	Shuffle bool
	// Seed is the root of every epoch and batch seed.
	Seed int64
	// Prefetch is the number of batches sampled ahead of the consumer.
	// Zero samples each batch on demand.
	Prefetch int
}

// Dataset iterates over fixed-size batches of training nodes.
type Dataset struct {
	ids     []string
	sampler BatchSampler
	opts    Options
}

// New creates a dataset over ids. The ids are copied.
func New(ids []string, sampler BatchSampler, opts Options) (*Dataset, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", sampling.ErrConfiguration, opts.BatchSize)
	}
	if opts.Prefetch < 0 {
		return nil, fmt.Errorf("%w: prefetch must not be negative, got %d", sampling.ErrConfiguration, opts.Prefetch)
	}
	d := &Dataset{ids: slices.Clone(ids), sampler: sampler, opts: opts}
	if d.Len() == 0 {
		return nil, fmt.Errorf("%w: %d ids with batch size %d", ErrEmpty, len(ids), opts.BatchSize)
	}
	return d, nil
}

// Len returns the number of batches per epoch.
func (d *Dataset) Len() int {
	n := len(d.ids) / d.opts.BatchSize
	if !d.opts.DropLast && len(d.ids)%d.opts.BatchSize != 0 {
		n++
	}
	return n
}

// Options returns the batching options.
func (d *Dataset) Options() Options { return d.opts }

// epochSeed is the seed of the shuffle of epoch; batch seeds derive from it.
func (d *Dataset) epochSeed(epoch int) int64 {
	return sampling.DeriveSeed(d.opts.Seed, uint64(epoch))
}

// BatchSeed returns the sampling seed of batch i in epoch.
func (d *Dataset) BatchSeed(epoch, i int) int64 {
	return sampling.DeriveSeed(d.epochSeed(epoch), uint64(i)+1)
}

// Epoch returns the seed id chunks of epoch, in batch order.
func (d *Dataset) Epoch(epoch int) [][]string {
	ids := slices.Clone(d.ids)
	if d.opts.Shuffle {
		rng := sampling.NewRandomSource(d.epochSeed(epoch))
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}
	chunks := make([][]string, 0, d.Len())
	for start := 0; start < len(ids); start += d.opts.BatchSize {
		end := min(start+d.opts.BatchSize, len(ids))
		if end-start < d.opts.BatchSize && d.opts.DropLast {
			break
		}
		chunks = append(chunks, ids[start:end:end])
	}
	return chunks
}

// Each samples every batch of epoch and hands them to fn in batch order. With
// Prefetch > 0 up to Prefetch batches are sampled ahead on separate goroutines.
// The first error, from sampling or from fn, stops the iteration and is returned.
func (d *Dataset) Each(ctx context.Context, epoch int, fn func(i int, b *sampling.Batch) error) error {
	chunks := d.Epoch(epoch)
	if d.opts.Prefetch == 0 {
		for i, chunk := range chunks {
			b, err := d.sampler.SampleBatch(ctx, chunk, d.BatchSeed(epoch, i))
			if err != nil {
				return fmt.Errorf("could not sample batch %d of epoch %d: %w", i, epoch, err)
			}
			if err := fn(i, b); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	// One slot for the producer, Prefetch for samplers.
	g.SetLimit(d.opts.Prefetch + 1)

	slots := make([]chan *sampling.Batch, len(chunks))
	for i := range slots {
		slots[i] = make(chan *sampling.Batch, 1)
	}
	// window bounds batches that are sampled or in flight but not yet consumed.
	window := make(chan struct{}, d.opts.Prefetch)

	g.Go(func() error {
		for i, chunk := range chunks {
			select {
			case window <- struct{}{}:
			case <-gctx.Done():
				return nil
			}
			g.Go(func() error {
				b, err := d.sampler.SampleBatch(gctx, chunk, d.BatchSeed(epoch, i))
				if err != nil {
					return fmt.Errorf("could not sample batch %d of epoch %d: %w", i, epoch, err)
				}
				slots[i] <- b
				return nil
			})
		}
		return nil
	})

	for i := range chunks {
		var b *sampling.Batch
		select {
		case b = <-slots[i]:
		case <-gctx.Done():
			if err := g.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		}
		<-window
		if err := fn(i, b); err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
	}
	return g.Wait()
}
