// Package sampling turns a large, externally stored graph into fixed-shape training
// batches for unsupervised GraphSAGE-style learning.
//
// A batch is built in three stages that share one IndexTable and one RandomSource:
//
//  1. EdgeSetBuilder samples, for each seed node, one positive neighbor and a fixed
//     number of random negatives, producing contrastive edge pairs.
//  2. NeighborExpander grows the node set hop by hop, capping the fan-out of every
//     node with reservoir sampling.
//  3. TensorAssembler renders the final node set into a dense feature matrix and an
//     edge-index array in local index space.
//
// Sample runs the three stages in order. All reads go through the Graph interface,
// which implementations are expected to back with one consistent snapshot of the store.
//
// The package does not log and keeps no state between calls.
package sampling
