package sampling

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DenseGraph is the tensor form of a sampled subgraph.
type DenseGraph struct {
	// Features is the N×D feature matrix; row i belongs to the node at index i.
	Features *mat.Dense
	// Adjacency holds the message-passing edges in local index space.
	Adjacency EdgeIndex
}

// TensorAssembler renders a node set into a dense feature matrix.
type TensorAssembler struct {
	// Properties lists the node properties concatenated into each row, in order.
	Properties []string
}

// Assemble builds the feature matrix for nodes, in order, and pairs it with adj.
// The row width is fixed by the first node; any node missing a property, carrying a
// non-numeric value or producing a row of a different width fails with
// ErrFeatureShape. Values are copied as-is, without normalisation.
func (a TensorAssembler) Assemble(nodes []Node, adj EdgeIndex) (*DenseGraph, error) {
	if len(nodes) == 0 {
		return nil, ErrNoSeeds
	}
	first, err := a.row(nodes[0], nil)
	if err != nil {
		return nil, err
	}
	width := len(first)
	if width == 0 {
		return nil, fmt.Errorf("%w: properties %v of node %s yield zero columns", ErrFeatureShape, a.Properties, nodes[0].ID)
	}

	data := make([]float64, 0, len(nodes)*width)
	data = append(data, first...)
	for _, n := range nodes[1:] {
		before := len(data)
		data, err = a.row(n, data)
		if err != nil {
			return nil, err
		}
		if got := len(data) - before; got != width {
			return nil, fmt.Errorf("%w: node %s has %d columns, want %d", ErrFeatureShape, n.ID, got, width)
		}
	}

	for i := range adj.Len() {
		if adj.Src[i] >= int64(len(nodes)) || adj.Dst[i] >= int64(len(nodes)) {
			return nil, fmt.Errorf("edge %d (%d -> %d) is outside %d nodes", i, adj.Src[i], adj.Dst[i], len(nodes))
		}
	}
	return &DenseGraph{Features: mat.NewDense(len(nodes), width, data), Adjacency: adj}, nil
}

// row appends the concatenated feature values of n to dst.
func (a TensorAssembler) row(n Node, dst []float64) ([]float64, error) {
	for _, p := range a.Properties {
		v, ok := n.Props[p]
		if !ok || v == nil {
			return nil, fmt.Errorf("%w: node %s has no property %q", ErrFeatureShape, n.ID, p)
		}
		var err error
		dst, err = appendNumeric(dst, v)
		if err != nil {
			return nil, fmt.Errorf("%w: node %s property %q: %v", ErrFeatureShape, n.ID, p, err)
		}
	}
	return dst, nil
}

// appendNumeric appends a numeric scalar or the elements of a numeric array to dst.
func appendNumeric(dst []float64, v any) ([]float64, error) {
	if f, ok := scalar(v); ok {
		return append(dst, f), nil
	}
	switch t := v.(type) {
	case []float64:
		return append(dst, t...), nil
	case []float32:
		for _, e := range t {
			dst = append(dst, float64(e))
		}
	case []int64:
		for _, e := range t {
			dst = append(dst, float64(e))
		}
	case []int:
		for _, e := range t {
			dst = append(dst, float64(e))
		}
	case []any:
		for i, e := range t {
			f, ok := scalar(e)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, not numeric", i, e)
			}
			dst = append(dst, f)
		}
	default:
		return nil, fmt.Errorf("value is %T, not numeric", v)
	}
	return dst, nil
}

func scalar(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	}
	return 0, false
}
