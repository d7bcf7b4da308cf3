package neosage

import (
	"context"
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// sliceStream replays a fixed list of records.
type sliceStream struct {
	records []*neo4j.Record
	pos     int
	err     error
}

func (s *sliceStream) Next(ctx context.Context) bool {
	if s.pos >= len(s.records) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceStream) Record() *neo4j.Record { return s.records[s.pos-1] }

func (s *sliceStream) Err() error {
	if s.pos >= len(s.records) {
		return s.err
	}
	return nil
}

type runCall struct {
	query  string
	params map[string]any
}

// scriptedRunner answers transaction queries from a script keyed by query text.
type scriptedRunner struct {
	results map[string][]*neo4j.Record
	// failAfter makes the stream of that query fail once its records are drained.
	failAfter map[string]error
	calls     []runCall
}

func (r *scriptedRunner) Run(ctx context.Context, cypher string, params map[string]any) (recordStream, error) {
	r.calls = append(r.calls, runCall{query: cypher, params: params})
	records, ok := r.results[cypher]
	if !ok {
		return nil, errors.New("unexpected query: " + cypher)
	}
	return &sliceStream{records: records, err: r.failAfter[cypher]}, nil
}

// fakeDB is a DBRunner that records every query and answers from a queue.
type fakeDB struct {
	queries []runCall
	answers []*neo4j.EagerResult
	err     error
}

func (f *fakeDB) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	f.queries = append(f.queries, runCall{query: query, params: params})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.answers) == 0 {
		return &neo4j.EagerResult{}, nil
	}
	res := f.answers[0]
	f.answers = f.answers[1:]
	return res, nil
}

func (f *fakeDB) matching(substr string) []runCall {
	var out []runCall
	for _, q := range f.queries {
		if strings.Contains(q.query, substr) {
			out = append(out, q)
		}
	}
	return out
}

func nodeRecord(key string, n neo4j.Node) *neo4j.Record {
	return &neo4j.Record{Keys: []string{key}, Values: []any{n}}
}

func idRecord(id string) *neo4j.Record {
	return &neo4j.Record{Keys: []string{"id"}, Values: []any{id}}
}

func paper(id string, x float64) neo4j.Node {
	return neo4j.Node{ElementId: id, Labels: []string{"Paper"}, Props: map[string]any{"x": x}}
}
