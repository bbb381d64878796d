package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Input is one document of a batch.
type Input struct {
	Name string
	Text string
}

// BatchResult pairs a document with its outcome. Exactly one of Result and
// Err is set.
type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// RunBatch processes docs with at most workers concurrent runs. Results are
// returned in input order; a failing document does not stop the others.
func (p *Pipeline) RunBatch(ctx context.Context, docs []Input, workers int) []BatchResult {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]BatchResult, len(docs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			res, err := p.Run(ctx, doc.Name, doc.Text)
			results[i] = BatchResult{Name: doc.Name, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
