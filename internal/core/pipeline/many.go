package pipeline

import (
	"context"
	"sync"

	"chatlens/internal/core/model"
)

// Conversation is one independent input for RunMany
type Conversation struct {
	Raws []model.RawMessage
	Meta model.Metadata
}

// Outcome pairs a RunMany result with its error, at the input's index
type Outcome struct {
	Result model.Result
	Err    error
}

// RunMany analyzes independent conversations concurrently, at most
// cfg.Workers at a time. Outcomes keep input order
func (p *Pipeline) RunMany(ctx context.Context, convs []Conversation) []Outcome {
	out := make([]Outcome, len(convs))

	sem := make(chan struct{}, p.cfg.Workers)
	wg := sync.WaitGroup{}

	for i := range convs {
		if err := ctx.Err(); err != nil {
			out[i] = Outcome{Err: err}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer func() { <-sem; wg.Done() }()
			res, err := p.Run(ctx, convs[i].Raws, convs[i].Meta, nil)
			out[i] = Outcome{Result: res, Err: err}
		}(i)
	}
	wg.Wait()
	return out
}
