package aggregate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"mailsift/internal/classify"
	"mailsift/internal/domain"
	"mailsift/internal/geo"
	"mailsift/internal/support"
)

const (
	shardBuffer = 1024
	// postscreen lines are short, but NOQUEUE remainders can carry long
	// helo/sender text.
	maxLineBytes = 256 * 1024
)

// Pipeline reads a log stream once, classifies lines in file order and
// dispatches the events to hash-sharded workers. Events for one IP always
// land on the same worker, so FIRST_SEEN/LAST_SEEN and the reconnection-delay
// precondition see file order regardless of the worker count. One worker
// reproduces the plain sequential fold.
type Pipeline struct {
	classifier *classify.Classifier
	locator    geo.Locator
	ipFilter   string
	workers    int
}

// NewPipeline builds a pipeline. ipFilter, when non-empty, is a raw substring
// match on the whole line, applied before classification. workers below 1 is
// treated as 1.
func NewPipeline(classifier *classify.Classifier, locator geo.Locator, ipFilter string, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		classifier: classifier,
		locator:    locator,
		ipFilter:   ipFilter,
		workers:    workers,
	}
}

// Run consumes the stream to the end and returns the merged IP->ClientState
// map. A timestamp failure on any line aborts the whole run.
func (p *Pipeline) Run(r io.Reader) (map[string]*domain.ClientState, error) {
	aggregators := make([]*Aggregator, p.workers)
	shards := make([]chan domain.Event, p.workers)
	for i := range aggregators {
		aggregators[i] = New(p.locator)
		shards[i] = make(chan domain.Event, shardBuffer)
	}

	group, ctx := errgroup.WithContext(context.Background())

	for i := range aggregators {
		agg, shard := aggregators[i], shards[i]
		group.Go(func() error {
			for ev := range shard {
				agg.Ingest(ev)
			}
			return nil
		})
	}

	group.Go(func() error {
		defer func() {
			for _, shard := range shards {
				close(shard)
			}
		}()

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := scanner.Text()
			if p.ipFilter != "" && !strings.Contains(line, p.ipFilter) {
				continue
			}
			ev, ok, err := p.classifier.Classify(line)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			select {
			case shards[support.ShardIndex(ev.SourceIP, p.workers)] <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("aggregate: read log stream: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Shards are disjoint by construction, merging is a plain union.
	clients := aggregators[0].Clients()
	for _, agg := range aggregators[1:] {
		for ip, state := range agg.Clients() {
			clients[ip] = state
		}
	}
	return clients, nil
}
