// Package worker runs many queries through the resolver concurrently.
package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/quaestio/internal/errs"
	"github.com/ppiankov/quaestio/internal/logging"
	"github.com/ppiankov/quaestio/internal/model"
)

// Resolver answers one request
type Resolver interface {
	Resolve(ctx context.Context, req model.Request) (*model.Response, error)
}

// QueryJob resolves a single query
type QueryJob struct {
	Index    int
	Query    string
	Resolver Resolver
}

// Execute runs the job
func (j *QueryJob) Execute(ctx context.Context) Result {
	resp, err := j.Resolver.Resolve(ctx, model.Request{Query: j.Query})
	return &QueryResult{
		Index:    j.Index,
		Query:    j.Query,
		Response: resp,
		Error:    err,
	}
}

// QueryResult is the outcome of one query in a batch
type QueryResult struct {
	Index    int
	Query    string
	Response *model.Response
	Error    error
}

// GetError returns the query's error
func (r *QueryResult) GetError() error {
	return r.Error
}

// Summary aggregates a batch run
type Summary struct {
	Total     int
	BySource  map[model.ResponseSource]int
	ByError   map[errs.Kind]int
	TotalCost float64
}

// Summarize counts results by response source and error kind
func Summarize(results []*QueryResult) Summary {
	s := Summary{
		Total:    len(results),
		BySource: make(map[model.ResponseSource]int),
		ByError:  make(map[errs.Kind]int),
	}
	for _, r := range results {
		if r.Error != nil {
			s.ByError[errs.KindOf(r.Error)]++
			continue
		}
		s.BySource[r.Response.Source]++
		if r.Response.Source == model.FromGenerated {
			s.TotalCost += r.Response.Cost
		}
	}
	return s
}

// BatchProcessor resolves many queries concurrently
type BatchProcessor struct {
	resolver    Resolver
	concurrency int
	logger      *zap.Logger
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(resolver Resolver, concurrency int, logger *zap.Logger) *BatchProcessor {
	return &BatchProcessor{
		resolver:    resolver,
		concurrency: concurrency,
		logger:      logging.OrNop(logger),
	}
}

// ProcessQueries resolves queries and returns results in input order.
// Queries not started before ctx is done are reported as canceled.
func (b *BatchProcessor) ProcessQueries(ctx context.Context, queries []string) []*QueryResult {
	if len(queries) == 0 {
		return []*QueryResult{}
	}

	pool := NewPool(ctx, b.concurrency)

	submitted := make([]bool, len(queries))
	for i, q := range queries {
		submitted[i] = pool.Submit(&QueryJob{Index: i, Query: q, Resolver: b.resolver})
	}

	out := make([]*QueryResult, len(queries))
	for _, result := range pool.Wait() {
		r := result.(*QueryResult)
		out[r.Index] = r
	}

	for i, r := range out {
		if r != nil {
			continue
		}
		if submitted[i] {
			b.logger.Debug("query dropped by pool shutdown", zap.Int("index", i))
		}
		out[i] = &QueryResult{
			Index: i,
			Query: queries[i],
			Error: errs.E(errs.KindCanceled, "batch canceled before the query ran", ctx.Err()),
		}
	}

	return out
}

// ProcessFile reads queries from a file and resolves them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*QueryResult, error) {
	queries, err := ReadQueriesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}

	b.logger.Info("batch started", zap.String("file", filePath), zap.Int("queries", len(queries)), zap.Int("concurrency", b.concurrency))
	return b.ProcessQueries(ctx, queries), nil
}

// ReadQueriesFromFile reads one query per line. Blank lines and lines
// starting with # are skipped, and repeated queries are read once.
func ReadQueriesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var queries []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			queries = append(queries, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return queries, nil
}
