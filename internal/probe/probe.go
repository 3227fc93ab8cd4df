package probe

import (
	"context"
	"log"

	"github.com/jonathan/exam-automation/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of portals rendered at once.
const DefaultConcurrency = 2

// Result is the outcome of probing one exam configuration.
type Result struct {
	Slug       string           `json:"slug"`
	URL        string           `json:"url"`
	FieldCount int              `json:"field_count"`
	Missing    []MissingMapping `json:"missing"`
	Error      string           `json:"error,omitempty"`
}

// OK reports whether the page rendered and every mapping was found.
func (r Result) OK() bool {
	return r.Error == "" && len(r.Missing) == 0
}

// Prober renders exam portals and checks their field mappings.
type Prober struct {
	Render      Renderer
	Concurrency int
	Verbose     bool
}

// Run probes every exam, at most Concurrency at a time, and returns results in
// input order. A failure on one portal is recorded in its Result and does not
// stop the others; Run only fails if ctx is cancelled.
func (p *Prober) Run(ctx context.Context, exams []types.ExamConfig) ([]Result, error) {
	limit := p.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]Result, len(exams))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range exams {
		exam := exams[i]
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = p.probeOne(gCtx, exam)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (p *Prober) probeOne(ctx context.Context, exam types.ExamConfig) Result {
	result := Result{Slug: exam.Slug, URL: exam.URL, Missing: []MissingMapping{}}

	html, err := p.Render(ctx, exam.URL)
	if err != nil {
		log.Printf("[probe] %s: %v", exam.Slug, err)
		result.Error = err.Error()
		return result
	}

	fields, err := FormFields(html)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.FieldCount = len(fields)
	result.Missing = CheckMappings(exam.FieldMappings, fields)
	if p.Verbose {
		log.Printf("[probe] %s: %d form fields, %d missing mappings", exam.Slug, len(fields), len(result.Missing))
	}
	return result
}
