package engine

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// RecordView is the read-only slice of a record handed to annotation
// providers. Providers never see the record itself, so they cannot mutate
// the live set; everything they produce comes back through the attach path.
type RecordView struct {
	Key           RequestKey
	Name          string
	InitiatorType string
	Protocol      string
	StatusCode    *int
	ThirdParty    bool
	Timing        PhaseTiming
	TransferSize  int64
}

// viewOf builds a provider view from a record.
func viewOf(rec *RequestRecord) RecordView {
	return RecordView{
		Key:           rec.Key,
		Name:          rec.Raw.Name,
		InitiatorType: rec.Raw.InitiatorType,
		Protocol:      rec.Protocol,
		StatusCode:    rec.StatusCode,
		ThirdParty:    rec.ThirdParty,
		Timing:        rec.Timing,
		TransferSize:  rec.Raw.TransferSize,
	}
}

// InsightProvider produces one insight for a record, best-effort. Providers
// run off the capture path; an error simply means the record stays
// unannotated by this provider.
type InsightProvider interface {
	Name() string
	Annotate(ctx context.Context, view RecordView) (Insight, error)
}

// SecurityScanner produces zero or more findings for a record, best-effort.
type SecurityScanner interface {
	Name() string
	Scan(ctx context.Context, view RecordView) ([]SecurityFinding, error)
}

// PipelineOptions configures annotation dispatch.
type PipelineOptions struct {
	WorkerCount int // default: runtime.NumCPU()
}

// PipelineStats counts what a pipeline run did.
type PipelineStats struct {
	Dispatched int64 // provider invocations started
	Attached   int64 // annotations that landed on a record
	Failed     int64 // provider errors (dropped silently)
}

// AnnotationPipeline fans provider work out over a bounded worker pool and
// lands the completions on the session via the idempotent attach path.
// Cancelling the context abandons remaining work without error; anything a
// provider returns after the session closed is ignored by the session.
type AnnotationPipeline struct {
	providers []InsightProvider
	scanners  []SecurityScanner

	dispatched atomic.Int64
	attached   atomic.Int64
	failed     atomic.Int64
}

// NewAnnotationPipeline creates an empty pipeline.
func NewAnnotationPipeline() *AnnotationPipeline {
	return &AnnotationPipeline{}
}

// RegisterProvider adds an insight provider.
func (p *AnnotationPipeline) RegisterProvider(provider InsightProvider) {
	p.providers = append(p.providers, provider)
}

// RegisterScanner adds a security scanner.
func (p *AnnotationPipeline) RegisterScanner(scanner SecurityScanner) {
	p.scanners = append(p.scanners, scanner)
}

type annotationTask struct {
	view     RecordView
	provider InsightProvider
	scanner  SecurityScanner
}

// Run dispatches every registered provider and scanner against every record
// and blocks until all work has completed or the context is cancelled.
// Hosts that want fire-and-forget semantics run it in a goroutine with the
// session's context.
func (p *AnnotationPipeline) Run(ctx context.Context, session *Session, records []*RequestRecord) PipelineStats {
	workers := runtime.NumCPU()
	return p.run(ctx, session, records, PipelineOptions{WorkerCount: workers})
}

// RunWith is Run with explicit options.
func (p *AnnotationPipeline) RunWith(ctx context.Context, session *Session, records []*RequestRecord, opts PipelineOptions) PipelineStats {
	return p.run(ctx, session, records, opts)
}

func (p *AnnotationPipeline) run(ctx context.Context, session *Session, records []*RequestRecord, opts PipelineOptions) PipelineStats {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = runtime.NumCPU()
	}

	tasks := make(chan annotationTask, opts.WorkerCount*2)

	var wg sync.WaitGroup
	for i := 0; i < opts.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, session, tasks)
		}()
	}

	// producer: one task per (record, provider) pair; stops early when the
	// context is cancelled
	go func() {
		defer close(tasks)
		for _, rec := range records {
			view := viewOf(rec)
			for _, provider := range p.providers {
				select {
				case tasks <- annotationTask{view: view, provider: provider}:
				case <-ctx.Done():
					return
				}
			}
			for _, scanner := range p.scanners {
				select {
				case tasks <- annotationTask{view: view, scanner: scanner}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	wg.Wait()

	return PipelineStats{
		Dispatched: p.dispatched.Load(),
		Attached:   p.attached.Load(),
		Failed:     p.failed.Load(),
	}
}

func (p *AnnotationPipeline) worker(ctx context.Context, session *Session, tasks <-chan annotationTask) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			p.execute(ctx, session, task)
		}
	}
}

func (p *AnnotationPipeline) execute(ctx context.Context, session *Session, task annotationTask) {
	p.dispatched.Add(1)

	switch {
	case task.provider != nil:
		insight, err := task.provider.Annotate(ctx, task.view)
		if err != nil {
			p.failed.Add(1)
			return
		}
		if insight.Provider == "" {
			insight.Provider = task.provider.Name()
		}
		if session.AttachInsight(task.view.Key, insight) {
			p.attached.Add(1)
		}
	case task.scanner != nil:
		findings, err := task.scanner.Scan(ctx, task.view)
		if err != nil {
			p.failed.Add(1)
			return
		}
		for _, finding := range findings {
			if finding.Provider == "" {
				finding.Provider = task.scanner.Name()
			}
			if session.AttachSecurityFinding(task.view.Key, finding) {
				p.attached.Add(1)
			}
		}
	}
}
