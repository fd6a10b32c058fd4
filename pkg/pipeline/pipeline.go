// Package pipeline keeps the analysis of one open document fresh.
//
// A Pipeline has two stages. The sync stage applies buffered edits to the
// current snapshot; the analyze stage parses and lints the current snapshot.
// Each stage runs in its own goroutine, waits a short delay after being
// requested so that bursts of requests coalesce into one pass, and never runs
// two passes at once. A finished sync pass requests an analyze pass.
//
// The current snapshot and analysis are immutable values swapped atomically.
// Readers never block on them. Only the edit buffer is guarded by a lock,
// which is never held while applying edits or parsing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"src.mwls.dev/pkg/diag"
	"src.mwls.dev/pkg/document"
	"src.mwls.dev/pkg/lint"
	"src.mwls.dev/pkg/logutil"
	"src.mwls.dev/pkg/wikitext"
)

// Errors returned by Pipeline methods.
var (
	ErrClosed = errors.New("pipeline closed")
	// ErrNoAnalysis is returned by AwaitFresh when every analysis of the
	// document so far has failed.
	ErrNoAnalysis = errors.New("document has not been analyzed")
)

// Analysis is the result of one analyze pass.
type Analysis struct {
	// The snapshot that was analyzed.
	Snapshot    *document.Snapshot
	Root        *wikitext.Wikitext
	Diagnostics []diag.Diagnostic
}

// Options configures a Pipeline. The zero value is usable.
type Options struct {
	// Returns the delay before a sync pass. Defaults to SyncDelay.
	SyncDelay func(textLen int) time.Duration
	// Delay before an analyze pass. Defaults to 100ms.
	AnalyzeDelay time.Duration
	// Used for all delays. Defaults to time.After.
	After func(time.Duration) <-chan time.Time
	// Defaults to wikitext.Parse.
	Parse func(text string) *wikitext.Wikitext
	// Defaults to lint.Lint.
	Lint func(root *wikitext.Wikitext) []diag.Diagnostic
	// Returns the maximal number of diagnostics kept per analysis; 0 or less
	// means no limit. Called once per analyze pass.
	MaxProblems func() int
	// Called from the analyze goroutine after each published analysis.
	OnAnalysis func(*Analysis)
	// Defaults to unregistered metrics.
	Metrics *Metrics
}

// SyncDelay is the default delay before a sync pass: 100ms, or 1ms per 50
// bytes of text for larger documents.
func SyncDelay(textLen int) time.Duration {
	return max(100*time.Millisecond, time.Duration(textLen/50)*time.Millisecond)
}

var logger = logutil.GetLogger("[pipeline] ")

// Pipeline is the state of one open document.
type Pipeline struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	syncStage, analyzeStage *stage

	mu sync.Mutex
	// Edits not yet applied and the version they lead to.
	pending        []document.Change
	pendingVersion int
	// Generation of the latest accepted edit batch; the open text is 1.
	accepted uint64

	current  atomic.Pointer[generation]
	analysis atomic.Pointer[Analysis]
	waiters  atomic.Int32

	freshMu sync.Mutex
	// Generation of the latest finished analysis, successful or not.
	analyzed uint64
	// Closed and replaced when analyzed changes.
	fresh chan struct{}
}

// A snapshot and the generation of the latest edit batch it includes.
type generation struct {
	snap *document.Snapshot
	gen  uint64
}

// Open starts a pipeline for a document with the given initial text and
// requests its first analysis.
func Open(uri string, version int, text string, opts Options) *Pipeline {
	if opts.SyncDelay == nil {
		opts.SyncDelay = SyncDelay
	}
	if opts.AnalyzeDelay == 0 {
		opts.AnalyzeDelay = 100 * time.Millisecond
	}
	if opts.After == nil {
		opts.After = time.After
	}
	if opts.Parse == nil {
		opts.Parse = wikitext.Parse
	}
	if opts.Lint == nil {
		opts.Lint = lint.Lint
	}
	if opts.MaxProblems == nil {
		opts.MaxProblems = func() int { return 0 }
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{opts: opts, ctx: ctx, cancel: cancel, accepted: 1, fresh: make(chan struct{})}
	p.current.Store(&generation{document.New(uri, version, text), 1})
	p.syncStage = newStage(func() time.Duration {
		return opts.SyncDelay(len(p.current.Load().snap.Text))
	}, opts.After, p.syncPass)
	p.analyzeStage = newStage(func() time.Duration { return opts.AnalyzeDelay }, opts.After, p.analyzePass)
	p.wg.Go(func() { p.syncStage.loop(ctx) })
	p.wg.Go(func() { p.analyzeStage.loop(ctx) })
	p.analyzeStage.request()
	return p
}

// URI returns the URI of the document.
func (p *Pipeline) URI() string { return p.current.Load().snap.URI }

// Snapshot returns the current snapshot. Edits still in the buffer are not
// reflected.
func (p *Pipeline) Snapshot() *document.Snapshot { return p.current.Load().snap }

// Analysis returns the latest published analysis, or nil if there is none
// yet. It may be older than the current snapshot.
func (p *Pipeline) Analysis() *Analysis { return p.analysis.Load() }

// NotifyChange buffers edits that lead to the given version and requests a
// sync pass. Edits with malformed ranges are rejected as a whole with
// document.ErrInvalidEdit.
func (p *Pipeline) NotifyChange(version int, changes ...document.Change) error {
	if p.ctx.Err() != nil {
		return ErrClosed
	}
	for _, c := range changes {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.pending = append(p.pending, changes...)
	p.pendingVersion = version
	p.accepted++
	p.mu.Unlock()
	p.syncStage.request()
	return nil
}

// RequestAnalyze requests an analyze pass of the current snapshot, for
// example after settings affecting diagnostics have changed.
func (p *Pipeline) RequestAnalyze() { p.analyzeStage.request() }

func (p *Pipeline) syncPass(ctx context.Context) {
	applied := 0
	for ctx.Err() == nil {
		p.mu.Lock()
		changes, version, gen := p.pending, p.pendingVersion, p.accepted
		p.pending = nil
		p.mu.Unlock()
		if len(changes) == 0 {
			break
		}
		cur := p.current.Load()
		snap, err := cur.snap.Apply(version, changes...)
		if err != nil {
			// Changes are validated when buffered, so this is not expected.
			logger.Printf("apply %d edits to %s: %v", len(changes), cur.snap.URI, err)
			snap = cur.snap
		}
		p.current.Store(&generation{snap, gen})
		applied += len(changes)
	}
	if applied == 0 {
		return
	}
	p.opts.Metrics.SyncPasses.Inc()
	p.opts.Metrics.EditsApplied.Add(float64(applied))
	if p.waiters.Load() > 0 {
		p.analyzeStage.requestNow()
	} else {
		p.analyzeStage.request()
	}
}

func (p *Pipeline) analyzePass(ctx context.Context) {
	for ctx.Err() == nil {
		cur := p.current.Load()
		start := time.Now()
		a, err := p.run(ctx, cur.snap)
		if err != nil {
			if ctx.Err() == nil {
				p.opts.Metrics.FailedAnalyses.Inc()
				logger.Printf("analyze %s version %d: %v", cur.snap.URI, cur.snap.Version, err)
				p.markAnalyzed(cur.gen)
			}
			return
		}
		if p.current.Load() != cur {
			p.opts.Metrics.StaleAnalyses.Inc()
			continue
		}
		if ctx.Err() != nil {
			return
		}
		p.opts.Metrics.AnalyzeSeconds.Observe(time.Since(start).Seconds())
		p.opts.Metrics.AnalyzePasses.Inc()
		p.analysis.Store(a)
		p.markAnalyzed(cur.gen)
		if p.opts.OnAnalysis != nil {
			p.opts.OnAnalysis(a)
		}
		return
	}
}

// Parses and lints snap. A panic in either is returned as an error.
func (p *Pipeline) run(ctx context.Context, snap *document.Snapshot) (*Analysis, error) {
	a := &Analysis{Snapshot: snap}
	var pc panics.Catcher
	pc.Try(func() { a.Root = p.opts.Parse(snap.Text) })
	if r := pc.Recovered(); r != nil {
		return nil, fmt.Errorf("parse: %w", r.AsError())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pc.Try(func() { a.Diagnostics = p.opts.Lint(a.Root) })
	if r := pc.Recovered(); r != nil {
		return nil, fmt.Errorf("lint: %w", r.AsError())
	}
	a.Diagnostics = diag.Cap(a.Diagnostics, p.opts.MaxProblems())
	return a, nil
}

func (p *Pipeline) markAnalyzed(gen uint64) {
	p.freshMu.Lock()
	defer p.freshMu.Unlock()
	p.analyzed = gen
	close(p.fresh)
	p.fresh = make(chan struct{})
}

// AwaitFresh waits until an analysis that reflects every edit accepted by
// NotifyChange before the call has finished, and returns the latest
// analysis. Pending passes are run without waiting for their delay.
//
// Cancelling ctx only stops the wait; the passes keep running. If the
// analysis of the awaited snapshot failed, the previous analysis is returned,
// or ErrNoAnalysis if there is none.
func (p *Pipeline) AwaitFresh(ctx context.Context) (*Analysis, error) {
	p.mu.Lock()
	target := p.accepted
	p.mu.Unlock()

	p.waiters.Add(1)
	defer p.waiters.Add(-1)
	for hurried := false; ; hurried = true {
		p.freshMu.Lock()
		analyzed, fresh := p.analyzed, p.fresh
		p.freshMu.Unlock()
		if analyzed >= target {
			if a := p.analysis.Load(); a != nil {
				return a, nil
			}
			return nil, ErrNoAnalysis
		}
		if !hurried {
			if p.current.Load().gen < target {
				p.syncStage.requestNow()
			} else {
				p.analyzeStage.requestNow()
			}
		}
		select {
		case <-fresh:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.ctx.Done():
			return nil, ErrClosed
		}
	}
}

// Close stops the pipeline and waits for running passes to finish.
func (p *Pipeline) Close() {
	p.cancel()
	p.wg.Wait()
}
