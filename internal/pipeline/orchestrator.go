package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shpitdev/founder-scout/internal/classify"
	"github.com/shpitdev/founder-scout/internal/search"
	"github.com/shpitdev/founder-scout/internal/snapshot"
	"github.com/shpitdev/founder-scout/internal/util"
)

// Searcher fetches search results for a query.
type Searcher interface {
	Fetch(ctx context.Context, query string) (*search.Payload, error)
}

// ProfileResolver resolves profile data for a batch of handles. The returned
// slice must have the same length and order as handles.
type ProfileResolver interface {
	ResolveProfiles(ctx context.Context, handles []string) []snapshot.ProfileData
}

// Classifier scores one resolved profile.
type Classifier interface {
	Classify(ctx context.Context, handle, description, company string) (*classify.Verdict, error)
}

type Options struct {
	// BatchSize is the number of records resolved per snapshot call.
	BatchSize int
	// RunWindow caps records processed in one invocation.
	RunWindow int

	// PreResolveDelay throttles between the search phase and the snapshot
	// trigger; InterBatchDelay throttles between batches.
	PreResolveDelay time.Duration
	InterBatchDelay time.Duration

	TargetDomain string
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 5
	}
	if o.RunWindow <= 0 {
		o.RunWindow = 100
	}
	if o.PreResolveDelay <= 0 {
		o.PreResolveDelay = 2 * time.Second
	}
	if o.InterBatchDelay <= 0 {
		o.InterBatchDelay = 4 * time.Second
	}
	if o.TargetDomain == "" {
		o.TargetDomain = "x.com"
	}
	return o
}

// Orchestrator drives the batch loop and owns the accumulating results for
// the run. The shutdown path reads results through Results(); nothing outside
// this type mutates them.
type Orchestrator struct {
	searcher   Searcher
	resolver   ProfileResolver
	classifier Classifier
	opts       Options

	runID string
	logf  func(format string, args ...any)

	mu      sync.Mutex
	results []ResultRecord
}

func New(searcher Searcher, resolver ProfileResolver, classifier Classifier, opts Options, logger *log.Logger) *Orchestrator {
	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())
	logf := func(string, ...any) {}
	if logger != nil {
		logf = func(format string, args ...any) {
			prefix := make([]any, 0, len(args)+1)
			prefix = append(prefix, runID)
			prefix = append(prefix, args...)
			logger.Printf("run=%s "+format, prefix...)
		}
	}
	return &Orchestrator{
		searcher:   searcher,
		resolver:   resolver,
		classifier: classifier,
		opts:       opts.withDefaults(),
		runID:      runID,
		logf:       logf,
	}
}

// Results returns a snapshot copy of the records accumulated so far.
func (o *Orchestrator) Results() []ResultRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ResultRecord, len(o.results))
	copy(out, o.results)
	return out
}

// Run processes up to RunWindow records starting at the checkpoint cursor and
// returns the next cursor value. Cancellation is observed only between
// batches: the in-flight batch always runs to completion (its outbound calls
// carry their own per-attempt timeouts), so the returned cursor is always a
// batch boundary and every admitted record has a result. When stopped by
// cancellation, the context error is returned alongside the boundary cursor.
func (o *Orchestrator) Run(ctx context.Context, records []InputRecord, start int) (int, error) {
	if start < 0 {
		start = 0
	}
	end := start + o.opts.RunWindow
	if end > len(records) {
		end = len(records)
	}
	o.logf("batch run start: records=%d cursor=%d window=%d batchSize=%d", len(records), start, end-start, o.opts.BatchSize)

	cursor := start
	for batchStart := start; batchStart < end; batchStart += o.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			o.logf("shutdown observed: stopping before batch at cursor=%d", cursor)
			return cursor, err
		}
		if batchStart > start {
			if err := sleepCtx(ctx, o.opts.InterBatchDelay); err != nil {
				o.logf("shutdown observed during inter-batch delay: cursor=%d", cursor)
				return cursor, err
			}
		}

		batchEnd := batchStart + o.opts.BatchSize
		if batchEnd > end {
			batchEnd = end
		}
		batchStarted := time.Now()
		// The running batch is never interrupted mid-flight; only the next
		// batch is skipped on shutdown.
		o.processBatch(context.WithoutCancel(ctx), records[batchStart:batchEnd])
		cursor = batchEnd
		o.logf("batch complete: range=%d..%d duration=%s", batchStart, batchEnd, time.Since(batchStarted).Round(time.Millisecond))
	}

	o.logf("batch run complete: cursor=%d results=%d", cursor, len(o.Results()))
	return cursor, nil
}

type pendingRecord struct {
	record     InputRecord
	handle     string
	profileURL string
}

// processBatch resolves each record sequentially through search + extraction,
// then makes one snapshot call for the batch's pending handles and assembles
// final records. Records that terminate early are appended in input order
// ahead of the pending ones, matching the order they were read.
func (o *Orchestrator) processBatch(ctx context.Context, batch []InputRecord) {
	var pending []pendingRecord
	for _, rec := range batch {
		payload, err := o.searcher.Fetch(ctx, rec.SearchQuery)
		if err != nil {
			o.logf("search exhausted: founder=%q error=%q", rec.FounderName, util.RedactSecrets(err.Error()))
		}
		if err != nil || payload.Empty() {
			o.appendFailed(rec, "no search results found")
			continue
		}

		links := search.ExtractLinks(payload, o.opts.TargetDomain)
		profileURL := search.PickCanonicalProfile(links)
		if profileURL == "" {
			o.appendFailed(rec, "no profile found")
			continue
		}

		handle := search.ExtractHandle(profileURL, o.opts.TargetDomain)
		if handle == "" {
			o.appendFailed(rec, "could not extract handle")
			continue
		}

		o.logf("profile resolved: founder=%q handle=%s", rec.FounderName, handle)
		pending = append(pending, pendingRecord{record: rec, handle: handle, profileURL: profileURL})
	}

	if len(pending) == 0 {
		return
	}

	// Fixed pause before the snapshot trigger to stay under upstream rate limits.
	_ = sleepCtx(ctx, o.opts.PreResolveDelay)

	handles := make([]string, len(pending))
	for i, p := range pending {
		handles[i] = p.handle
	}
	profiles := o.resolver.ResolveProfiles(ctx, handles)

	for i, p := range pending {
		if i >= len(profiles) {
			// Positional pairing is broken; convert the rest to error records
			// instead of aborting the batch.
			o.appendError(p, fmt.Sprintf("profile data missing for handle %s", p.handle))
			continue
		}
		o.appendProcessed(ctx, p, profiles[i])
	}
}

func (o *Orchestrator) appendProcessed(ctx context.Context, p pendingRecord, pd snapshot.ProfileData) {
	rr := ResultRecord{
		FounderName: p.record.FounderName,
		CompanyName: p.record.CompanyName,
		Email:       p.record.Email,
		Status:      StatusProcessed,
		Handle:      p.handle,
		ProfileURL:  p.profileURL,
		Description: pd.Description,
		CanDM:       pd.CanDM,
		ProcessedAt: time.Now().UTC(),
	}
	if pd.Status != snapshot.StatusSuccess {
		rr.Reason = pd.Reason
	}

	verdict, err := o.classifier.Classify(ctx, p.handle, pd.Description, p.record.CompanyName)
	if err != nil {
		// Classification is best-effort: the record stays processed without
		// role/rank fields.
		o.logf("classification failed: handle=%s error=%q", p.handle, util.RedactSecrets(err.Error()))
	} else if verdict != nil {
		rr.Role = verdict.Role
		rr.Rank = verdict.Rank
		rr.ConfidenceReason = verdict.ConfidenceReason
	}

	o.append(rr)
}

func (o *Orchestrator) appendFailed(rec InputRecord, reason string) {
	o.logf("record failed: founder=%q reason=%q", rec.FounderName, reason)
	o.append(ResultRecord{
		FounderName: rec.FounderName,
		CompanyName: rec.CompanyName,
		Email:       rec.Email,
		Status:      StatusFailed,
		Reason:      reason,
		ProcessedAt: time.Now().UTC(),
	})
}

func (o *Orchestrator) appendError(p pendingRecord, reason string) {
	o.logf("record error: founder=%q reason=%q", p.record.FounderName, reason)
	o.append(ResultRecord{
		FounderName: p.record.FounderName,
		CompanyName: p.record.CompanyName,
		Email:       p.record.Email,
		Status:      StatusError,
		Handle:      p.handle,
		ProfileURL:  p.profileURL,
		Reason:      reason,
		ProcessedAt: time.Now().UTC(),
	})
}

func (o *Orchestrator) append(rr ResultRecord) {
	o.mu.Lock()
	o.results = append(o.results, rr)
	o.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}
