package ingest

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/taxonomy"
)

// Batch is one submission: records plus the image blobs they reference.
// Blob keys follow book_<index>_<role>.
type Batch struct {
	Records []domain.BookRecord
	Blobs   map[string]domain.Blob
	// Mode overrides the engine's default taxonomy mode when set.
	Mode taxonomy.Mode
	// Malformed holds decode errors by record index. Those records fail with
	// a ValidationError and are never materialized.
	Malformed map[int]error
}

// RecordProcessor materializes a single record.
type RecordProcessor interface {
	Materialize(
		ctx context.Context,
		index int,
		record *domain.BookRecord,
		blobs map[domain.ImageRole]domain.Blob,
		publisherID int64,
		mode taxonomy.Mode,
	) (*domain.CreatedBook, error)
}

// ReportSaver archives finished batch results.
type ReportSaver interface {
	Save(ctx context.Context, result *domain.BatchResult) error
}

// EngineConfig bounds the engine.
type EngineConfig struct {
	Workers      int
	MaxBatchSize int
	DefaultMode  taxonomy.Mode
}

// Engine runs batches. Records are independent: one record's failure never
// affects another, and each record's outcome is reported exactly once.
type Engine struct {
	processor RecordProcessor
	reports   ReportSaver
	cfg       EngineConfig
	logger    *logger.Logger
}

// NewEngine creates an Engine. reports may be nil.
func NewEngine(processor RecordProcessor, reports ReportSaver, cfg EngineConfig, log *logger.Logger) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = taxonomy.ModeRestricted
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{
		processor: processor,
		reports:   reports,
		cfg:       cfg,
		logger:    log.WithComponent("ingest"),
	}
}

type job struct {
	index  int
	record *domain.BookRecord
	blobs  map[domain.ImageRole]domain.Blob
}

type outcome struct {
	index   int
	title   string
	created *domain.CreatedBook
	failure *RecordFailure
}

// Run processes every record of batch on behalf of publisherID.
//
// The returned error is non-nil only when the whole batch is rejected before
// any record is touched. Cancelling ctx stops dispatch: records already in
// flight finish, and the rest are reported as CancelledError.
func (e *Engine) Run(ctx context.Context, publisherID int64, batch *Batch) (*domain.BatchResult, error) {
	if publisherID <= 0 {
		return nil, domainerrors.Unauthorized("batch has no authenticated publisher")
	}
	if batch == nil || len(batch.Records) == 0 {
		return nil, domainerrors.Validation("batch contains no records")
	}
	if e.cfg.MaxBatchSize > 0 && len(batch.Records) > e.cfg.MaxBatchSize {
		return nil, domainerrors.Validationf("batch has %d records; the limit is %d", len(batch.Records), e.cfg.MaxBatchSize)
	}
	mode := batch.Mode
	if mode == "" {
		mode = e.cfg.DefaultMode
	}

	jobs, planErrs, err := plan(batch)
	if err != nil {
		return nil, err
	}

	batchID, err := id.NewBatchID()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to allocate batch id")
	}
	result := &domain.BatchResult{
		BatchID:     batchID,
		PublisherID: publisherID,
		Created:     []domain.CreatedBook{},
		Errors:      []domain.RecordError{},
		StartedAt:   time.Now().UTC(),
	}
	log := e.logger.WithBatch(result.BatchID, publisherID)
	log.Info("batch started", "records", len(batch.Records), "workers", e.cfg.Workers, "mode", mode)

	outcomes := make([]outcome, 0, len(batch.Records))
	outcomes = append(outcomes, planErrs...)
	outcomes = append(outcomes, e.execute(ctx, log, jobs, publisherID, mode)...)

	slices.SortFunc(outcomes, func(a, b outcome) int { return a.index - b.index })
	for _, o := range outcomes {
		if o.created != nil {
			result.Created = append(result.Created, *o.created)
			continue
		}
		result.Errors = append(result.Errors, domain.RecordError{
			Index:     o.index,
			Title:     o.title,
			ErrorKind: o.failure.Kind,
			Message:   o.failure.Message,
		})
	}
	result.SuccessCount = len(result.Created)
	result.FailureCount = len(result.Errors)
	result.FinishedAt = time.Now().UTC()

	log.Info("batch finished",
		"successful", result.SuccessCount,
		"failed", result.FailureCount,
		"duration", result.FinishedAt.Sub(result.StartedAt),
	)

	if e.reports != nil {
		if err := e.reports.Save(context.WithoutCancel(ctx), result); err != nil {
			log.WithError(err).Warn("failed to archive batch report")
		}
	}
	return result, nil
}

// execute fans jobs out to the worker pool. The dispatcher stops handing out
// work once ctx is done; undispatched jobs become CancelledError outcomes.
func (e *Engine) execute(ctx context.Context, log *logger.Logger, jobs []job, publisherID int64, mode taxonomy.Mode) []outcome {
	work := make(chan job)
	results := make(chan outcome, len(jobs))

	workers := min(e.cfg.Workers, len(jobs))
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for j := range work {
				results <- e.process(ctx, log, j, publisherID, mode)
			}
		})
	}

	cancelled := 0
dispatch:
	for i, j := range jobs {
		if ctx.Err() == nil {
			select {
			case work <- j:
				continue
			case <-ctx.Done():
			}
		}
		for _, rest := range jobs[i:] {
			results <- outcome{
				index:   rest.index,
				title:   rest.record.Label(),
				failure: failure(domain.ErrorKindCancelled, ctx.Err(), "batch was cancelled before this record started"),
			}
			cancelled++
		}
		break dispatch
	}
	close(work)
	wg.Wait()
	close(results)

	if cancelled > 0 {
		log.Warn("batch cancelled", "unstarted", cancelled)
	}

	out := make([]outcome, 0, len(jobs))
	for o := range results {
		out = append(out, o)
	}
	return out
}

// process runs one record. A started record always runs to completion so no
// half-created book is left behind by a cancelled batch.
func (e *Engine) process(ctx context.Context, log *logger.Logger, j job, publisherID int64, mode taxonomy.Mode) (o outcome) {
	o = outcome{index: j.index, title: j.record.Label()}
	rlog := log.WithRecord(j.index, o.title)

	defer func() {
		if r := recover(); r != nil {
			rlog.Error("record panicked", "panic", r, "stack", string(debug.Stack()))
			o.created = nil
			o.failure = failure(domain.ErrorKindInternal, fmt.Errorf("panic: %v", r), "internal error")
		}
	}()

	rctx := logger.NewContext(context.WithoutCancel(ctx), rlog)
	start := time.Now()
	created, err := e.processor.Materialize(rctx, j.index, j.record, j.blobs, publisherID, mode)
	if err != nil {
		o.failure = Classify(err)
		rlog.Info("record failed", "kind", o.failure.Kind, "reason", o.failure.Message)
		return o
	}
	if created.Title == "" {
		created.Title = o.title
	}
	if created.Warnings == nil {
		created.Warnings = []domain.Warning{}
	}
	o.created = created
	rlog.Info("record created", "book_id", created.BookID, "warnings", len(created.Warnings), "duration", time.Since(start))
	return o
}

// plan checks the blob keys of batch and assigns each record its blobs.
//
// Malformed keys, keys for indices outside the batch and unknown roles reject
// the whole batch. A malformed record, or one whose image reference names no
// submitted blob, fails alone with a ValidationError.
func plan(batch *Batch) ([]job, []outcome, error) {
	n := len(batch.Records)
	byRecord := make([]map[domain.ImageRole]domain.Blob, n)
	for key, blob := range batch.Blobs {
		index, roleName, err := domain.ParseBlobKey(key)
		if err != nil {
			return nil, nil, domainerrors.Validation(err.Error())
		}
		if index >= n {
			return nil, nil, domainerrors.Validationf("blob key %q refers to record %d but the batch has %d records", key, index, n)
		}
		role, err := domain.ParseImageRole(roleName)
		if err != nil {
			return nil, nil, domainerrors.Validationf("blob key %q: %v", key, err)
		}
		if byRecord[index] == nil {
			byRecord[index] = make(map[domain.ImageRole]domain.Blob)
		}
		byRecord[index][role] = blob
	}

	jobs := make([]job, 0, n)
	var failed []outcome
	for i := range batch.Records {
		rec := &batch.Records[i]
		if err := batch.Malformed[i]; err != nil {
			failed = append(failed, outcome{
				index:   i,
				title:   rec.Label(),
				failure: failure(domain.ErrorKindValidation, err, "%v", err),
			})
			continue
		}
		blobs, err := resolveImageRefs(rec, byRecord[i], batch.Blobs)
		if err != nil {
			failed = append(failed, outcome{
				index:   i,
				title:   rec.Label(),
				failure: failure(domain.ErrorKindValidation, err, "%v", err),
			})
			continue
		}
		jobs = append(jobs, job{index: i, record: rec, blobs: blobs})
	}
	return jobs, failed, nil
}

// resolveImageRefs merges the record's own images map into its keyed blobs.
// A reference is either a blob key from the batch or an http(s) URL fetched
// by the image binder. Keyed blobs win over references for the same role.
func resolveImageRefs(rec *domain.BookRecord, keyed map[domain.ImageRole]domain.Blob, all map[string]domain.Blob) (map[domain.ImageRole]domain.Blob, error) {
	if len(rec.Images) == 0 {
		return keyed, nil
	}
	blobs := make(map[domain.ImageRole]domain.Blob, len(keyed)+len(rec.Images))
	for role, ref := range rec.Images {
		r, err := domain.ParseImageRole(role)
		if err != nil {
			return nil, err
		}
		switch {
		case domain.IsRemoteRef(ref):
			blobs[r] = domain.Blob{URL: ref}
		default:
			blob, ok := all[ref]
			if !ok {
				return nil, fmt.Errorf("image %s references unknown blob %q", role, ref)
			}
			blobs[r] = blob
		}
	}
	for r, b := range keyed {
		blobs[r] = b
	}
	return blobs, nil
}
