// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingestion drives the conversion pipeline: a dispatcher walks the
// archive's directory applying the selection policy, a pool of extraction
// workers parses each selected entry, and a single writer goroutine commits
// batches to SQLite and advances the resumable checkpoint watermark.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	zerrors "github.com/sguzman/zimrs-go/internal/errors"
	"github.com/sguzman/zimrs-go/pkg/archive"
	"github.com/sguzman/zimrs-go/pkg/config"
	"github.com/sguzman/zimrs-go/pkg/extract"
	"github.com/sguzman/zimrs-go/pkg/storage"
)

// Result summarizes one pipeline run for the CLI and structured logging.
type Result struct {
	RunID              int64
	EntriesSeen        int
	EntriesSelected    int
	EntriesExtracted   int
	EntriesFailed      int
	EntriesQuarantined int
	DefinitionsWritten int
	RelationsWritten   int
	AliasesWritten     int
	Duration           time.Duration
	Interrupted        bool
}

// Pipeline wires the selection policy, HTML extractor, and database writer
// into the worker-pool dispatcher described by the conversion spec.
type Pipeline struct {
	cfg       config.Config
	logger    *slog.Logger
	policy    *extract.Policy
	extractor *extract.Extractor
	store     *storage.Store
}

// NewPipeline constructs a Pipeline from a resolved configuration and an
// already-open Store.
func NewPipeline(cfg config.Config, store *storage.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	pipelineMetrics.init()
	return &Pipeline{
		cfg:       cfg,
		logger:    logger,
		policy:    extract.NewPolicy(cfg.Selection),
		extractor: extract.NewExtractor(cfg.Extraction),
		store:     store,
	}
}

type job struct {
	index uint64
	entry archive.Entry
}

type outcome struct {
	index  uint64
	entry  archive.Entry
	kind   string
	record *storage.Record
	err    error
}

// pendingSet tracks dispatched-but-not-yet-durable entry indices so the
// writer can compute a conservative checkpoint watermark: the minimum
// pending index minus one is the highest point a resumed run can safely
// skip past, since every entry below it is already committed or recorded
// as a terminal failure.
type pendingSet struct {
	mu      sync.Mutex
	indices map[uint64]struct{}
}

func newPendingSet() *pendingSet {
	return &pendingSet{indices: make(map[uint64]struct{})}
}

func (p *pendingSet) add(i uint64) {
	p.mu.Lock()
	p.indices[i] = struct{}{}
	p.mu.Unlock()
}

func (p *pendingSet) remove(indices ...uint64) {
	p.mu.Lock()
	for _, i := range indices {
		delete(p.indices, i)
	}
	p.mu.Unlock()
}

// min returns the smallest pending index and whether the set is non-empty.
func (p *pendingSet) min() (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var (
		m     uint64
		found bool
	)
	for i := range p.indices {
		if !found || i < m {
			m = i
			found = true
		}
	}
	return m, found
}

// Run executes one ingestion pass over arc from its resume point (or the
// selection policy's start_index if no checkpoint exists) to the end of the
// archive, or until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, arc archive.Archive) (*Result, error) {
	start := time.Now()
	checkpointName := p.cfg.Checkpoint.Name
	if !p.cfg.Checkpoint.Enabled {
		checkpointName = ""
	}

	// Database work runs on a context that cancellation does not reach, so
	// the writer's final flush and the run bookkeeping still commit after
	// ctx is cancelled; dispatch and the workers stop on ctx itself.
	dbCtx := context.WithoutCancel(ctx)

	resumeFrom := uint64(0)
	if checkpointName != "" {
		w, err := p.store.LoadCheckpoint(dbCtx, checkpointName)
		if err != nil {
			return nil, err
		}
		if w.Found {
			resumeFrom = uint64(w.LastEntryIndex) + 1
		}
	}

	runID, err := p.store.StartRun(dbCtx, p.configDigest())
	if err != nil {
		return nil, err
	}

	p.logger.Info("pipeline.start", "run_id", runID, "resume_from", resumeFrom, "entry_count", arc.EntryCount())

	pending := newPendingSet()
	jobs := make(chan job, p.cfg.Workers.QueueCapacity)
	results := make(chan outcome, p.cfg.Workers.QueueCapacity)

	var dispatchWG sync.WaitGroup
	dispatchWG.Add(1)
	go func() {
		defer dispatchWG.Done()
		p.dispatch(ctx, arc, resumeFrom, jobs, results, pending)
	}()

	var workerWG sync.WaitGroup
	workers := p.cfg.Workers.ExtractionThreads
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			p.extract(ctx, arc, jobs, results)
		}()
	}

	go func() {
		dispatchWG.Wait()
		workerWG.Wait()
		close(results)
	}()

	res, writeErr := p.write(dbCtx, runID, checkpointName, pending, results)
	dispatchWG.Wait()

	res.RunID = runID
	res.Duration = time.Since(start)
	res.Interrupted = ctx.Err() != nil

	status := "completed"
	if res.Interrupted {
		status = "interrupted"
	}
	if writeErr != nil {
		status = "failed"
	}
	if finishErr := p.store.FinishRun(dbCtx, runID, status); finishErr != nil {
		p.logger.Warn("pipeline.finish_run.error", "run_id", runID, "err", finishErr)
	}

	p.logger.Info("pipeline.complete",
		"run_id", runID,
		"status", status,
		"entries_seen", res.EntriesSeen,
		"entries_selected", res.EntriesSelected,
		"entries_extracted", res.EntriesExtracted,
		"entries_failed", res.EntriesFailed,
		"entries_quarantined", res.EntriesQuarantined,
		"duration_ms", res.Duration.Milliseconds(),
	)

	if writeErr != nil {
		return res, writeErr
	}
	return res, nil
}

func (p *Pipeline) configDigest() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%+v", p.cfg)))
	return hex.EncodeToString(h[:8])
}

// dispatch walks the archive directory in index order, applying the
// selection policy, and hands eligible entries to the worker pool.
//
// An entry index enters pending the moment dispatch commits to doing
// something with it (reading it). A rejected entry leaves pending right here;
// every other entry (unreadable, failed, or extracted) leaves it only when
// the writer has recorded its error sample or is committing its batch. This keeps the conservative
// watermark (min(pending)-1) from ever advancing past an index whose fate
// isn't durable yet.
func (p *Pipeline) dispatch(ctx context.Context, arc archive.Archive, resumeFrom uint64, jobs chan<- job, results chan<- outcome, pending *pendingSet) {
	defer close(jobs)

	count := arc.EntryCount()
	for i := resumeFrom; i < count; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pending.add(i)
		pipelineMetrics.queueDepth.Inc()

		entry, err := arc.EntryAt(ctx, i)
		if err != nil {
			readErr := zerrors.NewEntryRead(
				"cannot read archive entry",
				err.Error(),
				"the entry is quarantined; re-run verify-zim if this index keeps failing",
				err,
			)
			p.logger.Warn("pipeline.dispatch.entry_read_error", "entry_index", i, "err", readErr)
			pipelineMetrics.entriesSeen.Inc()
			select {
			case results <- outcome{index: i, kind: "entry_read", err: readErr}:
			case <-ctx.Done():
				return
			}
			continue
		}

		pipelineMetrics.entriesSeen.Inc()

		decision := p.policy.Evaluate(entry)
		if !decision.Eligible {
			pipelineMetrics.entriesRejected.Inc()
			pending.remove(i)
			pipelineMetrics.queueDepth.Dec()
			if decision.StopIteration {
				return
			}
			continue
		}
		pipelineMetrics.entriesSelected.Inc()

		select {
		case jobs <- job{index: i, entry: entry}:
		case <-ctx.Done():
			return
		}
	}
}

// extract fetches each job's blob and runs the HTML extractor, turning the
// result into a storage.Record ready for the writer.
func (p *Pipeline) extract(ctx context.Context, arc archive.Archive, jobs <-chan job, results chan<- outcome) {
	for j := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		out := p.extractOne(ctx, arc, j)

		select {
		case results <- out:
		case <-ctx.Done():
			return
		}
	}
}

// extractOne fetches one job's blob and runs the HTML extractor. The
// extractor itself takes no context, so the per-task timeout is enforced by
// running the fetch-and-extract work on a background goroutine and racing
// it against taskCtx: a slow or hanging extraction loses the race and is
// reported as ExtractionTimeout rather than blocking the worker forever.
func (p *Pipeline) extractOne(ctx context.Context, arc archive.Archive, j job) outcome {
	taskCtx := ctx
	var cancel context.CancelFunc
	if p.cfg.Extraction.TaskTimeoutMS > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.Extraction.TaskTimeoutMS)*time.Millisecond)
		defer cancel()
	}

	started := time.Now()
	defer func() { pipelineMetrics.extractDuration.Observe(time.Since(started).Seconds()) }()

	if j.entry.IsRedirect {
		return outcome{
			index: j.index,
			entry: j.entry,
			record: &storage.Record{
				EntryIndex: j.index,
				Page: storage.PageInput{
					Namespace:      j.entry.Namespace,
					URL:            j.entry.URL,
					MIME:           j.entry.MIME,
					Title:          j.entry.Title,
					RedirectTarget: j.entry.RedirectTargetURL,
				},
			},
		}
	}

	done := make(chan outcome, 1)
	go func() {
		done <- p.fetchAndExtract(taskCtx, arc, j)
	}()

	select {
	case out := <-done:
		return out
	case <-taskCtx.Done():
		timeoutErr := zerrors.NewExtractionTimeout(
			"extraction exceeded its per-task timeout",
			fmt.Sprintf("extraction.task_timeout_ms=%d elapsed before the worker finished", p.cfg.Extraction.TaskTimeoutMS),
			"raise extraction.task_timeout_ms, or inspect this entry's HTML for pathological content",
			taskCtx.Err(),
		)
		p.logger.Warn("extract.task.timeout", "entry_index", j.index, "url", j.entry.URL, "err", timeoutErr)
		return outcome{index: j.index, entry: j.entry, kind: "extraction_timeout", err: timeoutErr}
	}
}

// fetchAndExtract does the actual blob read and HTML extraction. A blob-read
// failure is EntryRead (quarantined); an HTML-parse failure is
// ExtractionParse and is downgraded to an empty page record with a logged
// warning rather than quarantined, per the extraction error taxonomy.
func (p *Pipeline) fetchAndExtract(ctx context.Context, arc archive.Archive, j job) outcome {
	payload, err := arc.Blob(ctx, j.index)
	if err != nil {
		readErr := zerrors.NewEntryRead(
			"cannot read archive entry payload",
			err.Error(),
			"the entry is quarantined; re-run verify-zim if this index keeps failing",
			err,
		)
		return outcome{index: j.index, entry: j.entry, kind: "entry_read", err: readErr}
	}

	rawHTML := ""
	if p.cfg.SQLite.StoreRawHTML {
		rawHTML = string(payload)
	}

	result, err := p.extractor.Extract(j.entry.Title, payload)
	if err != nil {
		parseErr := zerrors.NewExtractionParse(
			"cannot parse entry HTML",
			err.Error(),
			"downgraded to an empty page record; inspect the source HTML if this entry's content matters",
			err,
		)
		p.logger.Warn("extract.parse.downgraded", "entry_index", j.index, "url", j.entry.URL, "err", parseErr)
		return outcome{
			index: j.index,
			entry: j.entry,
			record: &storage.Record{
				EntryIndex: j.index,
				Page: storage.PageInput{
					Namespace: j.entry.Namespace,
					URL:       j.entry.URL,
					MIME:      j.entry.MIME,
					Title:     j.entry.Title,
					RawHTML:   rawHTML,
				},
			},
		}
	}
	if result.UnclassifiedHeadings > 0 {
		p.logger.Info("extract.heading.unclassified", "entry_index", j.index, "url", j.entry.URL, "count", result.UnclassifiedHeadings)
	}

	record := &storage.Record{
		EntryIndex: j.index,
		Page: storage.PageInput{
			Namespace:      j.entry.Namespace,
			URL:            j.entry.URL,
			MIME:           j.entry.MIME,
			Title:          j.entry.Title,
			RawHTML:        rawHTML,
			PlainText:      result.PlainText,
			RedirectTarget: result.RedirectTargetURL,
		},
		Definitions: result.Definitions,
		Relations:   result.Relations,
		Aliases:     result.Aliases,
	}
	return outcome{index: j.index, entry: j.entry, record: record}
}

// write is the pipeline's single writer goroutine: it batches successful
// outcomes, records failed ones as error samples, and commits batches with
// a conservative checkpoint watermark.
func (p *Pipeline) write(ctx context.Context, runID int64, checkpointName string, pending *pendingSet, results <-chan outcome) (*Result, error) {
	res := &Result{}

	var batch []storage.Record
	var batchIndices []uint64
	var seenDelta, failedDelta int
	resolved := int64(-1) // highest index whose outcome is recorded or committed

	flushInterval := time.Duration(p.cfg.SQLite.BatchFlushMS) * time.Millisecond
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() error {
		if len(batch) == 0 && seenDelta == 0 && failedDelta == 0 {
			return nil
		}
		// The batch commits in the same transaction as the checkpoint row,
		// so its own indices do not hold the watermark back.
		pending.remove(batchIndices...)
		for _, i := range batchIndices {
			if int64(i) > resolved {
				resolved = int64(i)
			}
		}
		watermark := resolved
		if m, ok := pending.min(); ok {
			watermark = int64(m) - 1
		}

		started := time.Now()
		batchOutcome, err := p.store.WriteBatch(ctx, runID, batch, watermark, checkpointName)
		pipelineMetrics.writeDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			return err
		}

		pipelineMetrics.queueDepth.Sub(float64(len(batchIndices)))
		pipelineMetrics.batchesCommitted.Inc()
		if checkpointName != "" {
			pipelineMetrics.checkpointAdvances.Inc()
		}
		pipelineMetrics.definitionsWritten.Add(float64(batchOutcome.DefinitionsWritten))
		pipelineMetrics.relationsWritten.Add(float64(batchOutcome.RelationsWritten))
		pipelineMetrics.aliasesWritten.Add(float64(batchOutcome.AliasesWritten))
		for range batchOutcome.Dropped {
			pipelineMetrics.entriesQuarantined.Inc()
			res.EntriesQuarantined++
		}

		res.EntriesExtracted += batchOutcome.PagesWritten
		res.DefinitionsWritten += batchOutcome.DefinitionsWritten
		res.RelationsWritten += batchOutcome.RelationsWritten
		res.AliasesWritten += batchOutcome.AliasesWritten

		if err := p.store.AddRunCounters(ctx, runID, seenDelta, failedDelta); err != nil {
			p.logger.Warn("pipeline.run_counters.write_failed", "run_id", runID, "err", err)
		}
		seenDelta, failedDelta = 0, 0

		p.logger.Debug("pipeline.batch.commit", "run_id", runID, "pages", batchOutcome.PagesWritten, "watermark", watermark)

		batch = batch[:0]
		batchIndices = batchIndices[:0]
		return nil
	}

	for {
		select {
		case out, ok := <-results:
			if !ok {
				if err := flush(); err != nil {
					return res, err
				}
				return res, nil
			}

			res.EntriesSeen++
			res.EntriesSelected++
			seenDelta++

			if out.err != nil {
				res.EntriesFailed++
				failedDelta++
				pipelineMetrics.entriesFailed.Inc()
				kind := out.kind
				if kind == "" {
					kind = "extraction_error"
				}
				if sampleErr := p.store.RecordErrorSample(ctx, runID, out.index, out.entry.URL, kind, out.err.Error(), p.cfg.Errors.SampleLimit); sampleErr != nil {
					p.logger.Warn("pipeline.error_sample.write_failed", "index", out.index, "err", sampleErr)
				}
				pending.remove(out.index)
				if int64(out.index) > resolved {
					resolved = int64(out.index)
				}
				pipelineMetrics.queueDepth.Dec()
				continue
			}

			pipelineMetrics.entriesExtracted.Inc()
			batch = append(batch, *out.record)
			batchIndices = append(batchIndices, out.index)

			if len(batch) >= p.cfg.SQLite.BatchSize {
				if err := flush(); err != nil {
					return res, err
				}
			}

		case <-ticker.C:
			if err := flush(); err != nil {
				return res, err
			}

		case <-ctx.Done():
			_ = flush()
			return res, nil
		}
	}
}
