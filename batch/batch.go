// Package batch merges and replays many independent documents concurrently.
//
// Documents share nothing, so their jobs run in parallel; jobs for the same
// document must be serialized by the caller, and a single call rejects two
// jobs naming the same document.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/agentflare-ai/go-jsonmerge"
)

// ErrDuplicateDocument is returned when one call names a document twice.
var ErrDuplicateDocument = errors.New("duplicate document")

// DuplicateDocumentError names the document and the job positions that
// collided.
type DuplicateDocumentError struct {
	ID        string
	Positions []int
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("document %q appears in jobs %v", e.ID, e.Positions)
}

func (e *DuplicateDocumentError) Is(target error) bool {
	return target == ErrDuplicateDocument
}

// MergeJob is a three-way merge of one document.
type MergeJob struct {
	ID                  string
	Base, Local, Remote jsonmerge.Record
}

// MergeResult is the outcome of a MergeJob.
type MergeResult struct {
	ID        string
	Merged    jsonmerge.Record
	Conflicts []jsonmerge.Conflict
}

// ReplayJob replays an ordered patch sequence over one document.
type ReplayJob struct {
	ID      string
	Base    jsonmerge.Record
	Patches []jsonmerge.Patch
}

// ReplayResult is the outcome of a ReplayJob. Err is set when the replay
// failed, in which case Result is null.
type ReplayResult struct {
	ID     string
	Result jsonmerge.Record
	Err    error
}

// Runner runs jobs on a bounded number of goroutines.
type Runner struct {
	workers int
	log     *slog.Logger
	opts    []jsonmerge.MergeOption
}

// NewRunner returns a Runner using at most workers goroutines; workers <= 0
// means GOMAXPROCS. log may be nil.
func NewRunner(workers int, log *slog.Logger, opts ...jsonmerge.MergeOption) *Runner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Runner{workers: workers, log: log, opts: opts}
}

// Merge runs every job and returns the results in job order. It fails only
// on duplicate documents or when ctx is done before all jobs have run.
func (r *Runner) Merge(ctx context.Context, jobs []MergeJob) ([]MergeResult, error) {
	if err := unique(len(jobs), func(i int) string { return jobs[i].ID }); err != nil {
		return nil, err
	}
	results := make([]MergeResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			merged, conflicts := jsonmerge.Merge(job.Base, job.Local, job.Remote, r.opts...)
			results[i] = MergeResult{ID: job.ID, Merged: merged, Conflicts: conflicts}
			r.log.Debug("merged document", "id", job.ID, "conflicts", len(conflicts))
			for _, c := range conflicts {
				r.log.Info("merge conflict", "id", job.ID, "path", c.Path.String(),
					"local", c.Local.String(), "remote", c.Remote.String())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Replay runs every job and returns the results in job order. A failing
// replay is reported on its result and does not stop the others.
func (r *Runner) Replay(ctx context.Context, jobs []ReplayJob) ([]ReplayResult, error) {
	if err := unique(len(jobs), func(i int) string { return jobs[i].ID }); err != nil {
		return nil, err
	}
	results := make([]ReplayResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := jsonmerge.Replay(job.Base, job.Patches)
			results[i] = ReplayResult{ID: job.ID, Result: doc, Err: err}
			if err != nil {
				r.log.Info("replay failed", "id", job.ID, "error", err)
				return nil
			}
			r.log.Debug("replayed document", "id", job.ID, "patches", len(job.Patches))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func unique(n int, id func(int) string) error {
	seen := make(map[string]int, n)
	for i := 0; i < n; i++ {
		first, ok := seen[id(i)]
		if ok {
			return &DuplicateDocumentError{ID: id(i), Positions: []int{first, i}}
		}
		seen[id(i)] = i
	}
	return nil
}
