// Package batch fans a set of input programs out across a bounded pool of
// workers, decoding (and optionally running) each one independently and
// collecting a per-file result. It is the concurrency backbone of the
// batch CLI subcommand.
package batch

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/oisee/asm8086/pkg/cpu"
	"github.com/oisee/asm8086/pkg/decode"
	"github.com/oisee/asm8086/pkg/encode"
	"github.com/oisee/asm8086/pkg/inst"
	"github.com/oisee/asm8086/pkg/interp"
)

// Job is one input program to process.
type Job struct {
	Path string
	Data []byte
}

// Options controls how each job in a batch is processed.
type Options struct {
	Format  inst.ImmFormat
	Run     bool // also interpret the decoded program, not just re-encode it
	Workers int  // <= 0 selects runtime.NumCPU()
	Logger  zerolog.Logger
}

// FileResult is the outcome of processing a single Job. On a decode error
// only Path and Err are set. Once decoding succeeds, Instructions and
// Assembly are set; if the run then fails, Err is set as well and State
// stays nil.
type FileResult struct {
	Path         string
	Err          error
	Instructions int
	Assembly     string
	State        *cpu.State // non-nil only when Options.Run is set and decode+run both succeeded
}

// Run processes every job in jobs, at most Options.Workers at a time, and
// returns one FileResult per job in input order. A job's own decode or
// run error is carried in its FileResult, not returned from Run or used to
// cancel its siblings — the caller surveys results.Err on each entry.
func Run(ctx context.Context, jobs []Job, opts Options) []FileResult {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]FileResult, len(jobs))
	var completed atomic.Int64
	total := int64(len(jobs))

	done := make(chan struct{})
	start := time.Now()
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c := completed.Load()
				opts.Logger.Info().
					Int64("completed", c).
					Int64("total", total).
					Dur("elapsed", time.Since(start).Round(time.Second)).
					Msg("batch progress")
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range jobs {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = FileResult{Path: jobs[i].Path, Err: gctx.Err()}
				return nil
			default:
			}
			results[i] = processOne(jobs[i], opts)
			completed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	close(done)

	return results
}

func processOne(job Job, opts Options) FileResult {
	ctx := inst.NewDecodingContext(opts.Format)
	if err := decode.Decode(job.Data, ctx); err != nil {
		return FileResult{Path: job.Path, Err: err}
	}

	res := FileResult{
		Path:         job.Path,
		Instructions: len(ctx.Instructions),
		Assembly:     encode.Encode(ctx),
	}

	if opts.Run {
		program := interp.NewProgram(ctx.Instructions)
		state := cpu.NewState()
		if err := interp.Run(state, program); err != nil {
			res.Err = err
			return res
		}
		res.State = state
	}

	return res
}
