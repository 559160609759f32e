package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"framebridge/internal/logging"
	"framebridge/internal/services/frametool"
)

// Executor performs the frame tool work for a job.
type Executor interface {
	BatchCompress(ctx context.Context, opts frametool.BatchCompressOptions) (frametool.BatchCompressResult, error)
	ExtractFirstFrames(ctx context.Context, opts frametool.ExtractFirstFrameOptions) (frametool.ExtractFirstFrameResult, error)
}

// Result is the outcome of one job.
type Result struct {
	Job      string        `json:"job"`
	Kind     Kind          `json:"kind"`
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Error    string        `json:"error,omitempty"`
	Total    *int          `json:"total,omitempty"`
	Failed   *int          `json:"failed,omitempty"`
	Duration time.Duration `json:"duration"`
	Skipped  bool          `json:"skipped,omitempty"`
}

// Summary aggregates a manifest run.
type Summary struct {
	Manifest  string   `json:"manifest"`
	Results   []Result `json:"results"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
}

// OK reports whether every job ran and succeeded.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Skipped == 0
}

// Run executes jobs in manifest order. Unless the manifest sets
// continue_on_error, the first failure marks the remaining jobs skipped.
// onResult, when set, is called after each job.
func Run(ctx context.Context, m *Manifest, exec Executor, logger *slog.Logger, onResult func(Result)) (Summary, error) {
	logger = logging.NewComponentLogger(logger, "jobs")
	summary := Summary{Manifest: m.Name, Results: make([]Result, 0, len(m.Jobs))}
	stop := false
	for _, job := range m.Jobs {
		var res Result
		if stop || ctx.Err() != nil {
			res = Result{Job: job.Name, Kind: job.Kind, Skipped: true, Message: "skipped"}
		} else {
			var err error
			res, err = runJob(ctx, job, exec)
			if err != nil {
				return summary, fmt.Errorf("job %s: %w", job.Name, err)
			}
		}

		switch {
		case res.Skipped:
			summary.Skipped++
		case res.Success:
			summary.Succeeded++
		default:
			summary.Failed++
			if !m.ContinueOnError {
				stop = true
			}
		}
		logger.Info("job finished",
			logging.String(logging.FieldEventType, "job_finished"),
			logging.String("job", res.Job),
			logging.String("kind", string(res.Kind)),
			logging.Bool("success", res.Success),
			logging.Bool("skipped", res.Skipped),
			logging.Duration("duration", res.Duration),
		)
		summary.Results = append(summary.Results, res)
		if onResult != nil {
			onResult(res)
		}
	}
	return summary, nil
}

func runJob(ctx context.Context, job Job, exec Executor) (Result, error) {
	started := time.Now()
	res := Result{Job: job.Name, Kind: job.Kind}
	switch job.Kind {
	case KindCompress:
		out, err := exec.BatchCompress(ctx, *job.Compress)
		if err != nil {
			return res, err
		}
		res.Success, res.Message, res.Error = out.Success, out.Message, out.Error
		res.Total, res.Failed = out.TotalFiles, out.FailedCount
	case KindExtract:
		out, err := exec.ExtractFirstFrames(ctx, *job.Extract)
		if err != nil {
			return res, err
		}
		res.Success, res.Message, res.Error = out.Success, out.Message, out.Error
		res.Total, res.Failed = out.TotalVideos, out.FailedCount
	default:
		return res, fmt.Errorf("unknown job kind %q", job.Kind)
	}
	res.Duration = time.Since(started)
	return res, nil
}
