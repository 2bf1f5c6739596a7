package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgallion1/docbridge/internal/convert"
)

// Worker runs conversions, each in a private work directory.
type Worker struct {
	reg     *convert.Registry
	stats   *ConversionStats
	log     *slog.Logger
	workDir string
}

func NewWorker(reg *convert.Registry, stats *ConversionStats, log *slog.Logger, workDir string) *Worker {
	return &Worker{reg: reg, stats: stats, log: log, workDir: workDir}
}

// Run converts data synchronously. The work directory is removed before
// Run returns, whatever the outcome.
func (w *Worker) Run(ctx context.Context, filename string, target convert.Format, data []byte) (convert.Result, error) {
	dir, err := os.MkdirTemp(w.workDir, "docbridge-job-*")
	if err != nil {
		return convert.Result{}, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	start := time.Now()
	res, err := w.reg.Convert(ctx, convert.Request{
		Filename: filename,
		Data:     data,
		Target:   target,
		WorkDir:  dir,
	})
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		w.stats.RecordFailure(elapsed)
		return convert.Result{}, err
	}
	w.stats.Record(elapsed)
	return res, nil
}

// Process runs a queued job to completion.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	job.SetStatus(StatusConverting, "converting")
	res, err := w.Run(ctx, job.Filename, job.Target, job.FileData())
	if err != nil {
		log.Error("conversion failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "converting")
		return
	}
	job.SetResult(res)
	job.SetStatus(StatusCompleted, "done")
	log.Info("conversion complete", "format", string(res.Format), "bytes", len(res.Data), "images", len(res.Images))
}
