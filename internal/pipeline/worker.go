package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/chriscarrollsmith/mindmap-generator/internal/chunker"
	"github.com/chriscarrollsmith/mindmap-generator/internal/loader"
	"github.com/chriscarrollsmith/mindmap-generator/internal/render"
)

var errNoText = errors.New("no extractable text")

// Worker turns one queued job into rendered outputs.
type Worker struct {
	gen     *Generator
	loadCfg loader.Options
	log     *slog.Logger
}

func NewWorker(gen *Generator, loadCfg loader.Options, log *slog.Logger) *Worker {
	return &Worker{gen: gen, loadCfg: loadCfg, log: log}
}

// Process loads, generates and renders job, recording the outcome on it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Load
	job.SetStatus(StatusLoading, "loading")
	data, text := job.Source()
	title := job.Title
	if data != nil {
		doc, err := loader.Read(bytes.NewReader(data), job.Filename, w.loadCfg)
		if err != nil {
			log.Error("load failed", "error", err)
			job.Fail("loading", err)
			return
		}
		title, text = doc.Title, doc.Text()
	}
	if strings.TrimSpace(text) == "" {
		log.Warn("document has no text")
		job.Fail("loading", errNoText)
		return
	}
	job.SetSource(title, text)
	words := chunker.WordCount(text)
	log.Info("document loaded", "words", words)

	// Phase 2: Generate
	job.SetStatus(StatusGenerating, "building concept tree")
	tree, err := w.gen.BuildConceptTree(ctx, text, job.ID)
	if err != nil {
		log.Error("generation failed", "error", err)
		job.Fail("generating", err)
		return
	}

	// Phase 3: Render
	job.SetStatus(StatusRendering, "rendering")
	outputs, err := render.All(tree, job.Snapshot().Title)
	if err != nil {
		log.Error("render failed", "error", err)
		job.Fail("rendering", err)
		return
	}
	job.SetResult(tree, words, outputs)
	job.SetStatus(StatusCompleted, "done")
	log.Info("job complete", "topics", tree.TopicCount(), "nodes", tree.Count())
}
