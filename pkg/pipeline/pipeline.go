// Package pipeline drives a knowledge-base run: extract each document,
// pick its questions, answer them, and collect the records in input order.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/xhad/sitekb/internal/models"
	"github.com/xhad/sitekb/internal/types"
	"github.com/xhad/sitekb/pkg/classifier"
	"github.com/xhad/sitekb/pkg/logger"
	"github.com/xhad/sitekb/pkg/metrics"
	"github.com/xhad/sitekb/pkg/questions"
	"github.com/xhad/sitekb/pkg/synth"
)

const MaxWorkers = 64

// Progress is reported once per finished document.
type Progress struct {
	Done     int
	Total    int
	Document models.Document
	Records  int
	Skipped  bool
}

type PipelineConfig struct {
	Mode       questions.Mode
	Workers    int
	Extractor  types.Extractor
	Classifier *classifier.Classifier
	Questions  *questions.Engine
	Synth      *synth.Synthesizer
	Metrics    *metrics.Metrics
	Logger     *zerolog.Logger
	OnProgress func(Progress)
}

// Result summarises one run.
type Result struct {
	RunID     string
	Records   []models.Record
	Processed int
	Skipped   int
	Fallbacks int
	Duration  time.Duration
}

type Pipeline struct {
	config PipelineConfig
	log    zerolog.Logger
}

func NewWithConfig(config PipelineConfig) (*Pipeline, error) {
	if config.Extractor == nil {
		return nil, errors.New("pipeline: extractor is required")
	}
	if config.Synth == nil {
		return nil, errors.New("pipeline: synthesizer is required")
	}
	if config.Questions == nil {
		config.Questions = questions.New("")
	}
	if config.Mode == questions.ModeClassified && config.Classifier == nil {
		return nil, errors.New("pipeline: classified mode requires a classifier")
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Workers > MaxWorkers {
		config.Workers = MaxWorkers
	}

	log := logger.WithComponent("pipeline")
	if config.Logger != nil {
		log = config.Logger.With().Str("component", "pipeline").Logger()
	}

	return &Pipeline{config: config, log: log}, nil
}

type docResult struct {
	records   []models.Record
	skipped   bool
	fallbacks int
}

// Run processes docs and returns their records in the order of docs,
// whatever the worker count. Per-document failures never stop the run; only
// cancellation of ctx does.
func (p *Pipeline) Run(ctx context.Context, docs []models.Document) (Result, error) {
	start := time.Now()
	runID := logger.NewRunID()
	log := logger.WithRun(p.log, runID)

	log.Info().
		Int("documents", len(docs)).
		Int("workers", p.config.Workers).
		Msg("starting run")

	results := make([]docResult, len(docs))

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)
	for i := range docs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.processDocument(gctx, log, docs[i])
			if err := gctx.Err(); err != nil {
				return err
			}

			if p.config.OnProgress != nil {
				mu.Lock()
				done++
				p.config.OnProgress(Progress{
					Done:     done,
					Total:    len(docs),
					Document: docs[i],
					Records:  len(results[i].records),
					Skipped:  results[i].skipped,
				})
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	res := Result{RunID: runID}
	for _, r := range results {
		if r.skipped {
			res.Skipped++
			continue
		}
		if r.records == nil {
			continue
		}
		res.Processed++
		res.Fallbacks += r.fallbacks
		res.Records = append(res.Records, r.records...)
	}
	res.Duration = time.Since(start)

	if err != nil {
		log.Warn().Err(err).Msg("run interrupted")
		return res, err
	}

	log.Info().
		Int("records", len(res.Records)).
		Int("processed", res.Processed).
		Int("skipped", res.Skipped).
		Int("fallbacks", res.Fallbacks).
		Dur("duration", res.Duration).
		Msg("run finished")
	return res, nil
}

func (p *Pipeline) processDocument(ctx context.Context, log zerolog.Logger, doc models.Document) docResult {
	log = log.With().Str("path", doc.Location()).Logger()

	content, err := p.config.Extractor.Extract(ctx, doc)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("extraction failed, skipping document")
	case content.Empty():
		log.Warn().Msg("no body text, skipping document")
	}
	if err != nil || content.Empty() {
		p.config.Metrics.ObserveDocument(string(doc.Origin), metrics.OutcomeSkipped)
		return docResult{skipped: true}
	}

	var pageType models.PageType
	if p.config.Mode == questions.ModeClassified {
		pageType = p.config.Classifier.Classify(doc.SourceURL, doc.Category)
	}
	qs := p.config.Questions.Questions(p.config.Mode, pageType, content.Title)

	log.Info().
		Str("title", content.Title).
		Str("page_type", string(pageType)).
		Int("questions", len(qs)).
		Msg("answering questions")

	out := docResult{records: make([]models.Record, 0, len(qs))}
	for _, q := range qs {
		if ctx.Err() != nil {
			return docResult{}
		}
		answer := p.config.Synth.Synthesize(ctx, synth.Request{
			Question:  q,
			Title:     content.Title,
			Body:      content.Body,
			PageType:  pageType,
			SourceURL: doc.SourceURL,
		})
		p.config.Metrics.ObserveAnswer(answer.Fallback, answer.Latency)
		if answer.Fallback {
			out.fallbacks++
		}
		out.records = append(out.records, models.Record{
			Question:  q,
			Answer:    answer.Text,
			Category:  doc.Category,
			Source:    doc.Origin.SourceLabel(),
			SourceURL: doc.SourceURL,
		})
	}

	p.config.Metrics.ObserveDocument(string(doc.Origin), metrics.OutcomeProcessed)
	p.config.Metrics.AddRecords(len(out.records))
	return out
}
