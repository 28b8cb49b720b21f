// Package pipeline turns usernames into dataset tables: it fetches a user's list, drops
// what the user never rated and fetches the details of the rest with a bounded pool of
// workers.
package pipeline

import (
	"boxdstats/internal/components/assert"
	"boxdstats/internal/components/telemetry"
	"boxdstats/internal/dataset"
	"boxdstats/internal/scrapers/letterboxd"
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("boxdstats/pipeline")
var meter = otel.Meter("boxdstats/pipeline")

const (
	report_pipeline_detail = "pipeline.detail"
	report_pipeline_scrape = "pipeline.scrape"
)

const DefaultWorkers = 4

// Source is where films and their details come from, *letterboxd.Client in practice.
type Source interface {
	Films(ctx context.Context, username string) ([]letterboxd.Film, error)
	FilmDetail(ctx context.Context, link string) (letterboxd.RawDetail, error)
}

// Incomplete is a rated film whose detail could not be fetched.
type Incomplete struct {
	Film dataset.Film
	Err  error
}

type Result struct {
	Tables     dataset.Tables
	Incomplete []Incomplete
}

type Pipeline struct {
	source  Source
	workers int
	tel     telemetry.API

	scrapedCounter    metric.Int64Counter
	incompleteCounter metric.Int64Counter
}

func New(source Source, workers int, tel telemetry.API) (*Pipeline, error) {
	assert.NotNil(source)
	assert.NotNil(tel)

	if workers <= 0 {
		workers = DefaultWorkers
	}

	scrapedCounter, err := meter.Int64Counter(
		"boxdstats.films.scraped",
		metric.WithDescription("The total amount of film details fetched."),
	)
	if err != nil {
		return nil, err
	}
	incompleteCounter, err := meter.Int64Counter(
		"boxdstats.films.incomplete",
		metric.WithDescription("The total amount of film details that could not be fetched."),
	)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		source:            source,
		workers:           workers,
		tel:               telemetry.NewScopedAPI("pipeline", tel),
		scrapedCounter:    scrapedCounter,
		incompleteCounter: incompleteCounter,
	}, nil
}

// ListRated fetches a user's list and returns the full list along with its rated films.
func (p *Pipeline) ListRated(ctx context.Context, username string) ([]letterboxd.Film, []dataset.Film, error) {
	films, err := p.source.Films(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	rated := dataset.FilterRated(films)
	p.tel.ReportDebug("listed films", username, "total", len(films), "rated", len(rated))
	return films, rated, nil
}

// Details fetches the detail of every film and normalizes the results.
//
// A film whose fetch fails is reported in Result.Incomplete and left out of the tables,
// the rest of the run carries on. The only error returned is the context's, in which
// case the partial result is discarded.
func (p *Pipeline) Details(ctx context.Context, films []dataset.Film) (Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline:Details")
	defer span.End()
	span.SetAttributes(
		attribute.Int("films", len(films)),
		attribute.Int("workers", p.workers),
	)

	var mutex sync.Mutex
	details := make(map[int64]letterboxd.RawDetail, len(films))
	var incomplete []Incomplete

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)
	for _, film := range films {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			raw, err := p.source.FilmDetail(groupCtx, film.DetailLink)
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}

			mutex.Lock()
			defer mutex.Unlock()
			if err != nil {
				p.tel.ReportWarning(report_pipeline_detail, err, film.Id, film.DetailLink)
				p.incompleteCounter.Add(groupCtx, 1)
				incomplete = append(incomplete, Incomplete{Film: film, Err: err})
				return nil
			}
			p.scrapedCounter.Add(groupCtx, 1)
			details[film.Id] = raw
			return nil
		})
	}
	err := group.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		return Result{}, err
	}

	sort.Slice(incomplete, func(i, j int) bool {
		return incomplete[i].Film.ListOrder < incomplete[j].Film.ListOrder
	})

	// Normalize follows the order of films so the tables come out in list order no
	// matter which worker finished first.
	result := Result{
		Tables:     dataset.Normalize(films, details),
		Incomplete: incomplete,
	}
	p.tel.ReportCount(report_pipeline_detail, int64(len(result.Tables.Films)))
	return result, nil
}

// Scrape runs the whole pipeline for a single user without any prior snapshot.
func (p *Pipeline) Scrape(ctx context.Context, username string) (Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline:Scrape")
	defer span.End()
	span.SetAttributes(attribute.String("username", username))

	_, rated, err := p.ListRated(ctx, username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list films")
		p.tel.ReportWarning(report_pipeline_scrape, err, username)
		return Result{}, fmt.Errorf("scrape %s: %w", username, err)
	}
	return p.Details(ctx, rated)
}
