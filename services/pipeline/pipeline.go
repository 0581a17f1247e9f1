// Package pipeline runs the scrape, match, publish and report stages as
// one pass.
package pipeline

import (
	"context"
	"encoding/json"
	"io"

	"pricegap/internal/catalog"
	"pricegap/internal/match"
	"pricegap/internal/report"
	"pricegap/logger"
	"pricegap/services/publisher"
)

// Scraper produces discounted catalog items for a category.
type Scraper interface {
	Scrape(ctx context.Context, category string, minDiscount float64) ([]catalog.Item, error)
}

// Matcher turns catalog items into confirmed cross-site price gaps.
type Matcher interface {
	Match(ctx context.Context, items []catalog.Item) ([]match.Record, error)
}

// Pipeline wires the stages together. The publisher is optional; when
// nil, records are only reported.
type Pipeline struct {
	scraper   Scraper
	matcher   Matcher
	publisher publisher.Publisher
	out       io.Writer
	log       *logger.Logger
}

// New creates a pipeline writing its tables to out.
func New(scraper Scraper, matcher Matcher, pub publisher.Publisher, out io.Writer) *Pipeline {
	return &Pipeline{
		scraper:   scraper,
		matcher:   matcher,
		publisher: pub,
		out:       out,
		log:       logger.ForPipeline(),
	}
}

// Run executes one full pass: scrape the catalog, print the discounted
// items, match them against the second site, publish each record, then
// print the largest gaps. Publish failures are logged, not fatal.
func (p *Pipeline) Run(ctx context.Context, category string, minDiscount float64) error {
	items, err := p.scraper.Scrape(ctx, category, minDiscount)
	if err != nil {
		return err
	}
	p.log.Info().Int("items", len(items)).Str("category", category).Msg("scraped catalog")

	report.Banner(p.out, "Discounted items")
	if err := report.WriteItems(p.out, items); err != nil {
		return err
	}

	records, err := p.matcher.Match(ctx, items)
	if err != nil {
		return err
	}
	p.log.Info().Int("records", len(records)).Msg("matching complete")

	p.publish(records)

	report.Banner(p.out, "Largest price gaps")
	return report.WriteRecords(p.out, records)
}

func (p *Pipeline) publish(records []match.Record) {
	if p.publisher == nil {
		return
	}
	for _, rec := range records {
		message, err := json.Marshal(rec)
		if err != nil {
			p.log.Error().Err(err).Str("title", rec.CandidateTitle).Msg("failed to encode record")
			continue
		}
		if err := p.publisher.Publish(message); err != nil {
			p.log.Error().Err(err).Str("title", rec.CandidateTitle).Msg("failed to publish record")
		}
	}
}
