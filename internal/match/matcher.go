// Package match searches the second site for each discounted catalog item
// and records the pairs whose prices diverge beyond a threshold.
package match

import (
	"context"
	"net/url"
	"sort"
	"time"

	"pricegap/helpers"
	"pricegap/internal/catalog"
	"pricegap/internal/fetch"
	"pricegap/internal/offer"
	"pricegap/internal/product"
	"pricegap/logger"
)

// Record is one confirmed price gap between the two sites. The matched
// side is the search target, the candidate side is the catalog item that
// triggered the search.
type Record struct {
	MatchedTitle   string  `json:"matched_title"`
	CandidateTitle string  `json:"candidate_title"`
	PriceDiff      float64 `json:"price_diff"`
	MatchedPrice   float64 `json:"matched_price"`
	CandidatePrice float64 `json:"candidate_price"`
	MatchedLink    string  `json:"matched_link"`
	CandidateLink  string  `json:"candidate_link"`
}

// OfferLookup fetches promotional offers for a batch of product ids.
type OfferLookup interface {
	Lookup(ctx context.Context, ids []string) ([]offer.Offer, error)
}

// Config holds the matcher's search endpoint and decision thresholds.
type Config struct {
	// SearchURL is the search endpoint prefix; the query-escaped title is
	// appended directly.
	SearchURL           string
	ResultSelector      string
	SimilarityThreshold float64
	PriceGapThreshold   float64
	SearchDelay         time.Duration
}

// Matcher runs one search per catalog item and keeps the pairs that pass
// the identity and price-gap gates.
type Matcher struct {
	cfg       Config
	extractor *product.Extractor
	offers    OfferLookup
	log       *logger.Logger
	fetchFunc func(ctx context.Context, url string) (*fetch.Result, error)
	sleepFunc func(ctx context.Context, d time.Duration)
}

// NewMatcher creates a matcher. offers may be nil, in which case results
// are priced without promotional discounts.
func NewMatcher(fetcher *fetch.Fetcher, extractor *product.Extractor, offers OfferLookup, cfg Config) *Matcher {
	if cfg.ResultSelector == "" {
		cfg.ResultSelector = "ul#products-grid > li"
	}
	return &Matcher{
		cfg:       cfg,
		extractor: extractor,
		offers:    offers,
		log:       logger.ForMatcher(),
		fetchFunc: fetcher.Get,
		sleepFunc: sleep,
	}
}

// Match searches the target site for every catalog item sequentially and
// returns the confirmed records sorted by price gap, largest first. A
// failure on one item is logged and the rest keep going; only context
// cancellation stops the run early.
func (m *Matcher) Match(ctx context.Context, items []catalog.Item) ([]Record, error) {
	var records []Record
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		if i > 0 && m.cfg.SearchDelay > 0 {
			m.sleepFunc(ctx, m.cfg.SearchDelay)
		}

		rec, ok := m.matchOne(ctx, item)
		if !ok {
			continue
		}
		records = append(records, rec)
		m.notify(rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PriceDiff > records[j].PriceDiff
	})
	return records, nil
}

func (m *Matcher) matchOne(ctx context.Context, item catalog.Item) (Record, bool) {
	searchURL := m.cfg.SearchURL + url.QueryEscape(item.Title)

	res, err := m.fetchFunc(ctx, searchURL)
	if err != nil {
		m.log.Warn().Err(err).Str("title", item.Title).Msg("search failed")
		return Record{}, false
	}
	if res.Doc == nil {
		m.log.Warn().Str("title", item.Title).Msg("search response was not HTML")
		return Record{}, false
	}

	results := res.Doc.SelectAll(m.cfg.ResultSelector)
	if len(results) == 0 {
		m.log.Debug().Str("title", item.Title).Msg("no search results")
		return Record{}, false
	}

	// only the top result is considered a candidate match
	detail, err := m.extractor.Extract(results[0])
	if err != nil {
		m.log.Warn().Err(err).Str("title", item.Title).Msg("result extraction failed")
		return Record{}, false
	}

	price, was := m.applyOffer(ctx, detail)

	// the original price must agree exactly, otherwise the two listings
	// are different products or different variants
	if was == nil || *was != item.Was {
		return Record{}, false
	}
	if Jaccard(TokenSet(item.Title), TokenSet(detail.Title)) < m.cfg.SimilarityThreshold {
		return Record{}, false
	}
	if price == nil {
		return Record{}, false
	}

	diff := helpers.Round2(*price - item.Price)
	if diff <= m.cfg.PriceGapThreshold {
		return Record{}, false
	}

	return Record{
		MatchedTitle:   detail.Title,
		CandidateTitle: item.Title,
		PriceDiff:      diff,
		MatchedPrice:   *price,
		CandidatePrice: item.Price,
		MatchedLink:    detail.Link,
		CandidateLink:  item.Link,
	}, true
}

// applyOffer fetches the promotional offer for the result, if any, and
// folds the discounted price into the pair. The price display does not
// guarantee which value is current and which is original, so the final
// pair is min/max over everything known.
func (m *Matcher) applyOffer(ctx context.Context, detail *product.Detail) (price, was *float64) {
	price, was = detail.Price, detail.Was
	if m.offers == nil || detail.ProductID == "" {
		return price, was
	}

	offers, err := m.offers.Lookup(ctx, []string{detail.ProductID})
	if err != nil {
		m.log.Warn().Err(err).Str("product_id", detail.ProductID).Msg("offer lookup failed")
		return price, was
	}
	text := offer.DescriptionFor(offers, detail.ProductID)
	if text == "" {
		return price, was
	}

	// the plain price an offer discounts is the original, pre-sale one
	plain := was
	if plain == nil {
		plain = price
	}
	discounted, ok := offer.Apply(plain, price, text)
	if !ok {
		return price, was
	}
	m.log.Debug().
		Str("product_id", detail.ProductID).
		Str("offer", text).
		Float64("discounted", discounted).
		Msg("applied offer")

	return minMax(price, was, &discounted)
}

// notify logs a tiered alert for large gaps; the record itself is always
// kept regardless of tier.
func (m *Matcher) notify(rec Record) {
	var tier string
	switch {
	case rec.PriceDiff > 250:
		tier = "[***]"
	case rec.PriceDiff > 200:
		tier = "[**]"
	case rec.PriceDiff > 150:
		tier = "[*]"
	default:
		return
	}
	m.log.Info().
		Str("tier", tier).
		Str("title", rec.CandidateTitle).
		Float64("price_diff", rec.PriceDiff).
		Str("link", rec.CandidateLink).
		Msg("price gap alert")
}

// minMax reduces the non-nil values to a (low, high) pair.
func minMax(values ...*float64) (low, high *float64) {
	for _, v := range values {
		if v == nil {
			continue
		}
		if low == nil || *v < *low {
			low = v
		}
		if high == nil || *v > *high {
			high = v
		}
	}
	return low, high
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
