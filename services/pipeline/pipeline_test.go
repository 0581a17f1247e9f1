package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricegap/internal/catalog"
	"pricegap/internal/fetch"
	"pricegap/internal/match"
	"pricegap/internal/offer"
	"pricegap/internal/product"
)

const catalogItemTemplate = `<a class="product-details" href="%s">
	<span class="brand">%s</span>
	<span class="name">%s</span>
	<span class="price final">$%.2f</span>
	<span class="price original">$%.2f</span>
</a>`

const searchResultTemplate = `<li>
	<p class="ProductCard_brand__SYBe7">%s</p>
	<h2 class="ProductCard_name__p_7X2">%s</h2>
	<div class="yotpo-widget-instance" data-yotpo-url="%s"></div>
	<div class="Price_root__y8UOm">
		<span style="position:absolute">%s</span>
	</div>
</li>`

type capturingPublisher struct {
	messages [][]byte
}

func (p *capturingPublisher) Publish(message []byte) error {
	p.messages = append(p.messages, message)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

// testSite serves both retail sites from one httptest server: a catalog
// category with one page of listings, a search endpoint keyed by query,
// and the offers endpoint.
func testSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/womens-sale", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Query().Get("page") != "" {
			// later pages are empty, ending pagination
			fmt.Fprint(w, `<html><body></body></html>`)
			return
		}
		fmt.Fprint(w, "<html><body>")
		// kept: 443 - 220 = 223 discount
		fmt.Fprintf(w, catalogItemTemplate, "/lustrous-gown.html",
			"Misha Collection", "Lustrous Gown", 220.0, 443.0)
		// kept but rejected later: the search result barely resembles it
		fmt.Fprintf(w, catalogItemTemplate, "/statement-heels.html",
			"Vera Moda", "Statement Heels", 150.0, 420.0)
		// dropped at scrape: 30 below the minimum discount
		fmt.Fprintf(w, catalogItemTemplate, "/basic-tee.html",
			"Acme", "Basic Tee", 20.0, 50.0)
		fmt.Fprint(w, "</body></html>")
	})

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><ul id="products-grid">`)
		switch r.URL.Query().Get("q") {
		case "Misha Collection Lustrous Gown":
			fmt.Fprintf(w, searchResultTemplate, "Misha Collection", "Lustrous Gown",
				"/brand/lustrous-gown-26184377", "Price is now $370.00, it was $443.00")
		case "Vera Moda Statement Heels":
			fmt.Fprintf(w, searchResultTemplate, "Unrelated Brand", "Ankle Boots Leather Black",
				"/brand/ankle-boots-555", "Price is now $400.00, it was $420.00")
		}
		fmt.Fprint(w, `</ul></body></html>`)
	})

	mux.HandleFunc("/routes/special-offers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	})

	return httptest.NewServer(mux)
}

func TestRun(t *testing.T) {
	srv := testSite(t)
	defer srv.Close()

	fetcher := fetch.New(fetch.Config{
		UserAgent: "pricegap-test",
		Timeout:   5 * time.Second,
		Retries:   1,
	}, nil)

	scraper := catalog.NewScraper(fetcher, srv.URL, catalog.DefaultSelectors())
	extractor := product.NewExtractor(srv.URL, product.DefaultSelectors())
	offersClient := offer.NewClient(fetcher, srv.URL+"/routes/special-offers")
	matcher := match.NewMatcher(fetcher, extractor, offersClient, match.Config{
		SearchURL:           srv.URL + "/search?q=",
		SimilarityThreshold: 0.9,
		PriceGapThreshold:   100,
	})

	pub := &capturingPublisher{}
	var out bytes.Buffer
	p := New(scraper, matcher, pub, &out)

	err := p.Run(context.Background(), "womens-sale", 200)
	require.NoError(t, err)

	// one record published: the gown, 370 vs 220
	require.Len(t, pub.messages, 1)
	var rec match.Record
	require.NoError(t, json.Unmarshal(pub.messages[0], &rec))
	assert.Equal(t, "Misha Collection Lustrous Gown", rec.CandidateTitle)
	assert.Equal(t, 150.0, rec.PriceDiff)
	assert.Equal(t, 370.0, rec.MatchedPrice)
	assert.Equal(t, 220.0, rec.CandidatePrice)
	assert.Equal(t, srv.URL+"/lustrous-gown.html", rec.CandidateLink)
	assert.Equal(t, srv.URL+"/brand/lustrous-gown-26184377", rec.MatchedLink)

	report := out.String()
	assert.Contains(t, report, "== Discounted items ==")
	assert.Contains(t, report, "== Largest price gaps ==")
	assert.Contains(t, report, "Misha Collection Lustrous Gown")
	// scraped but never matched
	assert.Contains(t, report, "Vera Moda Statement Heels")
	assert.NotContains(t, report, "Ankle Boots")
	// below the minimum discount, never scraped
	assert.NotContains(t, report, "Basic Tee")
}

func TestRunWithoutPublisher(t *testing.T) {
	srv := testSite(t)
	defer srv.Close()

	fetcher := fetch.New(fetch.Config{
		UserAgent: "pricegap-test",
		Timeout:   5 * time.Second,
		Retries:   1,
	}, nil)

	scraper := catalog.NewScraper(fetcher, srv.URL, catalog.DefaultSelectors())
	extractor := product.NewExtractor(srv.URL, product.DefaultSelectors())
	matcher := match.NewMatcher(fetcher, extractor, nil, match.Config{
		SearchURL:           srv.URL + "/search?q=",
		SimilarityThreshold: 0.9,
		PriceGapThreshold:   100,
	})

	var out bytes.Buffer
	p := New(scraper, matcher, nil, &out)

	err := p.Run(context.Background(), "womens-sale", 200)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Misha Collection Lustrous Gown")
}

func TestRunScrapeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := fetch.New(fetch.Config{
		UserAgent: "pricegap-test",
		Timeout:   5 * time.Second,
		Retries:   1,
	}, nil)

	scraper := catalog.NewScraper(fetcher, srv.URL, catalog.DefaultSelectors())
	extractor := product.NewExtractor(srv.URL, product.DefaultSelectors())
	matcher := match.NewMatcher(fetcher, extractor, nil, match.Config{
		SearchURL:           srv.URL + "/search?q=",
		SimilarityThreshold: 0.9,
		PriceGapThreshold:   100,
	})

	var out bytes.Buffer
	p := New(scraper, matcher, nil, &out)

	err := p.Run(context.Background(), "womens-sale", 200)
	assert.Error(t, err)
}
