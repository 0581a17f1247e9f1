// Package catalog scrapes the discount catalog site for sale items whose
// markdown exceeds a minimum discount.
package catalog

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"pricegap/helpers"
	"pricegap/internal/fetch"
	"pricegap/internal/htmldoc"
	"pricegap/logger"
	apperrors "pricegap/pkg/errors"
)

// Item is a discounted listing scraped from the catalog.
type Item struct {
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Was   float64 `json:"was"`
	Diff  float64 `json:"diff"`
	Link  string  `json:"link"`
}

// Selectors contains CSS selectors for the catalog listing page
type Selectors struct {
	Product       string
	PriceFinal    string
	PriceOriginal string
	Brand         string
	Name          string
}

// DefaultSelectors returns the selectors for the live catalog site
func DefaultSelectors() Selectors {
	return Selectors{
		Product:       "a.product-details",
		PriceFinal:    "span.price.final",
		PriceOriginal: "span.price.original",
		Brand:         "span.brand",
		Name:          "span.name",
	}
}

// Scraper paginates a catalog category and extracts discounted items.
type Scraper struct {
	baseURL   string
	selectors Selectors
	log       *logger.Logger
	fetchFunc func(ctx context.Context, url string) (*fetch.Result, error)
}

// NewScraper creates a scraper for the catalog rooted at baseURL.
func NewScraper(fetcher *fetch.Fetcher, baseURL string, selectors Selectors) *Scraper {
	return &Scraper{
		baseURL:   strings.TrimRight(baseURL, "/"),
		selectors: selectors,
		log:       logger.ForScraper(),
		fetchFunc: fetcher.Get,
	}
}

// Scrape walks the category pages until one yields no product anchors and
// returns the kept items sorted by discount, largest first. A fetch error
// on the first page is returned; on later pages it ends pagination with
// whatever was accumulated.
func (s *Scraper) Scrape(ctx context.Context, category string, minDiscount float64) ([]Item, error) {
	startURL := s.baseURL + "/" + category

	var items []Item
	for page := 1; ; page++ {
		pageURL, err := turnPage(startURL, page)
		if err != nil {
			return nil, apperrors.NewValidation("scraper", "invalid catalog URL: "+startURL)
		}

		res, err := s.fetchFunc(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			s.log.Warn().Err(err).Int("page", page).Msg("page fetch failed, ending pagination")
			break
		}
		if res.Doc == nil {
			if page == 1 {
				return nil, apperrors.NewParsing("scraper", "catalog page was not HTML", nil)
			}
			s.log.Warn().Int("page", page).Msg("catalog page was not HTML, ending pagination")
			break
		}

		anchors := res.Doc.SelectAll(s.selectors.Product)
		if len(anchors) == 0 {
			// end of catalog
			break
		}
		s.log.Debug().Int("page", page).Int("anchors", len(anchors)).Msg("scraped catalog page")

		for _, anchor := range anchors {
			if item, ok := s.extractItem(anchor, minDiscount); ok {
				items = append(items, item)
			}
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Diff > items[j].Diff
	})
	return items, nil
}

// extractItem reads one product anchor. Items missing either price or
// discounted less than minDiscount are dropped, not errors.
func (s *Scraper) extractItem(anchor htmldoc.Node, minDiscount float64) (Item, bool) {
	price, priceOK := s.selectNumber(anchor, s.selectors.PriceFinal)
	was, wasOK := s.selectNumber(anchor, s.selectors.PriceOriginal)
	if !priceOK || !wasOK {
		return Item{}, false
	}

	diff := was - price
	if diff < 0 || diff < minDiscount {
		return Item{}, false
	}

	brand := s.selectText(anchor, s.selectors.Brand)
	name := s.selectText(anchor, s.selectors.Name)
	title := helpers.CollapseSpace(brand + " " + name)

	href, _ := anchor.Attr("href")
	link := helpers.ResolveURL(s.baseURL, strings.TrimSpace(href))

	return Item{
		Title: title,
		Price: price,
		Was:   was,
		Diff:  diff,
		Link:  link,
	}, true
}

func (s *Scraper) selectNumber(anchor htmldoc.Node, selector string) (float64, bool) {
	node, ok := anchor.SelectOne(selector)
	if !ok {
		return 0, false
	}
	return helpers.ExtractNumber(node.Text())
}

func (s *Scraper) selectText(anchor htmldoc.Node, selector string) string {
	node, ok := anchor.SelectOne(selector)
	if !ok {
		return ""
	}
	return helpers.CollapseSpace(node.Text())
}

// turnPage injects the page number into the query string; page 1 is the
// bare category URL.
func turnPage(rawURL string, page int) (string, error) {
	if page <= 1 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
