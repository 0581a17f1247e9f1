// Package product extracts structured detail from a search-result node on
// the search target site.
package product

import (
	"regexp"
	"strconv"
	"strings"

	"pricegap/helpers"
	"pricegap/internal/htmldoc"
	apperrors "pricegap/pkg/errors"
)

// Detail is the structured view of one search result. Price and Was are
// nil when the markup carried no parseable value.
type Detail struct {
	Title     string
	Price     *float64
	Was       *float64
	Link      string
	ProductID string
}

// Selectors contains CSS selectors for a search-result node
type Selectors struct {
	Brand        string
	Name         string
	ReviewWidget string
	LinkAttr     string
	PriceRoot    string
	PriceText    string
}

// DefaultSelectors returns the selectors for the live search target site
func DefaultSelectors() Selectors {
	return Selectors{
		Brand:        "p.ProductCard_brand__SYBe7",
		Name:         "h2.ProductCard_name__p_7X2",
		ReviewWidget: "div.yotpo-widget-instance",
		LinkAttr:     "data-yotpo-url",
		PriceRoot:    "div.Price_root__y8UOm",
		PriceText:    `span[style*="position:absolute"]`,
	}
}

var (
	nowPattern   = regexp.MustCompile(`(?i)now\s+\$([0-9,]+\.?\d*)`)
	wasPattern   = regexp.MustCompile(`(?i)was\s+\$([0-9,]+\.?\d*)`)
	pricePattern = regexp.MustCompile(`(?i)price\s+\$([0-9,]+\.?\d*)`)
	// trailing numeric path segment, e.g. ".../lustrous-gown-26184377?position=1"
	productIDPattern = regexp.MustCompile(`-(\d+)(?:\?|$)`)
)

// Extractor reads product details out of search-result nodes.
type Extractor struct {
	baseURL   string
	selectors Selectors
}

// NewExtractor creates an extractor resolving links against baseURL.
func NewExtractor(baseURL string, selectors Selectors) *Extractor {
	return &Extractor{baseURL: baseURL, selectors: selectors}
}

// Extract pulls title, prices, link and product id from a result node.
// A missing link is a hard failure: without it the item has no identity.
// Missing prices and a missing product id are represented as absent.
func (e *Extractor) Extract(node htmldoc.Node) (*Detail, error) {
	brand := e.selectText(node, e.selectors.Brand)
	name := e.selectText(node, e.selectors.Name)
	title := helpers.CollapseSpace(brand + " " + name)

	widget, ok := node.SelectOne(e.selectors.ReviewWidget)
	if !ok {
		return nil, apperrors.NewParsing("product", "review widget element not found", nil)
	}
	rawLink, ok := widget.Attr(e.selectors.LinkAttr)
	if !ok || strings.TrimSpace(rawLink) == "" {
		return nil, apperrors.NewParsing("product", "review widget has no link attribute", nil)
	}
	link := helpers.ResolveURL(e.baseURL, strings.TrimSpace(rawLink))

	detail := &Detail{
		Title:     title,
		Link:      link,
		ProductID: extractProductID(link),
	}
	detail.Price, detail.Was = e.extractPrices(node)
	return detail, nil
}

// extractPrices parses the accessibility text near the price display.
// The source markup does not guarantee ordering, so the final pair is
// min/max over whatever values were found.
func (e *Extractor) extractPrices(node htmldoc.Node) (price, was *float64) {
	root, ok := node.SelectOne(e.selectors.PriceRoot)
	if !ok {
		return nil, nil
	}
	span, ok := root.SelectOne(e.selectors.PriceText)
	if !ok {
		return nil, nil
	}
	text := helpers.CollapseSpace(span.Text())

	var values []float64
	if strings.Contains(strings.ToLower(text), "it was") {
		// "Price is now $220.00, it was $443.00"
		if v, ok := matchMoney(nowPattern, text); ok {
			values = append(values, v)
		}
		if v, ok := matchMoney(wasPattern, text); ok {
			values = append(values, v)
		}
	} else {
		// "Price $399.00"
		if v, ok := matchMoney(pricePattern, text); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, nil
	}

	low, high := values[0], values[0]
	for _, v := range values[1:] {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return &low, &high
}

func (e *Extractor) selectText(node htmldoc.Node, selector string) string {
	n, ok := node.SelectOne(selector)
	if !ok {
		return ""
	}
	return helpers.CollapseSpace(n.Text())
}

func matchMoney(pattern *regexp.Regexp, text string) (float64, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func extractProductID(link string) string {
	m := productIDPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}
