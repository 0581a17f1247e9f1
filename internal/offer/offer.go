// Package offer parses short promotional-offer descriptions and computes
// effective discounted prices.
package offer

import (
	"regexp"
	"strconv"
	"strings"

	"pricegap/helpers"
)

// Offer is a promotional discount attached to a single product id.
type Offer struct {
	ID               string `json:"id"`
	ShortDescription string `json:"shortDescription"`
}

// Kind classifies an offer description by its discount mechanics
type Kind int

const (
	// KindUnknown is an offer with no recognized discount mechanics
	KindUnknown Kind = iota
	// KindPercentExtra is "EXTRA n% ..." off the current price
	KindPercentExtra
	// KindPercentSave is "SAVE n% ..." off the plain price
	KindPercentSave
	// KindFlatSave is "SAVE $n ..." subtracted from the plain price
	KindFlatSave
	// KindBundleBuy is "BUY q FOR $n", priced per unit
	KindBundleBuy
	// KindGiftCardTier is a gift-card promotion with tiered flat discounts
	KindGiftCardTier
)

var bundlePattern = regexp.MustCompile(`\bBUY\s+(\d+)\s+FOR\s*\$?\s*([0-9]+(?:\.[0-9]{1,2})?)\b`)

// Classify maps an offer description to its kind. Keyword prefixes do not
// overlap, so the first matching rule wins.
func Classify(text string) Kind {
	switch {
	case strings.HasPrefix(text, "EXTRA") && strings.Contains(text, "%"):
		return KindPercentExtra
	case strings.HasPrefix(text, "SAVE") && strings.Contains(text, "%"):
		return KindPercentSave
	case strings.HasPrefix(text, "SAVE") && strings.Contains(text, "$"):
		return KindFlatSave
	case strings.HasPrefix(text, "BUY"):
		return KindBundleBuy
	case strings.Contains(text, "GIFT CARD"):
		return KindGiftCardTier
	default:
		return KindUnknown
	}
}

// Apply computes the discounted price for an offer description given the
// plain price and, when the item is already on sale, the current price.
// The second return value is false when the offer yields no price: empty
// or unrecognized text, a missing discount value, or inputs the offer
// kind cannot work with.
func Apply(price, current *float64, text string) (float64, bool) {
	if text == "" {
		return 0, false
	}

	switch Classify(text) {
	case KindPercentExtra:
		pct, ok := helpers.ExtractNumber(text)
		if !ok || pct == 0 {
			return 0, false
		}
		if current != nil {
			return helpers.Round2(*current * (1 - pct/100)), true
		}
		if price != nil {
			return helpers.Round2(*price * (1 - pct/100)), true
		}
		return 0, false

	case KindPercentSave:
		pct, ok := helpers.ExtractNumber(text)
		if !ok || pct == 0 || price == nil {
			return 0, false
		}
		return helpers.Round2(*price * (1 - pct/100)), true

	case KindFlatSave:
		amount, ok := helpers.ExtractNumber(text)
		if !ok || amount == 0 || price == nil {
			return 0, false
		}
		return helpers.Round2(*price - amount), true

	case KindBundleBuy:
		m := bundlePattern.FindStringSubmatch(text)
		if m == nil {
			return 0, false
		}
		qty, err := strconv.Atoi(m[1])
		if err != nil || qty <= 0 {
			return 0, false
		}
		total, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, false
		}
		return helpers.Round2(total / float64(qty)), true

	case KindGiftCardTier:
		// tier amounts are fixed by the promotion, not parsed from the text
		if price == nil {
			return 0, false
		}
		switch {
		case *price >= 600:
			return *price - 150, true
		case *price >= 300:
			return *price - 50, true
		case *price >= 150:
			return *price - 20, true
		}
		return 0, false
	}

	return 0, false
}

// DescriptionFor returns the short description of the offer whose id
// matches, or empty when none does.
func DescriptionFor(offers []Offer, id string) string {
	for _, o := range offers {
		if o.ID == id {
			return o.ShortDescription
		}
	}
	return ""
}
