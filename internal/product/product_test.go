package product

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricegap/internal/htmldoc"
)

const resultTemplate = `<html><body><ul id="products-grid"><li>
	<p class="ProductCard_brand__SYBe7">Misha Collection</p>
	<h2 class="ProductCard_name__p_7X2">Lustrous Gown</h2>
	<div class="yotpo-widget-instance" data-yotpo-url="%s"></div>
	<div class="Price_root__y8UOm">
		<span style="position:absolute">%s</span>
		<span class="display">$220.00</span>
	</div>
</li></ul></body></html>`

func resultNode(t *testing.T, link, priceText string) htmldoc.Node {
	t.Helper()
	doc, err := htmldoc.Parse(strings.NewReader(fmt.Sprintf(resultTemplate, link, priceText)))
	require.NoError(t, err)
	nodes := doc.SelectAll("ul#products-grid > li")
	require.Len(t, nodes, 1)
	return nodes[0]
}

func testExtractor() *Extractor {
	return NewExtractor("https://www.davidjones.com", DefaultSelectors())
}

func TestExtractSalePricePair(t *testing.T) {
	node := resultNode(t, "/brand/lustrous-gown-26184377", "Price is now $220.00, it was $443.00")
	detail, err := testExtractor().Extract(node)
	require.NoError(t, err)

	assert.Equal(t, "Misha Collection Lustrous Gown", detail.Title)
	assert.Equal(t, "https://www.davidjones.com/brand/lustrous-gown-26184377", detail.Link)
	assert.Equal(t, "26184377", detail.ProductID)
	require.NotNil(t, detail.Price)
	require.NotNil(t, detail.Was)
	assert.Equal(t, 220.0, *detail.Price)
	assert.Equal(t, 443.0, *detail.Was)
}

func TestExtractIgnoresDisplayOrder(t *testing.T) {
	// "was" appearing before "now" must not swap the pair
	node := resultNode(t, "/brand/lustrous-gown-26184377", "it was $443.00, Price is now $220.00")
	detail, err := testExtractor().Extract(node)
	require.NoError(t, err)

	require.NotNil(t, detail.Price)
	require.NotNil(t, detail.Was)
	assert.Equal(t, 220.0, *detail.Price)
	assert.Equal(t, 443.0, *detail.Was)
}

func TestExtractSinglePrice(t *testing.T) {
	node := resultNode(t, "/brand/classic-shirt-991", "Price $399.00")
	detail, err := testExtractor().Extract(node)
	require.NoError(t, err)

	require.NotNil(t, detail.Price)
	require.NotNil(t, detail.Was)
	assert.Equal(t, 399.0, *detail.Price)
	assert.Equal(t, 399.0, *detail.Was)
	assert.Equal(t, "991", detail.ProductID)
}

func TestExtractUnparseablePriceText(t *testing.T) {
	node := resultNode(t, "/brand/mystery-item-5", "Check store for price")
	detail, err := testExtractor().Extract(node)
	require.NoError(t, err)
	assert.Nil(t, detail.Price)
	assert.Nil(t, detail.Was)
}

func TestExtractMissingLinkIsHardFailure(t *testing.T) {
	html := `<html><body><li>
		<p class="ProductCard_brand__SYBe7">Brand</p>
		<h2 class="ProductCard_name__p_7X2">Name</h2>
		<div class="Price_root__y8UOm"><span style="position:absolute">Price $10.00</span></div>
	</li></body></html>`
	doc, err := htmldoc.Parse(strings.NewReader(html))
	require.NoError(t, err)

	_, err = testExtractor().Extract(doc)
	assert.Error(t, err)
}

func TestExtractProductIDAbsent(t *testing.T) {
	node := resultNode(t, "/brand/no-trailing-id", "Price $50.00")
	detail, err := testExtractor().Extract(node)
	require.NoError(t, err)
	assert.Equal(t, "", detail.ProductID)
}

func TestExtractProductIDBeforeQuery(t *testing.T) {
	node := resultNode(t, "/brand/gown-12345?position=2", "Price $50.00")
	detail, err := testExtractor().Extract(node)
	require.NoError(t, err)
	assert.Equal(t, "12345", detail.ProductID)
}
