// Package report renders scraped items and match records as aligned
// text tables.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"pricegap/internal/catalog"
	"pricegap/internal/match"
)

// topRecords caps the final summary table.
const topRecords = 10

// Banner writes a section heading.
func Banner(w io.Writer, title string) {
	fmt.Fprintf(w, "\n== %s ==\n", title)
}

// WriteItems renders the scraped catalog items as a table.
func WriteItems(w io.Writer, items []catalog.Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tPRICE\tWAS\tDIFF\tLINK")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%s\n",
			item.Title, item.Price, item.Was, item.Diff, item.Link)
	}
	return tw.Flush()
}

// WriteRecords renders the largest match records as a table, at most
// topRecords of them. Records are expected to arrive sorted already.
func WriteRecords(w io.Writer, records []match.Record) error {
	if len(records) > topRecords {
		records = records[:topRecords]
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tGAP\tMATCHED\tCATALOG\tMATCHED LINK\tCATALOG LINK")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%s\t%s\n",
			rec.CandidateTitle, rec.PriceDiff, rec.MatchedPrice, rec.CandidatePrice,
			rec.MatchedLink, rec.CandidateLink)
	}
	return tw.Flush()
}
