package portal

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/voebb-loans/internal/loan"
)

// parseLoans extracts loan items from the loans page HTML, in table row order.
// Rows without data cells (headers) are skipped.
func parseLoans(source, rowSelector string, cols Columns) ([]loan.Item, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	items := make([]loan.Item, 0)
	var rowErr error

	doc.Find(rowSelector).EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return true
		}
		if cells.Length() < cols.max() {
			rowErr = fmt.Errorf("row %d has %d cells, want at least %d", i+1, cells.Length(), cols.max())
			return false
		}

		cell := func(pos int) string {
			return cellText(cells.Eq(pos - 1))
		}

		returnDate, err := loan.ParseDate(cell(cols.ReturnDate))
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", i+1, err)
			return false
		}

		items = append(items, loan.NewItem(
			returnDate,
			cell(cols.Library),
			cell(cols.Title),
			cell(cols.Extension),
		))
		return true
	})

	if rowErr != nil {
		return nil, rowErr
	}
	return items, nil
}

// cellText renders a table cell the way a browser shows it: whitespace collapsed
// within lines, <br> and block elements as line breaks, blank lines dropped
func cellText(sel *goquery.Selection) string {
	var b strings.Builder
	writeText(&b, sel)

	lines := strings.Split(b.String(), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Line breaks in the HTML source render as spaces
var sourceWhitespace = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")

var blockElements = map[string]bool{
	"div": true, "p": true, "li": true, "ul": true, "ol": true, "tr": true, "table": true,
}

func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		switch name := goquery.NodeName(node); {
		case name == "br":
			b.WriteString("\n")
		case name == "#text":
			b.WriteString(sourceWhitespace.Replace(node.Text()))
		case name == "script" || name == "style" || name == "#comment":
		case blockElements[name]:
			b.WriteString("\n")
			writeText(b, node)
			b.WriteString("\n")
		default:
			writeText(b, node)
		}
	})
}
