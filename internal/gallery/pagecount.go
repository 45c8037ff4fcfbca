package gallery

import (
	"strings"

	"gallwatch/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// PageSignal names the signal a page count was derived from.
type PageSignal string

const (
	SignalLastPage PageSignal = "last-page-control"
	SignalPaging   PageSignal = "paging-links"
	SignalNone     PageSignal = "none"
)

// ResolvePageCount determines the last comment page index from the markup of
// the first comment page. The first signal that parses wins:
//  1. the page index of the "jump to last page" control
//  2. the largest page index among the links of the paging control
//
// A thread without a paging control has a single page. The result is always >= 1.
func ResolvePageCount(doc *goquery.Document) (int, PageSignal) {
	href, ok := doc.Find(selectorLastPage).First().Attr("href")
	if ok {
		n, parsed := htmlutil.IntCallArg(href, pagingFunction, 0)
		if parsed && n >= 1 {
			return n, SignalLastPage
		}
	}

	paging := doc.Find(selectorPaging).First()
	if paging.Length() == 0 {
		return 1, SignalNone
	}

	maxPage := 1
	signal := SignalNone
	paging.Find(selectorPagingAnchor).Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		if !strings.Contains(href, pagingFunction) {
			return
		}
		n, parsed := htmlutil.IntCallArg(href, pagingFunction, 0)
		if !parsed {
			return
		}
		signal = SignalPaging
		if n > maxPage {
			maxPage = n
		}
	})
	return maxPage, signal
}
