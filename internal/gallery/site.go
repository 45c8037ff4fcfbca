package gallery

import "fmt"

// selectors of the gallery comment section
const (
	selectorCommentEntry = "li.ub-content"
	selectorWriter       = "span.gall_writer.ub-writer"
	attrWriterUid        = "data-uid"

	selectorLastPage     = "a.sp_pagingicon.page_end"
	selectorPaging       = "div.cmt_paging"
	selectorPagingAnchor = "a"

	pagingFunction = "viewComments"
	pagingMode     = "D"

	threadQueryParam = "no"
)

// TransitionCommand is the script that swaps the comment section to the given page in place.
func TransitionCommand(page int) string {
	return fmt.Sprintf("%s(%d, '%s')", pagingFunction, page, pagingMode)
}
