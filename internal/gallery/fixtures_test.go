package gallery

import (
	"fmt"
	"strings"
)

const threadUrl = "https://gall.dcinside.com/mgallery/board/view/?id=pokemontcgpocket&no=205860"

func comment(uid string) string {
	if uid == "" {
		return `<li class="ub-content"><div class="cmt_info"><span class="gall_writer ub-writer" data-nick="ㅇㅇ" data-ip="1.2"></span></div></li>`
	}
	return fmt.Sprintf(
		`<li class="ub-content"><div class="cmt_info"><span class="gall_writer ub-writer" data-nick="nick" data-uid="%s"></span><p class="usertxt">hi</p></div></li>`,
		uid,
	)
}

func pagingLinks(current int, pages ...int) string {
	var b strings.Builder
	b.WriteString(`<div class="cmt_paging">`)
	for _, p := range pages {
		if p == current {
			fmt.Fprintf(&b, `<em>%d</em>`, p)
			continue
		}
		fmt.Fprintf(&b, `<a href="javascript:viewComments(%d, 'D');">%d</a>`, p, p)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func lastPageControl(last int) string {
	return fmt.Sprintf(`<a href="javascript:viewComments(%d, 'D');" class="sp_pagingicon page_end">끝</a>`, last)
}

func commentPage(paging string, entries ...string) string {
	return `<html><body><div class="comment_box"><ul class="cmt_list">` +
		strings.Join(entries, "") +
		`</ul></div><div class="bottom_paging_box">` + paging + `</div></body></html>`
}
