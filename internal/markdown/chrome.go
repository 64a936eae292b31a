package markdown

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

// chrome wraps a transformed body with the title header, byline, role
// dependent navigation, the contents sidebar and the recent pages sidebar.
func chrome(rc RenderContext, recent []string, body string, toc []TOCEntry) string {
	title := html.EscapeString(rc.Title)
	query := url.QueryEscape(rc.Title)
	date := ""
	if !rc.LastEditedAt.IsZero() {
		date = rc.LastEditedAt.Format(DateLayout)
	}

	var b strings.Builder
	b.WriteString(`<div class="row">` + "\n")
	b.WriteString(`<div class="col-md-8 wiki-main">` + "\n")
	b.WriteString(`<div class="header-border">` + "\n")
	b.WriteString(`<div class="row">` + "\n")
	fmt.Fprintf(&b, `<h1 class="col-md-8 page-header" id="%s">%s</h1>`+"\n", html.EscapeString(headingID(rc.Title)), title)
	b.WriteString(`<div class="col-md-4 text-md-right align-bottom">` + "\n")
	fmt.Fprintf(&b, `<p class="date">Edited <span class="text-success">%s</span> by <span class="text-primary">%s</span></p>`+"\n",
		html.EscapeString(date), html.EscapeString(rc.LastEditor))
	b.WriteString("</div>\n</div>\n</div>\n")

	b.WriteString("<nav>\n")
	b.WriteString(`<a href="/" class="">Home</a>` + "\n")
	b.WriteString(`<a href="" class="active">Page</a>` + "\n")
	if rc.Role.CanEdit() {
		fmt.Fprintf(&b, `<a href="editor?page=%s" class="nav-right">Edit</a>`+"\n", query)
		fmt.Fprintf(&b, `<a href="/delete-page?page=%s" class="delete">Delete</a>`+"\n", query)
	} else {
		b.WriteString(`<a href="" class="nav-right"></a>` + "\n")
	}
	b.WriteString("</nav>\n")

	b.WriteString(`<div class="wiki-post">` + "\n")
	b.WriteString(body)
	b.WriteString("\n</div>\n</div>\n")

	b.WriteString(`<aside class="order-first col-md-2 wiki-sidebar list-truncate">` + "\n")
	b.WriteString(`<h5 class="">Contents</h5>` + "\n")
	b.WriteString(`<hr class="no-margin pb-2">` + "\n")
	b.WriteString(`<ol class="list-unstyled mb-0">` + "\n")
	for _, e := range toc {
		fmt.Fprintf(&b, `<li class="toc-%d"><a href="#%s">%s</a></li>`+"\n",
			e.Level-1, html.EscapeString(e.ID), html.EscapeString(e.Text))
	}
	b.WriteString("</ol>\n</aside>\n")

	b.WriteString(`<aside class="col-md-2 wiki-sidebar list-truncate">` + "\n")
	b.WriteString(`<h5 class="">Recently Edited Pages</h5>` + "\n")
	b.WriteString(`<hr class="no-margin pb-2">` + "\n")
	b.WriteString(`<ol class="list-unstyled mb-0">` + "\n")
	for i, t := range recent {
		if i == RecentLimit {
			break
		}
		fmt.Fprintf(&b, `<li><a href="/page?page=%s">%s</a></li>`+"\n", url.QueryEscape(t), html.EscapeString(t))
	}
	b.WriteString("</ol>\n</aside>\n")
	b.WriteString("</div>\n")
	return b.String()
}
