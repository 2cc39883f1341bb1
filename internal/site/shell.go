package site

import (
	"fmt"
	"html/template"
	"strings"
)

// pageShell wraps rendered page bodies in the site chrome. The body is
// inserted unescaped: it is the output of the markdown renderer plus any
// plugin injection, both trusted.
var pageShell = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} - {{.SiteTitle}}</title>
</head>
<body>
<header>
<strong>{{.SiteTitle}}</strong>
<nav>
{{- range .Nav}}
<a href="{{.URL}}">{{.Title}}</a>
{{- end}}
</nav>
</header>
<main>
{{.Body}}
</main>
</body>
</html>
`))

// NavEntry is one link in the site navigation.
type NavEntry struct {
	Title string
	URL   string
}

type shellData struct {
	Title     string
	SiteTitle string
	Nav       []NavEntry
	Body      template.HTML
}

// wrapPage produces the final HTML document for a page.
func wrapPage(page *Page, siteTitle string, nav []NavEntry) (string, error) {
	var b strings.Builder
	data := shellData{
		Title:     page.Title,
		SiteTitle: siteTitle,
		Nav:       nav,
		Body:      template.HTML(page.HTML),
	}
	if err := pageShell.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render page shell for %s: %w", page.SrcPath, err)
	}
	return b.String(), nil
}
