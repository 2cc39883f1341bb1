// Package site renders a markdown docs tree into a static site, running
// registered plugins at the four fixed lifecycle points of each build.
package site

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Page is a single markdown source file and its rendered output.
type Page struct {
	SrcPath string // path relative to the docs dir, forward slashes
	AbsPath string // absolute path of the source file
	Title   string
	Slug    string
	Nav     bool   // include in the navigation list
	Weight  int    // nav ordering; lower sorts first
	Body    []byte // markdown body with frontmatter stripped
	HTML    string // rendered body (post plugin hooks)
}

// FrontMatter is the subset of page frontmatter the pipeline understands.
type FrontMatter struct {
	Title  string `yaml:"title,omitempty"`
	Nav    *bool  `yaml:"nav,omitempty"`
	Weight int    `yaml:"weight,omitempty"`
}

var frontMatterDelim = []byte("---")

// splitFrontMatter separates a leading YAML frontmatter block from the body.
// Content without a frontmatter block is returned unchanged with a zero
// FrontMatter.
func splitFrontMatter(content []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter
	trimmed := bytes.TrimPrefix(content, []byte("\ufeff"))
	if !bytes.HasPrefix(trimmed, frontMatterDelim) {
		return fm, content, nil
	}
	rest := trimmed[len(frontMatterDelim):]
	if len(rest) == 0 || (rest[0] != '\n' && !bytes.HasPrefix(rest, []byte("\r\n"))) {
		return fm, content, nil
	}
	idx := bytes.Index(rest, []byte("\n---"))
	if idx < 0 {
		return fm, content, fmt.Errorf("unterminated frontmatter block")
	}
	block := rest[:idx]
	body := rest[idx+len("\n---"):]
	body = bytes.TrimPrefix(body, []byte("\r"))
	body = bytes.TrimPrefix(body, []byte("\n"))
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return fm, content, fmt.Errorf("parse frontmatter: %w", err)
	}
	return fm, body, nil
}

// titleFromBody returns the first ATX H1 heading, if any.
func titleFromBody(body []byte) string {
	for _, line := range bytes.Split(body, []byte("\n")) {
		t := bytes.TrimSpace(line)
		if bytes.HasPrefix(t, []byte("# ")) {
			return string(bytes.TrimSpace(t[2:]))
		}
	}
	return ""
}

// titleFromPath derives a fallback title from the file name
// ("getting-started.md" -> "Getting Started").
func titleFromPath(srcPath string) string {
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// stripDiacritics removes combining marks after NFD decomposition, so
// "Résumé" slugs to "resume".
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts a title or path stem into a URL slug.
func Slugify(s string) string {
	folded, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// OutPath returns the site-relative output path for the page
// ("guide/intro.md" -> "guide/intro/index.html", "index.md" -> "index.html").
// The final segment is the page slug, so "guide/Getting Started.md" lands at
// "guide/getting-started/index.html".
func (p *Page) OutPath() string {
	src := filepath.ToSlash(p.SrcPath)
	stem := strings.TrimSuffix(src, ".md")
	if stem == "index" || strings.HasSuffix(stem, "/index") {
		return stem + ".html"
	}
	dir := ""
	if i := strings.LastIndex(stem, "/"); i >= 0 {
		dir, stem = stem[:i+1], stem[i+1:]
	}
	slug := p.Slug
	if slug == "" {
		slug = Slugify(stem)
	}
	return dir + slug + "/index.html"
}

// URLPath returns the server path of the rendered page.
func (p *Page) URLPath() string {
	out := p.OutPath()
	if out == "index.html" {
		return "/"
	}
	return "/" + strings.TrimSuffix(out, "index.html")
}
