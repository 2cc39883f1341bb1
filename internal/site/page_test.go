package site

import (
	"testing"
)

func TestSplitFrontMatter(t *testing.T) {
	content := []byte("---\ntitle: Hello\nweight: 3\nnav: false\n---\n# Body\n")
	fm, body, err := splitFrontMatter(content)
	if err != nil {
		t.Fatalf("splitFrontMatter: %v", err)
	}
	if fm.Title != "Hello" || fm.Weight != 3 {
		t.Fatalf("frontmatter = %+v", fm)
	}
	if fm.Nav == nil || *fm.Nav {
		t.Fatalf("nav should be false")
	}
	if string(body) != "# Body\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestSplitFrontMatterAbsent(t *testing.T) {
	content := []byte("# Just a page\n")
	fm, body, err := splitFrontMatter(content)
	if err != nil {
		t.Fatalf("splitFrontMatter: %v", err)
	}
	if fm.Title != "" || string(body) != "# Just a page\n" {
		t.Fatalf("content without frontmatter should pass through unchanged")
	}
}

func TestSplitFrontMatterUnterminated(t *testing.T) {
	if _, _, err := splitFrontMatter([]byte("---\ntitle: Broken\n")); err == nil {
		t.Fatalf("expected error for unterminated block")
	}
}

func TestTitleResolutionOrder(t *testing.T) {
	if got := titleFromBody([]byte("intro text\n\n# Heading One\n")); got != "Heading One" {
		t.Fatalf("titleFromBody = %q", got)
	}
	if got := titleFromPath("guide/getting-started.md"); got != "Getting Started" {
		t.Fatalf("titleFromPath = %q", got)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Package Search":         "package-search",
		"Résumé  Builder":        "resume-builder",
		"  NumPy & SciPy wheels": "numpy-scipy-wheels",
		"---":                    "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOutPathUsesSlug(t *testing.T) {
	p := &Page{SrcPath: "guide/Getting Started.md", Slug: "start-here"}
	if got := p.OutPath(); got != "guide/start-here/index.html" {
		t.Errorf("OutPath = %q", got)
	}
	if got := p.URLPath(); got != "/guide/start-here/" {
		t.Errorf("URLPath = %q", got)
	}
}

func TestOutPathAndURLPath(t *testing.T) {
	cases := []struct {
		src, out, url string
	}{
		{"index.md", "index.html", "/"},
		{"package-search.md", "package-search/index.html", "/package-search/"},
		{"guide/index.md", "guide/index.html", "/guide/"},
		{"guide/intro.md", "guide/intro/index.html", "/guide/intro/"},
		{"guide/Getting Started.md", "guide/getting-started/index.html", "/guide/getting-started/"},
		{"Résumé.md", "resume/index.html", "/resume/"},
	}
	for _, c := range cases {
		p := &Page{SrcPath: c.src}
		if got := p.OutPath(); got != c.out {
			t.Errorf("OutPath(%q) = %q, want %q", c.src, got, c.out)
		}
		if got := p.URLPath(); got != c.url {
			t.Errorf("URLPath(%q) = %q, want %q", c.src, got, c.url)
		}
	}
}
