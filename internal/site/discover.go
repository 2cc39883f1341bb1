package site

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverPages walks the docs dir and loads every markdown file into a Page.
// Hidden entries and underscore-prefixed directories are skipped. Pages are
// returned sorted by nav weight, then source path, for deterministic builds.
func DiscoverPages(docsDir string) ([]*Page, error) {
	var pages []*Page
	err := filepath.WalkDir(docsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != docsDir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".md") {
			return nil
		}
		rel, err := filepath.Rel(docsDir, path)
		if err != nil {
			return err
		}
		page, err := loadPage(path, filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("load %s: %w", rel, err)
		}
		pages = append(pages, page)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Weight != pages[j].Weight {
			return pages[i].Weight < pages[j].Weight
		}
		return pages[i].SrcPath < pages[j].SrcPath
	})
	return pages, nil
}

// loadPage reads one markdown source file, resolving frontmatter and title.
func loadPage(absPath, srcPath string) (*Page, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	fm, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, err
	}

	title := fm.Title
	if title == "" {
		title = titleFromBody(body)
	}
	if title == "" {
		title = titleFromPath(srcPath)
	}

	nav := true
	if fm.Nav != nil {
		nav = *fm.Nav
	}

	stem := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))

	return &Page{
		SrcPath: srcPath,
		AbsPath: absPath,
		Title:   title,
		Slug:    Slugify(stem),
		Nav:     nav,
		Weight:  fm.Weight,
		Body:    body,
	}, nil
}
