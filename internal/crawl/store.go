package crawl

import "fmt"

// PageStore persists crawled pages for a project.
type PageStore interface {
	UpsertBrandPage(projectID, url string, title *string, content string) error
}

// Save stores pages for the project and returns how many were written.
func Save(store PageStore, projectID string, pages []Page) (int, error) {
	saved := 0
	for _, p := range pages {
		var title *string
		if p.Title != "" {
			t := p.Title
			title = &t
		}
		if err := store.UpsertBrandPage(projectID, p.URL, title, p.Text); err != nil {
			return saved, fmt.Errorf("saving %s: %w", p.URL, err)
		}
		saved++
	}
	return saved, nil
}
