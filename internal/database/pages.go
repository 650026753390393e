package database

// UpsertBrandPage stores crawled page text, replacing an earlier fetch of the
// same URL.
func (db *DB) UpsertBrandPage(projectID, url string, title *string, content string) error {
	_, err := db.conn.Exec(
		`INSERT INTO brand_pages (id, project_id, url, title, content) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, url) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			fetched_at = datetime('now')`,
		newID(), projectID, url, title, content,
	)
	return err
}

// GetBrandPages returns the crawled pages of a project in crawl order.
func (db *DB) GetBrandPages(projectID string) ([]BrandPage, error) {
	rows, err := db.conn.Query(
		`SELECT id, project_id, url, title, content, fetched_at
		FROM brand_pages WHERE project_id = ? ORDER BY rowid`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []BrandPage
	for rows.Next() {
		var p BrandPage
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.URL, &p.Title, &p.Content, &p.FetchedAt); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}
