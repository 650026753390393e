package database

import (
	"database/sql"
	"encoding/json"
)

// InsertProject creates a new project and returns its ID.
func (db *DB) InsertProject(brandName, domain string, country, language *string, competitors []string) (string, error) {
	compJSON, err := marshalStrings(competitors)
	if err != nil {
		return "", err
	}

	id := newID()
	_, err = db.conn.Exec(
		`INSERT INTO projects (id, brand_name, domain, country, language, competitors) VALUES (?, ?, ?, ?, ?, ?)`,
		id, brandName, domain, country, language, compJSON,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetProject returns a single project by ID, or nil if it does not exist.
func (db *DB) GetProject(projectID string) (*Project, error) {
	row := db.conn.QueryRow(
		`SELECT id, brand_name, domain, country, language, competitors, created_at FROM projects WHERE id = ?`,
		projectID,
	)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetAllProjects returns all projects, newest first.
func (db *DB) GetAllProjects() ([]Project, error) {
	rows, err := db.conn.Query(
		`SELECT id, brand_name, domain, country, language, competitors, created_at
		FROM projects ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*Project, error) {
	var p Project
	var compJSON *string
	if err := row.Scan(&p.ID, &p.BrandName, &p.Domain, &p.Country, &p.Language, &compJSON, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Competitors = unmarshalStrings(compJSON)
	return &p, nil
}

func marshalStrings(values []string) (*string, error) {
	if values == nil {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func unmarshalStrings(raw *string) []string {
	if raw == nil {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(*raw), &values); err != nil {
		return nil
	}
	return values
}
