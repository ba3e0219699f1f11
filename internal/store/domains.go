package store

import (
	"encoding/json"
	"fmt"

	"github.com/starford/treesync/internal/apperr"
	"github.com/starford/treesync/internal/models"
)

// ListDomains returns every domain in creation order.
func (db *DB) ListDomains() ([]models.Domain, error) {
	rows, err := db.conn.Query(`SELECT id, name, task_prefix, keywords, color, created_at FROM domains ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list domains: %w", err)
	}
	defer rows.Close()

	out := []models.Domain{}
	for rows.Next() {
		var d models.Domain
		var kw string
		if err := rows.Scan(&d.ID, &d.Name, &d.TaskPrefix, &kw, &d.Color, &d.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(kw), &d.Keywords)
		if d.Keywords == nil {
			d.Keywords = []string{}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateDomain inserts d. A duplicate name or prefix yields
// apperr.ErrAlreadyExists.
func (db *DB) CreateDomain(d models.Domain) (*models.Domain, error) {
	kw, _ := json.Marshal(nonNil(d.Keywords))
	res, err := db.conn.Exec(`INSERT INTO domains (name, task_prefix, keywords, color) VALUES (?, ?, ?, ?)`,
		d.Name, d.TaskPrefix, string(kw), d.Color)
	if err != nil {
		if isUnique(err) {
			return nil, fmt.Errorf("domain %q: %w", d.Name, apperr.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("store: insert domain: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: domain id: %w", err)
	}
	return db.domainWhere(`id = ?`, id)
}

// DomainByName returns the domain called name or apperr.ErrNotFound.
func (db *DB) DomainByName(name string) (*models.Domain, error) {
	return db.domainWhere(`name = ?`, name)
}

func (db *DB) domainWhere(cond string, arg any) (*models.Domain, error) {
	var d models.Domain
	var kw string
	err := db.conn.QueryRow(`SELECT id, name, task_prefix, keywords, color, created_at FROM domains WHERE `+cond, arg).
		Scan(&d.ID, &d.Name, &d.TaskPrefix, &kw, &d.Color, &d.CreatedAt)
	if err != nil {
		return nil, notFound(err, "domain")
	}
	_ = json.Unmarshal([]byte(kw), &d.Keywords)
	if d.Keywords == nil {
		d.Keywords = []string{}
	}
	return &d, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
