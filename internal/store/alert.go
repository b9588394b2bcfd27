package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Alert statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Alert is one journal row.
type Alert struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	Message    string    `json:"message"`
	HasImage   bool      `json:"has_image"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// AlertRepository provides access to the alerts table.
type AlertRepository struct {
	db *sql.DB
}

// Alerts returns the alert repository for this store.
func (s *Store) Alerts() *AlertRepository {
	return &AlertRepository{db: s.db}
}

// Create inserts a new alert. Empty IDs and zero timestamps are filled in.
func (r *AlertRepository) Create(a *Alert) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.CreatedAt = a.CreatedAt.UTC()

	_, err := r.db.Exec(
		`INSERT INTO alerts (id, category, message, has_image, status, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Category, a.Message, a.HasImage, a.Status, a.Error, a.DurationMs, a.CreatedAt,
	)
	return err
}

// GetByID retrieves an alert by its ID.
func (r *AlertRepository) GetByID(id string) (*Alert, error) {
	row := r.db.QueryRow(
		`SELECT id, category, message, has_image, status, error, duration_ms, created_at
		 FROM alerts WHERE id = ?`,
		id,
	)

	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// List returns up to limit alerts, newest first. category filters when set.
func (r *AlertRepository) List(category string, limit int) ([]*Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, category, message, has_image, status, error, duration_ms, created_at
		 FROM alerts`
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}

// CountByCategory returns the number of journal rows per category.
func (r *AlertRepository) CountByCategory() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT category, COUNT(*) FROM alerts GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[category] = n
	}

	return counts, rows.Err()
}

// DeleteBefore removes alerts older than t and returns how many were removed.
func (r *AlertRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM alerts WHERE created_at < ?`, t.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(s scanner) (*Alert, error) {
	a := &Alert{}
	var hasImage int

	err := s.Scan(&a.ID, &a.Category, &a.Message, &hasImage, &a.Status, &a.Error, &a.DurationMs, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	a.HasImage = hasImage != 0
	return a, nil
}
