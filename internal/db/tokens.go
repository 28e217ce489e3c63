package db

import (
	"database/sql"
	"time"

	"github.com/ghax-org/dtoken/internal/models"
)

// CreateToken records an issued token.
func CreateToken(d *sql.DB, t *models.Token) (int64, error) {
	result, err := d.Exec(
		`INSERT INTO tokens (token, method, precision, timestamp, client, lb, server, id1, id2, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Token, t.Method, t.Precision, t.Timestamp,
		t.Client, t.LB, t.Server, t.ID1, t.ID2,
		t.Source, time.Now().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListRecentTokens returns up to limit tokens, newest first.
func ListRecentTokens(d *sql.DB, limit int) ([]models.Token, error) {
	rows, err := d.Query(
		`SELECT id, token, method, precision, timestamp, client, lb, server, id1, id2, source, created_at
		 FROM tokens ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []models.Token
	for rows.Next() {
		var t models.Token
		if err := rows.Scan(&t.ID, &t.Token, &t.Method, &t.Precision, &t.Timestamp,
			&t.Client, &t.LB, &t.Server, &t.ID1, &t.ID2, &t.Source, &t.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// CountTokens returns the number of recorded tokens.
func CountTokens(d *sql.DB) (int, error) {
	var count int
	err := d.QueryRow("SELECT COUNT(*) FROM tokens").Scan(&count)
	return count, err
}
