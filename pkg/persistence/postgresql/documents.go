package postgresql

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// scanDocuments unmarshals the single JSONB column of each row.
func scanDocuments[T any](rows *sql.Rows) ([]*T, error) {
	defer func() { _ = rows.Close() }()

	items := make([]*T, 0)

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		item := new(T)
		if err := json.Unmarshal(raw, item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return items, nil
}

// scanDocument unmarshals one JSONB value, mapping sql.ErrNoRows to the
// caller's not-found sentinel.
func scanDocument[T any](row *sql.Row, notFound error) (*T, error) {
	var raw []byte

	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound
		}

		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	item := new(T)
	if err := json.Unmarshal(raw, item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}

	return item, nil
}
