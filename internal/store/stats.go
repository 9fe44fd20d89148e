package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/venkat-budati/medconnect/internal/models"
)

// UserStats are derived at read time, never stored. "People helped" counts
// distinct requesters whose requests this user completed as a donor.
type UserStats struct {
	MedicinesDonated  int64          `json:"medicines_donated"`
	MedicinesReceived int64          `json:"medicines_received"`
	PeopleHelped      int64          `json:"people_helped"`
	RequestsByStatus  map[string]int `json:"requests_by_status"`
}

func GetUserStats(ctx context.Context, db *sql.DB, userID int64) (*UserStats, error) {
	stats := &UserStats{
		RequestsByStatus: make(map[string]int),
	}

	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM medicines WHERE donor_id = $1`, userID).Scan(&stats.MedicinesDonated)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("count donated medicines: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM requests WHERE requester_id = $1 AND status = $2`,
		userID, models.RequestStatusCompleted).Scan(&stats.MedicinesReceived)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("count medicines received: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT requester_id) FROM requests WHERE donor_id = $1 AND status = $2`,
		userID, models.RequestStatusCompleted).Scan(&stats.PeopleHelped)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("count people helped: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*)
		 FROM requests
		 WHERE requester_id = $1 OR donor_id = $1
		 GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("requests by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.RequestsByStatus[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stats, nil
}
