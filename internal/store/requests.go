package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/venkat-budati/medconnect/internal/database"
	"github.com/venkat-budati/medconnect/internal/models"
)

const requestColumns = `id, request_ref, medicine_id, requester_id, donor_id, quantity, message, status, donor_response, responded_at, completed_at, created_at, updated_at`

func scanRequest(row interface{ Scan(dest ...any) error }, r *models.Request) error {
	return row.Scan(
		&r.ID,
		&r.RequestRef,
		&r.MedicineID,
		&r.RequesterID,
		&r.DonorID,
		&r.Quantity,
		&r.Message,
		&r.Status,
		&r.DonorResponse,
		&r.RespondedAt,
		&r.CompletedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
}

func InsertRequest(ctx context.Context, tx *sql.Tx, ref string, medicineID, requesterID, donorID int64, quantity int, message string) (*models.Request, error) {
	request := &models.Request{}

	query := `
		INSERT INTO requests (request_ref, medicine_id, requester_id, donor_id, quantity, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + requestColumns

	err := scanRequest(tx.QueryRowContext(ctx, query,
		ref, medicineID, requesterID, donorID, quantity, message, models.RequestStatusPending,
	), request)
	if err != nil {
		if database.IsUniqueViolation(err, "uq_requests_live_per_requester") {
			return nil, database.ErrDuplicateRequest
		}
		return nil, fmt.Errorf("insert request: %w", err)
	}

	return request, nil
}

func GetRequest(ctx context.Context, db *sql.DB, id int64) (*models.Request, error) {
	request := &models.Request{}

	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`

	err := scanRequest(db.QueryRowContext(ctx, query, id), request)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrRequestNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}

	return request, nil
}

func GetRequestForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Request, error) {
	request := &models.Request{}

	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1 FOR UPDATE`

	err := scanRequest(tx.QueryRowContext(ctx, query, id), request)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrRequestNotFound
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}

	return request, nil
}

// TransitionRequest moves a request out of fromStatus. The WHERE clause on
// the source status makes retried transitions fail loudly instead of
// double-applying.
func TransitionRequest(ctx context.Context, tx *sql.Tx, id int64, fromStatus, toStatus string, donorResponse *string, completedAt *time.Time) error {
	query := `
		UPDATE requests
		SET status = $1,
		    donor_response = COALESCE($2, donor_response),
		    responded_at = CASE WHEN $2 IS NOT NULL THEN NOW() ELSE responded_at END,
		    completed_at = COALESCE($3, completed_at),
		    updated_at = NOW()
		WHERE id = $4
		  AND status = $5`

	result, err := tx.ExecContext(ctx, query, toStatus, donorResponse, completedAt, id, fromStatus)
	if err != nil {
		return fmt.Errorf("transition request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrInvalidTransition
	}

	return nil
}

// SumPendingQuantity is the quantity implicitly reserved by pending
// requests. Accepted requests are already netted out of the stored medicine
// quantity, so they are excluded here.
func SumPendingQuantity(ctx context.Context, tx *sql.Tx, medicineID int64) (int, error) {
	var sum int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM requests WHERE medicine_id = $1 AND status = $2`,
		medicineID, models.RequestStatusPending).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum pending quantity: %w", err)
	}
	return sum, nil
}

func HasNonTerminalRequests(ctx context.Context, tx *sql.Tx, medicineID int64) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM requests WHERE medicine_id = $1 AND status IN ($2, $3))`,
		medicineID, models.RequestStatusPending, models.RequestStatusAccepted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check non-terminal requests: %w", err)
	}
	return exists, nil
}

func HasCompletedRequests(ctx context.Context, tx *sql.Tx, medicineID int64) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM requests WHERE medicine_id = $1 AND status = $2)`,
		medicineID, models.RequestStatusCompleted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check completed requests: %w", err)
	}
	return exists, nil
}

func HasLiveRequestByRequester(ctx context.Context, tx *sql.Tx, medicineID, requesterID int64) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM requests WHERE medicine_id = $1 AND requester_id = $2 AND status IN ($3, $4))`,
		medicineID, requesterID, models.RequestStatusPending, models.RequestStatusAccepted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check live request: %w", err)
	}
	return exists, nil
}

func ListRequestsByRequester(ctx context.Context, db *sql.DB, requesterID int64, page, pageSize int) (*OffsetPage, error) {
	return listRequestsBy(ctx, db, "requester_id", requesterID, page, pageSize)
}

func ListRequestsByDonor(ctx context.Context, db *sql.DB, donorID int64, page, pageSize int) (*OffsetPage, error) {
	return listRequestsBy(ctx, db, "donor_id", donorID, page, pageSize)
}

func listRequestsBy(ctx context.Context, db *sql.DB, column string, userID int64, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests WHERE `+column+` = $1`, userID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + requestColumns + `
		FROM requests
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.QueryContext(ctx, query, userID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []models.Request
	for rows.Next() {
		var r models.Request
		if err := scanRequest(rows, &r); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return NewOffsetPage(requests, total, page, pageSize), nil
}
