// Package ledger is the single authority over a medicine's quantity and
// status. Routes and the request lifecycle never write either directly.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/venkat-budati/medconnect/internal/database"
	"github.com/venkat-budati/medconnect/internal/models"
	"github.com/venkat-budati/medconnect/internal/store"
)

// RemainingQuantity is the stored quantity minus the quantity held by
// pending requests, floored at zero. The stored quantity is already net of
// accepted requests (acceptance physically decrements), so counting accepted
// reservations here would double-book them.
func RemainingQuantity(ctx context.Context, tx *sql.Tx, medicine *models.Medicine) (int, error) {
	pending, err := store.SumPendingQuantity(ctx, tx, medicine.ID)
	if err != nil {
		return 0, err
	}

	remaining := medicine.Quantity - pending
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// DeriveStatus computes the display status. The ordering is a fixed
// tie-break: expiry dominates stock, stock dominates pending interest.
// "Requested" keys off pending requests only: once a request is accepted its
// quantity is gone from the stored total, and whatever remains really is
// available to others.
func DeriveStatus(expiry time.Time, remaining int, hasPending, hasNonTerminal, hasCompleted bool, now time.Time) string {
	switch {
	case !expiry.After(now):
		return models.MedicineStatusExpired
	case remaining == 0 && !hasNonTerminal && hasCompleted:
		return models.MedicineStatusDonated
	case remaining == 0:
		return models.MedicineStatusStockFinished
	case hasPending:
		return models.MedicineStatusRequested
	default:
		return models.MedicineStatusAvailable
	}
}

// Consume converts a pending reservation into a physical decrement when a
// request is accepted. The conditional update makes over-allocation under
// concurrent accepts impossible regardless of what the caller read earlier.
func Consume(ctx context.Context, tx *sql.Tx, medicineID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE medicines
		 SET quantity = quantity - $1,
		     updated_at = NOW(),
		     version = version + 1
		 WHERE id = $2
		   AND quantity >= $1`,
		quantity, medicineID)
	if err != nil {
		return fmt.Errorf("consume quantity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrInsufficientQuantity
	}

	return nil
}

// Restore puts quantity back when a previously accepted request is rejected
// or failed. Rejecting a pending request restores nothing; nothing was
// decremented for it.
func Restore(ctx context.Context, tx *sql.Tx, medicineID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE medicines
		 SET quantity = quantity + $1,
		     updated_at = NOW(),
		     version = version + 1
		 WHERE id = $2`,
		quantity, medicineID)
	if err != nil {
		return fmt.Errorf("restore quantity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrMedicineNotFound
	}

	return nil
}

// SyncStatus recomputes and persists the medicine status from the live
// request set. Callers run it after any transition that changes the set of
// non-terminal requests, inside the same transaction.
func SyncStatus(ctx context.Context, tx *sql.Tx, medicineID int64) (string, error) {
	medicine := &models.Medicine{}
	err := tx.QueryRowContext(ctx,
		`SELECT id, quantity, expiry FROM medicines WHERE id = $1`,
		medicineID).Scan(&medicine.ID, &medicine.Quantity, &medicine.Expiry)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", database.ErrMedicineNotFound
		}
		return "", fmt.Errorf("load medicine for status sync: %w", err)
	}

	pending, err := store.SumPendingQuantity(ctx, tx, medicineID)
	if err != nil {
		return "", err
	}

	remaining := medicine.Quantity - pending
	if remaining < 0 {
		remaining = 0
	}

	hasNonTerminal, err := store.HasNonTerminalRequests(ctx, tx, medicineID)
	if err != nil {
		return "", err
	}

	hasCompleted, err := store.HasCompletedRequests(ctx, tx, medicineID)
	if err != nil {
		return "", err
	}

	status := DeriveStatus(medicine.Expiry, remaining, pending > 0, hasNonTerminal, hasCompleted, time.Now())

	_, err = tx.ExecContext(ctx,
		`UPDATE medicines SET status = $1, updated_at = NOW(), version = version + 1 WHERE id = $2`,
		status, medicineID)
	if err != nil {
		return "", fmt.Errorf("persist status: %w", err)
	}

	return status, nil
}
