package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/venkat-budati/medconnect/internal/database"
	"github.com/venkat-budati/medconnect/internal/models"
)

type NotificationInput struct {
	RecipientID int64
	SenderID    int64 // 0 means system
	Type        string
	Title       string
	Message     string
	MedicineID  int64
	RequestID   int64
	Priority    string
}

// InsertNotification records a notification in the same transaction as the
// transition that caused it. Delivery is someone else's problem.
func InsertNotification(ctx context.Context, tx *sql.Tx, n NotificationInput) error {
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}

	query := `
		INSERT INTO notifications (recipient_id, sender_id, type, title, message, medicine_id, request_id, priority, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, NOW())`

	_, err := tx.ExecContext(ctx, query,
		n.RecipientID,
		nullableID(n.SenderID),
		n.Type,
		n.Title,
		n.Message,
		nullableID(n.MedicineID),
		nullableID(n.RequestID),
		n.Priority,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func ListNotifications(ctx context.Context, db *sql.DB, recipientID int64, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`, recipientID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT id, recipient_id, sender_id, type, title, message, medicine_id, request_id, priority, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.QueryContext(ctx, query, recipientID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.SenderID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.MedicineID,
			&n.RequestID,
			&n.Priority,
			&n.Read,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return NewOffsetPage(notifications, total, page, pageSize), nil
}

func MarkNotificationRead(ctx context.Context, db *sql.DB, id, recipientID int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`,
		id, recipientID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrUnauthorized
	}

	return nil
}

func CountUnreadNotifications(ctx context.Context, db *sql.DB, recipientID int64) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE`,
		recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
