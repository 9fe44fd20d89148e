package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/venkat-budati/medconnect/internal/database"
	"github.com/venkat-budati/medconnect/internal/models"
)

func CreateUser(ctx context.Context, db *sql.DB, name, email, phone, address, city string) (*models.User, error) {
	user := &models.User{}

	query := `
		INSERT INTO users (name, email, phone, address, city, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), 1)
		RETURNING id, name, email, phone, address, city, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, name, email, phone, address, city).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.Address,
		&user.City,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, db *sql.DB, id int64) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT id, name, email, phone, address, city, created_at, updated_at, version
		FROM users
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.Address,
		&user.City,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func UpdateUserAddress(ctx context.Context, db *sql.DB, id int64, address, city string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users
		 SET address = $1, city = $2, updated_at = NOW(), version = version + 1
		 WHERE id = $3`,
		address, city, id)
	if err != nil {
		return fmt.Errorf("update user address: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrUserNotFound
	}

	return nil
}
