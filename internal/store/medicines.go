package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/venkat-budati/medconnect/internal/database"
	"github.com/venkat-budati/medconnect/internal/models"
)

const medicineColumns = `id, donor_id, name, category, unit, quantity, expiry, condition, pickup_address, status, created_at, updated_at, version`

func scanMedicine(row interface{ Scan(dest ...any) error }, m *models.Medicine) error {
	return row.Scan(
		&m.ID,
		&m.DonorID,
		&m.Name,
		&m.Category,
		&m.Unit,
		&m.Quantity,
		&m.Expiry,
		&m.Condition,
		&m.PickupAddress,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.Version,
	)
}

type CreateMedicineRequest struct {
	DonorID       int64
	Name          string
	Category      string
	Unit          string
	Quantity      int
	Expiry        string
	Condition     string
	PickupAddress string
}

func CreateMedicine(ctx context.Context, db *sql.DB, req CreateMedicineRequest) (*models.Medicine, error) {
	medicine := &models.Medicine{}

	query := `
		INSERT INTO medicines (donor_id, name, category, unit, quantity, expiry, condition, pickup_address, status, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW(), 1)
		RETURNING ` + medicineColumns

	err := scanMedicine(db.QueryRowContext(ctx, query,
		req.DonorID, req.Name, req.Category, req.Unit, req.Quantity,
		req.Expiry, req.Condition, req.PickupAddress, models.MedicineStatusAvailable,
	), medicine)
	if err != nil {
		return nil, fmt.Errorf("create medicine: %w", err)
	}

	return medicine, nil
}

func GetMedicine(ctx context.Context, db *sql.DB, id int64) (*models.Medicine, error) {
	medicine := &models.Medicine{}

	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1`

	err := scanMedicine(db.QueryRowContext(ctx, query, id), medicine)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrMedicineNotFound
		}
		return nil, fmt.Errorf("get medicine: %w", err)
	}

	return medicine, nil
}

// GetMedicineForUpdate locks the medicine row for the rest of the
// transaction. Every lifecycle transition takes this lock before touching
// quantity or the request set.
func GetMedicineForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Medicine, error) {
	medicine := &models.Medicine{}

	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1 FOR UPDATE`

	err := scanMedicine(tx.QueryRowContext(ctx, query, id), medicine)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrMedicineNotFound
		}
		return nil, fmt.Errorf("lock medicine: %w", err)
	}

	return medicine, nil
}

type ListMedicinesFilter struct {
	Category     string
	Search       string
	ExcludeDonor int64
	OnlyListable bool
}

// ListMedicines returns the full filtered candidate set; ranking and page
// truncation happen in the ranker, after sorting.
func ListMedicines(ctx context.Context, db *sql.DB, filter ListMedicinesFilter) ([]models.Medicine, error) {
	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE 1=1`
	args := []any{}

	if filter.OnlyListable {
		query += fmt.Sprintf(" AND status IN ($%d, $%d) AND expiry > NOW()", len(args)+1, len(args)+2)
		args = append(args, models.MedicineStatusAvailable, models.MedicineStatusRequested)
	}
	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", len(args)+1)
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ExcludeDonor != 0 {
		query += fmt.Sprintf(" AND donor_id <> $%d", len(args)+1)
		args = append(args, filter.ExcludeDonor)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	defer rows.Close()

	var medicines []models.Medicine
	for rows.Next() {
		var m models.Medicine
		if err := scanMedicine(rows, &m); err != nil {
			return nil, fmt.Errorf("scan medicine: %w", err)
		}
		medicines = append(medicines, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return medicines, nil
}

func ListMedicinesByDonor(ctx context.Context, db *sql.DB, donorID int64, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM medicines WHERE donor_id = $1`, donorID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count medicines: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + medicineColumns + `
		FROM medicines
		WHERE donor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := db.QueryContext(ctx, query, donorID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list medicines by donor: %w", err)
	}
	defer rows.Close()

	var medicines []models.Medicine
	for rows.Next() {
		var m models.Medicine
		if err := scanMedicine(rows, &m); err != nil {
			return nil, fmt.Errorf("scan medicine: %w", err)
		}
		medicines = append(medicines, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return NewOffsetPage(medicines, total, page, pageSize), nil
}

// DeleteMedicine removes a listing. A medicine with live requests cannot be
// deleted; terminal request history goes with it.
func DeleteMedicine(ctx context.Context, db *sql.DB, id, donorID int64) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		medicine, err := GetMedicineForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if medicine.DonorID != donorID {
			return database.ErrUnauthorized
		}

		live, err := HasNonTerminalRequests(ctx, tx, id)
		if err != nil {
			return err
		}
		if live {
			return database.ErrMedicineInUse
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete medicine: %w", err)
		}
		return nil
	})
}
