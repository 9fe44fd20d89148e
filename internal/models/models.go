package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Medicine is a donation listing. Quantity and status are owned by the
// inventory ledger; nothing else writes them.
type Medicine struct {
	ID            int64     `json:"id"`
	DonorID       int64     `json:"donor_id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Unit          string    `json:"unit"`
	Quantity      int       `json:"quantity"`
	Expiry        time.Time `json:"expiry"`
	Condition     string    `json:"condition"`
	PickupAddress string    `json:"pickup_address"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int       `json:"version"`
}

type Request struct {
	ID            int64          `json:"id"`
	RequestRef    string         `json:"request_ref"`
	MedicineID    int64          `json:"medicine_id"`
	RequesterID   int64          `json:"requester_id"`
	DonorID       int64          `json:"donor_id"`
	Quantity      int            `json:"quantity"`
	Message       string         `json:"message,omitempty"`
	Status        string         `json:"status"`
	DonorResponse sql.NullString `json:"-"`
	RespondedAt   sql.NullTime   `json:"-"`
	CompletedAt   sql.NullTime   `json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type Notification struct {
	ID          int64         `json:"id"`
	RecipientID int64         `json:"recipient_id"`
	SenderID    sql.NullInt64 `json:"-"`
	Type        string        `json:"type"`
	Title       string        `json:"title"`
	Message     string        `json:"message"`
	MedicineID  sql.NullInt64 `json:"-"`
	RequestID   sql.NullInt64 `json:"-"`
	Priority    string        `json:"priority"`
	Read        bool          `json:"read"`
	CreatedAt   time.Time     `json:"created_at"`
}

const (
	MedicineStatusAvailable     = "Available"
	MedicineStatusRequested     = "Requested"
	MedicineStatusStockFinished = "Stock Finished"
	MedicineStatusDonated       = "Donated"
	MedicineStatusExpired       = "Expired"
)

const (
	RequestStatusPending   = "Pending"
	RequestStatusAccepted  = "Accepted"
	RequestStatusRejected  = "Rejected"
	RequestStatusCancelled = "Cancelled"
	RequestStatusCompleted = "Completed"
	RequestStatusFailed    = "Failed"
)

const (
	NotificationRequestReceived   = "request_received"
	NotificationRequestSent       = "request_sent"
	NotificationRequestAccepted   = "request_accepted"
	NotificationRequestRejected   = "request_rejected"
	NotificationRequestCancelled  = "request_cancelled"
	NotificationDonationCompleted = "donation_completed"
	NotificationDonationFailed    = "donation_failed"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

var MedicineCategories = []string{
	"Pain Relief",
	"Antibiotics",
	"Cardiac",
	"Diabetes",
	"Respiratory",
	"Vitamins & Supplements",
	"First Aid",
	"Other",
}

var MedicineUnits = []string{"tablets", "capsules", "bottles", "strips", "pieces"}

var MedicineConditions = []string{"new", "opened", "partial"}
