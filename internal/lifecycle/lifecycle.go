// Package lifecycle owns the request state machine:
//
//	Pending  -> Accepted | Rejected | Cancelled | Failed
//	Accepted -> Completed | Rejected | Failed
//
// Each operation validates the acting user, applies ledger effects, and
// records notifications, all inside one retried serializable transaction.
package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/venkat-budati/medconnect/internal/database"
	"github.com/venkat-budati/medconnect/internal/ledger"
	"github.com/venkat-budati/medconnect/internal/models"
	"github.com/venkat-budati/medconnect/internal/store"
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

type CreateRequestInput struct {
	MedicineID  int64
	RequesterID int64
	Quantity    int
	Message     string
}

// Create inserts a pending request against a medicine. The pending quantity
// acts as a reservation; nothing is decremented until acceptance.
func (s *Service) Create(ctx context.Context, in CreateRequestInput) (*models.Request, error) {
	var request *models.Request

	err := database.WithRetry(ctx, s.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		medicine, err := store.GetMedicineForUpdate(ctx, tx, in.MedicineID)
		if err != nil {
			return err
		}

		if medicine.DonorID == in.RequesterID {
			return database.ErrSelfRequest
		}

		duplicate, err := store.HasLiveRequestByRequester(ctx, tx, medicine.ID, in.RequesterID)
		if err != nil {
			return err
		}
		if duplicate {
			return database.ErrDuplicateRequest
		}

		if !medicine.Expiry.After(time.Now()) {
			return database.ErrMedicineExpired
		}

		if in.Quantity <= 0 {
			return database.ErrInsufficientQuantity
		}
		remaining, err := ledger.RemainingQuantity(ctx, tx, medicine)
		if err != nil {
			return err
		}
		if in.Quantity > remaining {
			return database.ErrInsufficientQuantity
		}

		request, err = store.InsertRequest(ctx, tx,
			uuid.NewString(), medicine.ID, in.RequesterID, medicine.DonorID, in.Quantity, in.Message)
		if err != nil {
			return err
		}

		if _, err := ledger.SyncStatus(ctx, tx, medicine.ID); err != nil {
			return err
		}

		if err := store.InsertNotification(ctx, tx, store.NotificationInput{
			RecipientID: medicine.DonorID,
			SenderID:    in.RequesterID,
			Type:        models.NotificationRequestReceived,
			Title:       "New request received",
			Message:     fmt.Sprintf("Someone requested %d %s of %s.", in.Quantity, medicine.Unit, medicine.Name),
			MedicineID:  medicine.ID,
			RequestID:   request.ID,
			Priority:    models.PriorityHigh,
		}); err != nil {
			return err
		}

		return store.InsertNotification(ctx, tx, store.NotificationInput{
			RecipientID: in.RequesterID,
			Type:        models.NotificationRequestSent,
			Title:       "Request sent",
			Message:     fmt.Sprintf("Your request for %s was sent to the donor.", medicine.Name),
			MedicineID:  medicine.ID,
			RequestID:   request.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	return request, nil
}

// Accept converts the pending reservation into a physical decrement. This is
// the only point where medicine quantity decreases.
func (s *Service) Accept(ctx context.Context, requestID, donorID int64, response string) (*models.Request, error) {
	return s.transition(ctx, requestID, transitionSpec{
		actorID:      donorID,
		actorIsDonor: true,
		from:         []string{models.RequestStatusPending},
		to:           models.RequestStatusAccepted,
		response:     &response,
		apply: func(ctx context.Context, tx *sql.Tx, request *models.Request) error {
			return ledger.Consume(ctx, tx, request.MedicineID, request.Quantity)
		},
		notify: notification{
			typ:      models.NotificationRequestAccepted,
			title:    "Request accepted",
			message:  "Your request was accepted. Coordinate pickup with the donor.",
			priority: models.PriorityHigh,
		},
	})
}

// Reject is valid from Pending or Accepted. Rejecting an accepted request
// restores the quantity consumed at acceptance.
func (s *Service) Reject(ctx context.Context, requestID, donorID int64, response string) (*models.Request, error) {
	return s.transition(ctx, requestID, transitionSpec{
		actorID:      donorID,
		actorIsDonor: true,
		from:         []string{models.RequestStatusPending, models.RequestStatusAccepted},
		to:           models.RequestStatusRejected,
		response:     &response,
		apply:        restoreIfAccepted,
		notify: notification{
			typ:     models.NotificationRequestRejected,
			title:   "Request rejected",
			message: "The donor rejected your request.",
		},
	})
}

// Cancel is the requester withdrawing a still-pending request.
func (s *Service) Cancel(ctx context.Context, requestID, requesterID int64) (*models.Request, error) {
	return s.transition(ctx, requestID, transitionSpec{
		actorID: requesterID,
		from:    []string{models.RequestStatusPending},
		to:      models.RequestStatusCancelled,
		notify: notification{
			typ:     models.NotificationRequestCancelled,
			title:   "Request cancelled",
			message: "The requester cancelled their request.",
			toDonor: true,
		},
	})
}

// Complete marks an accepted donation as handed over. Quantity was already
// consumed at acceptance, so completion changes no quantity.
func (s *Service) Complete(ctx context.Context, requestID, donorID int64) (*models.Request, error) {
	now := time.Now()
	return s.transition(ctx, requestID, transitionSpec{
		actorID:      donorID,
		actorIsDonor: true,
		from:         []string{models.RequestStatusAccepted},
		to:           models.RequestStatusCompleted,
		completedAt:  &now,
		notify: notification{
			typ:      models.NotificationDonationCompleted,
			title:    "Donation completed",
			message:  "The donor marked this donation as completed.",
			priority: models.PriorityHigh,
		},
	})
}

// Fail lets the donor abandon a request that cannot be fulfilled. An
// accepted request gets its quantity restored.
func (s *Service) Fail(ctx context.Context, requestID, donorID int64, reason string) (*models.Request, error) {
	return s.transition(ctx, requestID, transitionSpec{
		actorID:      donorID,
		actorIsDonor: true,
		from:         []string{models.RequestStatusPending, models.RequestStatusAccepted},
		to:           models.RequestStatusFailed,
		response:     &reason,
		apply:        restoreIfAccepted,
		notify: notification{
			typ:     models.NotificationDonationFailed,
			title:   "Donation failed",
			message: "The donor could not complete this donation.",
		},
	})
}

func restoreIfAccepted(ctx context.Context, tx *sql.Tx, request *models.Request) error {
	if request.Status != models.RequestStatusAccepted {
		return nil
	}
	return ledger.Restore(ctx, tx, request.MedicineID, request.Quantity)
}

type notification struct {
	typ      string
	title    string
	message  string
	priority string
	toDonor  bool
}

type transitionSpec struct {
	actorID      int64
	actorIsDonor bool
	from         []string
	to           string
	response     *string
	completedAt  *time.Time
	apply        func(context.Context, *sql.Tx, *models.Request) error
	notify       notification
}

func (s *Service) transition(ctx context.Context, requestID int64, spec transitionSpec) (*models.Request, error) {
	var updated *models.Request

	err := database.WithRetry(ctx, s.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		request, err := store.GetRequestForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}

		if spec.actorIsDonor {
			if request.DonorID != spec.actorID {
				return database.ErrUnauthorized
			}
		} else if request.RequesterID != spec.actorID {
			return database.ErrUnauthorized
		}

		if !statusIn(request.Status, spec.from) {
			return database.ErrInvalidTransition
		}

		// Lock the medicine before any quantity math so concurrent
		// transitions against it serialize.
		if _, err := store.GetMedicineForUpdate(ctx, tx, request.MedicineID); err != nil {
			return err
		}

		if spec.apply != nil {
			if err := spec.apply(ctx, tx, request); err != nil {
				return err
			}
		}

		if err := store.TransitionRequest(ctx, tx, request.ID, request.Status, spec.to, spec.response, spec.completedAt); err != nil {
			return err
		}

		if _, err := ledger.SyncStatus(ctx, tx, request.MedicineID); err != nil {
			return err
		}

		recipient, sender := request.RequesterID, request.DonorID
		if spec.notify.toDonor {
			recipient, sender = request.DonorID, request.RequesterID
		}
		if err := store.InsertNotification(ctx, tx, store.NotificationInput{
			RecipientID: recipient,
			SenderID:    sender,
			Type:        spec.notify.typ,
			Title:       spec.notify.title,
			Message:     spec.notify.message,
			MedicineID:  request.MedicineID,
			RequestID:   request.ID,
			Priority:    spec.notify.priority,
		}); err != nil {
			return err
		}

		request.Status = spec.to
		updated = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func statusIn(status string, allowed []string) bool {
	for _, s := range allowed {
		if status == s {
			return true
		}
	}
	return false
}
