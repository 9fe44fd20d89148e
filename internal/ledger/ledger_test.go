package ledger

import (
	"testing"
	"time"

	"github.com/venkat-budati/medconnect/internal/models"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 6, 0)
	past := now.AddDate(0, 0, -1)

	tests := []struct {
		name           string
		expiry         time.Time
		remaining      int
		hasPending     bool
		hasNonTerminal bool
		hasCompleted   bool
		expected       string
	}{
		{"fresh listing", future, 10, false, false, false, models.MedicineStatusAvailable},
		{"pending interest", future, 4, true, true, false, models.MedicineStatusRequested},
		{"accepted only, stock remains", future, 4, false, true, false, models.MedicineStatusAvailable},
		{"fully reserved", future, 0, true, true, false, models.MedicineStatusStockFinished},
		{"consumed, acceptance outstanding", future, 0, false, true, false, models.MedicineStatusStockFinished},
		{"fully given away", future, 0, false, false, true, models.MedicineStatusDonated},
		{"expired dominates stock", past, 5, false, false, false, models.MedicineStatusExpired},
		{"expired dominates pending", past, 0, true, true, false, models.MedicineStatusExpired},
		{"expiry boundary is expired", now, 5, false, false, false, models.MedicineStatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.expiry, tt.remaining, tt.hasPending, tt.hasNonTerminal, tt.hasCompleted, now)
			if got != tt.expected {
				t.Errorf("DeriveStatus() = %q, want %q", got, tt.expected)
			}
		})
	}
}
