package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxDonationAmount is the largest amount a single donation may carry.
var MaxDonationAmount = decimal.NewFromInt(10_000_000)

// Donation is a recorded gift. Rows are only ever inserted; nothing in the
// application updates or deletes them.
type Donation struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Bank            string          `gorm:"size:100;not null" json:"bank"`
	Notes           string          `gorm:"size:500" json:"notes,omitempty"`
	StripeSessionID *string         `gorm:"size:200;uniqueIndex" json:"stripe_session_id,omitempty"`
	DonationDate    time.Time       `gorm:"index;not null" json:"donation_date"`
}
