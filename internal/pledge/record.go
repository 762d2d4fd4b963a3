// Package pledge defines the pledge record model and the persistence
// contract the ingestion engine reconciles against.
package pledge

import (
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Card capacity thresholds, inclusive at the boundary.
var (
	capacityTwoThreshold = decimal.NewFromInt(100000)
	capacityOneThreshold = decimal.NewFromInt(50000)
)

// cardCodeAlphabet excludes letters easily confused with digits
// (O/0, I/1, S/5, Z/2).
const cardCodeAlphabet = "ABCDEFGHJKLMNPQRTUVWXY"

// cardCodeLength is the number of letters in a generated card code.
const cardCodeLength = 3

// Record is a reconciled pledge, uniquely identified by MobileNumber.
type Record struct {
	MobileNumber      string          `json:"mobile_number"`
	Name              string          `json:"name"`
	Pledge            decimal.Decimal `json:"pledge"`
	Paid              decimal.Decimal `json:"paid"`
	Remaining         decimal.Decimal `json:"remaining"`
	CardCapacity      int             `json:"card_capacity"`
	CardCode          string          `json:"card_code,omitempty"`
	NormalMessageSent bool            `json:"normal_message_sent"`
	WhatsappSent      bool            `json:"whatsapp_sent"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// CapacityFor returns the card capacity derived from the paid amount:
// 2 for paid >= 100000, 1 for paid >= 50000, otherwise 0.
func CapacityFor(paid decimal.Decimal) int {
	switch {
	case paid.GreaterThanOrEqual(capacityTwoThreshold):
		return 2
	case paid.GreaterThanOrEqual(capacityOneThreshold):
		return 1
	default:
		return 0
	}
}

// Recompute refreshes the derived fields from pledge and paid.
// Remaining may be negative; that signals overpayment and is preserved.
func (r *Record) Recompute() {
	r.Remaining = r.Pledge.Sub(r.Paid)
	r.CardCapacity = CapacityFor(r.Paid)
}

// NewCardCode returns a random card code candidate. Uniqueness is the
// store's responsibility; callers retry on collision.
func NewCardCode() string {
	var b strings.Builder
	b.Grow(cardCodeLength)
	for i := 0; i < cardCodeLength; i++ {
		b.WriteByte(cardCodeAlphabet[rand.Intn(len(cardCodeAlphabet))])
	}
	return b.String()
}
