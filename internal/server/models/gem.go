// Package models defines the persisted record types of the Lightning Gem:
// gems, invoices, and daily secrets. Records are append-only; only the
// boolean outcome fields of a gem and the status of an invoice are updated
// in place.
package models

import "time"

// Gem is one snapshot in the ownership history. The gem with the highest ID
// is the current one; everything below it is history.
type Gem struct {
	// ID is assigned sequentially starting at 1, with no gaps.
	ID int64 `json:"id"`
	// Price in bits the next buyer has to pay. Floor value is 100.
	Price int64 `json:"price"`
	// Owner and URL are display metadata of the buyer. Empty for the
	// genesis gem and for reset gems.
	Owner string `json:"owner,omitempty"`
	URL   string `json:"url,omitempty"`
	// PayoutRequest is the payment request the current owner wants paid
	// when they are bought out.
	PayoutRequest string    `json:"payoutRequest,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	// Bought is set once a later gem supersedes this one via payment.
	Bought bool `json:"bought,omitempty"`
	// Reset is set if this gem's supersession was a probabilistic reset.
	Reset bool `json:"reset,omitempty"`
	// PaidOut is set once the payout to this gem's owner was confirmed sent.
	PaidOut bool `json:"paidOut,omitempty"`
}
