package models

// InvoiceStatus tracks the lifecycle of an issued invoice. An invoice moves
// from Pending to exactly one of Settled or Stale, never back.
type InvoiceStatus int16

const (
	InvoicePending InvoiceStatus = 0
	InvoiceSettled InvoiceStatus = 1
	InvoiceStale   InvoiceStatus = 2
)

// Invoice records an inbound payment request issued to a prospective buyer.
type Invoice struct {
	// RHash is the hex-encoded payment hash, unique across all time.
	RHash string `json:"rHash"`
	// GemID is the gem the buyer believed was current at issuance time.
	GemID int64  `json:"gemId"`
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	// Value is the amount requested, equal to the gem price at issuance.
	Value int64 `json:"value"`
	// PayoutRequest is the buyer's own payout request, inherited by the gem
	// they are about to own. Empty on the no-payout (testnet) path.
	PayoutRequest string        `json:"payoutRequest,omitempty"`
	Status        InvoiceStatus `json:"status"`
}
