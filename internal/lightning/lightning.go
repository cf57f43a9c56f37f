// Package lightning talks to the payment node. It defines the narrow RPC
// contract the server consumes plus an lnd-backed implementation and the
// settlement stream subscriber.
package lightning

import "context"

// CreatedInvoice is the result of adding an inbound invoice on the node.
type CreatedInvoice struct {
	// RHash is the hex-encoded payment hash.
	RHash          string
	PaymentRequest string
}

// DecodedPayReq carries the fields of a decoded payment request the server
// validates against.
type DecodedPayReq struct {
	NumSatoshis int64
	// Expiry in seconds from the request's creation.
	Expiry int64
}

// Settlement is one event from the node's invoice stream.
type Settlement struct {
	RHash   string
	Settled bool
}

// SettlementStream is a long-lived stream of invoice events.
type SettlementStream interface {
	Recv() (*Settlement, error)
}

// Node is the payment-node RPC contract.
type Node interface {
	AddInvoice(ctx context.Context, value int64, memo string) (*CreatedInvoice, error)
	DecodePayReq(ctx context.Context, payReq string) (*DecodedPayReq, error)
	// SendPayment pays the given payment request and blocks until the
	// payment succeeds or fails.
	SendPayment(ctx context.Context, payReq string) error
	SubscribeSettlements(ctx context.Context) (SettlementStream, error)
}
