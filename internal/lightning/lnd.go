package lightning

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/macaroons"
	"github.com/sangaman/lightninggem/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
	macaroon "gopkg.in/macaroon.v2"
)

// LndClient implements Node over lnd's gRPC API, authenticated with the
// node's TLS certificate and admin macaroon.
type LndClient struct {
	conn   *grpc.ClientConn
	client lnrpc.LightningClient
}

// NewLndClient dials lnd at host using the given TLS certificate and
// macaroon files.
func NewLndClient(host, tlsCertPath, macaroonPath string) (*LndClient, error) {

	creds, err := credentials.NewClientTLSFromFile(tlsCertPath, "")
	if err != nil {
		return nil, fmt.Errorf("reading tls cert: %w", err)
	}

	macBytes, err := os.ReadFile(macaroonPath)
	if err != nil {
		return nil, fmt.Errorf("reading macaroon: %w", err)
	}
	mac := &macaroon.Macaroon{}
	if err := mac.UnmarshalBinary(macBytes); err != nil {
		return nil, fmt.Errorf("decoding macaroon: %w", err)
	}
	macCred, err := macaroons.NewMacaroonCredential(mac)
	if err != nil {
		return nil, fmt.Errorf("macaroon credential: %w", err)
	}

	conn, err := grpc.NewClient(host,
		grpc.WithTransportCredentials(creds),
		grpc.WithPerRPCCredentials(macCred),
	)
	if err != nil {
		return nil, fmt.Errorf("dialing lnd: %w", err)
	}

	return &LndClient{conn: conn, client: lnrpc.NewLightningClient(conn)}, nil
}

func (c *LndClient) AddInvoice(ctx context.Context, value int64, memo string) (*CreatedInvoice, error) {
	resp, err := c.client.AddInvoice(ctx, &lnrpc.Invoice{Value: value, Memo: memo})
	if err != nil {
		return nil, c.mapError(err)
	}
	return &CreatedInvoice{
		RHash:          hex.EncodeToString(resp.RHash),
		PaymentRequest: resp.PaymentRequest,
	}, nil
}

func (c *LndClient) DecodePayReq(ctx context.Context, payReq string) (*DecodedPayReq, error) {
	resp, err := c.client.DecodePayReq(ctx, &lnrpc.PayReqString{PayReq: payReq})
	if err != nil {
		return nil, c.mapError(err)
	}
	return &DecodedPayReq{NumSatoshis: resp.NumSatoshis, Expiry: resp.Expiry}, nil
}

func (c *LndClient) SendPayment(ctx context.Context, payReq string) error {
	resp, err := c.client.SendPaymentSync(ctx, &lnrpc.SendRequest{PaymentRequest: payReq})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrPaymentError, err)
	}
	// lnd reports routing failures inside an otherwise successful response.
	if resp.PaymentError != "" {
		return fmt.Errorf("%w: %s", common.ErrPaymentError, resp.PaymentError)
	}
	return nil
}

func (c *LndClient) SubscribeSettlements(ctx context.Context) (SettlementStream, error) {
	stream, err := c.client.SubscribeInvoices(ctx, &lnrpc.InvoiceSubscription{})
	if err != nil {
		return nil, c.mapError(err)
	}
	return &lndSettlementStream{stream: stream}, nil
}

func (c *LndClient) Close() error {
	return c.conn.Close()
}

func (c *LndClient) mapError(err error) error {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", common.ErrUpstreamError, err)
	}
}

type lndSettlementStream struct {
	stream lnrpc.Lightning_SubscribeInvoicesClient
}

func (s *lndSettlementStream) Recv() (*Settlement, error) {
	invoice, err := s.stream.Recv()
	if err != nil {
		return nil, err
	}
	return &Settlement{
		RHash:   hex.EncodeToString(invoice.RHash),
		Settled: invoice.State == lnrpc.Invoice_SETTLED,
	}, nil
}
