package donations

import (
	"context"
	"errors"
)

// ErrGateway marks failures reported by the payment gateway, as opposed to
// failures in this process.
var ErrGateway = errors.New("payment gateway error")

// SessionClient is the part of the payment gateway the donation flow needs.
type SessionClient interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
	ListLineItems(ctx context.Context, sessionID string, limit int64) ([]LineItem, error)
}

// CheckoutRequest describes a hosted checkout page to open.
type CheckoutRequest struct {
	LineItems  []CheckoutLineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type CheckoutLineItem struct {
	Name        string
	Description string
	Currency    string
	UnitAmount  int64 // minor units
	Quantity    int64
}

// Session is the gateway's view of one checkout attempt. Monetary fields are
// nil when the gateway did not report them.
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	AmountTotal   *int64
	Metadata      map[string]string
}

type LineItem struct {
	UnitAmount     *int64
	AmountSubtotal *int64
	AmountTotal    *int64
}

// metadataValue is a best-effort read: a missing map, a missing key and an
// empty value all report absent.
func (s *Session) metadataValue(key string) (string, bool) {
	if s == nil || s.Metadata == nil {
		return "", false
	}
	v, ok := s.Metadata[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
