package donations

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// StripeClient implements SessionClient on Stripe Checkout.
type StripeClient struct{}

// NewStripeClient sets the process-wide Stripe key. Call it once at startup.
func NewStripeClient(secretKey string) *StripeClient {
	stripe.Key = secretKey
	return &StripeClient{}
}

func gatewayErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrGateway, op, err)
}

func (StripeClient) CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		Metadata:           req.Metadata,
	}
	params.Context = ctx
	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(li.Currency),
				UnitAmount: stripe.Int64(li.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(li.Name),
					Description: stripe.String(li.Description),
				},
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	cs, err := session.New(params)
	if err != nil {
		return nil, gatewayErr("create session", err)
	}
	return fromCheckoutSession(cs), nil
}

func (StripeClient) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := session.Get(id, params)
	if err != nil {
		return nil, gatewayErr("retrieve session", err)
	}
	return fromCheckoutSession(cs), nil
}

func (StripeClient) ListLineItems(ctx context.Context, sessionID string, limit int64) ([]LineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(sessionID)}
	params.Limit = stripe.Int64(limit)
	params.Context = ctx
	var out []LineItem
	it := session.ListLineItems(params)
	for int64(len(out)) < limit && it.Next() {
		li := it.LineItem()
		item := LineItem{
			AmountSubtotal: optionalAmount(li.AmountSubtotal),
			AmountTotal:    optionalAmount(li.AmountTotal),
		}
		if li.Price != nil {
			item.UnitAmount = optionalAmount(li.Price.UnitAmount)
		}
		out = append(out, item)
	}
	if err := it.Err(); err != nil {
		return nil, gatewayErr("list line items", err)
	}
	return out, nil
}

func fromCheckoutSession(cs *stripe.CheckoutSession) *Session {
	return &Session{
		ID:            cs.ID,
		URL:           cs.URL,
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   optionalAmount(cs.AmountTotal),
		Metadata:      cs.Metadata,
	}
}

// Stripe reports absent amounts as zero.
func optionalAmount(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
