package donations

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nanas/models"
)

var donor = &models.User{ID: 7, Username: "thandi"}

func testConfig() Config {
	return Config{
		Currency:   "zar",
		SuccessURL: "https://nanas.example/donations/success",
		CancelURL:  "https://nanas.example/donations/create",
	}
}

func newTestCheckout(t *testing.T, sessions *fakeSessions, store *memStore) (*Controller, *logRecorder) {
	t.Helper()
	rec := &logRecorder{}
	c, err := NewCheckout(testConfig(), sessions, store, slog.New(rec))
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.FixedZone("SAST", 2*3600)) }
	return c, rec
}

func paidSession(total *int64, md map[string]string) *Session {
	return &Session{PaymentStatus: "paid", AmountTotal: total, Metadata: md}
}

func TestNewCheckoutRequiresCallbacks(t *testing.T) {
	_, err := NewCheckout(Config{Currency: "zar"}, &fakeSessions{}, &memStore{}, nil)
	require.ErrorIs(t, err, ErrMisconfigured)
	assert.Contains(t, err.Error(), "success url")
	assert.Contains(t, err.Error(), "cancel url")
}

func TestInitiateBuildsCheckoutRequest(t *testing.T) {
	sessions := &fakeSessions{}
	c, _ := newTestCheckout(t, sessions, &memStore{})

	out := c.Initiate(context.Background(), donor, Form{Amount: decimal.RequireFromString("49.99"), Bank: " ABSA "})

	assert.Equal(t, TargetCheckout, out.Target)
	assert.Equal(t, "https://checkout.example/cs_test_1", out.URL)
	require.Len(t, sessions.created, 1)
	req := sessions.created[0]
	require.Len(t, req.LineItems, 1)
	li := req.LineItems[0]
	assert.Equal(t, int64(4999), li.UnitAmount)
	assert.Equal(t, int64(1), li.Quantity)
	assert.Equal(t, "zar", li.Currency)
	assert.Equal(t, "Bank: ABSA", li.Description)
	assert.Equal(t, "https://nanas.example/donations/success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "https://nanas.example/donations/create", req.CancelURL)
	assert.Equal(t, map[string]string{"bank": "ABSA"}, req.Metadata)
}

func TestInitiateUnitAmountAcrossRange(t *testing.T) {
	amounts := map[string]int64{
		"0.01":        1,
		"1":           100,
		"12.345":      1234, // half to even
		"12.355":      1236,
		"250.5":       25050,
		"9999999.99":  999999999,
		"10000000":    1000000000,
		"10000000.00": 1000000000,
	}
	for in, want := range amounts {
		t.Run(in, func(t *testing.T) {
			sessions := &fakeSessions{}
			c, _ := newTestCheckout(t, sessions, &memStore{})
			out := c.Initiate(context.Background(), donor, Form{Amount: decimal.RequireFromString(in), Bank: "FNB"})
			require.Equal(t, TargetCheckout, out.Target)
			require.Len(t, sessions.created, 1)
			assert.Equal(t, want, sessions.created[0].LineItems[0].UnitAmount)
		})
	}
}

func TestInitiateRejectsOutOfRangeAmounts(t *testing.T) {
	for _, in := range []string{"0", "-50", "0.001", "0.004", "0.005", "10000000.01", "10000001"} {
		t.Run(in, func(t *testing.T) {
			sessions := &fakeSessions{}
			store := &memStore{}
			c, _ := newTestCheckout(t, sessions, store)

			out := c.Initiate(context.Background(), donor, Form{Amount: decimal.RequireFromString(in), Bank: "FNB"})

			assert.True(t, out.Redisplay())
			assert.Contains(t, out.FieldErrors, "amount")
			require.NotNil(t, out.Notice)
			assert.Equal(t, NoticeError, out.Notice.Key)
			assert.Empty(t, sessions.created)
			assert.Zero(t, store.count())
		})
	}
}

func TestInitiateValidatesBank(t *testing.T) {
	c, _ := newTestCheckout(t, &fakeSessions{}, &memStore{})

	out := c.Initiate(context.Background(), donor, Form{Amount: decimal.NewFromInt(10)})
	assert.Contains(t, out.FieldErrors, "bank")

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'B'
	}
	out = c.Initiate(context.Background(), donor, Form{Amount: decimal.NewFromInt(10), Bank: string(long)})
	assert.Equal(t, "Must be at most 100 characters.", out.FieldErrors["bank"])
}

func TestInitiateUnauthenticated(t *testing.T) {
	sessions := &fakeSessions{}
	c, _ := newTestCheckout(t, sessions, &memStore{})

	out := c.Initiate(context.Background(), nil, Form{Amount: decimal.NewFromInt(100), Bank: "FNB"})

	assert.Equal(t, TargetHome, out.Target)
	assert.Equal(t, &Notice{Key: NoticeLogin, Message: "Please log in to make a donation."}, out.Notice)
	assert.Empty(t, sessions.created)
}

func TestInitiateGatewayFailure(t *testing.T) {
	sessions := &fakeSessions{createErr: gatewayErr("create session", errors.New("card_declined"))}
	c, rec := newTestCheckout(t, sessions, &memStore{})
	form := Form{Amount: decimal.NewFromInt(100), Bank: "FNB"}

	out := c.Initiate(context.Background(), donor, form)

	assert.True(t, out.Redisplay())
	assert.Equal(t, form, out.Form)
	assert.Equal(t, "Payment initialization failed. Please try again.", out.Notice.Message)
	assert.True(t, rec.has(slog.LevelError, "create checkout session failed"))
}

func TestInitiateFallsBackToSessionID(t *testing.T) {
	sessions := &fakeSessions{createRes: &Session{ID: "cs_live_9"}}
	c, _ := newTestCheckout(t, sessions, &memStore{})

	out := c.Initiate(context.Background(), donor, Form{Amount: decimal.NewFromInt(5), Bank: "FNB"})

	assert.Equal(t, "https://checkout.stripe.com/pay/cs_live_9", out.URL)
}

func TestConfirmRecordsPaidSession(t *testing.T) {
	store := &memStore{}
	sessions := &fakeSessions{session: paidSession(int64p(4999), map[string]string{"bank": "ABSA"})}
	c, rec := newTestCheckout(t, sessions, store)

	out := c.Confirm(context.Background(), donor, "cs_test_abc")

	assert.Equal(t, TargetThankYou, out.Target)
	require.Equal(t, 1, store.count())
	d := store.rows[0]
	assert.True(t, decimal.RequireFromString("49.99").Equal(d.Amount), d.Amount.String())
	assert.Equal(t, "ABSA", d.Bank)
	require.NotNil(t, d.StripeSessionID)
	assert.Equal(t, "cs_test_abc", *d.StripeSessionID)
	assert.Equal(t, time.UTC, d.DonationDate.Location())
	assert.Equal(t, 7, d.DonationDate.Hour())
	assert.Zero(t, sessions.listed)
	assert.True(t, rec.has(slog.LevelInfo, "saved donation from checkout session"))
}

func TestConfirmDefaultsBank(t *testing.T) {
	for name, md := range map[string]map[string]string{
		"nil metadata":   nil,
		"no bank key":    {"campaign": "winter"},
		"empty bank key": {"bank": ""},
	} {
		t.Run(name, func(t *testing.T) {
			store := &memStore{}
			c, _ := newTestCheckout(t, &fakeSessions{session: paidSession(int64p(1000), md)}, store)

			c.Confirm(context.Background(), donor, "cs_1")

			require.Equal(t, 1, store.count())
			assert.Equal(t, DefaultBank, store.rows[0].Bank)
		})
	}
}

func TestConfirmStatusGate(t *testing.T) {
	for _, status := range []string{"unpaid", "open", "no_payment_required", ""} {
		t.Run(status, func(t *testing.T) {
			store := &memStore{}
			s := paidSession(int64p(1000), nil)
			s.PaymentStatus = status
			c, rec := newTestCheckout(t, &fakeSessions{session: s}, store)

			out := c.Confirm(context.Background(), donor, "cs_1")

			assert.Equal(t, TargetCreate, out.Target)
			assert.Equal(t, "Payment not completed.", out.Notice.Message)
			assert.Zero(t, store.count())
			assert.True(t, rec.has(slog.LevelWarn, "checkout session not paid"))
		})
	}
}

func TestConfirmStatusIsCaseInsensitive(t *testing.T) {
	store := &memStore{}
	s := paidSession(int64p(1000), nil)
	s.PaymentStatus = "PAID"
	c, _ := newTestCheckout(t, &fakeSessions{session: s}, store)

	out := c.Confirm(context.Background(), donor, "cs_1")

	assert.Equal(t, TargetThankYou, out.Target)
	assert.Equal(t, 1, store.count())
}

func TestConfirmReconcilesFromLineItems(t *testing.T) {
	cases := []struct {
		name  string
		total *int64
		item  LineItem
		want  string
	}{
		{"unit price", nil, LineItem{UnitAmount: int64p(2500), AmountSubtotal: int64p(9), AmountTotal: int64p(9)}, "25"},
		{"zero total falls through", int64p(0), LineItem{UnitAmount: int64p(1234)}, "12.34"},
		{"subtotal", nil, LineItem{UnitAmount: int64p(0), AmountSubtotal: int64p(777)}, "7.77"},
		{"item total", nil, LineItem{AmountSubtotal: int64p(-1), AmountTotal: int64p(100)}, "1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &memStore{}
			sessions := &fakeSessions{session: paidSession(tc.total, nil), items: []LineItem{tc.item}}
			c, _ := newTestCheckout(t, sessions, store)

			out := c.Confirm(context.Background(), donor, "cs_1")

			require.Equal(t, TargetThankYou, out.Target)
			require.Equal(t, 1, store.count())
			assert.True(t, decimal.RequireFromString(tc.want).Equal(store.rows[0].Amount), store.rows[0].Amount.String())
			assert.Equal(t, 1, sessions.listed)
		})
	}
}

func TestConfirmUnresolvableAmount(t *testing.T) {
	for name, items := range map[string][]LineItem{
		"no items":     nil,
		"empty fields": {{}},
		"non-positive": {{UnitAmount: int64p(0), AmountSubtotal: int64p(-5), AmountTotal: int64p(0)}},
	} {
		t.Run(name, func(t *testing.T) {
			store := &memStore{}
			sessions := &fakeSessions{session: paidSession(nil, nil), items: items}
			c, rec := newTestCheckout(t, sessions, store)

			out := c.Confirm(context.Background(), donor, "cs_1")

			assert.Equal(t, TargetCreate, out.Target)
			assert.Equal(t, "Could not determine donation amount from Stripe session.", out.Notice.Message)
			assert.Zero(t, store.count())
			assert.True(t, rec.has(slog.LevelError, "unable to determine donation amount"))
		})
	}
}

func TestConfirmGatewayErrors(t *testing.T) {
	t.Run("retrieve", func(t *testing.T) {
		store := &memStore{}
		sessions := &fakeSessions{retrieveErr: gatewayErr("retrieve session", errors.New("no such session"))}
		c, rec := newTestCheckout(t, sessions, store)

		out := c.Confirm(context.Background(), donor, "cs_missing")

		assert.Equal(t, TargetCreate, out.Target)
		assert.Equal(t, "Payment verification failed. Please contact support.", out.Notice.Message)
		assert.Zero(t, store.count())
		assert.True(t, rec.has(slog.LevelError, "retrieve session failed"))
	})
	t.Run("line items", func(t *testing.T) {
		store := &memStore{}
		sessions := &fakeSessions{session: paidSession(nil, nil), itemsErr: gatewayErr("list line items", errors.New("rate limited"))}
		c, _ := newTestCheckout(t, sessions, store)

		out := c.Confirm(context.Background(), donor, "cs_1")

		assert.Equal(t, "Payment verification failed. Please contact support.", out.Notice.Message)
		assert.Zero(t, store.count())
	})
	t.Run("non gateway", func(t *testing.T) {
		sessions := &fakeSessions{retrieveErr: context.Canceled}
		c, _ := newTestCheckout(t, sessions, &memStore{})

		out := c.Confirm(context.Background(), donor, "cs_1")

		assert.Equal(t, "An error occurred while saving your donation. Please try again.", out.Notice.Message)
	})
}

func TestConfirmUnauthenticatedAndMissingSession(t *testing.T) {
	store := &memStore{}
	c, _ := newTestCheckout(t, &fakeSessions{session: paidSession(int64p(100), nil)}, store)

	out := c.Confirm(context.Background(), nil, "cs_1")
	assert.Equal(t, TargetHome, out.Target)
	assert.Equal(t, NoticeLogin, out.Notice.Key)

	out = c.Confirm(context.Background(), donor, "  ")
	assert.Equal(t, TargetCreate, out.Target)
	assert.Equal(t, "Missing session id.", out.Notice.Message)

	assert.Zero(t, store.count())
}

func TestConfirmPersistenceFailure(t *testing.T) {
	store := &memStore{err: errors.New("connection reset")}
	c, rec := newTestCheckout(t, &fakeSessions{session: paidSession(int64p(100), nil)}, store)

	out := c.Confirm(context.Background(), donor, "cs_1")

	assert.Equal(t, TargetCreate, out.Target)
	assert.Equal(t, "An error occurred while saving your donation. Please try again.", out.Notice.Message)
	assert.True(t, rec.has(slog.LevelError, "save donation failed"))
}

func TestConfirmTwiceBothSucceed(t *testing.T) {
	store := &memStore{unique: true}
	c, rec := newTestCheckout(t, &fakeSessions{session: paidSession(int64p(5000), nil)}, store)

	first := c.Confirm(context.Background(), donor, "cs_same")
	second := c.Confirm(context.Background(), donor, "cs_same")

	assert.Equal(t, TargetThankYou, first.Target)
	assert.Equal(t, TargetThankYou, second.Target)
	assert.NotNil(t, first.Donation)
	assert.Nil(t, second.Donation)
	assert.Equal(t, 1, store.count())
	assert.True(t, rec.has(slog.LevelInfo, "donation already recorded for session"))
}

func TestRecordDirect(t *testing.T) {
	store := &memStore{}
	c := NewDirect(store, slog.New(&logRecorder{}))
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	out := c.Record(context.Background(), donor, Form{
		Amount:       decimal.RequireFromString("150.50"),
		Bank:         "Nedbank",
		Notes:        "in memory of Gogo",
		DonationDate: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, TargetThankYou, out.Target)
	require.Equal(t, 1, store.count())
	d := store.rows[0]
	assert.Equal(t, fixed, d.DonationDate)
	assert.Equal(t, "Nedbank", d.Bank)
	assert.Equal(t, "in memory of Gogo", d.Notes)
	assert.Nil(t, d.StripeSessionID)
	assert.False(t, c.CheckoutEnabled())
}

func TestRecordDirectFailures(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		store := &memStore{}
		out := NewDirect(store, nil).Record(context.Background(), nil, Form{Amount: decimal.NewFromInt(1), Bank: "FNB"})
		assert.Equal(t, TargetHome, out.Target)
		assert.Zero(t, store.count())
	})
	for _, amt := range []string{"0", "0.001", "0.004"} {
		t.Run("invalid amount "+amt, func(t *testing.T) {
			store := &memStore{}
			out := NewDirect(store, nil).Record(context.Background(), donor, Form{Amount: decimal.RequireFromString(amt), Bank: "FNB"})
			assert.True(t, out.Redisplay())
			assert.Contains(t, out.FieldErrors, "amount")
			assert.Zero(t, store.count())
		})
	}
	t.Run("sub-cent digits are rounded to cents", func(t *testing.T) {
		store := &memStore{}
		out := NewDirect(store, nil).Record(context.Background(), donor, Form{Amount: decimal.RequireFromString("12.345"), Bank: "FNB"})
		assert.Equal(t, TargetThankYou, out.Target)
		require.Equal(t, 1, store.count())
		assert.Equal(t, "12.34", store.rows[0].Amount.String())
	})
	t.Run("store error keeps input", func(t *testing.T) {
		form := Form{Amount: decimal.NewFromInt(20), Bank: "FNB", Notes: "keep me"}
		out := NewDirect(&memStore{err: errors.New("disk full")}, slog.New(&logRecorder{})).Record(context.Background(), donor, form)
		assert.True(t, out.Redisplay())
		assert.Equal(t, form, out.Form)
		assert.Equal(t, "An error occurred while saving your donation. Please try again.", out.Notice.Message)
	})
}

func TestMinorUnitConversions(t *testing.T) {
	assert.Equal(t, int64(4999), ToMinorUnits(decimal.RequireFromString("49.99")))
	assert.Equal(t, "49.99", FromMinorUnits(4999).StringFixed(2))
	assert.Equal(t, "0.01", FromMinorUnits(1).String())
}

func TestShowFormRequiresLogin(t *testing.T) {
	c := NewDirect(&memStore{}, nil)

	out := c.ShowForm(nil)
	assert.Equal(t, TargetHome, out.Target)
	require.NotNil(t, out.Notice)
	assert.Equal(t, NoticeLogin, out.Notice.Key)

	assert.True(t, c.ShowForm(donor).Redisplay())
}
