// Package donations implements the donation flow: opening a gateway checkout,
// confirming the payment when the donor comes back, and recording donations
// directly when no gateway is configured.
package donations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"nanas/models"
)

const (
	productName = "Nanas Foundation Donation"
	// DefaultBank labels gateway donations whose session carries no bank.
	DefaultBank         = "Stripe"
	metadataBank        = "bank"
	sessionPlaceholder  = "{CHECKOUT_SESSION_ID}"
	defaultFallbackURL  = "https://checkout.stripe.com/pay/"
	lineItemLookupLimit = 1
	maxBankLen          = 100
)

// User-facing messages.
const (
	msgLoginToDonate      = "Please log in to make a donation."
	msgLoginToConfirm     = "Please log in to view your donation confirmation."
	msgFixErrors          = "Please correct the errors and try again."
	msgInitFailed         = "Payment initialization failed. Please try again."
	msgMissingSession     = "Missing session id."
	msgVerificationFailed = "Payment verification failed. Please contact support."
	msgNotPaid            = "Payment not completed."
	msgNoAmount           = "Could not determine donation amount from Stripe session."
	msgSaveFailed         = "An error occurred while saving your donation. Please try again."
	msgGatewayDisabled    = "Online card payments are not enabled."
	msgThankYou           = "Thank you for your donation!"
)

var (
	ErrMisconfigured = errors.New("donations: invalid configuration")
	hundred          = decimal.NewFromInt(100)
)

// Config holds the checkout settings. It is fixed for the life of the process.
type Config struct {
	Currency    string
	SuccessURL  string
	CancelURL   string
	FallbackURL string
	MaxAmount   decimal.Decimal
}

// Controller runs the donation flow. It keeps no per-request state and is
// safe for concurrent use.
type Controller struct {
	cfg      Config
	sessions SessionClient
	store    Store
	log      *slog.Logger
	now      func() time.Time
}

// NewCheckout returns a controller that collects payments through sessions.
// Missing callback URLs or currency are reported here, never per request.
func NewCheckout(cfg Config, sessions SessionClient, store Store, logger *slog.Logger) (*Controller, error) {
	if sessions == nil || store == nil {
		return nil, fmt.Errorf("%w: session client and store are required", ErrMisconfigured)
	}
	var missing []string
	if cfg.SuccessURL == "" {
		missing = append(missing, "success url")
	}
	if cfg.CancelURL == "" {
		missing = append(missing, "cancel url")
	}
	if cfg.Currency == "" {
		missing = append(missing, "currency")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMisconfigured, strings.Join(missing, ", "))
	}
	if cfg.FallbackURL == "" {
		cfg.FallbackURL = defaultFallbackURL
	}
	c := newController(cfg, store, logger)
	c.sessions = sessions
	return c, nil
}

// NewDirect returns a controller that records submitted donations as-is.
func NewDirect(store Store, logger *slog.Logger) *Controller {
	return newController(Config{}, store, logger)
}

func newController(cfg Config, store Store, logger *slog.Logger) *Controller {
	if cfg.MaxAmount.IsZero() {
		cfg.MaxAmount = models.MaxDonationAmount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{cfg: cfg, store: store, log: logger.With("component", "donations"), now: time.Now}
}

// CheckoutEnabled reports whether the controller was built with a gateway.
func (c *Controller) CheckoutEnabled() bool { return c.sessions != nil }

// ShowForm gates the empty donation form behind a login.
func (c *Controller) ShowForm(user *models.User) Outcome {
	if user == nil {
		return redirect(TargetHome, notice(NoticeLogin, msgLoginToDonate))
	}
	return Outcome{}
}

// Initiate validates the form and opens a checkout session for it.
func (c *Controller) Initiate(ctx context.Context, user *models.User, form Form) Outcome {
	if user == nil {
		observe("initiate", "unauthenticated")
		return redirect(TargetHome, notice(NoticeLogin, msgLoginToDonate))
	}
	if !c.CheckoutEnabled() {
		return Outcome{Form: form, Notice: notice(NoticeError, msgGatewayDisabled)}
	}
	form.Bank = strings.TrimSpace(form.Bank)
	if errs := validateForm(form, c.cfg.MaxAmount); errs != nil {
		c.log.Warn("donation form invalid", "user", user.Username, "fields", len(errs))
		observe("initiate", "invalid")
		return Outcome{Form: form, FieldErrors: errs, Notice: notice(NoticeError, msgFixErrors)}
	}

	req := c.checkoutRequest(form)
	s, err := c.sessions.CreateSession(ctx, req)
	if err != nil {
		c.log.Error("create checkout session failed", "user", user.Username, "err", err)
		observe("initiate", "gateway_error")
		return Outcome{Form: form, Notice: notice(NoticeError, msgInitFailed)}
	}
	observe("initiate", "ok")
	url := s.URL
	if url == "" {
		url = c.cfg.FallbackURL + s.ID
	}
	return Outcome{Target: TargetCheckout, URL: url}
}

func (c *Controller) checkoutRequest(form Form) CheckoutRequest {
	return CheckoutRequest{
		LineItems: []CheckoutLineItem{{
			Name:        productName,
			Description: "Bank: " + form.Bank,
			Currency:    c.cfg.Currency,
			UnitAmount:  ToMinorUnits(form.Amount),
			Quantity:    1,
		}},
		SuccessURL: withSessionParam(c.cfg.SuccessURL),
		CancelURL:  c.cfg.CancelURL,
		Metadata:   map[string]string{metadataBank: form.Bank},
	}
}

func withSessionParam(u string) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "session_id=" + sessionPlaceholder
}

// Confirm checks a returning donor's session and records the donation once
// the gateway reports it paid.
func (c *Controller) Confirm(ctx context.Context, user *models.User, sessionID string) Outcome {
	if user == nil {
		observe("confirm", "unauthenticated")
		return redirect(TargetHome, notice(NoticeLogin, msgLoginToConfirm))
	}
	if !c.CheckoutEnabled() {
		return redirect(TargetCreate, notice(NoticeError, msgGatewayDisabled))
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		observe("confirm", "missing_session")
		return redirect(TargetCreate, notice(NoticeError, msgMissingSession))
	}
	log := c.log.With("session_id", sessionID)

	s, err := c.sessions.RetrieveSession(ctx, sessionID)
	if err != nil {
		return c.confirmFailed(log, "retrieve session failed", err)
	}
	if !strings.EqualFold(s.PaymentStatus, "paid") {
		log.Warn("checkout session not paid", "status", s.PaymentStatus)
		observe("confirm", "not_paid")
		return redirect(TargetCreate, notice(NoticeError, msgNotPaid))
	}

	minor, err := c.resolveAmount(ctx, s)
	if err != nil {
		return c.confirmFailed(log, "list line items failed", err)
	}
	if minor <= 0 {
		log.Error("unable to determine donation amount")
		observe("confirm", "no_amount")
		return redirect(TargetCreate, notice(NoticeError, msgNoAmount))
	}

	bank, ok := s.metadataValue(metadataBank)
	if !ok || len(bank) > maxBankLen {
		bank = DefaultBank
	}
	ref := sessionID
	d := &models.Donation{
		Amount:          FromMinorUnits(minor),
		Bank:            bank,
		StripeSessionID: &ref,
		DonationDate:    c.now().UTC(),
	}
	if err := c.store.Add(ctx, d); err != nil {
		if errors.Is(err, ErrDuplicateSession) {
			log.Info("donation already recorded for session")
			observe("confirm", "duplicate")
			return redirect(TargetThankYou, notice(NoticeThankYou, msgThankYou))
		}
		log.Error("save donation failed", "err", err)
		observe("confirm", "store_error")
		return redirect(TargetCreate, notice(NoticeError, msgSaveFailed))
	}
	log.Info("saved donation from checkout session", "amount", d.Amount.StringFixed(2), "donation_id", d.ID)
	observe("confirm", "ok")
	recordedAmount.Add(d.Amount.InexactFloat64())
	out := redirect(TargetThankYou, notice(NoticeThankYou, msgThankYou))
	out.Donation = d
	return out
}

func (c *Controller) confirmFailed(log *slog.Logger, msg string, err error) Outcome {
	log.Error(msg, "err", err)
	if errors.Is(err, ErrGateway) {
		observe("confirm", "gateway_error")
		return redirect(TargetCreate, notice(NoticeError, msgVerificationFailed))
	}
	observe("confirm", "error")
	return redirect(TargetCreate, notice(NoticeError, msgSaveFailed))
}

// resolveAmount returns the charged amount in minor units, or 0 when no
// field carries a positive value. The session total wins; otherwise the first
// line item's unit price, subtotal and total are tried in that order.
func (c *Controller) resolveAmount(ctx context.Context, s *Session) (int64, error) {
	if v, ok := positive(s.AmountTotal); ok {
		return v, nil
	}
	items, err := c.sessions.ListLineItems(ctx, s.ID, lineItemLookupLimit)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}
	first := items[0]
	for _, field := range []*int64{first.UnitAmount, first.AmountSubtotal, first.AmountTotal} {
		if v, ok := positive(field); ok {
			return v, nil
		}
	}
	return 0, nil
}

func positive(v *int64) (int64, bool) {
	if v == nil || *v <= 0 {
		return 0, false
	}
	return *v, true
}

// Record stores a donation submitted without a gateway.
func (c *Controller) Record(ctx context.Context, user *models.User, form Form) Outcome {
	if user == nil {
		observe("record", "unauthenticated")
		return redirect(TargetHome, notice(NoticeLogin, msgLoginToDonate))
	}
	form.Bank = strings.TrimSpace(form.Bank)
	if errs := validateForm(form, c.cfg.MaxAmount); errs != nil {
		c.log.Warn("donation form invalid", "user", user.Username, "fields", len(errs))
		observe("record", "invalid")
		return Outcome{Form: form, FieldErrors: errs, Notice: notice(NoticeError, msgFixErrors)}
	}
	d := &models.Donation{
		Amount:       FromMinorUnits(ToMinorUnits(form.Amount)),
		Bank:         form.Bank,
		Notes:        form.Notes,
		DonationDate: c.now().UTC(),
	}
	if err := c.store.Add(ctx, d); err != nil {
		c.log.Error("save donation failed", "user", user.Username, "err", err)
		observe("record", "store_error")
		return Outcome{Form: form, Notice: notice(NoticeError, msgSaveFailed)}
	}
	c.log.Info("recorded donation", "user", user.Username, "donation_id", d.ID, "amount", d.Amount.StringFixed(2))
	observe("record", "ok")
	recordedAmount.Add(d.Amount.InexactFloat64())
	out := redirect(TargetThankYou, notice(NoticeThankYou, msgThankYou))
	out.Donation = d
	return out
}

// ToMinorUnits converts a major-unit amount to the gateway's smallest unit,
// rounding half to even.
func ToMinorUnits(a decimal.Decimal) int64 {
	return a.Mul(hundred).RoundBank(0).IntPart()
}

// FromMinorUnits converts gateway minor units back to a major-unit amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
