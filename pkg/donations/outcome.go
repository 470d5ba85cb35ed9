package donations

import (
	"time"

	"github.com/shopspring/decimal"

	"nanas/models"
)

// Target names where the browser goes next. The HTTP layer maps each one to
// a route.
type Target string

const (
	TargetHome     Target = "home"
	TargetCreate   Target = "create"
	TargetThankYou Target = "thank_you"
	// TargetCheckout sends the browser to the gateway; Outcome.URL holds the page.
	TargetCheckout Target = "checkout"
)

// Flash notice keys. Notices are shown once and then discarded.
const (
	NoticeLogin    = "login"
	NoticeError    = "donation_error"
	NoticeThankYou = "donation_success"
)

type Notice struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Outcome is the result of one controller operation. An empty Target means
// the donation form is shown again with Form and FieldErrors.
type Outcome struct {
	Target      Target
	URL         string
	Notice      *Notice
	Form        Form
	FieldErrors map[string]string
	Donation    *models.Donation
}

// Redisplay reports whether the form should be rendered again.
func (o Outcome) Redisplay() bool { return o.Target == "" }

// Form is what a donor submits. A submitted DonationDate is ignored; records
// are stamped with the server clock.
type Form struct {
	Amount       decimal.Decimal `form:"amount" json:"amount" validate:"-"`
	Bank         string          `form:"bank" json:"bank" validate:"required,max=100"`
	Notes        string          `form:"notes" json:"notes,omitempty" validate:"max=500"`
	DonationDate time.Time       `form:"donation_date" json:"-" validate:"-"`
}

func redirect(t Target, n *Notice) Outcome {
	return Outcome{Target: t, Notice: n}
}

func notice(key, msg string) *Notice {
	return &Notice{Key: key, Message: msg}
}
