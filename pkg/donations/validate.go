package donations

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"nanas/models"
)

const msgInvalidAmount = "Please enter a valid donation amount."

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their form names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidAmount reports whether a is within the accepted donation range and
// worth at least one minor unit.
func ValidAmount(a, max decimal.Decimal) bool {
	return a.IsPositive() && ToMinorUnits(a) >= 1 && a.LessThanOrEqual(max)
}

// validateForm returns field errors keyed by form field name, or nil.
func validateForm(f Form, max decimal.Decimal) map[string]string {
	errs := map[string]string{}
	if !ValidAmount(f.Amount, max) {
		errs["amount"] = msgInvalidAmount
	}
	if err := formValidator.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs[fe.Field()] = fieldMessage(fe)
			}
		} else {
			errs["form"] = err.Error()
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return "Must be at most " + fe.Param() + " characters."
	}
	return "Invalid value."
}

// ValidateDonation checks a record against the same limits the form uses,
// plus the external reference length.
func ValidateDonation(d *models.Donation) map[string]string {
	errs := validateForm(Form{Amount: d.Amount, Bank: d.Bank, Notes: d.Notes}, models.MaxDonationAmount)
	if d.StripeSessionID != nil && len(*d.StripeSessionID) > 200 {
		if errs == nil {
			errs = map[string]string{}
		}
		errs["stripe_session_id"] = "Must be at most 200 characters."
	}
	return errs
}
