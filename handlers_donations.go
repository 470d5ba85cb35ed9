package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nanas/pkg/donations"
	"nanas/pkg/flash"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	routeHome     = "/"
	routeDonate   = "/donations/create"
	routeThankYou = "/donations/thank-you"
)

var donationRoutes = map[donations.Target]string{
	donations.TargetHome:     routeHome,
	donations.TargetCreate:   routeDonate,
	donations.TargetThankYou: routeThankYou,
}

// donationRequest accepts form posts and JSON. Amount stays textual so an
// unparseable value becomes a field error instead of a bind failure.
type donationRequest struct {
	Amount       json.Number `form:"amount" json:"amount"`
	Bank         string      `form:"bank" json:"bank"`
	Notes        string      `form:"notes" json:"notes"`
	DonationDate string      `form:"donation_date" json:"donation_date"`
}

func (r donationRequest) form() donations.Form {
	f := donations.Form{Bank: r.Bank, Notes: r.Notes}
	if a, err := decimal.NewFromString(strings.TrimSpace(r.Amount.String())); err == nil {
		f.Amount = a
	}
	if d, err := time.Parse(time.DateOnly, strings.TrimSpace(r.DonationDate)); err == nil {
		f.DonationDate = d
	}
	return f
}

func (s *server) donationFormHandler(c *gin.Context) {
	s.renderDonation(c, s.donations.ShowForm(currentUser(c)))
}

func (s *server) donationView(c *gin.Context, form donations.Form, errs map[string]string, n *donations.Notice) gin.H {
	notices := flash.Pop(c)
	if n != nil {
		notices[n.Key] = n.Message
	}
	if errs == nil {
		errs = map[string]string{}
	}
	return gin.H{
		"view":    "donations/create",
		"mode":    s.cfg.Donations.Mode,
		"banks":   s.banks(),
		"form":    form,
		"errors":  errs,
		"notices": notices,
	}
}

// createDonationHandler opens a checkout session, or records the donation
// directly when the site runs without a gateway.
func (s *server) createDonationHandler(c *gin.Context) {
	var req donationRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user := currentUser(c)
	var out donations.Outcome
	if s.donations.CheckoutEnabled() {
		out = s.donations.Initiate(c.Request.Context(), user, req.form())
	} else {
		out = s.donations.Record(c.Request.Context(), user, req.form())
	}
	s.renderDonation(c, out)
}

// donationSuccessHandler is where the gateway sends the donor back.
func (s *server) donationSuccessHandler(c *gin.Context) {
	out := s.donations.Confirm(c.Request.Context(), currentUser(c), c.Query("session_id"))
	s.renderDonation(c, out)
}

func (s *server) thankYouHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"view": "donations/thank_you", "notices": flash.Pop(c)})
}

func (s *server) renderDonation(c *gin.Context, out donations.Outcome) {
	if out.Redisplay() {
		status := http.StatusOK
		if len(out.FieldErrors) > 0 {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, s.donationView(c, out.Form, out.FieldErrors, out.Notice))
		return
	}
	if out.Notice != nil {
		flash.Set(c, out.Notice.Key, out.Notice.Message)
	}
	if out.Target == donations.TargetCheckout {
		c.Redirect(http.StatusSeeOther, out.URL)
		return
	}
	c.Redirect(http.StatusSeeOther, donationRoutes[out.Target])
}
