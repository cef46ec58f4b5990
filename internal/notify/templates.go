package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/travelportal/quote-api/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Message is a rendered email ready to be queued
type Message struct {
	Kind    domain.NotificationKind
	To      Recipient
	Subject string
	Body    string
}

type baseEmailData struct {
	Title    string
	Heading  string
	CTALabel string
	CTAURL   string
}

type quoteEmailData struct {
	baseEmailData
	AgencyName    string
	ProductName   string
	DepartureDate string
	RequestID     string
}

type offerSentEmailData struct {
	quoteEmailData
	Price        string
	Conditions   string
	PaymentTerms string
	Expiry       string
}

type offerAcceptedEmailData struct {
	quoteEmailData
	Participants []string
	Adults       int
	Children     int
}

type offerDeclinedEmailData struct {
	quoteEmailData
	Motivation string
}

type paymentDetailsEmailData struct {
	quoteEmailData
	BankName         string
	IBAN             string
	Beneficiary      string
	AmountDue        string
	DueDate          string
	PaymentReference string
	Notes            string
}

type requestRejectedEmailData struct {
	quoteEmailData
	Motivation string
}

// Composer renders lifecycle emails for agencies and the operator back office
type Composer struct {
	portalURL string
	admin     Recipient
}

// NewComposer creates a composer. portalURL is the agency area base URL used for links.
func NewComposer(portalURL string, admin Recipient) *Composer {
	return &Composer{portalURL: strings.TrimRight(portalURL, "/"), admin: admin}
}

// Admin returns the operator distribution recipient
func (c *Composer) Admin() Recipient {
	return c.admin
}

func (c *Composer) quoteData(title string, request *domain.QuoteRequest, agency *domain.Agency) quoteEmailData {
	data := quoteEmailData{
		baseEmailData: baseEmailData{
			Title:    title,
			Heading:  title,
			CTALabel: "Apri la richiesta",
			CTAURL:   fmt.Sprintf("%s/agency/quotes/%s", c.portalURL, request.ID),
		},
		ProductName: productLabel(request),
		RequestID:   request.ID.String(),
	}
	if agency != nil {
		data.AgencyName = agency.BusinessName
	}
	if request.DepartureDate != nil {
		data.DepartureDate = formatDate(*request.DepartureDate)
	}
	return data
}

func agencyRecipient(agency *domain.Agency) Recipient {
	return Recipient{Email: agency.Email, Name: agency.BusinessName}
}

// OfferSent is sent to the agency when an offer is made
func (c *Composer) OfferSent(request *domain.QuoteRequest, agency *domain.Agency, offer *domain.QuoteOffer) (Message, error) {
	data := offerSentEmailData{
		quoteEmailData: c.quoteData("Nuova offerta disponibile", request, agency),
		Price:          FormatPrice(offer.TotalPrice, offer.PriceOnRequest, offer.Currency),
		Conditions:     offer.Conditions,
		PaymentTerms:   offer.PaymentTerms,
	}
	data.CTALabel = "Visualizza l'offerta"
	if offer.OfferExpiry != nil {
		data.Expiry = formatDate(*offer.OfferExpiry)
	}
	return c.render(domain.NotificationOfferSent, agencyRecipient(agency),
		fmt.Sprintf(subjectOfferSentFmt, data.ProductName), "offer_sent.html", data)
}

// OfferAccepted confirms the acceptance to the agency
func (c *Composer) OfferAccepted(request *domain.QuoteRequest, agency *domain.Agency, participants []string, adults, children int) (Message, error) {
	data := offerAcceptedEmailData{
		quoteEmailData: c.quoteData("Offerta accettata", request, agency),
		Participants:   participants,
		Adults:         adults,
		Children:       children,
	}
	return c.render(domain.NotificationOfferAccepted, agencyRecipient(agency),
		fmt.Sprintf(subjectOfferAcceptedFmt, data.ProductName), "offer_accepted.html", data)
}

// OfferAcceptedAdmin informs the operator that an agency accepted
func (c *Composer) OfferAcceptedAdmin(request *domain.QuoteRequest, agency *domain.Agency, participants []string, adults, children int) (Message, error) {
	data := offerAcceptedEmailData{
		quoteEmailData: c.quoteData("Un'agenzia ha accettato un'offerta", request, agency),
		Participants:   participants,
		Adults:         adults,
		Children:       children,
	}
	data.CTAURL = fmt.Sprintf("%s/admin/quotes/%s", c.portalURL, request.ID)
	return c.render(domain.NotificationOfferAcceptedAdmin, c.admin,
		fmt.Sprintf(subjectOfferAcceptedAdminFmt, agency.BusinessName, data.ProductName), "offer_accepted_admin.html", data)
}

// OfferDeclinedAdmin informs the operator that an agency declined, with the optional motivation
func (c *Composer) OfferDeclinedAdmin(request *domain.QuoteRequest, agency *domain.Agency, motivation *string) (Message, error) {
	data := offerDeclinedEmailData{
		quoteEmailData: c.quoteData("Un'agenzia ha rifiutato un'offerta", request, agency),
	}
	if motivation != nil {
		data.Motivation = *motivation
	}
	data.CTAURL = fmt.Sprintf("%s/admin/quotes/%s", c.portalURL, request.ID)
	return c.render(domain.NotificationOfferDeclinedAdmin, c.admin,
		fmt.Sprintf(subjectOfferDeclinedAdminFmt, agency.BusinessName, data.ProductName), "offer_declined_admin.html", data)
}

// OfferRevoked tells the agency the current offer is no longer valid
func (c *Composer) OfferRevoked(request *domain.QuoteRequest, agency *domain.Agency) (Message, error) {
	data := c.quoteData("Offerta revocata", request, agency)
	return c.render(domain.NotificationOfferRevoked, agencyRecipient(agency),
		fmt.Sprintf(subjectOfferRevokedFmt, data.ProductName), "offer_revoked.html", data)
}

// PaymentDetails sends bank details to the agency
func (c *Composer) PaymentDetails(request *domain.QuoteRequest, agency *domain.Agency, details *domain.QuotePaymentDetails) (Message, error) {
	data := paymentDetailsEmailData{
		quoteEmailData:   c.quoteData("Dati per il pagamento", request, agency),
		BankName:         details.BankName,
		IBAN:             details.IBAN,
		Beneficiary:      details.Beneficiary,
		PaymentReference: details.PaymentReference,
		Notes:            details.Notes,
	}
	if details.AmountDue.Valid {
		data.AmountDue = FormatPrice(details.AmountDue, false, details.Currency)
	}
	if details.DueDate != nil {
		data.DueDate = formatDate(*details.DueDate)
	}
	return c.render(domain.NotificationPaymentDetails, agencyRecipient(agency),
		fmt.Sprintf(subjectPaymentDetailsFmt, data.ProductName), "payment_details.html", data)
}

// BookingConfirmed tells the agency the booking is final
func (c *Composer) BookingConfirmed(request *domain.QuoteRequest, agency *domain.Agency) (Message, error) {
	data := c.quoteData("Prenotazione confermata", request, agency)
	return c.render(domain.NotificationBookingConfirmed, agencyRecipient(agency),
		fmt.Sprintf(subjectBookingConfirmedFmt, data.ProductName), "booking_confirmed.html", data)
}

// RequestRejected tells the agency the request was closed, with the motivation
func (c *Composer) RequestRejected(request *domain.QuoteRequest, agency *domain.Agency, motivation string) (Message, error) {
	data := requestRejectedEmailData{
		quoteEmailData: c.quoteData("Richiesta respinta", request, agency),
		Motivation:     motivation,
	}
	return c.render(domain.NotificationRequestRejected, agencyRecipient(agency),
		fmt.Sprintf(subjectRequestRejectedFmt, data.ProductName), "request_rejected.html", data)
}

func (c *Composer) render(kind domain.NotificationKind, to Recipient, subject, name string, data any) (Message, error) {
	body, err := renderEmailTemplate(name, data)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: kind, To: to, Subject: subject, Body: body}, nil
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func productLabel(request *domain.QuoteRequest) string {
	if request.ProductName != "" {
		return request.ProductName
	}
	if request.RequestType == domain.QuoteRequestTypeCruise {
		return "Crociera"
	}
	return "Tour"
}

func formatDate(t time.Time) string {
	return t.UTC().Format("02/01/2006")
}

// FormatPrice renders an amount with Italian separators, e.g. "€ 1.200,00"
func FormatPrice(amount decimal.NullDecimal, onRequest bool, currency string) string {
	if onRequest || !amount.Valid {
		return "Prezzo su richiesta"
	}
	fixed := amount.Decimal.StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")
	intPart, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	symbol := currency
	if currency == "" || currency == "EUR" {
		symbol = "€"
	}
	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s %s%s,%s", symbol, sign, grouped.String(), frac)
}
