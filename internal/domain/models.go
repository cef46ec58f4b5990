package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns a UUID when the caller has not set one
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// QuoteStatus represents the lifecycle state of a quote request
type QuoteStatus string

const (
	QuoteStatusSent      QuoteStatus = "sent"
	QuoteStatusInReview  QuoteStatus = "in_review"
	QuoteStatusOfferSent QuoteStatus = "offer_sent"
	// QuoteStatusOffered is a legacy spelling of offer_sent still found in older rows.
	// It is accepted on reads and never written.
	QuoteStatusOffered     QuoteStatus = "offered"
	QuoteStatusAccepted    QuoteStatus = "accepted"
	QuoteStatusDeclined    QuoteStatus = "declined"
	QuoteStatusPaymentSent QuoteStatus = "payment_sent"
	QuoteStatusConfirmed   QuoteStatus = "confirmed"
	QuoteStatusRejected    QuoteStatus = "rejected"
)

// IsValid checks if the QuoteStatus is a valid enum value
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusSent, QuoteStatusInReview, QuoteStatusOfferSent, QuoteStatusOffered,
		QuoteStatusAccepted, QuoteStatusDeclined, QuoteStatusPaymentSent,
		QuoteStatusConfirmed, QuoteStatusRejected:
		return true
	}
	return false
}

// IsTerminal returns true for states no transition can leave
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteStatusConfirmed || s == QuoteStatusRejected
}

// Canonical folds the legacy "offered" spelling into offer_sent
func (s QuoteStatus) Canonical() QuoteStatus {
	if s == QuoteStatusOffered {
		return QuoteStatusOfferSent
	}
	return s
}

// NonTerminalQuoteStatuses lists every stored status a request can still leave
func NonTerminalQuoteStatuses() []QuoteStatus {
	return []QuoteStatus{
		QuoteStatusSent,
		QuoteStatusInReview,
		QuoteStatusOfferSent,
		QuoteStatusOffered,
		QuoteStatusAccepted,
		QuoteStatusDeclined,
		QuoteStatusPaymentSent,
	}
}

// QuoteRequestType is the kind of product a request refers to
type QuoteRequestType string

const (
	QuoteRequestTypeTour   QuoteRequestType = "tour"
	QuoteRequestTypeCruise QuoteRequestType = "cruise"
)

// QuoteRequest is a single agency inquiry for one product and one departure.
// AgencyID never changes after creation and Status is written only by the lifecycle service.
type QuoteRequest struct {
	BaseModel
	AgencyID             uuid.UUID        `gorm:"type:uuid;not null;index;column:agency_id"`
	Agency               *Agency          `gorm:"foreignKey:AgencyID"`
	RequestType          QuoteRequestType `gorm:"type:varchar(20);not null;column:request_type"`
	ProductID            uuid.UUID        `gorm:"type:uuid;not null;column:product_id"`
	ProductName          string           `gorm:"type:varchar(300);column:product_name"`
	DepartureID          *uuid.UUID       `gorm:"type:uuid;column:departure_id"`
	DepartureDate        *time.Time       `gorm:"type:date;column:departure_date"`
	ParticipantsAdults   int              `gorm:"not null;default:0;column:participants_adults"`
	ParticipantsChildren int              `gorm:"not null;default:0;column:participants_children"`
	CabinType            string           `gorm:"type:varchar(100);column:cabin_type"`
	CabinCategory        string           `gorm:"type:varchar(100);column:cabin_category"`
	RoomSelection        string           `gorm:"type:text;column:room_selection"`
	Notes                string           `gorm:"type:text"`
	Status               QuoteStatus      `gorm:"type:varchar(30);not null;default:'sent';index"`
	DeclineReason        *string          `gorm:"type:text;column:decline_reason"`
	RejectReason         *string          `gorm:"type:text;column:reject_reason"`
}

// QuoteOffer is a priced proposal against a quote request. Offers are never edited;
// the current one is the most recently created.
type QuoteOffer struct {
	ID             uuid.UUID           `gorm:"type:uuid;primaryKey"`
	QuoteRequestID uuid.UUID           `gorm:"type:uuid;not null;index;column:quote_request_id"`
	TotalPrice     decimal.NullDecimal `gorm:"type:numeric(12,2);column:total_price"`
	PriceOnRequest bool                `gorm:"not null;default:false;column:price_on_request"`
	Currency       string              `gorm:"type:varchar(3);not null;default:'EUR'"`
	Conditions     string              `gorm:"type:text"`
	PaymentTerms   string              `gorm:"type:text;column:payment_terms"`
	OfferExpiry    *time.Time          `gorm:"type:date;column:offer_expiry"`
	Notes          string              `gorm:"type:text"`
	CreatedByID    string              `gorm:"type:varchar(100);column:created_by_id"`
	CreatedByName  string              `gorm:"type:varchar(200);column:created_by_name"`
	CreatedAt      time.Time           `gorm:"not null;index"`
}

func (o *QuoteOffer) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IsExpired reports whether the offer expiry date lies before the calendar day of now.
// Offers without expiry never expire.
func (o *QuoteOffer) IsExpired(now time.Time) bool {
	if o.OfferExpiry == nil {
		return false
	}
	e := o.OfferExpiry.UTC()
	n := now.UTC()
	expiryDay := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return expiryDay.Before(today)
}

// QuoteParticipant is a named traveler registered when an offer is accepted
type QuoteParticipant struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestID      uuid.UUID `gorm:"type:uuid;not null;index;column:request_id"`
	FullName       string    `gorm:"type:varchar(200);not null;column:full_name"`
	DocumentType   *string   `gorm:"type:varchar(50);column:document_type"`
	DocumentNumber *string   `gorm:"type:varchar(100);column:document_number"`
	IsChild        bool      `gorm:"not null;default:false;column:is_child"`
	SortOrder      int       `gorm:"not null;default:0;column:sort_order"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (p *QuoteParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TimelineActor identifies who caused a timeline entry
type TimelineActor string

const (
	TimelineActorAgency TimelineActor = "agency"
	TimelineActorAdmin  TimelineActor = "admin"
	TimelineActorSystem TimelineActor = "system"
)

// QuoteTimelineEntry is an append-only audit record of a lifecycle event
type QuoteTimelineEntry struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey"`
	RequestID uuid.UUID     `gorm:"type:uuid;not null;index;column:request_id"`
	Action    string        `gorm:"type:varchar(200);not null"`
	Details   *string       `gorm:"type:text"`
	Actor     TimelineActor `gorm:"type:varchar(20);not null"`
	ActorID   string        `gorm:"type:varchar(100);column:actor_id"`
	CreatedAt time.Time     `gorm:"not null;index"`
}

func (QuoteTimelineEntry) TableName() string {
	return "quote_timeline"
}

func (e *QuoteTimelineEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// AgencyStatus is the approval state of an agency account
type AgencyStatus string

const (
	AgencyStatusPending  AgencyStatus = "pending"
	AgencyStatusApproved AgencyStatus = "approved"
	AgencyStatusBlocked  AgencyStatus = "blocked"
)

// Agency is the B2B customer account that owns quote requests.
// UserID maps exactly one authenticating principal to the agency.
type Agency struct {
	BaseModel
	UserID       string       `gorm:"type:varchar(100);not null;uniqueIndex;column:user_id"`
	BusinessName string       `gorm:"type:varchar(200);not null;column:business_name"`
	Email        string       `gorm:"type:varchar(255);not null"`
	City         string       `gorm:"type:varchar(100)"`
	Status       AgencyStatus `gorm:"type:varchar(20);not null;default:'pending'"`
}

func (Agency) TableName() string {
	return "agencies"
}

// QuotePaymentDetails holds the bank and contract information sent to an agency
// after acceptance. Rows are append-only.
type QuotePaymentDetails struct {
	ID                  uuid.UUID           `gorm:"type:uuid;primaryKey"`
	QuoteRequestID      uuid.UUID           `gorm:"type:uuid;not null;index;column:quote_request_id"`
	BankName            string              `gorm:"type:varchar(200);not null;column:bank_name"`
	IBAN                string              `gorm:"type:varchar(34);not null;column:iban"`
	Beneficiary         string              `gorm:"type:varchar(200);not null"`
	AmountDue           decimal.NullDecimal `gorm:"type:numeric(12,2);column:amount_due"`
	Currency            string              `gorm:"type:varchar(3);not null;default:'EUR'"`
	DueDate             *time.Time          `gorm:"type:date;column:due_date"`
	PaymentReference    string              `gorm:"type:varchar(200);column:payment_reference"`
	Notes               string              `gorm:"type:text"`
	ContractPath        *string             `gorm:"type:varchar(500);column:contract_path"`
	ContractFilename    string              `gorm:"type:varchar(255);column:contract_filename"`
	ContractContentType string              `gorm:"type:varchar(100);column:contract_content_type"`
	ContractSize        int64               `gorm:"column:contract_size"`
	CreatedByID         string              `gorm:"type:varchar(100);column:created_by_id"`
	CreatedAt           time.Time           `gorm:"not null"`
}

func (QuotePaymentDetails) TableName() string {
	return "quote_payment_details"
}

func (p *QuotePaymentDetails) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// OutboxStatus is the delivery state of an outbound notification
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusSent       OutboxStatus = "sent"
	OutboxStatusFailed     OutboxStatus = "failed"
	OutboxStatusAbandoned  OutboxStatus = "abandoned"
)

// IsValid checks if the OutboxStatus is a valid enum value
func (s OutboxStatus) IsValid() bool {
	switch s {
	case OutboxStatusPending, OutboxStatusProcessing, OutboxStatusSent, OutboxStatusFailed, OutboxStatusAbandoned:
		return true
	}
	return false
}

// NotificationKind names the template an outbox message was rendered from
type NotificationKind string

const (
	NotificationOfferSent          NotificationKind = "offer_sent"
	NotificationOfferAccepted      NotificationKind = "offer_accepted"
	NotificationOfferAcceptedAdmin NotificationKind = "offer_accepted_admin"
	NotificationOfferDeclinedAdmin NotificationKind = "offer_declined_admin"
	NotificationOfferRevoked       NotificationKind = "offer_revoked"
	NotificationPaymentDetails     NotificationKind = "payment_details"
	NotificationBookingConfirmed   NotificationKind = "booking_confirmed"
	NotificationRequestRejected    NotificationKind = "request_rejected"
)

// NotificationOutbox is a rendered email waiting for, or done with, delivery.
// Rows are written in the same transaction as the transition that caused them.
type NotificationOutbox struct {
	BaseModel
	QuoteRequestID *uuid.UUID       `gorm:"type:uuid;index;column:quote_request_id"`
	Kind           NotificationKind `gorm:"type:varchar(50);not null"`
	RecipientEmail string           `gorm:"type:varchar(255);not null;column:recipient_email"`
	RecipientName  string           `gorm:"type:varchar(200);column:recipient_name"`
	Subject        string           `gorm:"type:varchar(300);not null"`
	Body           string           `gorm:"type:text;not null"`
	Status         OutboxStatus     `gorm:"type:varchar(20);not null;default:'pending';index"`
	Attempts       int              `gorm:"not null;default:0"`
	LastError      *string          `gorm:"type:text;column:last_error"`
	SentAt         *time.Time       `gorm:"column:sent_at"`
}

func (NotificationOutbox) TableName() string {
	return "notification_outbox"
}
