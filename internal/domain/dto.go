package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for API responses

type AgencyDTO struct {
	ID           uuid.UUID    `json:"id"`
	BusinessName string       `json:"businessName"`
	Email        string       `json:"email"`
	City         string       `json:"city,omitempty"`
	Status       AgencyStatus `json:"status"`
}

type QuoteRequestDTO struct {
	ID                   uuid.UUID        `json:"id"`
	AgencyID             uuid.UUID        `json:"agencyId"`
	AgencyName           string           `json:"agencyName,omitempty"`
	RequestType          QuoteRequestType `json:"requestType"`
	ProductID            uuid.UUID        `json:"productId"`
	ProductName          string           `json:"productName,omitempty"`
	DepartureID          *uuid.UUID       `json:"departureId,omitempty"`
	DepartureDate        *string          `json:"departureDate,omitempty"` // YYYY-MM-DD
	ParticipantsAdults   int              `json:"participantsAdults"`
	ParticipantsChildren int              `json:"participantsChildren"`
	CabinType            string           `json:"cabinType,omitempty"`
	CabinCategory        string           `json:"cabinCategory,omitempty"`
	RoomSelection        string           `json:"roomSelection,omitempty"`
	Notes                string           `json:"notes,omitempty"`
	Status               QuoteStatus      `json:"status"`
	DeclineReason        *string          `json:"declineReason,omitempty"`
	RejectReason         *string          `json:"rejectReason,omitempty"`
	CreatedAt            string           `json:"createdAt"` // ISO 8601
	UpdatedAt            string           `json:"updatedAt"` // ISO 8601
}

type QuoteOfferDTO struct {
	ID             uuid.UUID        `json:"id"`
	QuoteRequestID uuid.UUID        `json:"quoteRequestId"`
	TotalPrice     *decimal.Decimal `json:"totalPrice,omitempty"`
	PriceOnRequest bool             `json:"priceOnRequest"`
	Currency       string           `json:"currency"`
	Conditions     string           `json:"conditions,omitempty"`
	PaymentTerms   string           `json:"paymentTerms,omitempty"`
	OfferExpiry    *string          `json:"offerExpiry,omitempty"` // YYYY-MM-DD
	Expired        bool             `json:"expired"`
	Notes          string           `json:"notes,omitempty"`
	CreatedByName  string           `json:"createdByName,omitempty"`
	CreatedAt      string           `json:"createdAt"`
}

type QuoteParticipantDTO struct {
	ID             uuid.UUID `json:"id"`
	FullName       string    `json:"fullName"`
	DocumentType   *string   `json:"documentType,omitempty"`
	DocumentNumber *string   `json:"documentNumber,omitempty"`
	IsChild        bool      `json:"isChild"`
	SortOrder      int       `json:"sortOrder"`
}

type QuoteTimelineEntryDTO struct {
	ID        uuid.UUID     `json:"id"`
	Action    string        `json:"action"`
	Details   *string       `json:"details,omitempty"`
	Actor     TimelineActor `json:"actor"`
	CreatedAt string        `json:"createdAt"`
}

type QuotePaymentDetailsDTO struct {
	ID               uuid.UUID        `json:"id"`
	BankName         string           `json:"bankName"`
	IBAN             string           `json:"iban"`
	Beneficiary      string           `json:"beneficiary"`
	AmountDue        *decimal.Decimal `json:"amountDue,omitempty"`
	Currency         string           `json:"currency"`
	DueDate          *string          `json:"dueDate,omitempty"`
	PaymentReference string           `json:"paymentReference,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	HasContract      bool             `json:"hasContract"`
	ContractFilename string           `json:"contractFilename,omitempty"`
	CreatedAt        string           `json:"createdAt"`
}

// QuoteRequestDetailDTO is the full view of one request.
// Agencies receive only the current offer; admins also receive the offer history.
type QuoteRequestDetailDTO struct {
	QuoteRequestDTO
	CurrentOffer   *QuoteOfferDTO          `json:"currentOffer,omitempty"`
	Offers         []QuoteOfferDTO         `json:"offers,omitempty"`
	Participants   []QuoteParticipantDTO   `json:"participants"`
	Timeline       []QuoteTimelineEntryDTO `json:"timeline"`
	PaymentDetails *QuotePaymentDetailsDTO `json:"paymentDetails,omitempty"`
}

type NotificationOutboxDTO struct {
	ID             uuid.UUID        `json:"id"`
	QuoteRequestID *uuid.UUID       `json:"quoteRequestId,omitempty"`
	Kind           NotificationKind `json:"kind"`
	RecipientEmail string           `json:"recipientEmail"`
	RecipientName  string           `json:"recipientName,omitempty"`
	Subject        string           `json:"subject"`
	Status         OutboxStatus     `json:"status"`
	Attempts       int              `json:"attempts"`
	LastError      *string          `json:"lastError,omitempty"`
	SentAt         *string          `json:"sentAt,omitempty"`
	CreatedAt      string           `json:"createdAt"`
}

// OperationResult is the uniform outcome returned by agency lifecycle operations
type OperationResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Pagination response wrapper
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Request DTOs

// ParticipantInput is one traveler row submitted with an acceptance
type ParticipantInput struct {
	FullName       string  `json:"fullName"`
	DocumentType   *string `json:"documentType,omitempty"`
	DocumentNumber *string `json:"documentNumber,omitempty"`
	IsChild        *bool   `json:"isChild,omitempty"`
}

type AcceptOfferRequest struct {
	Participants []ParticipantInput `json:"participants"`
}

type DeclineOfferRequest struct {
	Motivation *string `json:"motivation,omitempty" validate:"omitempty,max=2000"`
}

type MakeOfferRequest struct {
	TotalPrice     *decimal.Decimal `json:"totalPrice,omitempty"`
	PriceOnRequest bool             `json:"priceOnRequest,omitempty"`
	Currency       string           `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Conditions     string           `json:"conditions,omitempty" validate:"max=5000"`
	PaymentTerms   string           `json:"paymentTerms,omitempty" validate:"max=5000"`
	OfferExpiry    *string          `json:"offerExpiry,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes          string           `json:"notes,omitempty" validate:"max=5000"`
}

type SendPaymentDetailsRequest struct {
	BankName         string           `json:"bankName" validate:"required,max=200"`
	IBAN             string           `json:"iban" validate:"required,min=15,max=34,alphanum"`
	Beneficiary      string           `json:"beneficiary" validate:"required,max=200"`
	AmountDue        *decimal.Decimal `json:"amountDue,omitempty"`
	Currency         string           `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	DueDate          *string          `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentReference string           `json:"paymentReference,omitempty" validate:"max=200"`
	Notes            string           `json:"notes,omitempty" validate:"max=5000"`
}

type RejectQuoteRequest struct {
	Motivation string `json:"motivation" validate:"required,max=2000"`
}
