package mapper

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/travelportal/quote-api/internal/domain"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(dateLayout)
	return &s
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

// ToAgencyDTO converts Agency to AgencyDTO
func ToAgencyDTO(agency *domain.Agency) domain.AgencyDTO {
	return domain.AgencyDTO{
		ID:           agency.ID,
		BusinessName: agency.BusinessName,
		Email:        agency.Email,
		City:         agency.City,
		Status:       agency.Status,
	}
}

// ToQuoteRequestDTO converts QuoteRequest to QuoteRequestDTO.
// The legacy "offered" status is reported as offer_sent.
func ToQuoteRequestDTO(request *domain.QuoteRequest) domain.QuoteRequestDTO {
	dto := domain.QuoteRequestDTO{
		ID:                   request.ID,
		AgencyID:             request.AgencyID,
		RequestType:          request.RequestType,
		ProductID:            request.ProductID,
		ProductName:          request.ProductName,
		DepartureID:          request.DepartureID,
		DepartureDate:        formatDatePtr(request.DepartureDate),
		ParticipantsAdults:   request.ParticipantsAdults,
		ParticipantsChildren: request.ParticipantsChildren,
		CabinType:            request.CabinType,
		CabinCategory:        request.CabinCategory,
		RoomSelection:        request.RoomSelection,
		Notes:                request.Notes,
		Status:               request.Status.Canonical(),
		DeclineReason:        request.DeclineReason,
		RejectReason:         request.RejectReason,
		CreatedAt:            formatTimestamp(request.CreatedAt),
		UpdatedAt:            formatTimestamp(request.UpdatedAt),
	}
	if request.Agency != nil {
		dto.AgencyName = request.Agency.BusinessName
	}
	return dto
}

// ToQuoteOfferDTO converts QuoteOffer to QuoteOfferDTO, flagging expiry against now
func ToQuoteOfferDTO(offer *domain.QuoteOffer, now time.Time) domain.QuoteOfferDTO {
	return domain.QuoteOfferDTO{
		ID:             offer.ID,
		QuoteRequestID: offer.QuoteRequestID,
		TotalPrice:     decimalPtr(offer.TotalPrice),
		PriceOnRequest: offer.PriceOnRequest,
		Currency:       offer.Currency,
		Conditions:     offer.Conditions,
		PaymentTerms:   offer.PaymentTerms,
		OfferExpiry:    formatDatePtr(offer.OfferExpiry),
		Expired:        offer.IsExpired(now),
		Notes:          offer.Notes,
		CreatedByName:  offer.CreatedByName,
		CreatedAt:      formatTimestamp(offer.CreatedAt),
	}
}

// ToQuoteParticipantDTOs converts participants preserving order
func ToQuoteParticipantDTOs(participants []domain.QuoteParticipant) []domain.QuoteParticipantDTO {
	dtos := make([]domain.QuoteParticipantDTO, 0, len(participants))
	for _, p := range participants {
		dtos = append(dtos, domain.QuoteParticipantDTO{
			ID:             p.ID,
			FullName:       p.FullName,
			DocumentType:   p.DocumentType,
			DocumentNumber: p.DocumentNumber,
			IsChild:        p.IsChild,
			SortOrder:      p.SortOrder,
		})
	}
	return dtos
}

// ToQuoteTimelineDTOs converts timeline entries preserving order
func ToQuoteTimelineDTOs(entries []domain.QuoteTimelineEntry) []domain.QuoteTimelineEntryDTO {
	dtos := make([]domain.QuoteTimelineEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, domain.QuoteTimelineEntryDTO{
			ID:        e.ID,
			Action:    e.Action,
			Details:   e.Details,
			Actor:     e.Actor,
			CreatedAt: formatTimestamp(e.CreatedAt),
		})
	}
	return dtos
}

// ToQuotePaymentDetailsDTO converts QuotePaymentDetails to its DTO
func ToQuotePaymentDetailsDTO(details *domain.QuotePaymentDetails) domain.QuotePaymentDetailsDTO {
	return domain.QuotePaymentDetailsDTO{
		ID:               details.ID,
		BankName:         details.BankName,
		IBAN:             details.IBAN,
		Beneficiary:      details.Beneficiary,
		AmountDue:        decimalPtr(details.AmountDue),
		Currency:         details.Currency,
		DueDate:          formatDatePtr(details.DueDate),
		PaymentReference: details.PaymentReference,
		Notes:            details.Notes,
		HasContract:      details.ContractPath != nil,
		ContractFilename: details.ContractFilename,
		CreatedAt:        formatTimestamp(details.CreatedAt),
	}
}

// ToNotificationOutboxDTO converts an outbox row to its DTO. The body is omitted.
func ToNotificationOutboxDTO(m *domain.NotificationOutbox) domain.NotificationOutboxDTO {
	dto := domain.NotificationOutboxDTO{
		ID:             m.ID,
		QuoteRequestID: m.QuoteRequestID,
		Kind:           m.Kind,
		RecipientEmail: m.RecipientEmail,
		RecipientName:  m.RecipientName,
		Subject:        m.Subject,
		Status:         m.Status,
		Attempts:       m.Attempts,
		LastError:      m.LastError,
		CreatedAt:      formatTimestamp(m.CreatedAt),
	}
	if m.SentAt != nil {
		s := formatTimestamp(*m.SentAt)
		dto.SentAt = &s
	}
	return dto
}
