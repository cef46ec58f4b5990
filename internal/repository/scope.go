package repository

import (
	"strings"

	"github.com/google/uuid"
	"github.com/travelportal/quote-api/internal/domain"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // The field to sort by (API field name)
	Order SortOrder // asc or desc
}

// DefaultSortConfig returns a default sort configuration (updated_at DESC)
func DefaultSortConfig() SortConfig {
	return SortConfig{
		Field: "updatedAt",
		Order: SortOrderDesc,
	}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause builds the SQL ORDER BY clause from field mapping and sort config.
// fieldMap maps API field names to database column names; unknown fields fall back to defaultColumn.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

var quoteRequestSortFields = map[string]string{
	"createdAt":     "quote_requests.created_at",
	"updatedAt":     "quote_requests.updated_at",
	"status":        "quote_requests.status",
	"departureDate": "quote_requests.departure_date",
}

// QuoteRequestFilter narrows list queries over quote requests
type QuoteRequestFilter struct {
	Status   *domain.QuoteStatus
	Page     int
	PageSize int
	Sort     SortConfig
}

// normalize clamps pagination values into the accepted range
func (f *QuoteRequestFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	if f.Sort.Field == "" {
		f.Sort = DefaultSortConfig()
	}
}

// statusCondition expands a status filter so the legacy "offered" spelling matches offer_sent
func statusCondition(query *gorm.DB, status *domain.QuoteStatus) *gorm.DB {
	if status == nil {
		return query
	}
	if status.Canonical() == domain.QuoteStatusOfferSent {
		return query.Where("quote_requests.status IN ?", []domain.QuoteStatus{domain.QuoteStatusOfferSent, domain.QuoteStatusOffered})
	}
	return query.Where("quote_requests.status = ?", *status)
}

// ApplyAgencyScope restricts a query to rows owned by the agency.
// column is the (optionally table-qualified) agency_id column of the queried table.
func ApplyAgencyScope(query *gorm.DB, agencyID uuid.UUID, column string) *gorm.DB {
	return query.Where(column+" = ?", agencyID)
}

// ownedRequestIDs is a subquery selecting the ids of the agency's quote requests
func ownedRequestIDs(db *gorm.DB, agencyID uuid.UUID) *gorm.DB {
	return ApplyAgencyScope(db.Model(&domain.QuoteRequest{}).Select("id"), agencyID, "agency_id")
}
