// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/agency/quotes": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Agency"],
                "summary": "List own quote requests",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "name": "pageSize", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PaginatedResponse"}},
                    "403": {"description": "No agency for this account", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            }
        },
        "/agency/quotes/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Agency"],
                "summary": "Get own quote request",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.QuoteRequestDetailDTO"}},
                    "404": {"description": "Not found or not owned by the caller", "schema": {"$ref": "#/definitions/domain.APIError"}}
                }
            }
        },
        "/agency/quotes/{id}/accept": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Agency"],
                "summary": "Accept the current offer",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.AcceptOfferRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.OperationResult"}},
                    "409": {"description": "Offer not open, expired, or changed concurrently", "schema": {"$ref": "#/definitions/domain.OperationResult"}},
                    "422": {"description": "Invalid participant", "schema": {"$ref": "#/definitions/domain.OperationResult"}}
                }
            }
        },
        "/agency/quotes/{id}/decline": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Agency"],
                "summary": "Decline the current offer",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/domain.DeclineOfferRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.OperationResult"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/domain.OperationResult"}}
                }
            }
        },
        "/admin/quotes": {
            "get": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "tags": ["Admin"],
                "summary": "List quote requests",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "pageSize", "in": "query"},
                    {"type": "string", "name": "sortBy", "in": "query"},
                    {"type": "string", "name": "sortOrder", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PaginatedResponse"}}}
            }
        },
        "/admin/quotes/{id}": {
            "get": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "tags": ["Admin"],
                "summary": "Get quote request with offer history",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.QuoteRequestDetailDTO"}}}
            }
        },
        "/admin/quotes/{id}/offers": {
            "post": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "tags": ["Admin"],
                "summary": "Send an offer",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.MakeOfferRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.QuoteOfferDTO"}}}
            }
        },
        "/admin/quotes/{id}/payment-details": {
            "post": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "consumes": ["application/json", "multipart/form-data"],
                "tags": ["Admin"],
                "summary": "Send payment details",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.SendPaymentDetailsRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.QuotePaymentDetailsDTO"}}}
            }
        },
        "/admin/quotes/{id}/reject": {
            "post": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "tags": ["Admin"],
                "summary": "Reject request",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.RejectQuoteRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/admin/notifications": {
            "get": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "tags": ["Notifications"],
                "summary": "List outbox notifications",
                "parameters": [{"enum": ["pending", "processing", "sent", "failed", "abandoned"], "type": "string", "name": "status", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PaginatedResponse"}}}
            }
        },
        "/admin/notifications/{id}/retry": {
            "post": {
                "security": [{"BearerAuth": []}, {"ApiKeyAuth": []}],
                "tags": ["Notifications"],
                "summary": "Retry a notification",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.NotificationOutboxDTO"}}}
            }
        }
    },
    "definitions": {
        "domain.APIError": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "title": {"type": "string"},
                "status": {"type": "integer"},
                "detail": {"type": "string"},
                "errors": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "domain.OperationResult": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "error": {"type": "string"}}
        },
        "domain.PaginatedResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalPages": {"type": "integer"}
            }
        },
        "domain.ParticipantInput": {
            "type": "object",
            "properties": {
                "fullName": {"type": "string"},
                "documentType": {"type": "string"},
                "documentNumber": {"type": "string"},
                "isChild": {"type": "boolean"}
            }
        },
        "domain.AcceptOfferRequest": {
            "type": "object",
            "properties": {"participants": {"type": "array", "items": {"$ref": "#/definitions/domain.ParticipantInput"}}}
        },
        "domain.DeclineOfferRequest": {
            "type": "object",
            "properties": {"motivation": {"type": "string"}}
        },
        "domain.MakeOfferRequest": {
            "type": "object",
            "properties": {
                "totalPrice": {"type": "string"},
                "priceOnRequest": {"type": "boolean"},
                "currency": {"type": "string"},
                "conditions": {"type": "string"},
                "paymentTerms": {"type": "string"},
                "offerExpiry": {"type": "string", "example": "2026-12-31"},
                "notes": {"type": "string"}
            }
        },
        "domain.SendPaymentDetailsRequest": {
            "type": "object",
            "required": ["bankName", "iban", "beneficiary"],
            "properties": {
                "bankName": {"type": "string"},
                "iban": {"type": "string"},
                "beneficiary": {"type": "string"},
                "amountDue": {"type": "string"},
                "currency": {"type": "string"},
                "dueDate": {"type": "string"},
                "paymentReference": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "domain.RejectQuoteRequest": {
            "type": "object",
            "required": ["motivation"],
            "properties": {"motivation": {"type": "string"}}
        },
        "domain.QuoteOfferDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "quoteRequestId": {"type": "string"},
                "totalPrice": {"type": "string"},
                "priceOnRequest": {"type": "boolean"},
                "currency": {"type": "string"},
                "offerExpiry": {"type": "string"},
                "expired": {"type": "boolean"},
                "createdAt": {"type": "string"}
            }
        },
        "domain.QuotePaymentDetailsDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "bankName": {"type": "string"},
                "iban": {"type": "string"},
                "beneficiary": {"type": "string"},
                "amountDue": {"type": "string"},
                "hasContract": {"type": "boolean"}
            }
        },
        "domain.QuoteRequestDetailDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "agencyId": {"type": "string"},
                "status": {"type": "string"},
                "currentOffer": {"$ref": "#/definitions/domain.QuoteOfferDTO"},
                "offers": {"type": "array", "items": {"$ref": "#/definitions/domain.QuoteOfferDTO"}},
                "participants": {"type": "array", "items": {"type": "object"}},
                "timeline": {"type": "array", "items": {"type": "object"}},
                "paymentDetails": {"$ref": "#/definitions/domain.QuotePaymentDetailsDTO"}
            }
        },
        "domain.NotificationOutboxDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "recipientEmail": {"type": "string"},
                "subject": {"type": "string"},
                "status": {"type": "string"},
                "attempts": {"type": "integer"},
                "lastError": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "x-api-key", "in": "header"},
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Travel Portal Quote API",
	Description:      "Quote request lifecycle and offer negotiation between travel agencies and the tour operator back office.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
