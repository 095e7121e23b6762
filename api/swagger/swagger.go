package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Recurring To-Do API",
        "description": "Recurring to-do series and their merged occurrence listings",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Series", "description": "Recurring to-do definitions"},
        {"name": "Occurrences", "description": "Merged generated and stored occurrences"},
        {"name": "Observability", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/series": {
            "get": {
                "tags": ["Series"],
                "summary": "List series",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "recurring", "in": "query", "type": "boolean"},
                    {"name": "include_deleted", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Series"],
                "summary": "Create series",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SeriesRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/series/{id}": {
            "get": {
                "tags": ["Series"],
                "summary": "Get series",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Series"],
                "summary": "Replace series",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SeriesRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "patch": {
                "tags": ["Series"],
                "summary": "Patch series",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Series"],
                "summary": "Soft delete series and its stored occurrences",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/series/{id}/restore": {
            "post": {
                "tags": ["Series"],
                "summary": "Restore a soft deleted series",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/series/{id}/preview": {
            "get": {
                "tags": ["Series"],
                "summary": "Dates the series generates in a window",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/occurrences": {
            "get": {
                "tags": ["Occurrences"],
                "summary": "List merged occurrences in a date range",
                "parameters": [
                    {"name": "start_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "end_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "keyword", "in": "query", "type": "string"},
                    {"name": "category_ids", "in": "query", "type": "string"},
                    {"name": "priorities", "in": "query", "type": "string"},
                    {"name": "statuses", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/occurrences/calendar": {
            "get": {
                "tags": ["Occurrences"],
                "summary": "Per-day occurrence flags for a month",
                "parameters": [
                    {"name": "year", "in": "query", "required": true, "type": "integer"},
                    {"name": "month", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/occurrences/statistics": {
            "get": {
                "tags": ["Occurrences"],
                "summary": "Totals for a single day",
                "parameters": [{"name": "date", "in": "query", "required": true, "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/occurrences/export": {
            "get": {
                "tags": ["Occurrences"],
                "summary": "Download an agenda range",
                "produces": ["text/csv", "application/pdf", "text/calendar"],
                "parameters": [
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf", "ics"]},
                    {"name": "start_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "end_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "keyword", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/occurrences/{identity}": {
            "get": {
                "tags": ["Occurrences"],
                "summary": "Resolve a stored id or virtual identity",
                "parameters": [{"name": "identity", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Occurrences"],
                "summary": "Override occurrence fields, promoting a virtual occurrence",
                "parameters": [
                    {"name": "identity", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Occurrences"],
                "summary": "Cancel one occurrence or this and following",
                "parameters": [
                    {"name": "identity", "in": "path", "required": true, "type": "string"},
                    {"name": "scope", "in": "query", "type": "string", "enum": ["single", "following"]}
                ],
                "responses": {"204": {"description": "Cancelled"}}
            }
        },
        "/occurrences/{identity}/complete": {
            "post": {
                "tags": ["Occurrences"],
                "summary": "Mark occurrence completed",
                "parameters": [{"name": "identity", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/occurrences/{identity}/uncomplete": {
            "post": {
                "tags": ["Occurrences"],
                "summary": "Clear completion",
                "parameters": [{"name": "identity", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/occurrences/{identity}/restore": {
            "post": {
                "tags": ["Occurrences"],
                "summary": "Undo a single cancellation",
                "parameters": [{"name": "identity", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/metrics/snapshot": {
            "get": {
                "tags": ["Observability"],
                "summary": "Aggregated counters",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "RecurrenceRule": {
            "type": "object",
            "required": ["frequency"],
            "properties": {
                "frequency": {"type": "string", "enum": ["SECONDLY", "MINUTELY", "HOURLY", "DAILY", "WEEKLY", "MONTHLY", "YEARLY"]},
                "interval": {"type": "integer", "minimum": 1, "maximum": 10000},
                "byWeekDays": {"type": "array", "items": {"type": "string"}, "example": ["MO", "-1FR"]},
                "byMonth": {"type": "array", "items": {"type": "integer"}},
                "byMonthDay": {"type": "array", "items": {"type": "integer"}},
                "byYearDay": {"type": "array", "items": {"type": "integer"}},
                "byWeekNo": {"type": "array", "items": {"type": "integer"}},
                "byHour": {"type": "array", "items": {"type": "integer"}},
                "byMinute": {"type": "array", "items": {"type": "integer"}},
                "bySecond": {"type": "array", "items": {"type": "integer"}},
                "bySetPos": {"type": "array", "items": {"type": "integer"}},
                "weekStart": {"type": "string", "example": "MO"},
                "timezone": {"type": "string"}
            }
        },
        "SeriesRequest": {
            "type": "object",
            "required": ["title", "anchor_date"],
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "priority": {"type": "integer"},
                "category_id": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "due_time": {"type": "string", "example": "09:30"},
                "anchor_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "recurrence_rule": {"$ref": "#/definitions/RecurrenceRule"},
                "active": {"type": "boolean"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
