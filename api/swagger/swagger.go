package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "UniTime API",
        "description": "Timetable reconstruction and section combination planning",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Catalogs", "description": "Catalog import and browsing"},
        {"name": "Timetable", "description": "Calendar grid materialization and export"},
        {"name": "Planner", "description": "Section combination search"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A backend is unreachable"}
                }
            }
        },
        "/catalogs": {
            "get": {
                "tags": ["Catalogs"],
                "summary": "List stored catalogs",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalogs"],
                "summary": "Import a catalog from scraped portal tables",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ImportCatalogRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload"},
                    "404": {"description": "No valid rows"}
                }
            }
        },
        "/catalogs/import/spreadsheet": {
            "post": {
                "tags": ["Catalogs"],
                "summary": "Import a catalog from an institution workbook",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "title", "in": "formData", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unreadable workbook"}
                }
            }
        },
        "/catalogs/{id}": {
            "get": {
                "tags": ["Catalogs"],
                "summary": "Catalog summary",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Catalog not found"}
                }
            }
        },
        "/catalogs/{id}/subjects": {
            "get": {
                "tags": ["Catalogs"],
                "summary": "List a catalog's subjects and their sections",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/catalogs/{id}/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Materialized calendar grid for chosen sections",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "sections", "in": "query", "required": true, "type": "array", "items": {"type": "string"}, "description": "major|subject|sectionId entries"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Catalog or section not found"}
                }
            }
        },
        "/catalogs/{id}/timetable/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Export the grid as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "sections", "in": "query", "required": true, "type": "array", "items": {"type": "string"}},
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Signed download location", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/catalogs/{id}/suggestions": {
            "post": {
                "tags": ["Planner"],
                "summary": "Suggest a section combination for requested subjects",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SuggestionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No combination found"},
                    "503": {"description": "Planner queue full or timed out"}
                }
            }
        },
        "/downloads": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Download a previously exported file",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File contents"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "ImportCatalogRequest": {
            "type": "object",
            "required": ["title", "majors"],
            "properties": {
                "title": {"type": "string"},
                "majors": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "name": {"type": "string"},
                            "rows": {"type": "array", "items": {"type": "array", "items": {"type": "string"}}}
                        }
                    }
                }
            }
        },
        "SuggestionRequest": {
            "type": "object",
            "required": ["subjects"],
            "properties": {
                "subjects": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "major": {"type": "string"},
                            "subject": {"type": "string"}
                        }
                    }
                },
                "preference": {"type": "string", "enum": ["NONE", "MORNING_FREE", "AFTERNOON_FREE", "EVENING_FREE"]},
                "attempt": {"type": "integer"},
                "planId": {"type": "string"}
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
                "status": {"type": "integer"}
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
