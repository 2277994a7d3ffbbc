package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Publisher API",
        "description": "Scheduled publication, notification fan-out and storage quota administration.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Publisher", "description": "Scheduled publication sweep"},
        {"name": "Content", "description": "Material and assignment publication"},
        {"name": "Submissions", "description": "Student uploads"},
        {"name": "Storage", "description": "Storage quota configuration and usage"},
        {"name": "Downloads", "description": "Signed file downloads"}
    ],
    "paths": {
        "/publisher/sweep": {
            "post": {
                "tags": ["Publisher"],
                "summary": "Run the scheduled publication sweep",
                "parameters": [
                    {"name": "now", "in": "query", "type": "string", "format": "date-time"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid reference time", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/content/{kind}/scheduled": {
            "get": {
                "tags": ["Content"],
                "summary": "List scheduled content",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["materials", "assignments"]},
                    {"name": "course_id", "in": "query", "type": "string", "format": "uuid"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/content/{kind}/{id}/publication": {
            "put": {
                "tags": ["Content"],
                "summary": "Publish, schedule or unpublish content",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["materials", "assignments"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdatePublicationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the course teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/content/{kind}/{id}/notify": {
            "post": {
                "tags": ["Content"],
                "summary": "Re-send the publication email",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["materials", "assignments"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Content not published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/content/{kind}/{id}": {
            "delete": {
                "tags": ["Content"],
                "summary": "Delete content and its stored files",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["materials", "assignments"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/assignments/{id}/submissions": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Upload a submission for an assignment",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/storage/config": {
            "get": {
                "tags": ["Storage"],
                "summary": "Get storage configuration",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not configured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Storage"],
                "summary": "Create storage configuration",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStorageConfigRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already configured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Storage"],
                "summary": "Update storage configuration",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStorageConfigRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/storage/usage": {
            "get": {
                "tags": ["Storage"],
                "summary": "Current storage usage",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/storage/usage/export": {
            "get": {
                "tags": ["Storage"],
                "summary": "Download a storage usage report",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report file", "schema": {"type": "file"}}
                }
            }
        },
        "/storage/check": {
            "post": {
                "tags": ["Storage"],
                "summary": "Run the storage threshold check now",
                "description": "Respects the alert cooldown, exactly like the periodic check.",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/downloads/{token}": {
            "get": {
                "tags": ["Downloads"],
                "summary": "Download a file through a signed link",
                "security": [],
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "UpdatePublicationRequest": {
            "type": "object",
            "properties": {
                "is_published": {"type": "boolean"},
                "scheduled_publish_at": {"type": "string", "format": "date-time"},
                "send_notification_email": {"type": "boolean"}
            }
        },
        "CreateStorageConfigRequest": {
            "type": "object",
            "required": ["total_storage_gb"],
            "properties": {
                "total_storage_gb": {"type": "integer", "minimum": 1},
                "alert_threshold_percent": {"type": "integer", "minimum": 0, "maximum": 100},
                "alert_email": {"type": "string", "format": "email"},
                "alert_enabled": {"type": "boolean"}
            }
        },
        "UpdateStorageConfigRequest": {
            "type": "object",
            "properties": {
                "total_storage_gb": {"type": "integer", "minimum": 1},
                "alert_threshold_percent": {"type": "integer", "minimum": 0, "maximum": 100},
                "alert_email": {"type": "string", "format": "email"},
                "clear_alert_email": {"type": "boolean"},
                "alert_enabled": {"type": "boolean"}
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
                "meta": {"type": "object"},
                "request_id": {"type": "string"}
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
