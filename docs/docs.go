// Package docs registers the OpenAPI description served under /swagger.
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
        "/api/queue/{venueId}/open": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Opens the venue queue, dropping anyone still waiting. maxQueueLength defaults to 250.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["queue"],
                "summary": "Open queue",
                "parameters": [
                    {"type": "string", "description": "Venue ID", "name": "venueId", "in": "path", "required": true},
                    {"description": "Capacity", "name": "input", "in": "body", "schema": {"$ref": "#/definitions/handlers.openQueueRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.QueueLengthResponse"}},
                    "400": {"description": "INVALID_REQUEST", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "403": {"description": "FORBIDDEN", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "STORE_UNAVAILABLE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/queue/{venueId}/close": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["queue"],
                "summary": "Close queue",
                "parameters": [
                    {"type": "string", "description": "Venue ID", "name": "venueId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.SuccessResponse"}},
                    "403": {"description": "FORBIDDEN", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "QUEUE_NOT_FOUND", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "STORE_UNAVAILABLE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/queue/{venueId}/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Users only see open queues; employees only their own venue.",
                "produces": ["application/json"],
                "tags": ["queue"],
                "summary": "Queue status",
                "parameters": [
                    {"type": "string", "description": "Venue ID", "name": "venueId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.QueueStatusResponse"}},
                    "403": {"description": "FORBIDDEN", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "QUEUE_NOT_FOUND", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "STORE_UNAVAILABLE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/queue/{venueId}/join": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["queue"],
                "summary": "Join queue",
                "parameters": [
                    {"type": "string", "description": "Venue ID", "name": "venueId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.QueueLengthResponse"}},
                    "400": {"description": "QUEUE_NOT_OPEN, QUEUE_FULL, RECENTLY_SERVED", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "ALREADY_IN_QUEUE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "STORE_UNAVAILABLE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/queue/{venueId}/leave": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["queue"],
                "summary": "Leave queue",
                "parameters": [
                    {"type": "string", "description": "Venue ID", "name": "venueId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.QueueLengthResponse"}},
                    "400": {"description": "QUEUE_NOT_OPEN, NOT_IN_QUEUE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "STORE_UNAVAILABLE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/queue/{venueId}/members/{userId}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["queue"],
                "summary": "Remove member",
                "parameters": [
                    {"type": "string", "description": "Venue ID", "name": "venueId", "in": "path", "required": true},
                    {"type": "string", "description": "Member to remove", "name": "userId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.QueueLengthResponse"}},
                    "400": {"description": "QUEUE_NOT_OPEN", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "403": {"description": "FORBIDDEN", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "QUEUE_NOT_FOUND", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "STORE_UNAVAILABLE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/queue/{venueId}/validate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Accepts either the scanned turn token or the member's user id.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["queue"],
                "summary": "Validate next",
                "parameters": [
                    {"type": "string", "description": "Venue ID", "name": "venueId", "in": "path", "required": true},
                    {"description": "Token or user id", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.validateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.SuccessResponse"}},
                    "400": {"description": "INVALID_REQUEST, QUEUE_NOT_OPEN, INVALID_TURN", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "403": {"description": "FORBIDDEN", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "QUEUE_NOT_FOUND", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "STORE_UNAVAILABLE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/queue/{venueId}/position": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["queue"],
                "summary": "Queue position",
                "parameters": [
                    {"type": "string", "description": "Venue ID", "name": "venueId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.PositionResponse"}},
                    "400": {"description": "QUEUE_NOT_OPEN, NOT_IN_QUEUE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "STORE_UNAVAILABLE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/queue/{venueId}/turn-token": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Short-lived signed token shown as a QR code and scanned by staff at validation.",
                "produces": ["application/json"],
                "tags": ["queue"],
                "summary": "Turn token",
                "parameters": [
                    {"type": "string", "description": "Venue ID", "name": "venueId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.TurnTokenResponse"}},
                    "400": {"description": "QUEUE_NOT_OPEN, NOT_IN_QUEUE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "STORE_UNAVAILABLE", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/api/queue/{venueId}/ws": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Websocket carrying queue-status and queue-updated events as {\"event\",\"data\"} frames.",
                "tags": ["queue"],
                "summary": "Venue event stream",
                "parameters": [
                    {"type": "string", "description": "Venue ID", "name": "venueId", "in": "path", "required": true}
                ],
                "responses": {}
            }
        },
        "/api/ws": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["queue"],
                "summary": "All venues event stream",
                "responses": {}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.SuccessResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.openQueueRequest": {
            "type": "object",
            "properties": {
                "maxQueueLength": {"type": "integer", "example": 250}
            }
        },
        "handlers.validateRequest": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "userId": {"type": "string"}
            }
        },
        "queue.Member": {
            "type": "object",
            "properties": {
                "displayName": {"type": "string"},
                "userId": {"type": "string"}
            }
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"description": "Machine readable code, e.g. QUEUE_FULL", "type": "string"},
                "details": {"description": "Optional detail, e.g. the underlying store error", "type": "string"},
                "message": {"description": "Human readable message", "type": "string"},
                "retryable": {"description": "True when the same request may succeed if retried later", "type": "boolean"}
            }
        },
        "response.PositionResponse": {
            "type": "object",
            "properties": {
                "length": {"type": "integer", "example": 5},
                "position": {"type": "integer", "example": 2},
                "venueId": {"type": "string"}
            }
        },
        "response.QueueLengthResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "joined queue"},
                "queueLength": {"type": "integer", "example": 3}
            }
        },
        "response.QueueStatusResponse": {
            "type": "object",
            "properties": {
                "isOpen": {"type": "boolean"},
                "length": {"type": "integer"},
                "maxLength": {"type": "integer"},
                "members": {"type": "array", "items": {"$ref": "#/definitions/queue.Member"}},
                "venueId": {"type": "string"}
            }
        },
        "response.SuccessResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "queue closed"}
            }
        },
        "response.TurnTokenResponse": {
            "type": "object",
            "properties": {
                "expiresAt": {"type": "integer"},
                "token": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "",
	Schemes:          []string{},
	Title:            "Leap venue queue API",
	Description:      "",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
