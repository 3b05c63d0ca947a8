// Package docs holds the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "octaview",
            "url": "t.me/octaview",
            "email": "octaviewes@gmail.com"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/boards": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Boards"],
                "summary": "Boards of the current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.BoardResponse"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Boards"],
                "summary": "Create board",
                "parameters": [
                    {"name": "board", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.BoardRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/api.BoardResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/boards/{id}/activity": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Activity"],
                "summary": "Latest activity of a board, newest first",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.ActivityResponse"}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/boards/{id}/stream": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/event-stream"],
                "tags": ["Stream"],
                "summary": "Board change stream",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "token", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "event: change", "schema": {"$ref": "#/definitions/api.ChangeMessage"}}
                }
            }
        },
        "/lists/{id}/move": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Lists"],
                "summary": "Move list to another position",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "move", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.ListMoveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.ListResponse"}}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/tasks/{id}/move": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tasks"],
                "summary": "Move task to a list and position",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "move", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.TaskMoveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.TaskResponse"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "api.BoardRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {"name": {"type": "string"}, "description": {"type": "string"}}
        },
        "api.BoardResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "owner_id": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "api.ListMoveRequest": {
            "type": "object",
            "required": ["index"],
            "properties": {"index": {"type": "integer", "minimum": 0}}
        },
        "api.ListResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "board_id": {"type": "string"},
                "name": {"type": "string"},
                "position": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "api.TaskMoveRequest": {
            "type": "object",
            "required": ["list_id", "index"],
            "properties": {"list_id": {"type": "string"}, "index": {"type": "integer", "minimum": 0}}
        },
        "api.TaskResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "board_id": {"type": "string"},
                "list_id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "priority": {"type": "string"},
                "position": {"type": "integer"},
                "due_date": {"type": "string"},
                "assigned_to": {"type": "string"},
                "created_by": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "api.ActivityResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "board_id": {"type": "string"},
                "user_id": {"type": "string"},
                "actor_name": {"type": "string"},
                "actor_email": {"type": "string"},
                "action": {"type": "string"},
                "entity_type": {"type": "string"},
                "entity_id": {"type": "string"},
                "details": {"type": "object"},
                "created_at": {"type": "string"}
            }
        },
        "api.ChangeMessage": {
            "type": "object",
            "properties": {"collection": {"type": "string"}, "operation": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Kanban Live API",
	Description:      "Collaborative kanban boards with ordered lists and tasks, live change streams and an activity trail.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
