// Package docs docqa API 的 Swagger 文档
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
        "/documents": {
            "get": {
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "List documents with their session state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Upload a PDF and build its index",
                "parameters": [
                    {"type": "file", "description": "PDF file", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Document ID, generated when empty", "name": "document_id", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.UploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "413": {"description": "Too Large", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Unprocessable", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "502": {"description": "Embedding failure", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/documents/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Get document metadata and session state",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Delete a document, its index and history",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/documents/{id}/reindex": {
            "post": {
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Rebuild the index from the stored file",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.UploadResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/documents/{id}/ask": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["qa"],
                "summary": "Ask a question about the document",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"description": "Question", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.AskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/qa.Answer"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "502": {"description": "Generation failure", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/documents/{id}/summarize": {
            "get": {
                "produces": ["application/json"],
                "tags": ["qa"],
                "summary": "Summarize the document",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/documents/{id}/faq": {
            "get": {
                "produces": ["application/json"],
                "tags": ["qa"],
                "summary": "Generate frequently asked questions",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/documents/{id}/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["qa"],
                "summary": "Conversation history of the document session",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/settings/api-key": {
            "get": {
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "Whether an API key is configured",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "Store the generation API key",
                "parameters": [{"description": "API key", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.SetAPIKeyRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "Remove the stored API key",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        }
    },
    "definitions": {
        "handler.AskRequest": {
            "type": "object",
            "required": ["question"],
            "properties": {"question": {"type": "string"}}
        },
        "handler.SetAPIKeyRequest": {
            "type": "object",
            "required": ["api_key"],
            "properties": {"api_key": {"type": "string"}}
        },
        "handler.UploadResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "document_id": {"type": "string"},
                "chunks": {"type": "integer"},
                "pages": {"type": "integer"},
                "reindex": {"type": "boolean"}
            }
        },
        "qa.Answer": {
            "type": "object",
            "properties": {
                "answer": {"type": "string"},
                "sources": {"type": "array", "items": {"$ref": "#/definitions/qa.Source"}}
            }
        },
        "qa.Source": {
            "type": "object",
            "properties": {
                "chunk_index": {"type": "integer"},
                "score": {"type": "number"},
                "preview": {"type": "string"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "data": {}
            }
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "detail": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:19970",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "docqa API",
	Description:      "单文档 PDF 问答服务",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
