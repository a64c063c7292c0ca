// Package docs registers the kiosk-api OpenAPI document with swag.
// Regenerate with: swag init -g services/kiosk-api/cmd/main.go -o services/kiosk-api/docs
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
        "/items": {
            "get": {"tags": ["catalog"], "summary": "List the catalog", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/items/{id}": {
            "get": {"tags": ["catalog"], "summary": "Fetch one catalog item", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/orders": {
            "get": {"tags": ["orders"], "summary": "Order history of the caller, newest first", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-User-Id", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["orders"], "summary": "Place an order and receive its OTP",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/views.CreateOrderRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"},
                    "402": {"description": "Payment Required"}, "404": {"description": "Not Found"}}}
        },
        "/orders/{id}": {
            "get": {"tags": ["orders"], "summary": "Fetch one of the caller's orders", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}
        },
        "/wallet": {
            "get": {"tags": ["wallet"], "summary": "Current wallet balance", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-User-Id", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/wallet/top-up": {
            "post": {"tags": ["wallet"], "summary": "Credit the caller's wallet",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/views.TopUpRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/wallet/transactions": {
            "get": {"tags": ["wallet"], "summary": "Ledger entries of the caller, newest first", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-User-Id", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/machine/redeem": {
            "post": {"tags": ["machine"], "summary": "Consume an OTP at a vending machine",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "X-Machine-Key", "in": "header", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/views.RedeemRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}, "404": {"description": "Not Found"},
                    "409": {"description": "Conflict"}, "410": {"description": "Gone"}}}
        }
    },
    "definitions": {
        "views.CreateOrderRequest": {
            "type": "object",
            "required": ["itemId", "paymentMethod"],
            "properties": {
                "itemId": {"type": "string"},
                "amount": {"type": "string"},
                "paymentMethod": {"type": "string", "enum": ["wallet", "card"]}
            }
        },
        "views.TopUpRequest": {
            "type": "object",
            "properties": {"amount": {"type": "string"}}
        },
        "views.RedeemRequest": {
            "type": "object",
            "properties": {"otp": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Vending Kiosk API",
	Description:      "Orders, wallet and machine redemption for vending kiosks.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
