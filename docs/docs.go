// Package docs registra el documento OpenAPI servido en /swagger/*.
// Regenerar con: swag init -g cmd/api/main.go -o docs
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
        "/health": {
            "get": {
                "tags": ["ops"],
                "summary": "Liveness",
                "responses": {"200": {"description": "ok"}}
            }
        },
        "/groups": {
            "get": {"tags": ["groups"], "summary": "Listar groups", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["groups"], "summary": "Crear group", "responses": {"201": {"description": "Created"}}}
        },
        "/groups/{groupID}": {
            "get": {"tags": ["groups"], "summary": "Ver group", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["groups"], "summary": "Disolver group", "responses": {"204": {"description": "No Content"}}}
        },
        "/groups/{groupID}/requests": {
            "post": {"tags": ["groups"], "summary": "Pedir ingreso", "responses": {"201": {"description": "Created"}}}
        },
        "/groups/requests/{requestID}": {
            "patch": {"tags": ["groups"], "summary": "Responder pedido de ingreso", "responses": {"200": {"description": "OK"}}}
        },
        "/events": {
            "get": {"tags": ["events"], "summary": "Listar events activos", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["events"], "summary": "Crear event", "responses": {"201": {"description": "Created"}}}
        },
        "/events/{eventID}/requests": {
            "post": {"tags": ["events"], "summary": "Pedir asistencia", "responses": {"201": {"description": "Created"}}}
        },
        "/events/requests/{requestID}": {
            "patch": {"tags": ["events"], "summary": "Responder pedido de asistencia", "responses": {"200": {"description": "OK"}}}
        },
        "/friends": {
            "get": {"tags": ["friends"], "summary": "Listar amigos", "responses": {"200": {"description": "OK"}}}
        },
        "/friends/requests/{ref}": {
            "post": {"tags": ["friends"], "summary": "Pedir amistad (ref = username)", "responses": {"201": {"description": "Created"}}},
            "patch": {"tags": ["friends"], "summary": "Responder amistad (ref = request id)", "responses": {"200": {"description": "OK"}}}
        },
        "/requests/sent": {
            "get": {"tags": ["requests"], "summary": "Requests enviados", "responses": {"200": {"description": "OK"}}}
        },
        "/requests/received": {
            "get": {"tags": ["requests"], "summary": "Requests recibidos", "responses": {"200": {"description": "OK"}}}
        },
        "/requests/{requestID}": {
            "delete": {"tags": ["requests"], "summary": "Retirar request pending", "responses": {"204": {"description": "No Content"}}}
        },
        "/requests/{requestID}/reconcile": {
            "post": {"tags": ["requests"], "summary": "Reintentar admisión de un request accepted", "responses": {"200": {"description": "OK"}}}
        },
        "/users/me": {
            "delete": {"tags": ["users"], "summary": "Borrar al actor y todo lo que cuelga de él", "responses": {"200": {"description": "OK"}}}
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Social Coordination API",
	Description:      "Friendships, groups and events joined through a request/approval workflow.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
