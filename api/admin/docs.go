// Package admin registers the OpenAPI document served at /swagger/.
//
// The annotations live on the handlers in internal/admin/http. Regenerate
// the full document with:
//
//	swag init -g internal/admin/http/router.go -o api/admin --parseDependency
package admin

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/livez": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health Check Endpoint",
                "responses": {
                    "200": {"description": "status, uptime, version"}
                }
            }
        },
        "/readyz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness Check Endpoint",
                "responses": {
                    "200": {"description": "status, uptime, version, checks"},
                    "503": {"description": "service not ready"}
                }
            }
        },
        "/api/auth/captcha": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Issue a login captcha",
                "responses": {
                    "200": {"description": "Captcha id and image"}
                }
            }
        },
        "/api/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log in with username and password",
                "responses": {
                    "200": {"description": "Access token or two-factor token"},
                    "400": {"description": "Captcha missing or wrong"},
                    "401": {"description": "Invalid username or password"}
                }
            }
        },
        "/api/auth/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "Profile"},
                    "401": {"description": "Invalid or missing access token"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Opaque access token. Format: \"Bearer {token}\" or the bare token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Web Admin API",
	Description:      "Role-based admin panel backend: accounts, roles, permissions, organization,\noperation logs and background exports.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
