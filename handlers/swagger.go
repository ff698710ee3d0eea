package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the content service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>tribehub-content · Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "tribehub-content", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer" } },
    "parameters": {
      "kind": { "name": "kind", "in": "path", "required": true, "schema": { "type": "string", "enum": ["event", "partner", "circle", "gallery", "slider", "social"] } },
      "id": { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } }
    }
  },
  "paths": {
    "/api/v1/content/{kind}": {
      "parameters": [ { "$ref": "#/components/parameters/kind" } ],
      "get": {
        "summary": "List items of a kind with their derived time bucket",
        "parameters": [
          { "name": "featured", "in": "query", "schema": { "type": "boolean" } },
          { "name": "bucket", "in": "query", "schema": { "type": "string", "enum": ["upcoming", "past"] } },
          { "name": "category", "in": "query", "schema": { "type": "string" } }
        ],
        "responses": { "200": { "description": "items" }, "400": { "description": "bad filter" }, "404": { "description": "unknown kind" } }
      },
      "post": {
        "summary": "Create an item",
        "security": [ { "bearer": [] } ],
        "responses": { "201": { "description": "created" }, "400": { "description": "validation failed" }, "409": { "description": "featured limit reached" } }
      }
    },
    "/api/v1/content/{kind}/{id}": {
      "parameters": [ { "$ref": "#/components/parameters/kind" }, { "$ref": "#/components/parameters/id" } ],
      "get": { "summary": "Get one item", "responses": { "200": { "description": "item" }, "404": { "description": "not found" } } },
      "put": {
        "summary": "Update an item; assets no longer referenced are reclaimed",
        "security": [ { "bearer": [] } ],
        "responses": { "200": { "description": "updated" }, "400": { "description": "validation failed" }, "404": { "description": "not found" }, "409": { "description": "featured limit reached" } }
      },
      "delete": {
        "summary": "Delete an item and reclaim its assets",
        "security": [ { "bearer": [] } ],
        "responses": { "204": { "description": "deleted" }, "404": { "description": "not found" } }
      }
    },
    "/api/v1/content/{kind}/{id}/featured": {
      "parameters": [ { "$ref": "#/components/parameters/kind" }, { "$ref": "#/components/parameters/id" } ],
      "put": {
        "summary": "Promote or demote an item",
        "security": [ { "bearer": [] } ],
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "required": ["featured"], "properties": { "featured": { "type": "boolean" } } } } } },
        "responses": { "200": { "description": "updated" }, "404": { "description": "not found" }, "409": { "description": "featured limit reached" } }
      }
    },
    "/api/v1/assets/{kind}": {
      "parameters": [ { "$ref": "#/components/parameters/kind" } ],
      "post": {
        "summary": "Upload an asset into the kind's bucket and prefix",
        "security": [ { "bearer": [] } ],
        "requestBody": { "content": { "multipart/form-data": { "schema": { "type": "object", "properties": { "file": { "type": "string", "format": "binary" } } } } } },
        "responses": { "201": { "description": "asset reference" }, "413": { "description": "too large" }, "502": { "description": "object store unavailable" } }
      }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
