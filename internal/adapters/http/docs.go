package http

import (
	"log/slog"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
)

const defaultDocsFile = "api/openapi.yaml"

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Landplot API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body style="margin:0">
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({url: '/docs/openapi.yaml', dom_id: '#swagger-ui', deepLinking: true});
  </script>
</body>
</html>`

// SetupDocs serves Swagger UI at /docs and the OpenAPI document read from
// file at /docs/openapi.yaml. The document is read on first request and
// kept; a missing file is retried on the next request.
func SetupDocs(app *fiber.App, file string) {
	if file == "" {
		file = defaultDocsFile
	}
	var (
		mu  sync.Mutex
		doc []byte
	)

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.SendString(swaggerPage)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		mu.Lock()
		if doc == nil {
			data, err := os.ReadFile(file)
			if err != nil {
				mu.Unlock()
				slog.Warn("openapi document unavailable", "file", file, "error", err)
				return errNotFound(c, "openapi document not found")
			}
			doc = data
		}
		data := doc
		mu.Unlock()

		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(data)
	})
}
