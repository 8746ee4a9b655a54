package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"attachapi/internal/http/middleware"
	"attachapi/internal/model"
	"attachapi/internal/repository"
	"attachapi/internal/service"
)

// otpBody is the request body fallback for the one-time code; the header
// takes precedence when both are present.
type otpBody struct {
	Otp string `json:"otp"`
}

// OtpHeader carries the one-time code for step-up protected operations.
const OtpHeader = "X-OTP-Code"

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers
// parse and translate; all pipeline decisions live in the service.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.AttachmentService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint: checks DB connectivity only
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// List attachment metadata with limit & offset; payloads are never listed
	app.Get("/attachments", func(c *fiber.Ctx) error {
		actor, ok := actorFromCtx(c)
		if !ok {
			return nil
		}

		limit, offset, ok := pageParams(c)
		if !ok {
			return nil
		}

		res, svcErr := svc.List(c.UserContext(), actor, c.Query("owner_id"), limit, offset)
		if svcErr != nil {
			return writeServiceError(c, svcErr)
		}
		return c.JSON(res)
	})

	// Upload attachment (multipart/form-data, field name: file)
	app.Post("/attachments", func(c *fiber.Ctx) error {
		actor, ok := actorFromCtx(c)
		if !ok {
			return nil
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		att, svcErr := svc.Upload(c.UserContext(), actor, service.UploadInput{
			Filename:     fh.Filename,
			DeclaredMime: fh.Header.Get("Content-Type"),
			Reader:       f,
		})
		if svcErr != nil {
			return writeServiceError(c, svcErr)
		}
		return c.Status(fiber.StatusCreated).JSON(att)
	})

	// Get attachment metadata by ID
	app.Get("/attachments/:id", func(c *fiber.Ctx) error {
		actor, ok := actorFromCtx(c)
		if !ok {
			return nil
		}
		id, ok := idParam(c)
		if !ok {
			return nil
		}

		att, svcErr := svc.Get(c.UserContext(), actor, id)
		if svcErr != nil {
			return writeServiceError(c, svcErr)
		}
		return c.JSON(att)
	})

	// Download attachment content by ID
	app.Get("/attachments/:id/download", func(c *fiber.Ctx) error {
		actor, ok := actorFromCtx(c)
		if !ok {
			return nil
		}
		id, ok := idParam(c)
		if !ok {
			return nil
		}

		att, svcErr := svc.Download(c.UserContext(), actor, id)
		if svcErr != nil {
			return writeServiceError(c, svcErr)
		}

		// The detected type is served, never the client-declared one.
		c.Set(fiber.HeaderContentType, att.DetectedMime)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", att.OriginalName))
		return c.Send(att.Payload)
	})

	// Soft-delete attachment by ID; requires a one-time code
	app.Delete("/attachments/:id", func(c *fiber.Ctx) error {
		actor, ok := actorFromCtx(c)
		if !ok {
			return nil
		}
		id, ok := idParam(c)
		if !ok {
			return nil
		}

		code := c.Get(OtpHeader)
		if code == "" && len(c.Body()) > 0 {
			var body otpBody
			if err := c.BodyParser(&body); err == nil {
				code = body.Otp
			}
		}

		if svcErr := svc.Delete(c.UserContext(), actor, id, code); svcErr != nil {
			if errors.Is(svcErr, service.ErrAlreadyDeleted) {
				// Deleting a deleted attachment lands in the same state.
				return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "already_deleted"})
			}
			return writeServiceError(c, svcErr)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "deleted"})
	})

	// Audit trail, elevated role only
	app.Get("/audit-logs", func(c *fiber.Ctx) error {
		actor, ok := actorFromCtx(c)
		if !ok {
			return nil
		}

		limit, offset, ok := pageParams(c)
		if !ok {
			return nil
		}

		filter := repository.AuditFilter{
			ActorID:      c.Query("actor_id"),
			Action:       model.AuditAction(c.Query("action")),
			ResourceType: c.Query("resource_type"),
			ResourceID:   c.Query("resource_id"),
		}

		res, svcErr := svc.AuditLogs(c.UserContext(), actor, filter, limit, offset)
		if svcErr != nil {
			return writeServiceError(c, svcErr)
		}
		return c.JSON(res)
	})
}

// actorFromCtx builds the service actor from the authenticated principal.
// On failure the error response has already been written and ok is false.
// The auth middleware guarantees a principal on protected routes; a missing
// one means the route was wired outside the middleware chain.
func actorFromCtx(c *fiber.Ctx) (service.ActorContext, bool) {
	p, present := middleware.PrincipalFromCtx(c)
	if !present {
		_ = writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return service.ActorContext{}, false
	}
	return service.ActorContext{Principal: p, IP: c.IP()}, true
}

func idParam(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		return "", false
	}
	return id, true
}

func pageParams(c *fiber.Ctx) (limit, offset int, ok bool) {
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		return 0, 0, false
	}
	offset, err = strconv.Atoi(c.Query("offset", "0"))
	if err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		return 0, 0, false
	}
	return limit, offset, true
}
