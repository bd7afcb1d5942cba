package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"docgate/internal/service"
)

// UploadDocument stores a multipart file (field "file") as a source
// document. The optional form field "path" overrides the file name.
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}
		docPath := c.FormValue("path", fh.Filename)

		info, err := svc.Upload(c.UserContext(), actorFromCtx(c).UserID, docPath, f, ct, fh.Size)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(info)
	}
}

// StatDocument returns metadata of a stored document named by ?path=.
func StatDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docPath := c.Query("path")
		if docPath == "" {
			return writeError(c, fiber.StatusBadRequest, "PATH_REQUIRED", "path is required")
		}
		info, err := svc.Stat(c.UserContext(), actorFromCtx(c).UserID, docPath)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(info)
	}
}

// ListDocuments lists stored documents under ?dir= with ?limit=.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(service.DefaultListLimit)))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		docs, err := svc.List(c.UserContext(), actorFromCtx(c).UserID, c.Query("dir"), limit)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"items": docs, "total": len(docs)})
	}
}
