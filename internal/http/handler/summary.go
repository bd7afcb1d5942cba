package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docgate/internal/http/middleware"
	"docgate/internal/model"
	"docgate/internal/repository"
	"docgate/internal/service"
)

var validate = validator.New()

type generateRequest struct {
	Documents []string `json:"documents" validate:"required,min=1,dive,required"`
	Format    string   `json:"format" validate:"required"`
	Audience  string   `json:"audience" validate:"required"`
}

type reviewRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// actorFromCtx reads the identity stored by middleware.Auth.
func actorFromCtx(c *fiber.Ctx) service.Actor {
	uid, _ := c.Locals(middleware.UserIDLocalKey).(string)
	name, _ := c.Locals(middleware.UsernameLocalKey).(string)
	ctxID, _ := c.Locals(middleware.ContextIDLocalKey).(string)
	if name == "" {
		name = uid
	}
	return service.Actor{UserID: uid, Username: name, ContextID: ctxID}
}

var errInvalidBody = errors.New("invalid request body")

// bindJSON parses and validates a request body. An empty body is allowed
// when allowEmpty is set. The returned error is safe to show to clients.
func bindJSON(c *fiber.Ctx, dst any, allowEmpty bool) error {
	if len(c.Body()) > 0 || !allowEmpty {
		if err := c.BodyParser(dst); err != nil {
			return errInvalidBody
		}
	}
	return validate.Struct(dst)
}

func summaryID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// GenerateSummary runs the secure generation pipeline. A quarantined draft
// answers 202 with the draft ID.
func GenerateSummary(svc service.TranslationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body generateRequest
		if err := bindJSON(c, &body, false); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", err.Error())
		}

		res, err := svc.Generate(c.UserContext(), service.GenerateRequest{
			Documents:   body.Documents,
			Format:      body.Format,
			Audience:    body.Audience,
			RequestedBy: actorFromCtx(c).UserID,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// ListPending lists summaries awaiting review with limit & offset.
func ListPending(svc service.ReviewService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.ListPending(c.UserContext(), repository.PageQuery{Limit: limit, Offset: offset})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(listResponse[model.ApprovalRecord]{Items: res.Items, Total: res.Total, Limit: limit, Offset: offset})
	}
}

// GetSummary returns a summary with its approval history.
func GetSummary(svc service.ReviewService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := summaryID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		view, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(view)
	}
}

// ApproveSummary records an approval by the caller.
func ApproveSummary(svc service.ReviewService) fiber.Handler {
	return review(svc.Approve)
}

// RejectSummary records a rejection by the caller.
func RejectSummary(svc service.ReviewService) fiber.Handler {
	return review(svc.Reject)
}

type reviewAction func(ctx context.Context, actor service.Actor, summaryID, notes string) (*model.Approval, error)

func review(action reviewAction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := summaryID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var body reviewRequest
		if err := bindJSON(c, &body, true); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", err.Error())
		}
		a, err := action(c.UserContext(), actorFromCtx(c), id, body.Notes)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(a)
	}
}

// PublishSummary uploads an approved summary.
func PublishSummary(svc service.ReviewService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := summaryID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		res, err := svc.Publish(c.UserContext(), actorFromCtx(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}
