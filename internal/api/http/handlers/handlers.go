package handlers

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/crmdesk/crm-service/internal/auth"
	"github.com/crmdesk/crm-service/internal/domain"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind parses the JSON body into req and runs its validate tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validate.Struct(req); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			details := make(map[string]any, len(fields))
			for _, f := range fields {
				details[f.Field()] = f.Tag()
			}
			return apperrors.NewValidationError("invalid payload", details)
		}
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func currentAgent(c *fiber.Ctx) (*domain.Agent, error) {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return agent, nil
}

func currentSession(c *fiber.Ctx) (*domain.PortalSession, error) {
	session, ok := auth.PortalSessionFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("portal session required")
	}
	return session, nil
}

// pathID reads a uuid path parameter. A malformed id names no record and is
// reported as resource not found.
func pathID(c *fiber.Ctx, name, resource string) (string, error) {
	raw := c.Params(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NewNotFound(resource, map[string]any{"id": raw})
	}
	return id.String(), nil
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseBool(val string) *bool {
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &b
}

func optional(val string) *string {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	return &val
}

// splitList reads a comma separated query value.
func splitList[T ~string](val string) []T {
	if val == "" {
		return nil
	}
	var out []T
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, T(part))
		}
	}
	return out
}

// page reads page/page_size into limit and offset.
func page(c *fiber.Ctx) (limit, offset int) {
	p := parseInt(c.Query("page"), 1)
	size := parseInt(c.Query("page_size"), 20)
	if size > 200 {
		size = 200
	}
	return size, (p - 1) * size
}
