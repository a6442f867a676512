package helper

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

// BindAndValidate parse body JSON lalu jalankan tag `validate`.
// Kalau gagal, response sudah ditulis dan error dikembalikan supaya handler berhenti.
func BindAndValidate(c *fiber.Ctx, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, JsonError(c, fiber.StatusBadRequest, "invalid json")
	}
	if err := validate.Struct(out); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make(map[string][]string, len(ve))
			for _, fe := range ve {
				fields[fe.Field()] = append(fields[fe.Field()], fe.Tag())
			}
			return false, JsonValidationError(c, fields)
		}
		return false, JsonError(c, fiber.StatusBadRequest, "invalid input")
	}
	return true, nil
}

func ParseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params(name)))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// ParseOptionalUUIDQuery: query kosong → nil.
func ParseOptionalUUIDQuery(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return &id, nil
}

// ParseDate menerima "2006-01-02" atau RFC3339. Hasil tanggal-saja berada di tengah malam UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// ParseOptionalDate dipakai DTO untuk field tanggal opsional (nil / "" → nil).
func ParseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseOptionalDateQuery: query kosong → nil.
func ParseOptionalDateQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, key+" must be YYYY-MM-DD or RFC3339")
	}
	return &t, nil
}
