package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxMessageLength int
	// Fields lists, per route path, the body fields that must be present.
	Fields              map[string][]string
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxMessageLength == 0 {
		cfg.MaxMessageLength = 4000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{
			fiber.MIMEApplicationJSON,
			fiber.MIMEApplicationForm,
			fiber.MIMEMultipartForm,
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		contentType := c.Get(fiber.HeaderContentType)
		if contentType != "" {
			allowed := false
			for _, allowedType := range cfg.AllowedContentTypes {
				if strings.HasPrefix(contentType, allowedType) {
					allowed = true
					break
				}
			}
			if !allowed {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"error": "Unsupported content type",
				})
			}
		}

		fields, ok := cfg.Fields[c.Path()]
		if !ok {
			return c.Next()
		}

		isJSON := strings.HasPrefix(contentType, fiber.MIMEApplicationJSON)
		if isJSON && !gjson.ValidBytes(c.Body()) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		for _, field := range fields {
			value, isString := lookup(c, field, isJSON)
			if !isString || strings.TrimSpace(value) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": field + " is required and must be a string",
				})
			}

			if utf8.RuneCountInString(value) > cfg.MaxMessageLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": field + " exceeds maximum length",
				})
			}

			if strings.ContainsRune(value, 0) || !utf8.ValidString(value) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid " + field + " content",
				})
			}

			if xssPattern.MatchString(value) {
				cfg.Logger.Warn("Potential XSS attempt",
					zap.String("ip", c.IP()),
					zap.String("field", field),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid " + field + " content",
				})
			}
		}

		return c.Next()
	}
}

func lookup(c *fiber.Ctx, field string, isJSON bool) (string, bool) {
	if isJSON {
		r := gjson.GetBytes(c.Body(), field)
		return r.Str, r.Type == gjson.String
	}
	v := c.FormValue(field)
	return v, v != ""
}
