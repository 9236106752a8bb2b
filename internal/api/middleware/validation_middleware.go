package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/triggers"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ValidatedModelKey is the context key holding the decoded request body
const ValidatedModelKey = "validated_model"

// ValidationMiddleware handles request validation
type ValidationMiddleware struct {
	validator *validator.Validate
	log       *logger.Logger
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(log *logger.Logger) *ValidationMiddleware {
	v := validator.New()

	// Register custom validators
	_ = v.RegisterValidation("not_empty", validateNotEmpty)
	_ = v.RegisterValidation("clock", validateClock)

	// Report json names rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})

	return &ValidationMiddleware{
		validator: v,
		log:       log,
	}
}

// ValidateRequest decodes the JSON body into a fresh instance of model's type,
// validates it and stores the pointer under ValidatedModelKey
func (m *ValidationMiddleware) ValidateRequest(model interface{}) gin.HandlerFunc {
	modelType := reflect.TypeOf(model)
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	return func(c *gin.Context) {
		modelValue := reflect.New(modelType).Interface()

		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		if err := json.Unmarshal(bodyBytes, modelValue); err != nil {
			m.log.Debug("JSON unmarshal failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid JSON format: %v", err.Error()),
			})
			return
		}

		if details, err := m.Validate(modelValue); err != nil {
			m.log.Debug("Validation failed",
				zap.Any("errors", details),
				zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "validation failed",
				"details": details,
			})
			return
		}

		c.Set(ValidatedModelKey, modelValue)
		c.Next()
	}
}

// Validate checks a struct and returns per-field messages keyed by json name
func (m *ValidationMiddleware) Validate(model interface{}) (map[string]string, error) {
	err := m.validator.Struct(model)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}, err
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = formatValidationError(fe)
	}
	return details, err
}

// Custom validators
func validateNotEmpty(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return len(strings.TrimSpace(value)) > 0
}

func validateClock(fl validator.FieldLevel) bool {
	return triggers.ValidClock(fl.Field().String())
}

// Helper function to format validation errors
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "this field is required"
	case "url":
		return "invalid URL"
	case "min":
		return "value is too small"
	case "max":
		return "value is too large"
	case "not_empty":
		return "this field cannot be empty"
	case "clock":
		return "time must be HH:MM on a 24 hour clock"
	default:
		return "invalid value"
	}
}
