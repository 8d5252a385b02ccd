package catalog

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// UpstreamError - апстрим вернул не-2xx или недоступен.
// StatusCode == 0 означает, что ответа не было (сетевая ошибка).
type UpstreamError struct {
	Resource   ResourceID
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream unreachable for %s: %s", e.Resource, e.Message)
	}
	return fmt.Sprintf("upstream returned %d for %s: %s", e.StatusCode, e.Resource, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NotFound возвращает true для ответа 404 от апстрима
func (e *UpstreamError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// ValidationError - некорректный или отсутствующий параметр запроса.
// Отклоняется до обращения к апстриму.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// HTTPStatus - ошибки валидации отдаются клиенту как 400
func (e *ValidationError) HTTPStatus() int {
	return http.StatusBadRequest
}

// IsUpstreamError проверяет, что в цепочке есть UpstreamError
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// IsValidationError проверяет, что в цепочке есть ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

const maxPluginNameLength = 128

// ValidatePluginName проверяет имя плагина из пути запроса
func ValidatePluginName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &ValidationError{Field: "plugin name", Reason: "must not be empty"}
	case len(name) > maxPluginNameLength:
		return &ValidationError{Field: "plugin name", Reason: fmt.Sprintf("longer than %d characters", maxPluginNameLength)}
	case name == "." || name == "..":
		return &ValidationError{Field: "plugin name", Reason: "must not be a dot segment"}
	case strings.ContainsAny(name, "/\\?#"):
		return &ValidationError{Field: "plugin name", Reason: "contains reserved characters"}
	}
	return nil
}
