package apigw

import (
	"context"
	"net/http"

	"hubgateway/pathmatch"
)

// Значения поля status стандартного конверта
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ErrorEnvelope - тело ответа об ошибке: {"status":"error","error":"..."}
type ErrorEnvelope struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// HandlerFunc - обработчик BFF-маршрута. Успешный ответ обработчик пишет сам,
// ошибку возвращает, и ее оформляет Wrap.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// StatusCoder реализуется ошибками, которые задают собственный HTTP-статус.
// Все прочие ошибки отдаются как 500.
type StatusCoder interface {
	HTTPStatus() int
}

// Middleware оборачивает обработчик
type Middleware func(http.Handler) http.Handler

// Route - зарегистрированный маршрут шлюза
type Route struct {
	Method  string
	Pattern string
	Handler http.Handler
}

type paramsKey struct{}

// withParams сохраняет параметры пути в контексте запроса
func withParams(ctx context.Context, params pathmatch.Params) context.Context {
	return context.WithValue(ctx, paramsKey{}, params)
}

// Params возвращает параметры пути, извлеченные маршрутизатором
func Params(r *http.Request) pathmatch.Params {
	if p, ok := r.Context().Value(paramsKey{}).(pathmatch.Params); ok {
		return p
	}
	return pathmatch.Params{}
}

// Param возвращает параметр пути по имени ("" если его нет)
func Param(r *http.Request, name string) string {
	return Params(r).Get(name)
}

// WithParams возвращает копию запроса с параметрами пути. Нужна для вызова
// обработчиков в обход маршрутизатора (тесты, композиция).
func WithParams(r *http.Request, params pathmatch.Params) *http.Request {
	return r.WithContext(withParams(r.Context(), params))
}
