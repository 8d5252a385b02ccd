package apigw

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"hubgateway/logger"
)

// ErrNoResponse возвращается Wrap, если обработчик завершился без ошибки и без ответа
var ErrNoResponse = errors.New("handler completed without writing a response")

// WriteJSON сериализует v и записывает его с заданным статусом
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

// WriteOK записывает успешный конверт {"status":"ok", ...payload} со статусом 200.
// payload должен сериализоваться в JSON-объект, его поля выносятся рядом со status.
func WriteOK(w http.ResponseWriter, payload any) error {
	body, err := okEnvelope(payload)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, body)
}

// okEnvelope объединяет поля payload с полем status
func okEnvelope(payload any) (map[string]json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		if string(data) != "null" {
			if err := json.Unmarshal(data, &fields); err != nil {
				return nil, fmt.Errorf("payload must encode to a JSON object: %w", err)
			}
		}
	}
	fields["status"] = json.RawMessage(strconv.Quote(StatusOK))
	return fields, nil
}

// WriteError записывает конверт ошибки {"status":"error","error":"..."}
func WriteError(w http.ResponseWriter, status int, err error) error {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	return WriteJSON(w, status, ErrorEnvelope{Status: StatusError, Error: msg})
}

// StatusFor возвращает HTTP-статус для ошибки обработчика
func StatusFor(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if status := sc.HTTPStatus(); status >= 400 && status < 600 {
			return status
		}
	}
	return http.StatusInternalServerError
}

// Wrap превращает HandlerFunc в http.Handler, гарантируя ровно один ответ.
// Ошибка или паника обработчика, случившаяся до записи ответа, оформляется
// конвертом ошибки; после записи ответа она только логируется.
func Wrap(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := newTrackingWriter(w)
		err := invoke(h, tw, r)
		if err == nil {
			if !tw.wroteHeader {
				err = ErrNoResponse
			} else {
				return
			}
		}

		if tw.wroteHeader {
			logger.Error("Handler for %s %s failed after response was written: %v", r.Method, r.URL.Path, err)
			return
		}

		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			logger.Error("Request %s %s failed: %v", r.Method, r.URL.Path, err)
		} else {
			logger.Debug("Request %s %s rejected with %d: %v", r.Method, r.URL.Path, status, err)
		}
		if writeErr := WriteError(tw, status, err); writeErr != nil {
			logger.Error("Failed to write error response: %v", writeErr)
		}
	})
}

// invoke вызывает обработчик, превращая панику в ошибку
func invoke(h HandlerFunc, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Error("Handler for %s %s panicked: %v", r.Method, r.URL.Path, rec)
			err = errors.New("internal error")
		}
	}()
	return h(w, r)
}

// trackingWriter запоминает, был ли отправлен ответ и с каким статусом
type trackingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newTrackingWriter(w http.ResponseWriter) *trackingWriter {
	if tw, ok := w.(*trackingWriter); ok {
		return tw
	}
	return &trackingWriter{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader отправляет статус только один раз
func (tw *trackingWriter) WriteHeader(status int) {
	if tw.wroteHeader {
		logger.Debug("Superfluous WriteHeader(%d) ignored", status)
		return
	}
	tw.status = status
	tw.wroteHeader = true
	tw.ResponseWriter.WriteHeader(status)
}

func (tw *trackingWriter) Write(b []byte) (int, error) {
	if !tw.wroteHeader {
		tw.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}

// Unwrap открывает исходный writer для http.ResponseController
func (tw *trackingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}
