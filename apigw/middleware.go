package apigw

import (
	"net/http"

	"hubgateway/featureflag"
)

// GateSource выдает снимок флагов для очередного запроса
type GateSource interface {
	Gate() *featureflag.Gate
}

// FeatureFlags разрешает флаги один раз на запрос и кладет снимок в контекст.
// Обработчики читают его через featureflag.FromContext.
func FeatureFlags(source GateSource) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gate := featureflag.Empty()
			if source != nil {
				gate = source.Gate()
			}
			next.ServeHTTP(w, r.WithContext(featureflag.WithGate(r.Context(), gate)))
		})
	}
}
