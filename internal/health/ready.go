package health

import (
	"context"
	"net/http"
	"time"

	"github.com/ccastromar/sos-store-ops-system/internal/runtime"
)

func NewReadyHandler(rt *runtime.Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		if !rt.DefinitionsLoaded {
			http.Error(w, "definitions not loaded", 503)
			return
		}

		if rt.DB != nil {
			if err := rt.DB.PingContext(r.Context()); err != nil {
				http.Error(w, "database unreachable", 503)
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.LLMClient.Ping(ctx); err != nil {
			http.Error(w, "llm unreachable", 503)
			return
		}

		w.WriteHeader(200)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
