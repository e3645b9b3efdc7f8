package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"memoryecho/pkg/api"
	"memoryecho/pkg/auth"
	"memoryecho/pkg/banner"
	"memoryecho/pkg/store"
)

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	banner.PrintWithEff(a.eff, a.version)
}

// setupHTTPHandlers mounts all endpoints. Health, metrics and docs stay
// outside the auth middleware; the /v1 API goes through it.
func (a *App) setupHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", healthzHandler)
	mux.HandleFunc("/readyz", a.readyzHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	mux.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))
	mux.Handle("/", auth.Middleware(a.secConfig(), api.Handler(a.deps)))
}

// secConfig builds the middleware config from the effective config.
func (a *App) secConfig() auth.SecConfig {
	sec := a.eff.Config.Security
	cfg := auth.SecConfig{
		AllowedOrigins: append([]string{}, sec.CORS.AllowedOrigins...),
		RPS:            sec.RateLimit.RPS,
		Burst:          sec.RateLimit.Burst,
		APIKeys:        map[string]struct{}{},
	}
	for _, k := range sec.APIKeys {
		cfg.APIKeys[k] = struct{}{}
	}
	return cfg
}

// readyzHandler reports whether the durable store is open.
func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !store.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","version":"` + ver + `"}`))
}

// healthzHandler handles the /healthz endpoint.
func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// buildServer assembles the HTTP server; Run starts it.
func (a *App) buildServer() {
	mux := http.NewServeMux()
	a.setupHTTPHandlers(mux)
	a.srv = &http.Server{Addr: a.eff.Addr, Handler: mux}
}
