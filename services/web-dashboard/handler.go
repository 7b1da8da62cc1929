package main

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html
var templateFS embed.FS

// WebHandler slouží jako "Controller". Připravuje data a renderuje HTML.
type WebHandler struct {
	dash     *Dashboard
	metrics  *Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	tmpl     *template.Template
	upgrader websocket.Upgrader

	// shutdown se zruší při vypínání serveru. Hijacknutá WebSocket spojení
	// Server.Shutdown nezavírá, live smyčky proto čekají i na tento kontext.
	shutdown context.Context
	started  time.Time
	tick     time.Duration

	reconnectTimeout time.Duration
}

// NewWebHandler načte šablony a připraví handler.
func NewWebHandler(shutdown context.Context, dash *Dashboard, metrics *Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) (*WebHandler, error) {
	funcMap := template.FuncMap{
		"to_json": func(v interface{}) template.JS {
			a, err := json.Marshal(v)
			if err != nil {
				// V případě chyby vrátíme null, aby JS nespadl
				return template.JS("null")
			}
			return template.JS(a)
		},
	}

	// Funkce se musí zaregistrovat PŘED parsováním šablon.
	tmpl, err := template.New("base").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &WebHandler{
		dash:     dash,
		metrics:  metrics,
		gatherer: gatherer,
		logger:   logger,
		tmpl:     tmpl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		shutdown:         shutdown,
		started:          time.Now(),
		tick:             time.Second,
		reconnectTimeout: 10 * time.Second,
	}, nil
}

// Routes mapuje URL cesty na metody handleru.
func (h *WebHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LogMiddleware(h.logger))

	r.Get("/", h.HandleIndex)
	r.Get("/ws", h.HandleLive)

	r.Route("/api", func(r chi.Router) {
		r.Use(CorsMiddleware)
		r.Get("/snapshot", h.HandleSnapshot)
		r.Get("/status", h.HandleStatus)
		r.Post("/reconnect", h.HandleReconnect)
	})

	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	// Healthcheck endpoint pro Docker (aby věděl, že služba žije)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	return r
}

// HandleIndex: Dashboard (Přehled)
func (h *WebHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	view := h.dash.View()

	data := map[string]interface{}{
		"Title": view.Title,
		"View":  view,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.logger.Error("Chyba renderování", "error", err)
	}
}

// HandleSnapshot: GET /api/snapshot
func (h *WebHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.dash.View())
}

type statusResponse struct {
	Connection StatusInfo   `json:"connection"`
	Layout     string       `json:"layout"`
	Topics     []string     `json:"topics"`
	Process    ProcessStats `json:"process"`
}

// HandleStatus: GET /api/status
func (h *WebHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, statusResponse{
		Connection: h.dash.Status(),
		Layout:     h.dash.layout.Name(),
		Topics:     h.dash.layout.Topics(),
		Process:    CollectProcessStats(h.started, h.logger),
	})
}

// HandleReconnect: POST /api/reconnect
// Zavře relaci, vynuluje snapshot a připojí se znovu.
func (h *WebHandler) HandleReconnect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.reconnectTimeout)
	defer cancel()

	if err := h.dash.Connect(ctx); err != nil {
		h.logger.Warn("Reconnect selhal", "error", err)
		h.writeJSON(w, http.StatusBadGateway, h.dash.Status())
		return
	}
	h.writeJSON(w, http.StatusOK, h.dash.Status())
}

func (h *WebHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Chyba při zápisu JSON odpovědi", "error", err)
	}
}

// LogMiddleware loguje každý request (metoda, cesta, status, velikost, doba).
func LogMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("HTTP request",
				"method", r.Method,
				"uri", r.RequestURI,
				"status", ww.Status(),
				"size", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// CorsMiddleware povolí volání /api z jiné domény (např. vlastní frontend).
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Preflight request: odpovíme OK a končíme.
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
