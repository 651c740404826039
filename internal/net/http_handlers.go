package net

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"satchel/server"
	"satchel/server/internal/catalog"
	"satchel/server/internal/net/proto"
	"satchel/server/internal/net/ws"
	"satchel/server/internal/observability"
	"satchel/server/internal/telemetry"
	"satchel/server/logging"
)

// maxBodyBytes bounds request bodies on the JSON endpoints.
const maxBodyBytes = 1 << 20

type HTTPHandlerConfig struct {
	Logger        telemetry.Logger
	Metrics       *logging.Metrics
	Publisher     logging.Publisher
	Observability observability.Config
	Websocket     ws.HandlerConfig
}

type createRequest struct {
	Size int `json:"size"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("GET /health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var counters map[string]uint64
		if cfg.Metrics != nil {
			counters = cfg.Metrics.Snapshot()
		}
		payload := struct {
			Status      string                        `json:"status"`
			ServerTime  int64                         `json:"serverTime"`
			Inventories []server.InventoryDiagnostics `json:"inventories"`
			Telemetry   map[string]uint64             `json:"telemetry,omitempty"`
		}{
			Status:      "ok",
			ServerTime:  time.Now().UnixMilli(),
			Inventories: hub.DiagnosticsSnapshot(),
			Telemetry:   counters,
		}
		writeJSON(w, nethttp.StatusOK, payload, logger)
	})

	mux.HandleFunc("GET /catalog", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Items []*catalog.Item `json:"items"`
		}{Items: hub.Catalog().Items()}
		writeJSON(w, nethttp.StatusOK, payload, logger)
	})

	mux.HandleFunc("GET /catalog/schema", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		data, err := catalog.SchemaJSON()
		if err != nil {
			logger.Printf("failed to render catalog schema: %v", err)
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/schema+json")
		w.Write(data)
	})

	mux.HandleFunc("POST /inventories", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req createRequest
		if !decodeBody(w, r, &req) {
			return
		}
		snapshot, err := hub.Create(req.Size)
		if err != nil {
			writeHubError(w, err, logger)
			return
		}
		writeJSON(w, nethttp.StatusCreated, snapshot, logger)
	})

	mux.HandleFunc("GET /inventories", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			IDs []string `json:"ids"`
		}{IDs: hub.IDs()}
		writeJSON(w, nethttp.StatusOK, payload, logger)
	})

	mux.HandleFunc("GET /inventories/{id}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snapshot, err := hub.Snapshot(r.PathValue("id"))
		if err != nil {
			writeHubError(w, err, logger)
			return
		}
		writeJSON(w, nethttp.StatusOK, snapshot, logger)
	})

	mux.HandleFunc("DELETE /inventories/{id}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := hub.Delete(r.PathValue("id")); err != nil {
			writeHubError(w, err, logger)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	})

	mux.HandleFunc("POST /inventories/{id}/commands", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var cmd proto.Command
		if !decodeBody(w, r, &cmd) {
			return
		}
		result, err := hub.Execute(r.PathValue("id"), cmd)
		if err != nil {
			writeHubError(w, err, logger)
			return
		}
		writeJSON(w, nethttp.StatusOK, result, logger)
	})

	wsCfg := cfg.Websocket
	if wsCfg.Logger == nil {
		wsCfg.Logger = logger
	}
	if wsCfg.Metrics == nil && cfg.Metrics != nil {
		wsCfg.Metrics = telemetry.WrapMetrics(cfg.Metrics)
	}
	if wsCfg.Publisher == nil {
		wsCfg.Publisher = cfg.Publisher
	}
	mux.HandleFunc("GET /ws", ws.NewHandler(hub, wsCfg).Handle)

	if cfg.Observability.EnablePprofTrace {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		logger.Printf("pprof endpoints enabled under /debug/pprof/")
	}

	return mux
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(w nethttp.ResponseWriter, r *nethttp.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, nethttp.StatusBadRequest, errorResponse{Error: "invalid payload"}, nil)
		return false
	}
	return true
}

// writeHubError maps hub sentinels onto status codes.
func writeHubError(w nethttp.ResponseWriter, err error, logger telemetry.Logger) {
	status := nethttp.StatusInternalServerError
	switch {
	case errors.Is(err, server.ErrUnknownInventory):
		status = nethttp.StatusNotFound
	case errors.Is(err, server.ErrUnknownItem),
		errors.Is(err, server.ErrUnknownCommand),
		errors.Is(err, server.ErrInvalidSize),
		errors.Is(err, server.ErrIndexOutOfRange),
		errors.Is(err, server.ErrInvalidAmount):
		status = nethttp.StatusBadRequest
	default:
		if logger != nil {
			logger.Printf("unexpected hub error: %v", err)
		}
	}
	writeJSON(w, status, errorResponse{Error: err.Error()}, logger)
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any, logger telemetry.Logger) {
	data, err := json.Marshal(payload)
	if err != nil {
		if logger != nil {
			logger.Printf("failed to encode response: %v", err)
		}
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
