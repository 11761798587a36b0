package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/metadata"

	"github.com/bhatti/gateway-header-mapper/headermapper"
)

const (
	defaultAddr     = ":8080"
	shutdownTimeout = 10 * time.Second

	// echoMethod names the echo route when annotating gRPC metadata
	echoMethod = "/hdrmap.Echo/Echo"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event [file]",
		Short: "Serve one gateway proxy event with the echo handler",
		Long: `Reads a gateway proxy-integration request event, runs it through the
gateway adapter against a built-in echo handler and prints the gateway
response. Request headers are expanded; response headers are flattened.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runEvent,
	}
	cmd.Flags().StringP("config", "c", "", "Path to mapper configuration file (YAML or JSON)")
	return cmd
}

func runEvent(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	mapper, err := loadMapper(cmd)
	if err != nil {
		return err
	}

	var event headermapper.GatewayRequest
	if err := decodeInput(cmd, args, &event); err != nil {
		return err
	}

	handler, err := newGatewayHandler(mapper, logger)
	if err != nil {
		return err
	}
	adapter, err := newAdapter(cmd, mapper)
	if err != nil {
		return err
	}
	resp, err := adapter.Serve(cmd.Context(), handler, &event)
	if err != nil {
		return fmt.Errorf("failed to serve event: %w", err)
	}
	return writeJSON(cmd, resp)
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept gateway proxy events over HTTP",
		Long: `Starts an HTTP server with:
  POST /invoke   gateway proxy event in, gateway response out
  GET  /metrics  Prometheus metrics
  /v1/echo       the grpc-gateway mux with header mapping applied`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringP("config", "c", "", "Path to mapper configuration file (YAML or JSON)")
	cmd.Flags().String("addr", defaultAddr, "Address to listen on")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("failed to get addr flag: %w", err)
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	mapper, err := loadMapper(cmd)
	if err != nil {
		return err
	}

	handler, err := newGatewayHandler(mapper, logger)
	if err != nil {
		return err
	}
	adapter, err := newAdapter(cmd, mapper)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.HandlerFor(mapper.Metrics().Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/invoke", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var event headermapper.GatewayRequest
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			http.Error(w, fmt.Sprintf("invalid event: %v", err), http.StatusBadRequest)
			return
		}
		resp, err := adapter.Serve(r.Context(), handler, &event)
		if err != nil {
			logger.Warn("failed to serve event", "error", err, "request_id", event.RequestContext.RequestID)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to write response", "error", err)
		}
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func newAdapter(cmd *cobra.Command, mapper *headermapper.HeaderMapper) (*headermapper.Adapter, error) {
	logger, err := newMapperLogger(cmd)
	if err != nil {
		return nil, err
	}
	return headermapper.NewAdapter(
		headermapper.WithResponseFilter(mapper.ResponseFilter()),
		headermapper.WithMetrics(mapper.Metrics()),
		headermapper.WithLogger(logger),
	), nil
}

// newGatewayHandler routes /v1/echo through a grpc-gateway mux carrying the
// mapper's options, so the echo shows the metadata the mapper produced.
// Everything else goes to the plain echo handler.
func newGatewayHandler(mapper *headermapper.HeaderMapper, logger *slog.Logger) (http.Handler, error) {
	echo := newEchoHandler(logger)
	gatewayMux := headermapper.CreateGatewayMux(mapper)
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		err := gatewayMux.HandlePath(method, "/v1/echo", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			ctx, err := runtime.AnnotateIncomingContext(r.Context(), gatewayMux, r, echoMethod)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			echo(w, r.WithContext(ctx))
		})
		if err != nil {
			return nil, fmt.Errorf("failed to register echo route: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/", gatewayMux)
	mux.HandleFunc("/", echo)
	return mux, nil
}

type echoResponse struct {
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Query     string            `json:"query,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Headers   map[string]string `json:"headers"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// newEchoHandler reports the request as seen by a handler and copies
// X-Request-Id back onto the response.
func newEchoHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := echoResponse{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.RawQuery,
			Headers: headermapper.Flatten(r.Header).Map(),
		}
		if rc, ok := headermapper.RequestContextFrom(r.Context()); ok {
			resp.RequestID = rc.RequestID
		}
		if md, ok := metadata.FromIncomingContext(r.Context()); ok {
			resp.Metadata = headermapper.Flatten(md).Map()
		}

		if id := r.Header.Get("X-Request-Id"); id != "" {
			w.Header().Set("X-Request-Id", id)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to write echo response", "error", err, "path", r.URL.Path)
		}
	}
}
