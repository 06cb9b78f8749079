package blueroute

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns what StartServer serves: the router itself, or a mux that
// also exposes the Prometheus registry when a metrics path is configured.
func (r *Router) Handler() http.Handler {
	if r.parent != nil {
		panic("Handler can only be called on root router")
	}

	if r.cfg.MetricsPath == "" {
		return r
	}

	mux := http.NewServeMux()
	mux.Handle(r.cfg.MetricsPath, promhttp.Handler())
	mux.Handle("/", r)
	return mux
}

// StartServer starts the server and blocks until it stops. A server stopped
// with StopServer returns nil.
func (r *Router) StartServer() error {
	if r.parent != nil {
		panic("StartServer can only be called on root router")
	}

	if err := r.cfg.Validate(); err != nil {
		return errors.WithMessage(err, "start server")
	}

	r.mount.Do(r.mountStats)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(r.cfg.Port),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	r.mu.Lock()
	if r.server != nil {
		r.mu.Unlock()
		return errors.New("server already started")
	}
	r.server = server
	r.mu.Unlock()

	if r.cfg.StopOnInterrupt {
		exitChan := make(chan os.Signal, 2)
		signal.Notify(exitChan, os.Interrupt, syscall.SIGTERM)

		returned := make(chan struct{})
		defer close(returned)

		go func() {
			defer signal.Stop(exitChan)
			select {
			case <-exitChan:
				r.logger.Info("shutting down")
				if err := r.StopServer(); err != nil {
					r.logger.Error("shutdown", "error", err)
				}
			case <-returned:
			}
		}()
	}

	r.logger.Info("listening", "port", r.cfg.Port, "dev", r.cfg.Dev, "routes", len(r.mux.Routes()))

	var err error
	switch {
	case r.cfg.AutoTLS:
		err = r.serveAutoTLS(server)
	case len(r.cfg.Cert) > 0 && len(r.cfg.Key) > 0:
		err = r.serveManualTLS(server)
	default:
		err = server.ListenAndServe()
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	// the server never ran, so a later StartServer may try again
	r.mu.Lock()
	if r.server == server {
		r.server = nil
	}
	r.mu.Unlock()
	return errors.Wrap(err, "serve")
}

// StopServer waits up to the shutdown timeout for requests in flight, then
// closes remaining connections.
func (r *Router) StopServer() error {
	r.mu.Lock()
	server := r.server
	r.server = nil
	r.mu.Unlock()

	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.ShutdownTimeout)*time.Second)
	defer cancel()

	err := server.Shutdown(ctx)
	if err == nil {
		return nil
	}

	r.logger.Warn("graceful shutdown failed, closing", "error", err)
	return errors.Wrap(server.Close(), "close server")
}

func (r *Router) serving() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.server != nil
}
