package blueroute

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/acme/autocert"
)

// serveAutoTLS starts the server with Let's Encrypt certificates
func (r *Router) serveAutoTLS(server *http.Server) error {
	if len(r.cfg.Domains) == 0 {
		return errors.New("no domains specified for AutoTLS")
	}

	certManager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(r.cfg.Domains...),
	}

	if r.cfg.CertCache != "" {
		certManager.Cache = autocert.DirCache(r.cfg.CertCache)
	}

	server.TLSConfig = &tls.Config{
		GetCertificate: certManager.GetCertificate,
		MinVersion:     tls.VersionTLS12,
		NextProtos:     []string{"h2", "http/1.1", "acme-tls/1"},
	}

	// HTTP-01 challenges, everything else redirects to https
	challenge := &http.Server{
		Addr:              ":80",
		Handler:           certManager.HTTPHandler(nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		r.logger.Info("starting HTTP-01 challenge handler", "addr", challenge.Addr)
		if err := challenge.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("HTTP-01 challenge handler", "error", err)
		}
	}()
	defer challenge.Close()

	r.logger.Info("starting HTTPS server", "addr", server.Addr, "domains", r.cfg.Domains)
	return server.ListenAndServeTLS("", "")
}

func (r *Router) serveManualTLS(server *http.Server) error {
	server.TLSConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	r.logger.Info("starting HTTPS server", "addr", server.Addr)
	return server.ListenAndServeTLS(r.cfg.Cert, r.cfg.Key)
}
