package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"goa.design/clue/log"
)

// handleHTTPServer starts the API server and arranges for it to shut down
// gracefully once ctx is canceled, mirroring the teacher's server lifecycle:
// listen in a background goroutine, report failures on errc, and give
// in-flight requests 30s to finish on shutdown.
func handleHTTPServer(ctx context.Context, addr string, handler http.Handler, wg *sync.WaitGroup, errc chan error) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 60 * time.Second}

	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			log.Printf(ctx, "HTTP server listening on %q", addr)
			errc <- srv.ListenAndServe()
		}()

		<-ctx.Done()
		log.Printf(ctx, "shutting down HTTP server at %q", addr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf(ctx, "failed to shutdown: %v", err)
		}
	}()
}
