// Package kernel assembles the HTTP handler: the global middleware stack
// followed by the application routes.
package kernel

import (
	"net/http"
	"time"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/routes"
	"github.com/Artssj1234/mesa-y-pedidos-app/config"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/metrics"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/middleware"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/reqid"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/router"
)

// HTTPKernel owns the router and the rate limiter in front of it.
type HTTPKernel struct {
	router  *router.Router
	limiter *middleware.Limiter
}

// NewHTTPKernel builds the handler stack around s. With a zero Services it
// still registers every route, which is what route:list relies on.
func NewHTTPKernel(s routes.Services) (*HTTPKernel, error) {
	k := &HTTPKernel{
		router:  router.New(),
		limiter: middleware.NewLimiter(config.RateLimit(), time.Minute),
	}

	// Global middleware stack (outermost → innermost):
	//  1. Prometheus metrics   outermost for accurate total latency
	//  2. Request ID           inject the id before anything logs
	//  3. Logger               access line with request_id
	//  4. Recovery             panics become a logged 500
	//  5. CORS
	//  6. Rate limiter         per client IP
	opts := middleware.DefaultCORSOptions()
	opts.AllowedOrigins = middleware.ParseOrigins(config.Get("CORS_ORIGINS", "*"))

	k.router.Use(metrics.Middleware())
	k.router.Use(reqid.Middleware())
	k.router.Use(middleware.Logger)
	k.router.Use(middleware.Recovery)
	k.router.Use(middleware.CORS(opts))
	k.router.Use(k.limiter.Middleware)

	if err := routes.RegisterAPI(k.router, s); err != nil {
		return nil, err
	}
	return k, nil
}

// Handler is the root http.Handler.
func (k *HTTPKernel) Handler() http.Handler { return k.router.Handler() }

// Router exposes the route table, e.g. for route:list.
func (k *HTTPKernel) Router() *router.Router { return k.router }

// Limiter is run by the server so expired buckets get swept.
func (k *HTTPKernel) Limiter() *middleware.Limiter { return k.limiter }
