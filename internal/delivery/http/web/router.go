package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"go-jobportal-web/internal/delivery/http/middleware"
	"go-jobportal-web/internal/delivery/http/response"
	"go-jobportal-web/internal/domain"
	"go-jobportal-web/internal/session"
	"go-jobportal-web/internal/usecase"
	"go-jobportal-web/pkg/apperror"
	"go-jobportal-web/pkg/logger"
	"go-jobportal-web/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type Deps struct {
	Store        *session.Store
	Auth         *usecase.AuthUsecase
	Jobs         domain.JobUsecase
	Applications domain.ApplicationUsecase
	Health       usecase.HealthUsecase
	Validate     *validator.Validate
	Log          *logger.Logger
	RateLimiter  *middleware.RateLimiter
	Options      Options
}

type Options struct {
	Cookie          middleware.CookieConfig
	SettleTimeout   time.Duration
	RateLimitWindow time.Duration
	GlobalLimit     int
	AuthLimit       int
	HSTS            bool
}

// NewRouter builds the engine from the route table.
func NewRouter(deps Deps) *gin.Engine {
	h := NewHandler(deps)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.SetHTMLTemplate(template.Must(
		template.New("").Funcs(templateFuncs(h.now)).ParseFS(templateFS, "templates/*.html"),
	))

	// Global Middlewares
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(h.log))
	r.Use(middleware.Metrics())

	// Machine endpoints carry no session
	r.GET("/healthz", h.healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	static, _ := fs.Sub(staticFS, "static")
	r.StaticFS("/static", http.FS(static))

	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(nil, h.log)
	}
	opts := deps.Options

	site := []gin.HandlerFunc{
		middleware.SecurityHeaders(opts.HSTS),
		middleware.ErrorHandler(h.log, h.ErrorPage),
		limiter.Middleware(middleware.GlobalRateLimitConfig(opts.GlobalLimit, opts.RateLimitWindow)),
		middleware.Sessions(opts.Cookie),
		middleware.CSRF(opts.Cookie.Secure),
		middleware.LoadSession(h.store),
	}
	guard := []gin.HandlerFunc{
		markGuarded,
		middleware.RequireSession(h.store, opts.SettleTimeout, h.Loading),
	}
	authLimit := limiter.Middleware(middleware.AuthRateLimitConfig(opts.AuthLimit, opts.RateLimitWindow))

	pages := r.Group("/", site...)
	for _, rt := range h.Routes() {
		var chain []gin.HandlerFunc
		if rt.Limited {
			chain = append(chain, authLimit)
		}
		if rt.Guarded {
			chain = append(chain, guard...)
		}
		if rt.Preload != nil {
			chain = append(chain, runPreload(rt.Preload))
		}
		chain = append(chain, rt.Handler)
		pages.Handle(rt.Method, rt.Path, chain...)
	}

	r.NoRoute(append(site, h.notFound)...)
	r.NoMethod(append(site, func(c *gin.Context) {
		_ = c.Error(apperror.New(http.StatusMethodNotAllowed, "This action is not supported here.", nil))
	})...)

	return r
}

func (h *Handler) healthz(c *gin.Context) {
	if h.health == nil {
		response.Success(c, http.StatusOK, "ok", gin.H{"status": "ok"})
		return
	}
	status, ok := h.health.Check(c.Request.Context())
	if !ok {
		response.Error(c, http.StatusServiceUnavailable, "degraded", status)
		return
	}
	response.Success(c, http.StatusOK, "ok", status)
}
