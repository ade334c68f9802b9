package httpapi

import (
	"net/http"

	"github.com/MrEthical07/safeher"
	"github.com/MrEthical07/safeher/middleware"
	"github.com/MrEthical07/safeher/permission"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

// Options tunes the router. Zero values fall back to the engine's config.
type Options struct {
	Logger      *zap.Logger
	CORSOrigins []string
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
}

type server struct {
	engine *safeher.Engine
	logger *zap.Logger
}

// NewRouter returns the complete API handler for engine.
func NewRouter(engine *safeher.Engine, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = engine.Logger()
	}
	origins := opts.CORSOrigins
	if origins == nil {
		origins = engine.Config().HTTP.CORSOrigins
	}

	s := &server{engine: engine, logger: logger.Named("http")}
	mux := http.NewServeMux()

	authed := middleware.Guard(engine, safeher.ModeInherit)
	protect := func(perm string, h http.HandlerFunc) http.Handler {
		if perm == "" {
			return authed(h)
		}
		return authed(middleware.RequirePermission(engine, perm)(h))
	}

	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("GET /api/health/ready", s.ready)

	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("POST /api/auth/logout", protect("", s.logout))
	mux.Handle("GET /api/auth/me", protect("", s.me))

	mux.Handle("GET /api/reports", protect(permission.ReportReadOwn, s.listReports))
	mux.Handle("POST /api/reports", protect(permission.ReportCreate, s.createReport))
	mux.Handle("POST /api/reports/validate", protect(permission.ReportCreate, s.validateStep))
	mux.Handle("GET /api/reports/{id}", protect(permission.ReportReadOwn, s.getReport))
	mux.Handle("PUT /api/reports/{id}", protect("", s.updateReport))

	mux.Handle("POST /api/uploads", protect(permission.UploadCreate, s.upload))
	mux.HandleFunc("GET /uploads/{filename}", s.serveUpload)

	mux.Handle("GET /api/moderator/reports", protect(permission.ReportReadAll, s.queue))
	mux.Handle("GET /api/moderator/reports/reviewed", protect(permission.NoteCreate, s.reviewed))
	mux.Handle("GET /api/moderator/reports/{id}", protect(permission.ReportReadAll, s.moderatorReport))
	mux.Handle("POST /api/moderator/reports/{id}/note", protect(permission.NoteCreate, s.addNote))

	mux.Handle("GET /api/admin/users", protect(permission.UserManage, s.listUsers))
	mux.Handle("POST /api/admin/users", protect(permission.UserManage, s.createUser))
	mux.Handle("PUT /api/admin/users/{id}", protect(permission.UserManage, s.updateUser))
	mux.Handle("GET /api/admin/stats", protect(permission.StatsRead, s.stats))
	mux.Handle("GET /api/admin/reports/export", protect(permission.ReportExport, s.exportReports))

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	var h http.Handler = mux
	h = withRequestContext(h)
	h = cors(origins)(h)
	h = s.logRequests(h)
	h = s.recoverPanics(h)
	return h
}

func (s *server) fail(w http.ResponseWriter, err error) {
	e := errorFor(err, s.engine.UploadPolicy())
	if e.status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", e.status), zap.Error(err))
	}
	writeAPIError(w, e)
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "SafeHer API is running",
	})
}

func (s *server) ready(w http.ResponseWriter, r *http.Request) {
	h := s.engine.Health(r.Context())
	status, state := http.StatusOK, "ok"
	if !h.DatabaseOK || !h.RedisOK {
		status, state = http.StatusServiceUnavailable, "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":           state,
		"database":         h.DatabaseOK,
		"redis":            h.RedisOK,
		"redis_latency_us": h.RedisLatency,
	})
}
