package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rollcall/internal/archive"
	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/metrics"
	"rollcall/internal/session"
)

// Handler serves the attendance API over a session manager. The archive
// repo is nil when no database is configured; history is then unavailable
// but the core endpoints keep working.
type Handler struct {
	mgr     *session.Manager
	repo    *archive.Repository
	cfg     config.App
	healthy func(ctx context.Context) bool
}

// New creates a handler. healthy reports store connectivity and may be nil
// for backends that are always reachable (in-memory).
func New(mgr *session.Manager, repo *archive.Repository, cfg config.App, healthy func(ctx context.Context) bool) *Handler {
	return &Handler{mgr: mgr, repo: repo, cfg: cfg, healthy: healthy}
}

// Routes registers all endpoints on the router.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/", h.Index)
	r.GET("/healthz", h.Healthz)
	r.GET("/api/get-current-code", h.CurrentCode)
	r.POST("/api/verify-attendance", h.VerifyAttendance)
	r.POST("/api/professor/login", h.ProfessorLogin)

	professor := r.Group("/api", auth.ProfessorAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer, h.cfg.ProfessorKey != ""))
	professor.GET("/get-attendance-log", h.AttendanceLog)
	professor.GET("/attendance-history", h.History)
}

func (h *Handler) storeConnected(ctx context.Context) bool {
	if h.healthy == nil {
		return true
	}
	return h.healthy(ctx)
}

// Index is a simple welcome page showing the server is running and listing
// endpoints.
func (h *Handler) Index(c *gin.Context) {
	kvStatus := "connected"
	if !h.storeConnected(c.Request.Context()) {
		kvStatus = "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"message":   "Welcome to the Rollcall attendance API!",
		"kv_status": kvStatus,
		"endpoints": gin.H{
			"GET /api/get-current-code":   "Fetch the current secret code for attendance.",
			"POST /api/verify-attendance": "Submit a student_id and code to be marked present.",
			"GET /api/get-attendance-log": "View the list of students currently marked as present.",
			"GET /api/attendance-history": "View archived attendance records across rotations.",
		},
	})
}

// Healthz reports readiness of the store and the archive.
func (h *Handler) Healthz(c *gin.Context) {
	kvHealthy := h.storeConnected(c.Request.Context())
	status := http.StatusOK
	if !kvHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "kv": kvHealthy, "db": h.repo != nil})
}

// CurrentCode returns the active code, rotating first when stale.
func (h *Handler) CurrentCode(c *gin.Context) {
	code, err := h.mgr.ResolveActiveCode(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.CodeFetches.Inc()
	c.JSON(http.StatusOK, gin.H{"secret_code": code})
}

// VerifyAttendance checks the submitted code and marks the student present.
func (h *Handler) VerifyAttendance(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id"`
		Code      string `json:"code"`
	}
	// A malformed or absent body reads the same as missing fields.
	_ = c.ShouldBindJSON(&req)

	if err := h.mgr.Submit(c.Request.Context(), req.StudentID, req.Code); err != nil {
		h.fail(c, err)
		return
	}

	metrics.Submissions.WithLabelValues("accepted").Inc()
	c.JSON(http.StatusOK, gin.H{
		"status":  "SUCCESS",
		"message": "Welcome, " + req.StudentID + ". Your attendance is confirmed.",
	})
}

// AttendanceLog returns the students present under the current code,
// sorted.
func (h *Handler) AttendanceLog(c *gin.Context) {
	present, err := h.mgr.ListPresent(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"present_students": present})
}

// History returns archived records from Postgres, newest first.
func (h *Handler) History(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "FAILED", "message": "Attendance archive not configured."})
		return
	}

	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	records, err := h.repo.ListRecords(c.Request.Context(), c.Query("student_id"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "FAILED", "message": "Archive query failed."})
		return
	}
	if records == nil {
		records = []archive.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// ProfessorLogin exchanges the configured passphrase for professor tokens.
func (h *Handler) ProfessorLogin(c *gin.Context) {
	if h.cfg.ProfessorKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "FAILED", "message": "Professor auth not configured."})
		return
	}

	var req struct {
		Passphrase string `json:"passphrase"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Passphrase != h.cfg.ProfessorKey {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "FAILED", "message": "Invalid passphrase."})
		return
	}

	tokens, err := auth.Issue("professor", auth.RoleProfessor, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "FAILED", "message": "Token issue failed."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// fail maps manager errors onto the API's failure envelope.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrMissingField):
		metrics.Submissions.WithLabelValues("missing_field").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"status": "FAILED", "message": "Missing student_id or code."})
	case errors.Is(err, session.ErrCodeMismatch):
		metrics.Submissions.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusForbidden, gin.H{"status": "FAILED", "message": "Incorrect or expired code. Proxy attempt detected?"})
	case errors.Is(err, session.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "FAILED", "message": "Attendance store unavailable. Try again shortly."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "FAILED", "message": "Internal error."})
	}
}
