package server

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
	"github.com/joseph-ayodele/filings-tracker/internal/session"
)

func (s *Server) registerRoutes() {
	r := s.engine
	r.GET("/health", s.handleHealth)
	r.GET("/download", s.handleDownload)

	sessions := r.Group("/sessions")
	{
		sessions.POST("", s.handleCreateSession)
		sessions.GET("/:id", s.handleGetSession)
		sessions.DELETE("/:id", s.handleDeleteSession)

		sessions.POST("/:id/documents", s.handleUpload)

		sessions.POST("/:id/selection/toggle", s.handleToggle)
		sessions.POST("/:id/selection/all", s.handleSelectAll)
		sessions.POST("/:id/selection/toggle-all", s.handleToggleAll)
		sessions.DELETE("/:id/selection", s.handleClearSelection)

		sessions.POST("/:id/query", s.handleQuery)
		sessions.POST("/:id/store", s.handleStore)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// lookup resolves the :id path parameter, responding on failure.
func (s *Server) lookup(c *gin.Context) (*session.Session, bool) {
	id := c.Param("id")
	v := common.NewValidator().Field("id", id, common.Required, common.UUID)
	if err := v.Error(); err != nil {
		respondError(c, err)
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	c.Request = c.Request.WithContext(common.WithSessionID(c.Request.Context(), id))
	return sess, true
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.sessions.Create()
	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if _, ok := s.lookup(c); !ok {
		return
	}
	s.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

type uploadFailure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

func (s *Server) handleUpload(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		respondError(c, fmt.Errorf("%w: no file provided", common.ErrInvalidInput))
		return
	}

	if err := sess.BeginUpload(); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	var failures []uploadFailure
	var firstErr error
	for _, fh := range files {
		if err := s.uploadOne(ctx, sess, fh); err != nil {
			s.logger.Warn("server.upload.failed", "session_id", sess.ID(), "file", fh.Filename, "error", err)
			failures = append(failures, uploadFailure{File: fh.Filename, Error: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if err := sess.FinishUpload(firstErr); err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if len(failures) == len(files) {
		status = statusFor(firstErr)
	}
	c.JSON(status, gin.H{"session": sess.Snapshot(), "failed": failures})
}

func (s *Server) uploadOne(ctx context.Context, sess *session.Session, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", common.ErrInvalidInput, fh.Filename, err)
	}
	defer func() { _ = f.Close() }()

	receipt, err := s.uploader.Upload(ctx, sess.Snapshot().UploadSessionID, fh.Filename, f)
	if err != nil {
		return err
	}
	return sess.RegisterUpload(entity.Document{
		ID:         fh.Filename,
		Size:       fh.Size,
		ContentRef: receipt.ContentRef,
		UploadedAt: time.Now().UTC(),
	}, receipt)
}

func (s *Server) handleToggle(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	var payload struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	v := common.NewValidator().Field("id", payload.ID, common.Required, common.MaxLength(512))
	if err := v.Error(); err != nil {
		respondError(c, err)
		return
	}
	if !sess.ToggleSelection(payload.ID) {
		respondError(c, fmt.Errorf("%w: document %q", common.ErrNotFound, payload.ID))
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSelectAll(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	sess.SelectAll()
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handleToggleAll(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	sess.ToggleAll()
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handleClearSelection(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	sess.ClearAll()
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handleQuery(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	// A started query runs to completion even if the caller goes away.
	ctx := context.WithoutCancel(c.Request.Context())
	out, err := s.orchestrator.RunQuery(ctx, sess)
	body := gin.H{
		"skipped": out.Skipped,
		"stale":   out.Stale,
		"token":   out.Token,
		"session": sess.Snapshot(),
	}
	if err != nil {
		body["error"] = err.Error()
		c.JSON(statusFor(err), body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleStore(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	if err := s.orchestrator.Store(ctx, sess); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError && !errors.Is(err, common.ErrInternal) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error(), "session": sess.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess.Snapshot()})
}

func (s *Server) handleDownload(c *gin.Context) {
	b, err := s.exporter.WorkbookXLSX(c.Request.Context())
	if err != nil {
		s.logger.Error("server.download.failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", constants.ExportFileName))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", b)
}
