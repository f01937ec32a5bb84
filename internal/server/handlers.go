package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"dealercrm/internal/gateway"
	"dealercrm/internal/models"
)

// Healthz
// GET /healthz
func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListBackups returns the retained backups, newest first.
// GET /api/backups
func (s *Server) ListBackups(c *gin.Context) {
	records, err := s.gateway.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if records == nil {
		records = []models.BackupRecord{}
	}
	c.JSON(http.StatusOK, models.BackupListResponse{Success: true, Backups: records})
}

// SaveBackup stores one envelope.
// POST /api/backups
func (s *Server) SaveBackup(c *gin.Context) {
	var req models.BackupSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", gateway.ErrMissingData, err))
		return
	}

	res, err := s.gateway.Save(c.Request.Context(), gateway.SaveRequest{
		Data:       req.Data,
		DataHash:   req.DataHash,
		SkipIfSame: req.SkipIfSame,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	if res.Skipped {
		c.JSON(http.StatusOK, models.BackupSaveResponse{Success: true, Skipped: true, DataHash: res.Hash})
		return
	}
	c.JSON(http.StatusOK, models.BackupSaveResponse{
		Success:   true,
		BackupID:  res.ID,
		SizeBytes: res.SizeBytes,
		DataHash:  res.Hash,
		Metadata:  &res.Metadata,
	})
}

// GetBackup returns one backup including its envelope.
// GET /api/backups/:id
func (s *Server) GetBackup(c *gin.Context) {
	rec, err := s.gateway.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.BackupGetResponse{
		Success: true,
		Backup:  *rec,
		Data:    json.RawMessage(rec.Payload),
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gateway.ErrMissingData), errors.Is(err, gateway.ErrInvalidData):
		status = http.StatusBadRequest
	case errors.Is(err, gateway.ErrNotFound):
		status = http.StatusNotFound
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Backup request failed")
	}
	c.JSON(status, models.ErrorResponse{Success: false, Error: msg})
}
