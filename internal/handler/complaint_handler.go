package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civic-complaints-api/internal/dto"
	"github.com/noah-isme/civic-complaints-api/internal/models"
	appErrors "github.com/noah-isme/civic-complaints-api/pkg/errors"
	"github.com/noah-isme/civic-complaints-api/pkg/response"
)

// multipart headers and text fields on top of the photo itself
const formOverheadBytes = 1 << 20

type complaintService interface {
	Submit(ctx context.Context, actor *models.JWTClaims, req dto.SubmitComplaintRequest) (*dto.ComplaintResponse, error)
	ListMine(ctx context.Context, actor *models.JWTClaims) ([]dto.ComplaintSummary, error)
	Ranked(ctx context.Context) ([]dto.ComplaintSummary, error)
	UpdateStatus(ctx context.Context, actor *models.JWTClaims, id int64, req dto.UpdateStatusRequest) (*dto.ComplaintSummary, error)
	History(ctx context.Context, id int64) ([]models.AuditLog, error)
	Export(ctx context.Context, query dto.ExportQuery) (*dto.ExportResult, error)
	OpenImage(ctx context.Context, id int64, token string) (*dto.ImageDownload, error)
}

// ComplaintHandler exposes complaint submission and triage endpoints.
type ComplaintHandler struct {
	service       complaintService
	maxImageBytes int64
}

// NewComplaintHandler constructs a complaint handler.
func NewComplaintHandler(svc complaintService, maxImageBytes int64) *ComplaintHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = 10 * 1024 * 1024
	}
	return &ComplaintHandler{service: svc, maxImageBytes: maxImageBytes}
}

// Submit godoc
// @Summary Submit complaint
// @Description Classify and store a complaint with an optional photo and browser coordinates
// @Tags Complaints
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param description formData string false "Free-text description"
// @Param image formData file false "Photo of the issue"
// @Param latitude formData string false "Browser latitude"
// @Param longitude formData string false "Browser longitude"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+formOverheadBytes)

	req := dto.SubmitComplaintRequest{
		Description: c.PostForm("description"),
		Latitude:    c.PostForm("latitude"),
		Longitude:   c.PostForm("longitude"),
	}

	file, err := c.FormFile("image")
	switch {
	case err == nil:
		data, readErr := h.readImage(file)
		if readErr != nil {
			response.Error(c, readErr)
			return
		}
		req.Image = data
		req.ImageFilename = file.Filename
	case errors.Is(err, http.ErrMissingFile):
	default:
		response.Error(c, formError(err))
		return
	}

	res, err := h.service.Submit(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

func (h *ComplaintHandler) readImage(file *multipart.FileHeader) ([]byte, error) {
	if file.Size > h.maxImageBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("image exceeds %d bytes", h.maxImageBytes))
	}
	f, err := file.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unable to read image")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxImageBytes+1))
	if err != nil {
		return nil, formError(err)
	}
	if int64(len(data)) > h.maxImageBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("image exceeds %d bytes", h.maxImageBytes))
	}
	return data, nil
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, "request body too large")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint form")
}

// ListMine godoc
// @Summary List my complaints
// @Tags Complaints
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /complaints/mine [get]
func (h *ComplaintHandler) ListMine(c *gin.Context) {
	complaints, err := h.service.ListMine(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaints, map[string]interface{}{"total": len(complaints)})
}

// Ranked godoc
// @Summary Ranked complaints
// @Description All complaints ordered by severity then newest first
// @Tags Complaints
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) Ranked(c *gin.Context) {
	complaints, err := h.service.Ranked(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaints, map[string]interface{}{"total": len(complaints)})
}

// UpdateStatus godoc
// @Summary Update complaint status
// @Tags Complaints
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Complaint ID"
// @Param payload body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id}/status [patch]
func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	id, err := complaintIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.UpdateStatus(c.Request.Context(), claimsFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// History godoc
// @Summary Complaint status history
// @Tags Complaints
// @Produce json
// @Security BearerAuth
// @Param id path int true "Complaint ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id}/history [get]
func (h *ComplaintHandler) History(c *gin.Context) {
	id, err := complaintIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	logs, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs)
}

// Export godoc
// @Summary Export ranked complaints
// @Tags Complaints
// @Produce text/csv,application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /complaints/export [get]
func (h *ComplaintHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	query.Format = strings.ToLower(strings.TrimSpace(query.Format))

	result, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// Image godoc
// @Summary Download complaint photo
// @Tags Complaints
// @Produce octet-stream
// @Param id path int true "Complaint ID"
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /complaints/{id}/image [get]
func (h *ComplaintHandler) Image(c *gin.Context) {
	id, err := complaintIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing image token"))
		return
	}

	download, err := h.service.OpenImage(c.Request.Context(), id, token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, download.ContentType, download.Data)
}
