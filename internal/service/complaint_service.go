package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/civic-complaints-api/internal/classifier"
	"github.com/noah-isme/civic-complaints-api/internal/dto"
	"github.com/noah-isme/civic-complaints-api/internal/geo"
	"github.com/noah-isme/civic-complaints-api/internal/models"
	appErrors "github.com/noah-isme/civic-complaints-api/pkg/errors"
	"github.com/noah-isme/civic-complaints-api/pkg/export"
	"github.com/noah-isme/civic-complaints-api/pkg/logger"
	"github.com/noah-isme/civic-complaints-api/pkg/storage"
)

const complaintResource = "complaint"

type complaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	FindByID(ctx context.Context, id int64) (*models.Complaint, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Complaint, error)
	ListAll(ctx context.Context) ([]models.Complaint, error)
	UpdateStatus(ctx context.Context, id int64, status string, updatedAt time.Time) error
}

type complaintAuditTrail interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListByResource(ctx context.Context, resource, resourceID string) ([]models.AuditLog, error)
}

// FileStore persists complaint photos.
type FileStore interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

type locationResolver interface {
	ExtractCoordinates(image []byte) (geo.Coordinates, bool)
	ReverseGeocode(ctx context.Context, coords geo.Coordinates) geo.Location
}

type urlSigner interface {
	Generate(resourceID, ref string) (string, time.Time, error)
	Parse(token string) (resourceID, ref string, err error)
}

type exporter interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset, title string) ([]byte, error)
}

// ComplaintServiceConfig tunes the complaint service.
type ComplaintServiceConfig struct {
	APIPrefix     string
	MaxImageBytes int64
}

// ComplaintService runs the classification pipeline for new complaints and
// serves the citizen and employee views of stored complaints.
type ComplaintService struct {
	repo      complaintRepository
	audit     complaintAuditTrail
	files     FileStore
	locations locationResolver
	signer    urlSigner
	exporters map[string]exporter
	text      *classifier.TextClassifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    ComplaintServiceConfig
	now       func() time.Time
}

// NewComplaintService wires the pipeline collaborators.
func NewComplaintService(
	repo complaintRepository,
	audit complaintAuditTrail,
	files FileStore,
	locations locationResolver,
	signer urlSigner,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	config ComplaintServiceConfig,
) *ComplaintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.MaxImageBytes <= 0 {
		config.MaxImageBytes = 10 * 1024 * 1024
	}
	return &ComplaintService{
		repo:      repo,
		audit:     audit,
		files:     files,
		locations: locations,
		signer:    signer,
		exporters: map[string]exporter{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		text:      classifier.NewTextClassifier(),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit classifies and stores a new complaint for the acting citizen.
//
// Location comes from the photo's GPS tags first and the client coordinates
// second; the client coordinates are geocoded at most once. Classification
// comes from the photo's colour when a rule matches, otherwise from the
// description. Enrichment failures never fail the submission; only the file
// store and the record store can.
func (s *ComplaintService) Submit(ctx context.Context, actor *models.JWTClaims, req dto.SubmitComplaintRequest) (*dto.ComplaintResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint payload")
	}
	if int64(len(req.Image)) > s.config.MaxImageBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "image exceeds the upload limit")
	}

	log := logger.WithContext(ctx, s.logger).With(zap.String("user_id", actor.UserID))

	complaint := &models.Complaint{
		UserID:      actor.UserID,
		Description: req.Description,
		Status:      models.StatusPending,
	}

	var (
		location    geo.Location
		result      classifier.Result
		classified  bool
		clientTried bool
	)
	client, hasClient := geo.ParseCoordinates(req.Latitude, req.Longitude)

	resolveClient := func() {
		clientTried = true
		location = s.locations.ReverseGeocode(ctx, client)
		if !location.Empty() {
			complaint.LocationSource = models.LocationClient
		}
	}

	if req.HasImage() {
		key, err := s.storePhoto(ctx, req.Image)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image")
		}
		complaint.Image = key

		if coords, ok := s.locations.ExtractCoordinates(req.Image); ok {
			location = s.locations.ReverseGeocode(ctx, coords)
			if !location.Empty() {
				complaint.LocationSource = models.LocationImageGPS
			}
		}
		if location.Empty() && hasClient {
			resolveClient()
		}

		result, classified = classifier.ClassifyImage(req.Image)
		if classified {
			complaint.ClassifiedBy = models.ClassifiedByImage
		}
	}

	if !classified {
		if location.Empty() && hasClient && !clientTried {
			resolveClient()
		}
		result = s.text.Classify(req.Description)
		complaint.ClassifiedBy = models.ClassifiedByText
	}

	complaint.State = location.State
	complaint.District = location.District
	complaint.City = location.City
	complaint.IssueType = result.IssueType
	complaint.Severity = result.Severity
	complaint.Department = result.IssueType.Department()
	complaint.Priority = result.Severity

	if err := s.repo.Create(ctx, complaint); err != nil {
		if complaint.HasImage() {
			if delErr := s.files.Delete(ctx, complaint.Image); delErr != nil {
				log.Warn("failed to remove orphaned photo", zap.String("image", complaint.Image), zap.Error(delErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save complaint")
	}

	s.metrics.RecordComplaint(string(complaint.ClassifiedBy), string(complaint.IssueType), string(complaint.Severity), string(complaint.LocationSource))
	log.Info("complaint submitted",
		zap.Int64("complaint_id", complaint.ID),
		zap.String("issue_type", string(complaint.IssueType)),
		zap.String("severity", string(complaint.Severity)),
		zap.String("classified_by", string(complaint.ClassifiedBy)),
		zap.String("location_source", string(complaint.LocationSource)),
	)

	resp := &dto.ComplaintResponse{Complaint: *complaint}
	resp.ImageURL, resp.ImageExpiresAt = s.signImage(complaint)
	return resp, nil
}

// ListMine returns the acting citizen's complaints, newest first.
func (s *ComplaintService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]dto.ComplaintSummary, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	complaints, err := s.repo.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}
	return s.summaries(complaints), nil
}

// Ranked returns every complaint in triage order.
func (s *ComplaintService) Ranked(ctx context.Context) ([]dto.ComplaintSummary, error) {
	ranked, err := s.rankedComplaints(ctx)
	if err != nil {
		return nil, err
	}
	return s.summaries(ranked), nil
}

// UpdateStatus sets a complaint's status and records the change in the audit trail.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id int64, req dto.UpdateStatusRequest) (*dto.ComplaintSummary, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.Status = strings.TrimSpace(req.Status)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	complaint, err := s.findComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := complaint.Status

	now := s.now()
	if err := s.repo.UpdateStatus(ctx, id, req.Status, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update complaint status")
	}
	complaint.Status = req.Status
	complaint.UpdatedAt = now

	resourceID := strconv.FormatInt(id, 10)
	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionComplaintStatus,
			Resource:   complaintResource,
			ResourceID: &resourceID,
			OldValues:  []byte(fmt.Sprintf(`{"status":%q}`, previous)),
			NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, req.Status)),
			IPAddress:  req.IP,
			UserAgent:  req.UserAgent,
		}); err != nil {
			s.logger.Warn("failed to record status audit log", zap.Int64("complaint_id", id), zap.Error(err))
		}
	}

	summary := s.summary(*complaint)
	return &summary, nil
}

// History returns the audit trail of a complaint.
func (s *ComplaintService) History(ctx context.Context, id int64) ([]models.AuditLog, error) {
	if _, err := s.findComplaint(ctx, id); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []models.AuditLog{}, nil
	}
	logs, err := s.audit.ListByResource(ctx, complaintResource, strconv.FormatInt(id, 10))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint history")
	}
	return logs, nil
}

// Export renders the ranked complaint list as CSV or PDF.
func (s *ComplaintService) Export(ctx context.Context, query dto.ExportQuery) (*dto.ExportResult, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export format")
	}
	format := query.Format
	if format == "" {
		format = "csv"
	}
	exp := s.exporters[format]

	ranked, err := s.rankedComplaints(ctx)
	if err != nil {
		return nil, err
	}

	data, err := exp.Render(complaintDataset(ranked), "Ranked Complaints")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &dto.ExportResult{
		Filename:    fmt.Sprintf("complaints-%s.%s", s.now().Format("20060102-150405"), exp.Extension()),
		ContentType: exp.ContentType(),
		Data:        data,
	}, nil
}

// OpenImage validates a signed download token and returns the stored photo.
func (s *ComplaintService) OpenImage(ctx context.Context, id int64, token string) (*dto.ImageDownload, error) {
	resourceID, ref, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "image link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid image link")
	}
	if resourceID != strconv.FormatInt(id, 10) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid image link")
	}

	complaint, err := s.findComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	if complaint.Image != ref {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "image not found")
	}

	rc, err := s.files.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "image not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open image")
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.config.MaxImageBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read image")
	}
	return &dto.ImageDownload{ContentType: mimetype.Detect(data).String(), Data: data}, nil
}

func (s *ComplaintService) storePhoto(ctx context.Context, data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	name := uuid.NewString() + mtype.Extension()
	return s.files.Save(ctx, name, data, mtype.String())
}

func (s *ComplaintService) findComplaint(ctx context.Context, id int64) (*models.Complaint, error) {
	complaint, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	return complaint, nil
}

func (s *ComplaintService) rankedComplaints(ctx context.Context) ([]models.Complaint, error) {
	complaints, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}
	return RankComplaints(complaints), nil
}

func (s *ComplaintService) summaries(complaints []models.Complaint) []dto.ComplaintSummary {
	out := make([]dto.ComplaintSummary, 0, len(complaints))
	for _, c := range complaints {
		out = append(out, s.summary(c))
	}
	return out
}

func (s *ComplaintService) summary(c models.Complaint) dto.ComplaintSummary {
	summary := dto.ComplaintSummary{
		ID:         c.ID,
		State:      c.State,
		District:   c.District,
		City:       c.City,
		IssueType:  c.IssueType,
		Severity:   c.Severity,
		Priority:   c.Priority,
		Department: c.Department,
		Status:     c.Status,
		CreatedAt:  c.CreatedAt,
	}
	summary.ImageURL, summary.ImageExpiresAt = s.signImage(&c)
	return summary
}

func (s *ComplaintService) signImage(c *models.Complaint) (string, *time.Time) {
	if !c.HasImage() || s.signer == nil {
		return "", nil
	}
	token, expiresAt, err := s.signer.Generate(strconv.FormatInt(c.ID, 10), c.Image)
	if err != nil {
		s.logger.Warn("failed to sign image url", zap.Int64("complaint_id", c.ID), zap.Error(err))
		return "", nil
	}
	link := fmt.Sprintf("%s/complaints/%d/image?token=%s", strings.TrimRight(s.config.APIPrefix, "/"), c.ID, url.QueryEscape(token))
	return link, &expiresAt
}

func complaintDataset(complaints []models.Complaint) export.Dataset {
	headers := []string{"ID", "State", "District", "City", "Issue Type", "Severity", "Priority", "Department", "Status", "Submitted"}
	rows := make([]map[string]string, 0, len(complaints))
	for _, c := range complaints {
		rows = append(rows, map[string]string{
			"ID":         strconv.FormatInt(c.ID, 10),
			"State":      c.State,
			"District":   c.District,
			"City":       c.City,
			"Issue Type": string(c.IssueType),
			"Severity":   string(c.Severity),
			"Priority":   string(c.Priority),
			"Department": c.Department,
			"Status":     c.Status,
			"Submitted":  c.CreatedAt.Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
