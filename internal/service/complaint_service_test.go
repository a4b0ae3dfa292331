package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/civic-complaints-api/internal/dto"
	"github.com/noah-isme/civic-complaints-api/internal/geo"
	"github.com/noah-isme/civic-complaints-api/internal/models"
	appErrors "github.com/noah-isme/civic-complaints-api/pkg/errors"
	"github.com/noah-isme/civic-complaints-api/pkg/storage"
)

type fakeComplaintRepo struct {
	complaints map[int64]models.Complaint
	nextID     int64
	createErr  error
	listErr    error
}

func newFakeComplaintRepo() *fakeComplaintRepo {
	return &fakeComplaintRepo{complaints: map[int64]models.Complaint{}}
}

func (f *fakeComplaintRepo) Create(ctx context.Context, complaint *models.Complaint) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	complaint.ID = f.nextID
	complaint.CreatedAt = time.Now().UTC()
	f.complaints[complaint.ID] = *complaint
	return nil
}

func (f *fakeComplaintRepo) FindByID(ctx context.Context, id int64) (*models.Complaint, error) {
	c, ok := f.complaints[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f *fakeComplaintRepo) sorted() []models.Complaint {
	out := make([]models.Complaint, 0, len(f.complaints))
	for _, c := range f.complaints {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeComplaintRepo) ListByOwner(ctx context.Context, userID string) ([]models.Complaint, error) {
	var out []models.Complaint
	for _, c := range f.sorted() {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, f.listErr
}

func (f *fakeComplaintRepo) ListAll(ctx context.Context) ([]models.Complaint, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sorted(), nil
}

func (f *fakeComplaintRepo) UpdateStatus(ctx context.Context, id int64, status string, updatedAt time.Time) error {
	c, ok := f.complaints[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Status = status
	c.UpdatedAt = updatedAt
	f.complaints[id] = c
	return nil
}

type memoryFileStore struct {
	files   map[string][]byte
	saveErr error
}

func newMemoryFileStore() *memoryFileStore {
	return &memoryFileStore{files: map[string][]byte{}}
}

func (m *memoryFileStore) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.files[name] = data
	return name, nil
}

func (m *memoryFileStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	data, ok := m.files[name]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryFileStore) Delete(ctx context.Context, name string) error {
	delete(m.files, name)
	return nil
}

type fakeLocator struct {
	exif      geo.Coordinates
	hasExif   bool
	locations map[geo.Coordinates]geo.Location
	lookups   []geo.Coordinates
}

func (f *fakeLocator) ExtractCoordinates(image []byte) (geo.Coordinates, bool) {
	return f.exif, f.hasExif
}

func (f *fakeLocator) ReverseGeocode(ctx context.Context, coords geo.Coordinates) geo.Location {
	f.lookups = append(f.lookups, coords)
	return f.locations[coords]
}

var (
	clientCoords = geo.Coordinates{Lat: 39.78, Lon: -89.65}
	photoCoords  = geo.Coordinates{Lat: 40.4462, Lon: 79.982222}
	springfield  = geo.Location{State: "Illinois", District: "Springfield County", City: "Springfield"}
	pittsburgh   = geo.Location{State: "Pennsylvania", District: "Allegheny County", City: "Pittsburgh"}
	citizen      = &models.JWTClaims{UserID: "citizen-1", Username: "asha", Role: models.RoleCitizen}
	employee     = &models.JWTClaims{UserID: "employee-1", Username: "ravi", Role: models.RoleEmployee}
)

func solidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

var (
	yellow = color.RGBA{220, 210, 40, 255}
	grey   = color.RGBA{120, 120, 120, 255}
)

type complaintFixture struct {
	svc     *ComplaintService
	repo    *fakeComplaintRepo
	files   *memoryFileStore
	locator *fakeLocator
	audit   *mockAuditWriter
}

func newComplaintFixture() *complaintFixture {
	f := &complaintFixture{
		repo:    newFakeComplaintRepo(),
		files:   newMemoryFileStore(),
		locator: &fakeLocator{locations: map[geo.Coordinates]geo.Location{clientCoords: springfield, photoCoords: pittsburgh}},
		audit:   &mockAuditWriter{},
	}
	f.svc = NewComplaintService(f.repo, f.audit, f.files, f.locator, storage.NewSignedURLSigner("test-secret", time.Minute), NewMetricsService(), nil, nil, ComplaintServiceConfig{APIPrefix: "/api/v1", MaxImageBytes: 1 << 20})
	return f
}

func TestSubmitTextOnly(t *testing.T) {
	f := newComplaintFixture()

	resp, err := f.svc.Submit(context.Background(), citizen, dto.SubmitComplaintRequest{Description: "pothole on main road"})
	require.NoError(t, err)

	assert.Equal(t, models.IssueRoad, resp.IssueType)
	assert.Equal(t, models.SeverityLow, resp.Severity)
	assert.Equal(t, models.SeverityLow, resp.Priority)
	assert.Equal(t, "Road Department", resp.Department)
	assert.Equal(t, models.StatusPending, resp.Status)
	assert.Equal(t, "", resp.State+resp.District+resp.City)
	assert.Equal(t, models.ClassifiedByText, resp.ClassifiedBy)
	assert.Equal(t, models.LocationNone, resp.LocationSource)
	assert.Empty(t, resp.ImageURL)
	assert.Empty(t, f.locator.lookups)
	assert.Equal(t, "citizen-1", f.repo.complaints[resp.ID].UserID)
}

func TestSubmitImageRuleWinsOverText(t *testing.T) {
	f := newComplaintFixture()

	resp, err := f.svc.Submit(context.Background(), citizen, dto.SubmitComplaintRequest{
		Description: "pothole flooded with garbage",
		Image:       solidPNG(t, yellow),
		Latitude:    "39.78",
		Longitude:   "-89.65",
	})
	require.NoError(t, err)

	assert.Equal(t, "Springfield County", resp.District)
	assert.Equal(t, models.IssueElectrical, resp.IssueType)
	assert.Equal(t, models.SeverityCritical, resp.Severity)
	assert.Equal(t, "Electrical Department", resp.Department)
	assert.Equal(t, models.ClassifiedByImage, resp.ClassifiedBy)
	assert.Equal(t, models.LocationClient, resp.LocationSource)
	assert.Equal(t, []geo.Coordinates{clientCoords}, f.locator.lookups)
	require.Len(t, f.files.files, 1)
	assert.True(t, strings.HasSuffix(resp.Image, ".png"))
	assert.NotEmpty(t, resp.ImageURL)
}

func TestSubmitPrefersPhotoGPS(t *testing.T) {
	f := newComplaintFixture()
	f.locator.exif, f.locator.hasExif = photoCoords, true

	resp, err := f.svc.Submit(context.Background(), citizen, dto.SubmitComplaintRequest{
		Description: "broken street light",
		Image:       solidPNG(t, grey),
		Latitude:    "39.78",
		Longitude:   "-89.65",
	})
	require.NoError(t, err)

	assert.Equal(t, pittsburgh.City, resp.City)
	assert.Equal(t, models.LocationImageGPS, resp.LocationSource)
	assert.Equal(t, []geo.Coordinates{photoCoords}, f.locator.lookups)
	assert.Equal(t, models.IssueElectrical, resp.IssueType)
	assert.Equal(t, models.SeverityHigh, resp.Severity)
	assert.Equal(t, models.ClassifiedByText, resp.ClassifiedBy)
}

func TestSubmitClientCoordinatesTriedOnce(t *testing.T) {
	f := newComplaintFixture()
	f.locator.exif, f.locator.hasExif = geo.Coordinates{Lat: 1, Lon: 1}, true
	f.locator.locations = map[geo.Coordinates]geo.Location{}

	resp, err := f.svc.Submit(context.Background(), citizen, dto.SubmitComplaintRequest{
		Description: "garbage",
		Image:       solidPNG(t, grey),
		Latitude:    "39.78",
		Longitude:   "-89.65",
	})
	require.NoError(t, err)

	assert.Equal(t, []geo.Coordinates{{Lat: 1, Lon: 1}, clientCoords}, f.locator.lookups)
	assert.Equal(t, models.LocationNone, resp.LocationSource)
	assert.Equal(t, models.IssueSanitation, resp.IssueType)
}

func TestSubmitUndecodableImageFallsBackToText(t *testing.T) {
	f := newComplaintFixture()

	resp, err := f.svc.Submit(context.Background(), citizen, dto.SubmitComplaintRequest{
		Description: "drain blocked",
		Image:       []byte("definitely not an image"),
		Latitude:    "39.78",
		Longitude:   "-89.65",
	})
	require.NoError(t, err)

	assert.Equal(t, models.IssueDrainage, resp.IssueType)
	assert.Equal(t, models.SeverityHigh, resp.Severity)
	assert.Equal(t, springfield, geo.Location{State: resp.State, District: resp.District, City: resp.City})
	assert.Len(t, f.locator.lookups, 1)
	assert.NotEmpty(t, resp.Image)
}

func TestSubmitIgnoresUnparsableCoordinates(t *testing.T) {
	f := newComplaintFixture()

	resp, err := f.svc.Submit(context.Background(), citizen, dto.SubmitComplaintRequest{Description: "water", Latitude: "north", Longitude: "-89.65"})
	require.NoError(t, err)

	assert.Empty(t, f.locator.lookups)
	assert.Equal(t, models.IssueDrainage, resp.IssueType)
}

func TestSubmitFailures(t *testing.T) {
	t.Run("file store", func(t *testing.T) {
		f := newComplaintFixture()
		f.files.saveErr = errors.New("disk full")

		_, err := f.svc.Submit(context.Background(), citizen, dto.SubmitComplaintRequest{Description: "x", Image: solidPNG(t, yellow)})
		assert.ErrorIs(t, err, appErrors.ErrInternal)
		assert.Empty(t, f.repo.complaints)
	})

	t.Run("record store", func(t *testing.T) {
		f := newComplaintFixture()
		f.repo.createErr = errors.New("connection refused")

		_, err := f.svc.Submit(context.Background(), citizen, dto.SubmitComplaintRequest{Description: "x", Image: solidPNG(t, yellow)})
		assert.ErrorIs(t, err, appErrors.ErrInternal)
		assert.Empty(t, f.files.files)
	})

	t.Run("image too large", func(t *testing.T) {
		f := newComplaintFixture()
		f.svc.config.MaxImageBytes = 8

		_, err := f.svc.Submit(context.Background(), citizen, dto.SubmitComplaintRequest{Image: solidPNG(t, yellow)})
		assert.ErrorIs(t, err, appErrors.ErrPayloadTooLarge)
	})

	t.Run("anonymous", func(t *testing.T) {
		f := newComplaintFixture()
		_, err := f.svc.Submit(context.Background(), nil, dto.SubmitComplaintRequest{Description: "x"})
		assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	})
}

func seedComplaints(t *testing.T, f *complaintFixture) {
	t.Helper()
	descriptions := []string{"garbage pickup missed", "fire near transformer", "broken road", "flood in the street"}
	for _, d := range descriptions {
		_, err := f.svc.Submit(context.Background(), citizen, dto.SubmitComplaintRequest{Description: d})
		require.NoError(t, err)
	}
}

func TestRankedComplaints(t *testing.T) {
	f := newComplaintFixture()
	seedComplaints(t, f)

	ranked, err := f.svc.Ranked(context.Background())
	require.NoError(t, err)

	got := make([]int64, len(ranked))
	for i, c := range ranked {
		got[i] = c.ID
	}
	assert.Equal(t, []int64{4, 2, 3, 1}, got)
	assert.Equal(t, models.SeverityCritical, ranked[0].Priority)
}

func TestListMine(t *testing.T) {
	f := newComplaintFixture()
	seedComplaints(t, f)
	_, err := f.svc.Submit(context.Background(), &models.JWTClaims{UserID: "citizen-2"}, dto.SubmitComplaintRequest{Description: "leak"})
	require.NoError(t, err)

	mine, err := f.svc.ListMine(context.Background(), citizen)
	require.NoError(t, err)
	assert.Len(t, mine, 4)

	_, err = f.svc.ListMine(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestUpdateStatusRecordsAudit(t *testing.T) {
	f := newComplaintFixture()
	seedComplaints(t, f)

	summary, err := f.svc.UpdateStatus(context.Background(), employee, 2, dto.UpdateStatusRequest{Status: " In Progress ", IP: "10.0.0.9"})
	require.NoError(t, err)
	assert.Equal(t, "In Progress", summary.Status)
	assert.Equal(t, "In Progress", f.repo.complaints[2].Status)

	require.Len(t, f.audit.logs, 1)
	entry := f.audit.logs[0]
	assert.Equal(t, models.AuditActionComplaintStatus, entry.Action)
	assert.JSONEq(t, `{"status":"Pending"}`, string(entry.OldValues))
	assert.JSONEq(t, `{"status":"In Progress"}`, string(entry.NewValues))
	assert.Equal(t, "employee-1", *entry.UserID)

	history, err := f.svc.History(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdateStatusErrors(t *testing.T) {
	f := newComplaintFixture()

	_, err := f.svc.UpdateStatus(context.Background(), employee, 999, dto.UpdateStatusRequest{Status: "Resolved"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.UpdateStatus(context.Background(), employee, 1, dto.UpdateStatusRequest{Status: "   "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.History(context.Background(), 999)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestExportRendersRankedOrder(t *testing.T) {
	f := newComplaintFixture()
	seedComplaints(t, f)

	result, err := f.svc.Export(context.Background(), dto.ExportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(result.Data)), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "ID,State,District,City,Issue Type"))
	assert.True(t, strings.HasPrefix(lines[1], "4,"))
	assert.True(t, strings.HasPrefix(lines[4], "1,"))

	pdf, err := f.svc.Export(context.Background(), dto.ExportQuery{Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Data, []byte("%PDF")))

	_, err = f.svc.Export(context.Background(), dto.ExportQuery{Format: "xlsx"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestOpenImageWithSignedToken(t *testing.T) {
	f := newComplaintFixture()
	photo := solidPNG(t, yellow)
	resp, err := f.svc.Submit(context.Background(), citizen, dto.SubmitComplaintRequest{Description: "sparks", Image: photo})
	require.NoError(t, err)

	link, err := url.Parse(resp.ImageURL)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/complaints/1/image", link.Path)
	token := link.Query().Get("token")

	download, err := f.svc.OpenImage(context.Background(), resp.ID, token)
	require.NoError(t, err)
	assert.Equal(t, "image/png", download.ContentType)
	assert.Equal(t, photo, download.Data)

	_, err = f.svc.OpenImage(context.Background(), resp.ID+1, token)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.OpenImage(context.Background(), resp.ID, token+"x")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
