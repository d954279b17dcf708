package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	activitydomain "github.com/smallbiznis/agencyflow/internal/activity/domain"
	"github.com/smallbiznis/agencyflow/internal/errs"
	"github.com/smallbiznis/agencyflow/internal/fanout"
	filedomain "github.com/smallbiznis/agencyflow/internal/file/domain"
	invoicedomain "github.com/smallbiznis/agencyflow/internal/invoice/domain"
	notificationdomain "github.com/smallbiznis/agencyflow/internal/notification/domain"
	"github.com/smallbiznis/agencyflow/internal/observability"
	projectdomain "github.com/smallbiznis/agencyflow/internal/project/domain"
	"github.com/smallbiznis/agencyflow/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockInvoiceService struct {
	mock.Mock
}

func (m *mockInvoiceService) Create(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Invoice, error) {
	args := m.Called(ctx, req)
	inv, _ := args.Get(0).(*invoicedomain.Invoice)
	return inv, args.Error(1)
}

func (m *mockInvoiceService) TransitionStatus(ctx context.Context, req invoicedomain.TransitionRequest) (*invoicedomain.Invoice, error) {
	args := m.Called(ctx, req)
	inv, _ := args.Get(0).(*invoicedomain.Invoice)
	return inv, args.Error(1)
}

func (m *mockInvoiceService) GetByID(ctx context.Context, tenantID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	inv, _ := args.Get(0).(*invoicedomain.Invoice)
	return inv, args.Error(1)
}

func (m *mockInvoiceService) List(ctx context.Context, req invoicedomain.ListRequest) (invoicedomain.ListResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(invoicedomain.ListResponse)
	return resp, args.Error(1)
}

func (m *mockInvoiceService) RenderPDF(ctx context.Context, tenantID, id snowflake.ID) (invoicedomain.Document, error) {
	args := m.Called(ctx, tenantID, id)
	doc, _ := args.Get(0).(invoicedomain.Document)
	return doc, args.Error(1)
}

type fakeProjectService struct {
	project   *projectdomain.Project
	statusErr error
	deleted   []snowflake.ID
}

func (f *fakeProjectService) Create(_ context.Context, req projectdomain.CreateRequest) (*projectdomain.Project, error) {
	return &projectdomain.Project{ID: 1, TenantID: req.TenantID, Title: req.Title, Status: projectdomain.StatusPending}, nil
}

func (f *fakeProjectService) UpdateStatus(_ context.Context, req projectdomain.UpdateStatusRequest) (*projectdomain.Project, error) {
	if f.project == nil || f.project.TenantID != req.TenantID {
		return nil, projectdomain.ErrProjectNotFound
	}
	f.project.Status = projectdomain.Status(req.Status)
	return f.project, f.statusErr
}

func (f *fakeProjectService) Delete(_ context.Context, tenantID, projectID snowflake.ID) error {
	if f.project == nil || f.project.TenantID != tenantID || f.project.ID != projectID {
		return projectdomain.ErrProjectNotFound
	}
	f.deleted = append(f.deleted, projectID)
	return nil
}

func (f *fakeProjectService) UploadFile(_ context.Context, req projectdomain.UploadFileRequest) (*filedomain.File, error) {
	return &filedomain.File{ID: 9, TenantID: req.TenantID, Name: req.Filename, Size: int64(len(req.Data))}, nil
}

func (f *fakeProjectService) GetByID(_ context.Context, tenantID, id snowflake.ID) (*projectdomain.Project, error) {
	if f.project == nil || f.project.TenantID != tenantID || f.project.ID != id {
		return nil, projectdomain.ErrProjectNotFound
	}
	return f.project, nil
}

func (f *fakeProjectService) List(context.Context, projectdomain.ListRequest) (projectdomain.ListResponse, error) {
	return projectdomain.ListResponse{}, nil
}

type fakeNotificationService struct {
	markedAll int
}

func (f *fakeNotificationService) Dispatch(context.Context, notificationdomain.DispatchRequest) (*notificationdomain.Notification, error) {
	return nil, nil
}

func (f *fakeNotificationService) MarkRead(context.Context, snowflake.ID, snowflake.ID, snowflake.ID) error {
	return nil
}

func (f *fakeNotificationService) MarkAllRead(context.Context, snowflake.ID, snowflake.ID) (int64, error) {
	f.markedAll++
	return 3, nil
}

func (f *fakeNotificationService) List(_ context.Context, req notificationdomain.ListRequest) (notificationdomain.ListResponse, error) {
	return notificationdomain.ListResponse{
		Notifications: []notificationdomain.Notification{{ID: 5, TenantID: req.TenantID, UserID: req.UserID}},
		UnreadCount:   1,
	}, nil
}

func (f *fakeNotificationService) UnreadCount(context.Context, snowflake.ID, snowflake.ID) (int64, error) {
	return 1, nil
}

type fakeActivityService struct{}

func (fakeActivityService) Record(context.Context, activitydomain.RecordRequest) (*activitydomain.Activity, error) {
	return nil, nil
}

func (fakeActivityService) List(context.Context, activitydomain.ListRequest) (activitydomain.ListResponse, error) {
	return activitydomain.ListResponse{}, nil
}

const tenantHeader = "100"

type testServer struct {
	engine        *gin.Engine
	invoices      *mockInvoiceService
	projects      *fakeProjectService
	notifications *fakeNotificationService
	hub           *realtime.Hub
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())

	ts := testServer{
		engine:        r,
		invoices:      &mockInvoiceService{},
		projects:      &fakeProjectService{},
		notifications: &fakeNotificationService{},
		hub:           realtime.NewHub(),
	}
	NewServer(r, zap.NewNop(), ts.invoices, ts.projects, ts.notifications, fakeActivityService{}, ts.hub)
	t.Cleanup(func() { ts.invoices.AssertExpectations(t) })
	return ts
}

func (ts testServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func tenantOnly() map[string]string {
	return map[string]string{HeaderTenant: tenantHeader}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestMissingTenantIsUnauthorized(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/invoices/1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetInvoiceNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.invoices.On("GetByID", mock.Anything, snowflake.ID(100), snowflake.ID(7)).
		Return(nil, invoicedomain.ErrInvoiceNotFound)

	rec := ts.do(http.MethodGet, "/api/invoices/7", nil, tenantOnly())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestCreateInvoiceMapsErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.invoices.On("Create", mock.Anything, mock.MatchedBy(func(req invoicedomain.CreateRequest) bool {
		return req.InvoiceNumber == "INV-1"
	})).Return(nil, invoicedomain.ErrDuplicateNumber)
	ts.invoices.On("Create", mock.Anything, mock.MatchedBy(func(req invoicedomain.CreateRequest) bool {
		return req.InvoiceNumber == "INV-2"
	})).Return(nil, errs.NewValidation("line_items[0].description", "missing_description", "line item description is required"))

	rec := ts.do(http.MethodPost, "/api/invoices", map[string]any{"client_id": "5", "invoice_number": "INV-1"}, tenantOnly())
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/invoices", map[string]any{"client_id": "5", "invoice_number": "INV-2"}, tenantOnly())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "missing_description", payload.Errors[0].Code)

	rec = ts.do(http.MethodPost, "/api/invoices", map[string]any{"client_id": "nope"}, tenantOnly())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransitionInvoiceStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.invoices.On("TransitionStatus", mock.Anything, invoicedomain.TransitionRequest{
		TenantID: 100, InvoiceID: 7, Status: "SENT",
	}).Return(&invoicedomain.Invoice{ID: 7, Status: invoicedomain.StatusSent}, nil)

	rec := ts.do(http.MethodPost, "/api/invoices/7/status", statusRequest{Status: "SENT"}, tenantOnly())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"SENT"`)
}

func TestDownloadInvoicePDF(t *testing.T) {
	ts := newTestServer(t)
	ts.invoices.On("RenderPDF", mock.Anything, snowflake.ID(100), snowflake.ID(7)).
		Return(invoicedomain.Document{Filename: "invoice-7.pdf", ContentType: "application/pdf", Body: []byte("%PDF")}, nil)

	rec := ts.do(http.MethodGet, "/api/invoices/7/pdf", nil, tenantOnly())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoice-7.pdf")
	assert.Equal(t, "%PDF", rec.Body.String())
}

func TestUpdateProjectStatusFanoutFailureIs502(t *testing.T) {
	ts := newTestServer(t)
	ts.projects.project = &projectdomain.Project{ID: 42, TenantID: 100, Status: projectdomain.StatusPending, CreatedAt: time.Now()}
	ts.projects.statusErr = &fanout.Error{
		Event:    "project.status_changed",
		EntityID: "42",
		Failures: []fanout.ChannelFailure{{Channel: "notification", Policy: fanout.PolicyFatal, Err: context.DeadlineExceeded}},
	}

	rec := ts.do(http.MethodPost, "/api/projects/42/status", statusRequest{Status: "DELIVERED"}, tenantOnly())
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp struct {
		Error errorPayload          `json:"error"`
		Data  projectdomain.Project `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fanout_failed", resp.Error.Type)
	assert.Equal(t, "42", resp.Error.EntityID)
	assert.Equal(t, []string{"notification"}, resp.Error.Channels)
	assert.Equal(t, projectdomain.StatusDelivered, resp.Data.Status)
}

func TestDeleteProject(t *testing.T) {
	ts := newTestServer(t)
	ts.projects.project = &projectdomain.Project{ID: 42, TenantID: 100}

	rec := ts.do(http.MethodDelete, "/api/projects/42", nil, map[string]string{HeaderTenant: "101"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/projects/42", nil, tenantOnly())
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []snowflake.ID{42}, ts.projects.deleted)
}

func TestNotificationsRequireActor(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/notifications", nil, tenantOnly())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	headers := map[string]string{HeaderTenant: tenantHeader, HeaderUser: "200"}
	rec = ts.do(http.MethodGet, "/api/notifications?unread_only=true", nil, headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unread_count":1`)

	rec = ts.do(http.MethodPost, "/api/notifications/read-all", nil, headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ts.notifications.markedAll)
}

func TestRealtimeStreamRejectsForeignChannels(t *testing.T) {
	ts := newTestServer(t)
	ts.projects.project = &projectdomain.Project{ID: 42, TenantID: 999}

	rec := ts.do(http.MethodGet, "/api/realtime/stream?channel=tenant-999", nil, tenantOnly())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/realtime/stream?channel=project-42", nil, tenantOnly())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/realtime/stream?channel=global", nil, tenantOnly())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRealtimeStreamDeliversEvents(t *testing.T) {
	ts := newTestServer(t)
	channel := realtime.TenantChannel(tenantHeader)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/realtime/stream", nil).WithContext(ctx)
	req.Header.Set(HeaderTenant, tenantHeader)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		ts.engine.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return ts.hub.Subscribers(channel) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, ts.hub.Publish(context.Background(), channel, realtime.EventNotificationCreated, map[string]string{"id": "5"}))
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: notification.created")
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewEngine(observability.Config{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
