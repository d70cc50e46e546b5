package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d5h-foss/hwtest"
	"github.com/d5h-foss/hwtest/internal/service"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockRunControl struct {
	startStatus hwtest.RunStatus
	startErr    error
	abortErr    error
	startCalled int
	abortCalled int
}

func (m *mockRunControl) Start(ctx context.Context) (hwtest.RunStatus, error) {
	m.startCalled++
	return m.startStatus, m.startErr
}
func (m *mockRunControl) Abort(ctx context.Context) error {
	m.abortCalled++
	return m.abortErr
}

type mockMonitoring struct {
	status    hwtest.RunStatus
	statusErr error
	sample    hwtest.Sample
	sampleOK  bool
}

func (m *mockMonitoring) Status(ctx context.Context) (hwtest.RunStatus, error) {
	return m.status, m.statusErr
}
func (m *mockMonitoring) Latest() (hwtest.Sample, bool) {
	return m.sample, m.sampleOK
}

type mockEventLog struct {
	resp     []hwtest.EventRecord
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]hwtest.EventRecord, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
