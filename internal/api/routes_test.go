package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Kshitiz-Mhto/streampipes/internal/editor"
	"github.com/Kshitiz-Mhto/streampipes/internal/services"
	"github.com/Kshitiz-Mhto/streampipes/pkg/client"
	"github.com/Kshitiz-Mhto/streampipes/pkg/config"
	"github.com/Kshitiz-Mhto/streampipes/pkg/database"
	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.NewSQLite(":memory:", false)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	manager := services.NewPipelineManager(&services.PipelineManagerConfig{
		DB:          db,
		Dispatcher:  &services.LogDispatcher{},
		SystemOwner: "system",
	})
	server := NewServer(&ServerConfig{
		DB:          db,
		Manager:     manager,
		JWTSecret:   testSecret,
		UsersConfig: &config.UsersConfig{AdminUsers: []string{"admin"}},
		Version:     "test",
	})

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts
}

func tokenFor(sub string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, _ := token.SignedString([]byte(testSecret))
	return s
}

func newClient(t *testing.T, ts *httptest.Server, user string) *client.Client {
	t.Helper()
	c, err := client.New(&client.Config{BaseURL: ts.URL, Username: user, Token: tokenFor(user), Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func testPipeline() *models.Pipeline {
	schema := models.EventSchema{EventProperties: []models.EventProperty{{RuntimeName: "temperature", PropertyType: models.PropertyTypePrimitive, RuntimeType: models.XSDFloat}}}
	return &models.Pipeline{
		Name: "temperature alerts",
		Sepas: []models.PipelineElement{{
			Kind:             models.ElementKindProcessor,
			Dom:              "p1",
			ElementID:        "e-p1",
			InputStreams:     []models.DataStream{{EventSchema: &schema}},
			StaticProperties: []models.StaticProperty{{InternalName: "threshold", Value: "10"}},
		}},
		Actions: []models.PipelineElement{{Kind: models.ElementKindSink, Dom: "s1", ElementID: "e-s1"}},
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		var status models.HealthStatus
		_ = json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		if status.Version != "test" {
			t.Errorf("%s: expected version test, got %q", path, status.Version)
		}
	}
}

func TestPipelineLifecycleThroughClient(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts, "alice")
	ctx := context.Background()

	msg, err := c.StorePipeline(ctx, testPipeline())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	id := msg.ElementName

	own, err := c.GetOwnPipelines(ctx)
	if err != nil {
		t.Fatalf("own: %v", err)
	}
	if len(own) != 1 || own[0].ID != id {
		t.Fatalf("expected stored pipeline in own list, got %+v", own)
	}

	started, err := c.StartPipeline(ctx, id)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !started.Success {
		t.Fatalf("expected start success, got %+v", started)
	}

	p, err := c.GetPipelineByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !p.Running || p.Sepas[0].Kind != models.ElementKindProcessor {
		t.Errorf("expected running pipeline with typed elements, got %+v", p)
	}

	p.Sepas[0].StaticProperties[0].Value = "25"
	reconf, err := c.ReconfigurePipeline(ctx, p)
	if err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if !reconf.Success {
		t.Errorf("expected reconfigure success, got %+v", reconf)
	}

	history, err := c.GetPipelineStatusByID(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(history) < 2 || history[0].MessageType != models.StatusPipelineReconfigured {
		t.Errorf("expected reconfigure to be the latest status, got %+v", history)
	}

	stopped, err := c.StopPipeline(ctx, id)
	if err != nil || !stopped.Success {
		t.Fatalf("stop: %v %+v", err, stopped)
	}

	if _, err := c.DeleteOwnPipeline(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetPipelineByID(ctx, id); !client.IsNotFound(err) {
		t.Errorf("expected 404 after delete, got %v", err)
	}
}

func TestEditorReconfigureConflictAgainstServer(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts, "alice")
	ctx := context.Background()

	msg, err := c.StorePipeline(ctx, testPipeline())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := c.StartPipeline(ctx, msg.ElementName); err != nil {
		t.Fatalf("start: %v", err)
	}
	p, err := c.GetPipelineByID(ctx, msg.ElementName)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// 저장된 파이프라인에 없는 엘리먼트 추가
	p.Actions = append(p.Actions, models.PipelineElement{Kind: models.ElementKindSink, Dom: "s2"})

	var shown []*models.PipelineOperationStatus
	ed := editor.New(p, c, editor.Options{
		Presenter: editor.PresenterFunc(func(s *models.PipelineOperationStatus) { shown = append(shown, s) }),
	})
	if err := ed.SelectByDom(models.ElementKindProcessor, "p1"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(ed.EventSchemas()) != 1 {
		t.Errorf("expected schema of the input stream, got %d", len(ed.EventSchemas()))
	}

	status, err := ed.Reconfigure(ctx)
	if !errors.Is(err, editor.ErrOperationFailed) {
		t.Fatalf("expected ErrOperationFailed, got %v", err)
	}
	if status == nil || status.Title != services.TitleConflict {
		t.Errorf("expected conflict status, got %+v", status)
	}
	if len(shown) != 1 || shown[0] != status {
		t.Error("expected the status dialog to show the backend payload")
	}
	if ed.Reconfiguring() {
		t.Error("flag must be cleared after the call")
	}
}

func TestUserScope(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := newClient(t, ts, "alice")
	msg, err := alice.StorePipeline(ctx, testPipeline())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	// bob 토큰으로 alice 경로 접근
	req, _ := http.NewRequest(http.MethodGet, alice.BasePath()+"/pipelines/own", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+tokenFor("bob"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}

	// 관리자는 다른 사용자 경로 접근 가능
	admin, _ := client.New(&client.Config{BaseURL: ts.URL, Username: "alice", Token: tokenFor("admin")})
	if _, err := admin.GetPipelineByID(ctx, msg.ElementName); err != nil {
		t.Errorf("admin must access alice's pipeline, got %v", err)
	}

	// bob 자신의 경로에서는 alice 파이프라인이 보이지 않음
	bob := newClient(t, ts, "bob")
	if _, err := bob.GetPipelineByID(ctx, msg.ElementName); !client.IsNotFound(err) {
		t.Errorf("expected 404 for bob, got %v", err)
	}

	// 시스템 파이프라인은 읽기만 가능
	system := newClient(t, ts, "system")
	sysMsg, err := system.StorePipeline(ctx, testPipeline())
	if err != nil {
		t.Fatalf("store system pipeline: %v", err)
	}
	sysPipeline, err := bob.GetPipelineByID(ctx, sysMsg.ElementName)
	if err != nil {
		t.Fatalf("system pipeline must be readable: %v", err)
	}

	writes := []struct {
		name string
		call func() error
	}{
		{"start", func() error { _, err := bob.StartPipeline(ctx, sysMsg.ElementName); return err }},
		{"stop", func() error { _, err := bob.StopPipeline(ctx, sysMsg.ElementName); return err }},
		{"reconfigure", func() error { _, err := bob.ReconfigurePipeline(ctx, sysPipeline); return err }},
		{"migrate", func() error { _, err := bob.MigratePipeline(ctx, sysPipeline); return err }},
		{"update", func() error { _, err := bob.UpdatePipeline(ctx, sysPipeline); return err }},
		{"delete", func() error { _, err := bob.DeleteOwnPipeline(ctx, sysMsg.ElementName); return err }},
	}
	for _, tt := range writes {
		if err := tt.call(); !client.IsNotFound(err) {
			t.Errorf("%s by bob: expected 404, got %v", tt.name, err)
		}
	}

	// 다른 사용자의 카테고리 ID는 덮어쓸 수 없음
	if _, err := alice.StorePipelineCategory(ctx, &models.PipelineCategory{ID: "c-1", CategoryName: "alice-cat"}); err != nil {
		t.Fatalf("store category: %v", err)
	}
	_, err = bob.StorePipelineCategory(ctx, &models.PipelineCategory{ID: "c-1", CategoryName: "taken"})
	var se *client.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for foreign category id, got %v", err)
	}
}

func TestCategoriesThroughClient(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts, "alice")
	ctx := context.Background()

	raw, err := c.StorePipelineCategory(ctx, &models.PipelineCategory{CategoryName: "sensors"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	var msg models.Message
	if err := json.Unmarshal(raw, &msg); err != nil || msg.ElementName == "" {
		t.Fatalf("expected message with id, got %s", raw)
	}

	categories, err := c.GetPipelineCategories(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(categories) != 1 || categories[0].CategoryName != "sensors" {
		t.Errorf("unexpected categories %+v", categories)
	}

	if _, err := c.DeletePipelineCategory(ctx, msg.ElementName); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.DeletePipelineCategory(ctx, msg.ElementName); !client.IsNotFound(err) {
		t.Errorf("expected 404 on second delete, got %v", err)
	}
}

func TestGuessSchemaThroughClient(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts, "alice")
	ctx := context.Background()

	adapter := &models.AdapterDescription{
		Name: "sensor",
		DataSet: &models.DataSetDescription{SampleEvents: []map[string]any{
			{"temperature": 21.5, "sensorId": "s-1"},
		}},
	}
	s, err := c.GuessSchema(ctx, adapter)
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if names := s.RuntimeNames(); strings.Join(names, ",") != "sensorId,temperature" {
		t.Errorf("unexpected properties %v", names)
	}

	_, err = c.GuessSchema(ctx, &models.AdapterDescription{Name: "empty"})
	var se *client.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if se.APIError == nil || se.APIError.Code != models.ErrCodeBadRequest {
		t.Errorf("expected REQUEST_BAD_REQUEST, got %+v", se.APIError)
	}
}

func TestInvalidRequests(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts, "alice")

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		expected int
		code     models.ErrorCode
	}{
		{"malformed json", http.MethodPost, "/pipelines", "{", http.StatusBadRequest, models.ErrCodeInvalidJSON},
		{"duplicate dom", http.MethodPost, "/pipelines", `{"name":"x","sepas":[{"dom":"a"},{"dom":"a"}],"actions":[]}`, http.StatusBadRequest, models.ErrCodeValidationFailed},
		{"id mismatch", http.MethodPut, "/pipelines/a", `{"_id":"b","name":"x","sepas":[],"actions":[]}`, http.StatusBadRequest, models.ErrCodeBadRequest},
		{"unknown pipeline", http.MethodGet, "/pipelines/missing/start", "", http.StatusNotFound, models.ErrCodeNotFound},
		{"category without name", http.MethodPost, "/pipelinecategories", `{}`, http.StatusBadRequest, models.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, c.BasePath()+tt.path, strings.NewReader(tt.body))
			req.Header.Set("Authorization", "Bearer "+tokenFor("alice"))
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, resp.StatusCode)
			}
			var apiErr models.APIError
			if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if apiErr.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, apiErr.Code)
			}
		})
	}
}

func TestServerShutdown(t *testing.T) {
	db, err := database.NewSQLite(":memory:", false)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	server := NewServer(&ServerConfig{
		DB:          db,
		Manager:     services.NewPipelineManager(&services.PipelineManagerConfig{DB: db}),
		JWTSecret:   testSecret,
		UsersConfig: &config.UsersConfig{},
		Version:     "test",
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	served := make(chan error, 1)
	go func() { served <- server.Serve(ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case err := <-served:
		if err != nil {
			t.Errorf("expected nil after shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	if _, err := http.Get(url); err == nil {
		t.Error("expected requests to fail after shutdown")
	}
}
