package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Kshitiz-Mhto/streampipes/pkg/database"
	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// recordingDispatcher 전달된 명령 기록, failOn의 dom에서 실패
type recordingDispatcher struct {
	mu       sync.Mutex
	commands []PipelineCommand
	failOn   map[string]bool
}

func (d *recordingDispatcher) Dispatch(_ context.Context, cmd PipelineCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cmd.Element != nil && d.failOn[string(cmd.Type)+"/"+cmd.Element.Dom] {
		return errors.New("runtime unavailable")
	}
	d.commands = append(d.commands, cmd)
	return nil
}

func (d *recordingDispatcher) count(cmdType CommandType) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.commands {
		if c.Type == cmdType {
			n++
		}
	}
	return n
}

type fakeTopics struct {
	ensured []string
	deleted []string
	err     error
}

func (f *fakeTopics) GenerateTopicName(pipelineID, dom string) string {
	return pipelineID + "." + dom
}

func (f *fakeTopics) EnsureTopic(_ context.Context, topic string) error {
	if f.err != nil {
		return f.err
	}
	f.ensured = append(f.ensured, topic)
	return nil
}

func (f *fakeTopics) DeleteTopic(_ context.Context, topic string) error {
	f.deleted = append(f.deleted, topic)
	return nil
}

func newTestManager(t *testing.T, d CommandDispatcher, topics TopicProvisioner) (*PipelineManager, *database.DB) {
	t.Helper()
	db, err := database.NewSQLite(":memory:", false)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewPipelineManager(&PipelineManagerConfig{
		DB:          db,
		Dispatcher:  d,
		Topics:      topics,
		SystemOwner: "system",
	}), db
}

func testPipeline() *models.Pipeline {
	return &models.Pipeline{
		Name: "temperature alerts",
		Sepas: []models.PipelineElement{
			{Kind: models.ElementKindProcessor, Dom: "p1", ElementID: "e-p1", Name: "threshold",
				StaticProperties: []models.StaticProperty{{InternalName: "threshold", Value: "10"}}},
			{Kind: models.ElementKindProcessor, Dom: "p2", ElementID: "e-p2", Name: "aggregate"},
		},
		Actions: []models.PipelineElement{
			{Kind: models.ElementKindSink, Dom: "s1", ElementID: "e-s1", Name: "dashboard"},
		},
	}
}

func storeTestPipeline(t *testing.T, m *PipelineManager, owner string) string {
	t.Helper()
	msg, err := m.Store(context.Background(), owner, testPipeline())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if !msg.Success || msg.ElementName == "" {
		t.Fatalf("unexpected store message %+v", msg)
	}
	return msg.ElementName
}

func TestStoreAssignsIDAndSystemFlag(t *testing.T) {
	m, _ := newTestManager(t, &recordingDispatcher{}, nil)
	ctx := context.Background()

	id := storeTestPipeline(t, m, "alice")
	p, err := m.Get("alice", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.CreatedAt == 0 || p.CreatedByUser != "alice" {
		t.Errorf("expected createdAt and owner, got %+v", p)
	}

	if _, err := m.Store(ctx, "system", testPipeline()); err != nil {
		t.Fatalf("store system: %v", err)
	}
	system, err := m.ListSystem()
	if err != nil {
		t.Fatalf("list system: %v", err)
	}
	if len(system) != 1 {
		t.Errorf("expected one system pipeline, got %d", len(system))
	}

	invalid := testPipeline()
	invalid.Sepas[1].Dom = "p1"
	if _, err := m.Store(ctx, "alice", invalid); !errors.Is(err, ErrInvalidPipeline) {
		t.Errorf("expected ErrInvalidPipeline, got %v", err)
	}
}

func TestStartStop(t *testing.T) {
	d := &recordingDispatcher{}
	topics := &fakeTopics{}
	m, _ := newTestManager(t, d, topics)
	ctx := context.Background()
	id := storeTestPipeline(t, m, "alice")

	status, err := m.Start(ctx, "alice", id)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !status.Success || len(status.ElementStatus) != 3 {
		t.Fatalf("expected successful start of 3 elements, got %+v", status)
	}
	if len(topics.ensured) != 2 {
		t.Errorf("expected one topic per processor, got %v", topics.ensured)
	}

	p, _ := m.Get("alice", id)
	if !p.Running || p.StartedAt == 0 {
		t.Errorf("expected running pipeline with startedAt, got %+v", p)
	}

	again, err := m.Start(ctx, "alice", id)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if again.Success {
		t.Error("starting a running pipeline must fail")
	}

	stopped, err := m.Stop(ctx, "alice", id)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !stopped.Success {
		t.Errorf("expected successful stop, got %+v", stopped)
	}
	if d.count(CommandStop) != 3 {
		t.Errorf("expected 3 stop commands, got %d", d.count(CommandStop))
	}

	notRunning, _ := m.Stop(ctx, "alice", id)
	if notRunning.Success {
		t.Error("stopping a stopped pipeline must fail")
	}

	history, err := m.Status("alice", id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(history) != 2 || history[0].MessageType != models.StatusPipelineStopped {
		t.Errorf("expected [stopped, started], got %+v", history)
	}
}

func TestStartDispatchFailureLeavesStateUnchanged(t *testing.T) {
	d := &recordingDispatcher{failOn: map[string]bool{"start/s1": true}}
	m, _ := newTestManager(t, d, nil)
	ctx := context.Background()
	id := storeTestPipeline(t, m, "alice")

	status, err := m.Start(ctx, "alice", id)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if status.Success {
		t.Fatal("expected unsuccessful status")
	}
	failed := status.FailedElements()
	if len(failed) != 1 || failed[0].ElementID != "e-s1" {
		t.Errorf("expected s1 to be marked failed, got %+v", status.ElementStatus)
	}
	if d.count(CommandStop) != 2 {
		t.Errorf("expected started processors to be rolled back, got %d stops", d.count(CommandStop))
	}

	p, _ := m.Get("alice", id)
	if p.Running {
		t.Error("pipeline must not be marked running")
	}
}

func TestStartTopicFailure(t *testing.T) {
	d := &recordingDispatcher{}
	m, _ := newTestManager(t, d, &fakeTopics{err: errors.New("kafka down")})
	id := storeTestPipeline(t, m, "alice")

	status, err := m.Start(context.Background(), "alice", id)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if status.Success || d.count(CommandStart) != 0 {
		t.Errorf("expected failure before dispatch, got %+v", status)
	}
}

func TestReconfigure(t *testing.T) {
	d := &recordingDispatcher{}
	m, _ := newTestManager(t, d, nil)
	ctx := context.Background()
	id := storeTestPipeline(t, m, "alice")

	p, _ := m.Get("alice", id)
	p.Sepas[0].StaticProperties[0].Value = "20"

	notRunning, err := m.Reconfigure(ctx, "alice", p)
	if err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if notRunning.Success {
		t.Error("reconfigure of a stopped pipeline must fail")
	}

	if _, err := m.Start(ctx, "alice", id); err != nil {
		t.Fatalf("start: %v", err)
	}

	status, err := m.Reconfigure(ctx, "alice", p)
	if err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if !status.Success {
		t.Fatalf("expected success, got %+v", status)
	}
	if d.count(CommandReconfigure) != 1 {
		t.Errorf("expected only the changed element to be reconfigured, got %d", d.count(CommandReconfigure))
	}

	stored, _ := m.Get("alice", id)
	if v := stored.Sepas[0].StaticProperties[0].Value; v != "20" {
		t.Errorf("expected stored value 20, got %s", v)
	}
	if !stored.Running {
		t.Error("pipeline must stay running")
	}
}

func TestReconfigureConflict(t *testing.T) {
	m, _ := newTestManager(t, &recordingDispatcher{}, nil)
	ctx := context.Background()
	id := storeTestPipeline(t, m, "alice")
	if _, err := m.Start(ctx, "alice", id); err != nil {
		t.Fatalf("start: %v", err)
	}

	p, _ := m.Get("alice", id)
	p.Sepas = p.Sepas[:1]

	status, err := m.Reconfigure(ctx, "alice", p)
	if err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if status.Success || status.Title != TitleConflict {
		t.Errorf("expected conflict, got %+v", status)
	}
}

func TestReconfigureDispatchFailure(t *testing.T) {
	d := &recordingDispatcher{failOn: map[string]bool{"reconfigure/p1": true}}
	m, _ := newTestManager(t, d, nil)
	ctx := context.Background()
	id := storeTestPipeline(t, m, "alice")
	if _, err := m.Start(ctx, "alice", id); err != nil {
		t.Fatalf("start: %v", err)
	}

	p, _ := m.Get("alice", id)
	p.Sepas[0].StaticProperties[0].Value = "99"

	status, err := m.Reconfigure(ctx, "alice", p)
	if err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if status.Success {
		t.Fatal("expected failure")
	}

	stored, _ := m.Get("alice", id)
	if v := stored.Sepas[0].StaticProperties[0].Value; v != "10" {
		t.Errorf("failed reconfigure must not store, got %s", v)
	}
}

func TestMigrate(t *testing.T) {
	d := &recordingDispatcher{}
	m, _ := newTestManager(t, d, nil)
	ctx := context.Background()
	id := storeTestPipeline(t, m, "alice")
	if _, err := m.Start(ctx, "alice", id); err != nil {
		t.Fatalf("start: %v", err)
	}

	p, _ := m.Get("alice", id)
	p.Actions[0].DeploymentTargetNodeID = "edge-2"

	status, err := m.Migrate(ctx, "alice", p)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !status.Success || d.count(CommandMigrate) != 1 {
		t.Errorf("expected one migrate command, got %+v", status)
	}

	stored, _ := m.Get("alice", id)
	if stored.Actions[0].DeploymentTargetNodeID != "edge-2" {
		t.Error("expected new deployment target to be stored")
	}
}

func TestUpdateRunningRestarts(t *testing.T) {
	d := &recordingDispatcher{}
	m, _ := newTestManager(t, d, nil)
	ctx := context.Background()
	id := storeTestPipeline(t, m, "alice")
	if _, err := m.Start(ctx, "alice", id); err != nil {
		t.Fatalf("start: %v", err)
	}

	p, _ := m.Get("alice", id)
	p.Name = "renamed"
	msg, err := m.Update(ctx, "alice", p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !msg.Success {
		t.Fatalf("expected success, got %+v", msg)
	}
	if d.count(CommandStop) != 3 || d.count(CommandStart) != 6 {
		t.Errorf("expected restart, got %d stops and %d starts", d.count(CommandStop), d.count(CommandStart))
	}

	stored, _ := m.Get("alice", id)
	if stored.Name != "renamed" || !stored.Running {
		t.Errorf("expected renamed running pipeline, got %+v", stored)
	}

	if _, err := m.Update(ctx, "bob", p); !errors.Is(err, ErrPipelineNotFound) {
		t.Errorf("expected ErrPipelineNotFound for other user, got %v", err)
	}
}

func TestDeleteStopsRunningPipeline(t *testing.T) {
	d := &recordingDispatcher{}
	topics := &fakeTopics{}
	m, _ := newTestManager(t, d, topics)
	ctx := context.Background()
	id := storeTestPipeline(t, m, "alice")
	if _, err := m.Start(ctx, "alice", id); err != nil {
		t.Fatalf("start: %v", err)
	}

	msg, err := m.Delete(ctx, "alice", id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !msg.Success {
		t.Fatalf("expected success, got %+v", msg)
	}
	if d.count(CommandStop) != 3 {
		t.Errorf("expected running pipeline to be stopped first, got %d stops", d.count(CommandStop))
	}
	if len(topics.deleted) != 2 {
		t.Errorf("expected output topics to be deleted, got %v", topics.deleted)
	}

	if _, err := m.Get("alice", id); !errors.Is(err, ErrPipelineNotFound) {
		t.Errorf("expected ErrPipelineNotFound, got %v", err)
	}
}

func TestPurgeStatusMessages(t *testing.T) {
	m, db := newTestManager(t, &recordingDispatcher{}, nil)
	if err := db.AddStatusMessage("pl-1", models.StatusPipelineStarted, ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	purged, err := m.PurgeStatusMessages(time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged, got %d", purged)
	}
}

func hasMessage(history []models.PipelineStatusMessage, messageType string) bool {
	for _, h := range history {
		if h.MessageType == messageType {
			return true
		}
	}
	return false
}

func TestUpdateRestartFailureRestoresPreviousElements(t *testing.T) {
	d := &recordingDispatcher{}
	m, _ := newTestManager(t, d, nil)
	ctx := context.Background()
	id := storeTestPipeline(t, m, "alice")
	if _, err := m.Start(ctx, "alice", id); err != nil {
		t.Fatalf("start: %v", err)
	}

	p, _ := m.Get("alice", id)
	p.Sepas = append(p.Sepas, models.PipelineElement{Kind: models.ElementKindProcessor, Dom: "p3", ElementID: "e-p3"})
	d.failOn = map[string]bool{"start/p3": true}

	msg, err := m.Update(ctx, "alice", p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if msg.Success {
		t.Fatal("expected unsuccessful update")
	}
	// 3 start, 3 stop, p1/p2 start 후 롤백, 이전 엘리먼트 3개 복구
	if d.count(CommandStart) != 8 || d.count(CommandStop) != 5 {
		t.Errorf("expected 8 starts and 5 stops, got %d and %d", d.count(CommandStart), d.count(CommandStop))
	}

	stored, _ := m.Get("alice", id)
	if !stored.Running || len(stored.Sepas) != 2 {
		t.Errorf("expected previous running pipeline, got %+v", stored)
	}
	history, _ := m.Status("alice", id)
	if !hasMessage(history, models.StatusPipelineFailed) {
		t.Errorf("expected failure in history, got %+v", history)
	}
}

func TestUpdateRestartFailureMarksPipelineStopped(t *testing.T) {
	d := &recordingDispatcher{}
	m, _ := newTestManager(t, d, nil)
	ctx := context.Background()
	id := storeTestPipeline(t, m, "alice")
	if _, err := m.Start(ctx, "alice", id); err != nil {
		t.Fatalf("start: %v", err)
	}

	p, _ := m.Get("alice", id)
	p.Name = "renamed"
	d.failOn = map[string]bool{"start/p2": true}

	msg, err := m.Update(ctx, "alice", p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if msg.Success {
		t.Fatal("expected unsuccessful update")
	}
	if d.count(CommandStart) != d.count(CommandStop) {
		t.Errorf("every started element must be stopped, got %d starts and %d stops",
			d.count(CommandStart), d.count(CommandStop))
	}

	stored, _ := m.Get("alice", id)
	if stored.Running || stored.Name == "renamed" {
		t.Errorf("expected previous document marked stopped, got %+v", stored)
	}
	history, _ := m.Status("alice", id)
	if !hasMessage(history, models.StatusPipelineFailed) || history[0].MessageType != models.StatusPipelineStopped {
		t.Errorf("expected failure followed by stop, got %+v", history)
	}
}

func TestUpdateStopFailureRestartsStoppedElements(t *testing.T) {
	d := &recordingDispatcher{}
	m, _ := newTestManager(t, d, nil)
	ctx := context.Background()
	id := storeTestPipeline(t, m, "alice")
	if _, err := m.Start(ctx, "alice", id); err != nil {
		t.Fatalf("start: %v", err)
	}

	p, _ := m.Get("alice", id)
	d.failOn = map[string]bool{"stop/s1": true}

	msg, err := m.Update(ctx, "alice", p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if msg.Success {
		t.Fatal("expected unsuccessful update")
	}
	if d.count(CommandStop) != 2 || d.count(CommandStart) != 5 {
		t.Errorf("expected stopped processors to be restarted, got %d stops and %d starts",
			d.count(CommandStop), d.count(CommandStart))
	}
	if stored, _ := m.Get("alice", id); !stored.Running {
		t.Error("pipeline must stay running")
	}
}

func TestSystemPipelineIsReadOnlyForOtherUsers(t *testing.T) {
	d := &recordingDispatcher{}
	m, _ := newTestManager(t, d, nil)
	ctx := context.Background()
	id := storeTestPipeline(t, m, "system")

	p, err := m.Get("mallory", id)
	if err != nil {
		t.Fatalf("system pipeline must be readable: %v", err)
	}
	if _, err := m.Status("mallory", id); err != nil {
		t.Errorf("system pipeline status must be readable: %v", err)
	}
	p.Sepas[0].StaticProperties[0].Value = "99"

	tests := []struct {
		name string
		call func() error
	}{
		{"start", func() error { _, err := m.Start(ctx, "mallory", id); return err }},
		{"stop", func() error { _, err := m.Stop(ctx, "mallory", id); return err }},
		{"reconfigure", func() error { _, err := m.Reconfigure(ctx, "mallory", p); return err }},
		{"migrate", func() error { _, err := m.Migrate(ctx, "mallory", p); return err }},
		{"update", func() error { _, err := m.Update(ctx, "mallory", p); return err }},
		{"delete", func() error { _, err := m.Delete(ctx, "mallory", id); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrPipelineNotFound) {
				t.Errorf("expected ErrPipelineNotFound, got %v", err)
			}
		})
	}

	if len(d.commands) != 0 {
		t.Errorf("expected no commands, got %d", len(d.commands))
	}
	stored, _ := m.Get("system", id)
	if stored.Running || stored.Sepas[0].StaticProperties[0].Value != "10" {
		t.Errorf("system pipeline must be unchanged, got %+v", stored)
	}

	if status, err := m.Start(ctx, "system", id); err != nil || !status.Success {
		t.Errorf("owner must be able to start, got %v %+v", err, status)
	}
}
