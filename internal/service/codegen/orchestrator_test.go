package codegen

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"appforge/internal/config"
	"appforge/internal/domain"
	"appforge/internal/domain/models"
	domainllm "appforge/internal/domain/services/llm"
	"appforge/internal/prompts"
)

type collectedEvents struct {
	events  []StreamEvent
	failAll bool
}

func (c *collectedEvents) emit(ev StreamEvent) error {
	if c.failAll {
		return errors.New("client gone")
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *collectedEvents) kinds() []StreamEventKind {
	var out []StreamEventKind
	for _, ev := range c.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (c *collectedEvents) last() StreamEvent {
	return c.events[len(c.events)-1]
}

func newTestOrchestrator(t *testing.T, app models.App, provider *scriptedProvider) (*Orchestrator, *fakeAppRepo, *fakeHistoryRepo, *config.Config) {
	t.Helper()

	registry, err := prompts.NewRegistry()
	if err != nil {
		t.Fatalf("prompt registry: %v", err)
	}

	cfg := &config.Config{
		DefaultModel:     "scripted",
		OutputRoot:       t.TempDir(),
		SessionCapacity:  10,
		SessionTTL:       time.Minute,
		SessionSerialize: true,
	}

	apps := newFakeAppRepo(app)
	history := &fakeHistoryRepo{}
	sessions := NewSessionStore(history, cfg.SessionCapacity, cfg.SessionTTL, testLogger())
	saver := NewFileSaver(cfg.OutputRoot, testLogger())

	return NewOrchestrator(apps, history, sessions, provider, registry, saver, cfg, testLogger()), apps, history, cfg
}

func textEvent(text string) domainllm.StreamEvent {
	return domainllm.StreamEvent{Type: domainllm.EventText, Text: text}
}

func doneEvent(stopReason string) domainllm.StreamEvent {
	return domainllm.StreamEvent{Type: domainllm.EventDone, StopReason: stopReason}
}

func TestChatToGenCodeHappyPath(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]domainllm.StreamEvent{{
		textEvent("```html\n"),
		textEvent("<p>hello</p>\n"),
		textEvent("```"),
		doneEvent("end_turn"),
	}}}

	orch, _, history, cfg := newTestOrchestrator(t,
		models.App{ID: "1", UserID: "u1", CodeGenType: models.CodeGenHTML}, provider)

	sink := &collectedEvents{}
	err := orch.ChatToGenCode(context.Background(), "1", "u1", "make a hello page", sink.emit)
	if err != nil {
		t.Fatalf("ChatToGenCode failed: %v", err)
	}

	// Three chunks then the terminal done event
	kinds := sink.kinds()
	want := []StreamEventKind{StreamChunk, StreamChunk, StreamChunk, StreamDone}
	if len(kinds) != len(want) {
		t.Fatalf("event kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("event kinds = %v, want %v", kinds, want)
		}
	}

	// Done carries the output dir and the parsed file is on disk
	dir := sink.last().Content
	got, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatalf("materialized file missing: %v", err)
	}
	if string(got) != "<p>hello</p>" {
		t.Errorf("index.html = %q", got)
	}

	// History records exactly user then ai, with the raw streamed text
	rows := history.messages("1")
	if len(rows) != 2 {
		t.Fatalf("history rows = %d, want 2", len(rows))
	}
	if rows[0].MessageType != models.MessageTypeUser || rows[0].Content != "make a hello page" {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[1].MessageType != models.MessageTypeAI {
		t.Errorf("second row type = %q, want ai", rows[1].MessageType)
	}
	if !strings.Contains(rows[1].Content, "```html") {
		t.Errorf("ai row should keep the raw fenced output, got %q", rows[1].Content)
	}

	_ = cfg
}

func TestChatToGenCodeOwnershipEnforced(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]domainllm.StreamEvent{{doneEvent("end_turn")}}}
	orch, _, history, _ := newTestOrchestrator(t,
		models.App{ID: "1", UserID: "u1", CodeGenType: models.CodeGenHTML}, provider)

	sink := &collectedEvents{}
	err := orch.ChatToGenCode(context.Background(), "1", "intruder", "hi", sink.emit)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if len(sink.events) != 0 {
		t.Errorf("no events should be emitted on precondition failure, got %v", sink.kinds())
	}
	if rows := history.messages("1"); len(rows) != 0 {
		t.Errorf("no history should be written on precondition failure, got %d rows", len(rows))
	}
}

func TestChatToGenCodeStreamErrorRecordsErrorRow(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]domainllm.StreamEvent{{
		textEvent("partial out"),
		{Type: domainllm.EventError, Err: errors.New("stream torn down")},
	}}}

	orch, _, history, _ := newTestOrchestrator(t,
		models.App{ID: "1", UserID: "u1", CodeGenType: models.CodeGenHTML}, provider)

	sink := &collectedEvents{}
	err := orch.ChatToGenCode(context.Background(), "1", "u1", "hi", sink.emit)
	if !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}

	// Partial chunk was forwarded, then the terminal error event
	kinds := sink.kinds()
	if len(kinds) != 2 || kinds[0] != StreamChunk || kinds[1] != StreamError {
		t.Fatalf("event kinds = %v, want [chunk error]", kinds)
	}

	rows := history.messages("1")
	if len(rows) != 2 {
		t.Fatalf("history rows = %d, want user + error", len(rows))
	}
	if rows[1].MessageType != models.MessageTypeError {
		t.Errorf("second row type = %q, want error", rows[1].MessageType)
	}
}

func TestChatToGenCodeSaveValidationFailure(t *testing.T) {
	// multi_file output missing its css and js regions parses to empty
	// fields and must be rejected at save time.
	provider := &scriptedProvider{scripts: [][]domainllm.StreamEvent{{
		textEvent("```html\n<p>x</p>\n```"),
		doneEvent("end_turn"),
	}}}

	orch, _, history, cfg := newTestOrchestrator(t,
		models.App{ID: "1", UserID: "u1", CodeGenType: models.CodeGenMultiFile}, provider)

	sink := &collectedEvents{}
	err := orch.ChatToGenCode(context.Background(), "1", "u1", "hi", sink.emit)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if sink.last().Kind != StreamError {
		t.Errorf("terminal event = %q, want error", sink.last().Kind)
	}

	rows := history.messages("1")
	if len(rows) != 2 || rows[1].MessageType != models.MessageTypeError {
		t.Fatalf("expected user + error history rows, got %+v", rows)
	}

	// Nothing materialized
	entries, err := os.ReadDir(cfg.OutputRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("output root should be empty after rejected artifact")
	}
}

func TestChatToGenCodeFinishesWhenEmitFails(t *testing.T) {
	provider := &scriptedProvider{scripts: [][]domainllm.StreamEvent{{
		textEvent("<p>offline</p>"),
		doneEvent("end_turn"),
	}}}

	orch, _, history, _ := newTestOrchestrator(t,
		models.App{ID: "1", UserID: "u1", CodeGenType: models.CodeGenHTML}, provider)

	sink := &collectedEvents{failAll: true}
	if err := orch.ChatToGenCode(context.Background(), "1", "u1", "hi", sink.emit); err != nil {
		t.Fatalf("generation should complete despite emit failure: %v", err)
	}

	rows := history.messages("1")
	if len(rows) != 2 || rows[1].MessageType != models.MessageTypeAI {
		t.Fatalf("expected completed generation in history, got %+v", rows)
	}
}

func TestChatToGenCodeProjectToolLoop(t *testing.T) {
	call1 := []domainllm.StreamEvent{
		textEvent("Setting up the project."),
		{Type: domainllm.EventToolUse, ToolUse: &domainllm.ToolUse{
			ID:    "tu_1",
			Name:  "write_file",
			Input: json.RawMessage(`{"path":"package.json","content":"{}"}`),
		}},
		{Type: domainllm.EventToolUse, ToolUse: &domainllm.ToolUse{
			ID:    "tu_2",
			Name:  "write_file",
			Input: json.RawMessage(`{"path":"src/main.js","content":"import './app'"}`),
		}},
		doneEvent("tool_use"),
	}
	call2 := []domainllm.StreamEvent{
		textEvent("All files written."),
		doneEvent("end_turn"),
	}
	provider := &scriptedProvider{scripts: [][]domainllm.StreamEvent{call1, call2}}

	orch, _, history, cfg := newTestOrchestrator(t,
		models.App{ID: "9", UserID: "u1", CodeGenType: models.CodeGenVueProject}, provider)

	sink := &collectedEvents{}
	if err := orch.ChatToGenCode(context.Background(), "9", "u1", "todo app", sink.emit); err != nil {
		t.Fatalf("ChatToGenCode failed: %v", err)
	}

	if calls := provider.streamCalls(); calls != 2 {
		t.Errorf("stream calls = %d, want 2 (loop continues only on tool_use)", calls)
	}

	// Both files landed under the project root as the calls arrived
	root := filepath.Join(cfg.OutputRoot, "vue_project_9")
	for _, rel := range []string{"package.json", filepath.Join("src", "main.js")} {
		if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
			t.Errorf("project file %s missing: %v", rel, err)
		}
	}

	// Tool notices were streamed and the terminal done names the root
	var toolEvents []string
	for _, ev := range sink.events {
		if ev.Kind == StreamTool {
			toolEvents = append(toolEvents, ev.Content)
		}
	}
	if len(toolEvents) != 2 {
		t.Errorf("tool events = %v, want 2", toolEvents)
	}
	if sink.last().Kind != StreamDone || sink.last().Content != root {
		t.Errorf("terminal event = %+v, want done with %q", sink.last(), root)
	}

	// The second request carries the tool results back to the model
	second := provider.requests[1]
	lastMsg := second.Messages[len(second.Messages)-1]
	if lastMsg.Role != domainllm.RoleUser || lastMsg.Blocks[0].Type != domainllm.BlockToolResult {
		t.Errorf("second call should start from tool results, got %+v", lastMsg)
	}

	// A synthetic summary is persisted instead of raw stream text
	rows := history.messages("9")
	if len(rows) != 2 || rows[1].MessageType != models.MessageTypeAI {
		t.Fatalf("history rows = %+v", rows)
	}
	if !strings.Contains(rows[1].Content, "package.json") {
		t.Errorf("summary should list written files, got %q", rows[1].Content)
	}
}

func TestChatToGenCodeProjectHallucinatedTool(t *testing.T) {
	call1 := []domainllm.StreamEvent{
		{Type: domainllm.EventToolUse, ToolUse: &domainllm.ToolUse{
			ID:    "tu_1",
			Name:  "delete_file",
			Input: json.RawMessage(`{"path":"x"}`),
		}},
		doneEvent("tool_use"),
	}
	call2 := []domainllm.StreamEvent{doneEvent("end_turn")}
	provider := &scriptedProvider{scripts: [][]domainllm.StreamEvent{call1, call2}}

	orch, _, _, cfg := newTestOrchestrator(t,
		models.App{ID: "9", UserID: "u1", CodeGenType: models.CodeGenVueProject}, provider)

	sink := &collectedEvents{}
	if err := orch.ChatToGenCode(context.Background(), "9", "u1", "todo app", sink.emit); err != nil {
		t.Fatalf("hallucinated tool must not fail the generation: %v", err)
	}

	// The model got an error result, and nothing was written
	second := provider.requests[1]
	lastMsg := second.Messages[len(second.Messages)-1]
	if !lastMsg.Blocks[0].IsError {
		t.Error("tool result for unknown tool should be marked as error")
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputRoot, "vue_project_9")); err == nil {
		t.Error("no project files should exist")
	}
}

func TestChatToGenCodeProjectRoundBound(t *testing.T) {
	// A model that never stops asking for tools must be cut off.
	endless := []domainllm.StreamEvent{
		{Type: domainllm.EventToolUse, ToolUse: &domainllm.ToolUse{
			ID:    "tu",
			Name:  "write_file",
			Input: json.RawMessage(`{"path":"loop.txt","content":"x"}`),
		}},
		doneEvent("tool_use"),
	}
	provider := &scriptedProvider{scripts: [][]domainllm.StreamEvent{endless}}

	orch, _, _, _ := newTestOrchestrator(t,
		models.App{ID: "9", UserID: "u1", CodeGenType: models.CodeGenVueProject}, provider)

	sink := &collectedEvents{}
	if err := orch.ChatToGenCode(context.Background(), "9", "u1", "todo app", sink.emit); err != nil {
		t.Fatalf("ChatToGenCode failed: %v", err)
	}

	if calls := provider.streamCalls(); calls != config.MaxProjectRounds {
		t.Errorf("stream calls = %d, want bounded at %d", calls, config.MaxProjectRounds)
	}
	if sink.last().Kind != StreamDone {
		t.Errorf("terminal event = %q, want done", sink.last().Kind)
	}
}
