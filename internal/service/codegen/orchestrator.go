package codegen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"appforge/internal/config"
	"appforge/internal/domain"
	"appforge/internal/domain/models"
	"appforge/internal/domain/repositories"
	domainllm "appforge/internal/domain/services/llm"
	"appforge/internal/prompts"
)

// StreamEventKind tags the pass-through events delivered to the caller
// during a generation request.
type StreamEventKind string

const (
	// StreamChunk carries an incremental content chunk.
	StreamChunk StreamEventKind = "chunk"
	// StreamTool announces one completed project file write.
	StreamTool StreamEventKind = "tool"
	// StreamDone is the terminal success event; content is the output dir.
	StreamDone StreamEventKind = "done"
	// StreamError is the terminal failure event.
	StreamError StreamEventKind = "error"
)

// StreamEvent is one pass-through event of a generation stream.
type StreamEvent struct {
	Kind    StreamEventKind `json:"kind"`
	Content string          `json:"content"`
}

// EmitFunc delivers one event to the caller. Returning an error means the
// caller stopped receiving; the orchestrator stops forwarding but still
// finishes the generation with whatever content accumulated.
type EmitFunc func(event StreamEvent) error

// Orchestrator drives the generation pipeline for one chat request:
// session acquisition, backend streaming, pass-through emission with
// accumulation, parsing, materialization, and history persistence.
type Orchestrator struct {
	apps      repositories.AppRepository
	history   repositories.ChatHistoryRepository
	sessions  *SessionStore
	provider  domainllm.Provider
	prompts   *prompts.Registry
	saver     *FileSaver
	model     string
	serialize bool
	maxRounds int
	logger    *slog.Logger
}

// NewOrchestrator wires the streaming pipeline.
func NewOrchestrator(
	apps repositories.AppRepository,
	history repositories.ChatHistoryRepository,
	sessions *SessionStore,
	provider domainllm.Provider,
	registry *prompts.Registry,
	saver *FileSaver,
	cfg *config.Config,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		apps:      apps,
		history:   history,
		sessions:  sessions,
		provider:  provider,
		prompts:   registry,
		saver:     saver,
		model:     cfg.DefaultModel,
		serialize: cfg.SessionSerialize,
		maxRounds: config.MaxProjectRounds,
		logger:    logger,
	}
}

// emitter tracks whether the caller is still receiving. Once an emit
// fails (or the caller disconnects) forwarding stops silently; content
// already delivered is never retracted.
type emitter struct {
	emit   EmitFunc
	active bool
	logger *slog.Logger
}

func (e *emitter) send(event StreamEvent) {
	if !e.active {
		return
	}
	if err := e.emit(event); err != nil {
		e.active = false
		e.logger.Debug("caller stopped receiving stream", "error", err)
	}
}

// ChatToGenCode runs one generation request end to end. History append
// order is: user message, then (streamed content, not persisted per
// chunk), then exactly one final assistant or error message.
func (o *Orchestrator) ChatToGenCode(ctx context.Context, appID, userID, message string, emit EmitFunc) error {
	app, err := o.apps.GetApp(ctx, appID)
	if err != nil {
		return err
	}
	if app.UserID != userID {
		return &domain.ForbiddenError{Message: "only the owner can chat with this app"}
	}
	if _, err := models.ParseCodeGenType(string(app.CodeGenType)); err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}

	userMsg := &models.ChatMessage{
		AppID:       app.ID,
		UserID:      userID,
		MessageType: models.MessageTypeUser,
		Content:     message,
	}
	if err := o.history.Append(ctx, userMsg); err != nil {
		return fmt.Errorf("record user message: %w", err)
	}

	sess, err := o.sessions.Acquire(ctx, app.ID, app.CodeGenType)
	if err != nil {
		return err
	}

	// Serialize policy: hold the session for the whole request lifetime so
	// concurrent generations against the same target cannot interleave
	// history. Disabling reproduces last-write-wins interleaving.
	if o.serialize {
		sess.LockGeneration()
		defer sess.UnlockGeneration()
	}

	sess.Append(domainllm.RoleUser, message)

	system, err := o.prompts.SystemPrompt(app.CodeGenType)
	if err != nil {
		return err
	}

	em := &emitter{emit: emit, active: true, logger: o.logger}

	// Finalization must survive caller disconnection: a dropped stream is
	// treated as EOF at the point of disconnection and the accumulated
	// work is still parsed, saved and persisted.
	finCtx := context.WithoutCancel(ctx)

	if app.CodeGenType == models.CodeGenVueProject {
		return o.runProjectGeneration(ctx, finCtx, app, userID, sess, system, em)
	}
	return o.runTextGeneration(ctx, finCtx, app, userID, sess, system, em)
}

// runTextGeneration streams a single completion, duplicating each chunk to
// the caller and an accumulator, then parses and saves the accumulated
// text once the backend signals end-of-stream.
func (o *Orchestrator) runTextGeneration(
	ctx, finCtx context.Context,
	app *models.App,
	userID string,
	sess *Session,
	system string,
	em *emitter,
) error {
	events, err := o.provider.Stream(ctx, &domainllm.GenerateRequest{
		Model:    o.model,
		System:   system,
		Messages: sess.Snapshot(),
	})
	if err != nil {
		return o.failGeneration(finCtx, app, userID, em, fmt.Errorf("%w: %v", domain.ErrBackend, err))
	}

	var accumulated strings.Builder

receive:
	for {
		select {
		case <-ctx.Done():
			// Caller disconnected: stop forwarding, treat the stream as
			// ended here and finalize with what accumulated so far.
			em.active = false
			break receive
		case ev, ok := <-events:
			if !ok {
				break receive
			}
			switch ev.Type {
			case domainllm.EventText:
				accumulated.WriteString(ev.Text)
				em.send(StreamEvent{Kind: StreamChunk, Content: ev.Text})
			case domainllm.EventError:
				return o.failGeneration(finCtx, app, userID, em, fmt.Errorf("%w: %v", domain.ErrBackend, ev.Err))
			case domainllm.EventDone:
				break receive
			}
		}
	}

	raw := accumulated.String()

	artifact, err := ParseArtifact(raw, app.CodeGenType)
	if err != nil {
		return o.failGeneration(finCtx, app, userID, em, err)
	}

	dir, err := o.saver.Save(artifact, app.ID)
	if err != nil {
		return o.failGeneration(finCtx, app, userID, em, err)
	}

	if err := o.appendAssistantMessage(finCtx, app, userID, raw, em); err != nil {
		return err
	}
	sess.Append(domainllm.RoleAssistant, raw)

	em.send(StreamEvent{Kind: StreamDone, Content: dir})

	o.logger.Info("generation completed",
		"app_id", app.ID,
		"layout", app.CodeGenType,
		"chars", len(raw),
	)

	return nil
}

// runProjectGeneration drives the tool-call loop for project-style
// generation. Each write_file invocation is routed directly to the
// materializer as it arrives; the loop continues while the model stops
// for tool use, bounded by maxRounds.
func (o *Orchestrator) runProjectGeneration(
	ctx, finCtx context.Context,
	app *models.App,
	userID string,
	sess *Session,
	system string,
	em *emitter,
) error {
	tools := []domainllm.ToolDefinition{writeFileToolDefinition()}
	conversation := sess.Snapshot()
	projectDir := o.saver.OutputDir(models.CodeGenVueProject, app.ID)

	var written []string
	disconnected := false

rounds:
	for round := 0; round < o.maxRounds; round++ {
		events, err := o.provider.Stream(ctx, &domainllm.GenerateRequest{
			Model:    o.model,
			System:   system,
			Messages: conversation,
			Tools:    tools,
		})
		if err != nil {
			return o.failGeneration(finCtx, app, userID, em, fmt.Errorf("%w: %v", domain.ErrBackend, err))
		}

		var assistantBlocks []domainllm.ContentBlock
		var resultBlocks []domainllm.ContentBlock
		var textBuf strings.Builder
		stopReason := ""

	receive:
		for {
			select {
			case <-ctx.Done():
				em.active = false
				disconnected = true
				break receive
			case ev, ok := <-events:
				if !ok {
					break receive
				}
				switch ev.Type {
				case domainllm.EventText:
					textBuf.WriteString(ev.Text)
					em.send(StreamEvent{Kind: StreamChunk, Content: ev.Text})
				case domainllm.EventToolUse:
					assistantBlocks = append(assistantBlocks, domainllm.ContentBlock{
						Type:      domainllm.BlockToolUse,
						ToolUseID: ev.ToolUse.ID,
						ToolName:  ev.ToolUse.Name,
						ToolInput: ev.ToolUse.Input,
					})
					resultBlocks = append(resultBlocks, o.executeToolCall(app.ID, ev.ToolUse, &written, em))
				case domainllm.EventError:
					return o.failGeneration(finCtx, app, userID, em, fmt.Errorf("%w: %v", domain.ErrBackend, ev.Err))
				case domainllm.EventDone:
					stopReason = ev.StopReason
					break receive
				}
			}
		}

		if text := textBuf.String(); text != "" {
			assistantBlocks = append([]domainllm.ContentBlock{domainllm.TextBlock(text)}, assistantBlocks...)
		}
		if len(assistantBlocks) > 0 {
			conversation = append(conversation, domainllm.Message{
				Role:   domainllm.RoleAssistant,
				Blocks: assistantBlocks,
			})
		}
		if len(resultBlocks) > 0 {
			conversation = append(conversation, domainllm.Message{
				Role:   domainllm.RoleUser,
				Blocks: resultBlocks,
			})
		}

		if disconnected || stopReason != "tool_use" {
			break rounds
		}
	}

	summary := projectSummary(written)

	if err := o.appendAssistantMessage(finCtx, app, userID, summary, em); err != nil {
		return err
	}
	sess.Append(domainllm.RoleAssistant, summary)

	em.send(StreamEvent{Kind: StreamDone, Content: projectDir})

	o.logger.Info("project generation completed",
		"app_id", app.ID,
		"files", len(written),
	)

	return nil
}

// executeToolCall runs one tool invocation and builds its result block.
// A hallucinated tool name or bad input produces an error result for the
// model rather than failing the generation.
func (o *Orchestrator) executeToolCall(appID string, call *domainllm.ToolUse, written *[]string, em *emitter) domainllm.ContentBlock {
	result := domainllm.ContentBlock{
		Type:      domainllm.BlockToolResult,
		ToolUseID: call.ID,
	}

	if call.Name != writeFileToolName {
		result.Text = fmt.Sprintf("Error: there is no tool called %s", call.Name)
		result.IsError = true
		return result
	}

	input, err := parseWriteFileInput(call.Input)
	if err != nil {
		result.Text = "Error: " + err.Error()
		result.IsError = true
		return result
	}

	path, err := o.saver.WriteProjectFile(appID, input.Path, input.Content)
	if err != nil {
		result.Text = "Error: " + err.Error()
		result.IsError = true
		return result
	}

	*written = append(*written, path)
	em.send(StreamEvent{Kind: StreamTool, Content: path})

	result.Text = fmt.Sprintf("Wrote %s (%d bytes)", path, len(input.Content))
	return result
}

// appendAssistantMessage persists the final assistant message. If even
// this write fails the caller gets a terminal error; no error row is
// attempted since the store is evidently unavailable.
func (o *Orchestrator) appendAssistantMessage(ctx context.Context, app *models.App, userID, content string, em *emitter) error {
	msg := &models.ChatMessage{
		AppID:       app.ID,
		UserID:      userID,
		MessageType: models.MessageTypeAI,
		Content:     content,
	}
	if err := o.history.Append(ctx, msg); err != nil {
		o.logger.Error("failed to persist assistant message",
			"app_id", app.ID,
			"error", err,
		)
		em.send(StreamEvent{Kind: StreamError, Content: "failed to persist assistant message"})
		return fmt.Errorf("record assistant message: %w", err)
	}
	return nil
}

// failGeneration appends a distinctly tagged error entry to history and
// emits the terminal error event. Partial content already delivered to
// the caller is not retracted.
func (o *Orchestrator) failGeneration(ctx context.Context, app *models.App, userID string, em *emitter, genErr error) error {
	msg := &models.ChatMessage{
		AppID:       app.ID,
		UserID:      userID,
		MessageType: models.MessageTypeError,
		Content:     genErr.Error(),
	}
	if err := o.history.Append(ctx, msg); err != nil {
		o.logger.Error("failed to record generation error",
			"app_id", app.ID,
			"error", err,
		)
	}

	o.logger.Warn("generation failed",
		"app_id", app.ID,
		"layout", app.CodeGenType,
		"error", genErr,
	)

	em.send(StreamEvent{Kind: StreamError, Content: genErr.Error()})
	return genErr
}

// projectSummary builds the synthetic assistant message persisted for
// tool-driven generations.
func projectSummary(written []string) string {
	if len(written) == 0 {
		return "Generation finished without writing any project files."
	}
	return fmt.Sprintf("Generated %d project files:\n- %s", len(written), strings.Join(written, "\n- "))
}
