package codegen

import (
	"context"
	"strconv"
	"sync"
	"time"

	"appforge/internal/domain"
	"appforge/internal/domain/models"
	domainllm "appforge/internal/domain/services/llm"
)

// fakeAppRepo is an in-memory AppRepository.
type fakeAppRepo struct {
	mu   sync.Mutex
	apps map[string]models.App
}

func newFakeAppRepo(apps ...models.App) *fakeAppRepo {
	repo := &fakeAppRepo{apps: make(map[string]models.App)}
	for _, app := range apps {
		repo.apps[app.ID] = app
	}
	return repo
}

func (r *fakeAppRepo) CreateApp(_ context.Context, app *models.App) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if app.ID == "" {
		app.ID = strconv.Itoa(len(r.apps) + 1)
	}
	r.apps[app.ID] = *app
	return nil
}

func (r *fakeAppRepo) GetApp(_ context.Context, appID string) (*models.App, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appID]
	if !ok {
		return nil, &domain.NotFoundError{Message: "app not found"}
	}
	copied := app
	return &copied, nil
}

func (r *fakeAppRepo) ListAppsByUser(_ context.Context, userID string) ([]models.App, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.App
	for _, app := range r.apps {
		if app.UserID == userID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (r *fakeAppRepo) UpdateDeployment(_ context.Context, appID, deployKey string, deployedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appID]
	if !ok {
		return &domain.NotFoundError{Message: "app not found"}
	}
	app.DeployKey = &deployKey
	app.DeployedAt = &deployedAt
	r.apps[appID] = app
	return nil
}

func (r *fakeAppRepo) UpdateCover(_ context.Context, appID, coverURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[appID]
	if !ok {
		return &domain.NotFoundError{Message: "app not found"}
	}
	app.CoverURL = &coverURL
	r.apps[appID] = app
	return nil
}

func (r *fakeAppRepo) DeleteApp(_ context.Context, appID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.apps, appID)
	return nil
}

// fakeHistoryRepo is an in-memory ChatHistoryRepository with strictly
// increasing timestamps per appended row.
type fakeHistoryRepo struct {
	mu        sync.Mutex
	rows      []models.ChatMessage
	appendErr error
	listErr   error
}

func (r *fakeHistoryRepo) Append(_ context.Context, msg *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	msg.ID = strconv.Itoa(len(r.rows) + 1)
	msg.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(len(r.rows)) * time.Second)
	r.rows = append(r.rows, *msg)
	return nil
}

func (r *fakeHistoryRepo) forApp(appID string) []models.ChatMessage {
	var out []models.ChatMessage
	// Newest first
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].AppID == appID {
			out = append(out, r.rows[i])
		}
	}
	return out
}

func (r *fakeHistoryRepo) ListRecent(_ context.Context, appID string, offset, limit int) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	rows := r.forApp(appID)
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *fakeHistoryRepo) ListBefore(_ context.Context, appID string, before time.Time, limit int) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []models.ChatMessage
	for _, row := range r.forApp(appID) {
		if !before.IsZero() && !row.CreatedAt.Before(before) {
			continue
		}
		out = append(out, row)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) DeleteByApp(_ context.Context, appID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.AppID != appID {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeHistoryRepo) messages(appID string) []models.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ChatMessage
	for _, row := range r.rows {
		if row.AppID == appID {
			out = append(out, row)
		}
	}
	return out
}

// scriptedProvider replays pre-baked event sequences, one per Stream
// call; the last script repeats if called more often.
type scriptedProvider struct {
	mu           sync.Mutex
	generateResp *domainllm.GenerateResponse
	generateErr  error
	scripts      [][]domainllm.StreamEvent
	streamErr    error
	requests     []*domainllm.GenerateRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(_ context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.generateErr != nil {
		return nil, p.generateErr
	}
	return p.generateResp, nil
}

func (p *scriptedProvider) Stream(_ context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	p.mu.Lock()
	call := len(p.requests)
	p.requests = append(p.requests, req)
	if p.streamErr != nil {
		p.mu.Unlock()
		return nil, p.streamErr
	}
	script := p.scripts[min(call, len(p.scripts)-1)]
	p.mu.Unlock()

	ch := make(chan domainllm.StreamEvent)
	go func() {
		defer close(ch)
		for _, ev := range script {
			ch <- ev
		}
	}()
	return ch, nil
}

func (p *scriptedProvider) streamCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// fakeScreenshots records trigger calls.
type fakeScreenshots struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeScreenshots) TriggerCapture(appID, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, appID+" "+url)
}
