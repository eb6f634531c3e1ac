package tui

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/client"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/download"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/tracker"
)

type stubAPI struct {
	orders   map[string]model.OrderRecord
	results  model.SearchResults
	getErr   error
	searched []string
}

func (s *stubAPI) CreateOrder(context.Context, model.CreateOrderRequest) (model.OrderRecord, error) {
	return model.OrderRecord{}, errors.New("not used")
}

func (s *stubAPI) GetOrder(_ context.Context, id string) (model.OrderRecord, error) {
	if s.getErr != nil {
		return model.OrderRecord{}, s.getErr
	}
	rec, ok := s.orders[id]
	if !ok {
		return model.OrderRecord{}, &client.APIError{Op: "get order", StatusCode: 404, Message: "Order not found"}
	}
	return rec, nil
}

func (s *stubAPI) SearchOrders(_ context.Context, q string) (model.SearchResults, error) {
	s.searched = append(s.searched, q)
	return s.results, nil
}

func (s *stubAPI) DownloadURL(id string) string {
	return "http://api.test/api/orders/" + id + "/download"
}

type stubFetcher struct{ body string }

func (f stubFetcher) Download(context.Context, string) (*client.Artifact, error) {
	return &client.Artifact{
		Filename: "careplan_123456_Pyridostigmine_20240301.txt",
		Body:     io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func newTestApp(t *testing.T, api *stubAPI, opts ...tracker.Option) *App {
	t.Helper()
	tr := tracker.New(api, opts...)
	saver := download.Saver{Fetcher: stubFetcher{body: "Plan text"}, Dir: t.TempDir()}
	return New(context.Background(), tr, WithSaver(saver))
}

// runCommands feeds each command's message back into Update until the chain
// ends.
func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		nextModel, nextCmd := app.Update(msg)
		app, ok = nextModel.(*App)
		if !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		cmd = nextCmd
	}
	return app
}

func press(t *testing.T, app *App, keys ...string) *App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		model, cmd := app.Update(msg)
		if k == "/" {
			// Focusing starts the cursor blink loop; there is no result to wait for.
			app = model.(*App)
			continue
		}
		app = runCommands(t, model, cmd)
	}
	return app
}

func typeText(t *testing.T, app *App, text string) *App {
	t.Helper()
	for _, r := range text {
		model, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		app = model.(*App)
	}
	return app
}

func TestEmptySearchNeverCallsAPI(t *testing.T) {
	api := &stubAPI{}
	app := newTestApp(t, api)
	app = press(t, app, "/")
	app = typeText(t, app, "   ")
	app = press(t, app, "enter")

	if len(api.searched) != 0 {
		t.Fatalf("expected no search request, got %v", api.searched)
	}
	if app.errMsg != tracker.ErrEmptyQuery.Error() {
		t.Fatalf("expected empty query message, got %q", app.errMsg)
	}
}

func TestSearchSelectAndDownload(t *testing.T) {
	api := &stubAPI{
		orders: map[string]model.OrderRecord{
			"abc123": {
				OrderID:    "abc123",
				Status:     model.StatusCompleted,
				Patient:    &model.Patient{Name: "Jane Doe", MRN: "123456"},
				Medication: &model.Medication{Name: "Pyridostigmine"},
				CarePlan:   &model.CarePlan{Content: "Plan text"},
			},
		},
		results: model.SearchResults{Count: 1, Orders: []model.SearchResultSummary{{
			OrderID: "abc123", PatientName: "Jane Doe", PatientMRN: "123456",
			Medication: "Pyridostigmine", Status: model.StatusCompleted,
		}}},
	}
	app := newTestApp(t, api)
	app = press(t, app, "/")
	app = typeText(t, app, "doe")
	app = press(t, app, "enter")

	if got := strings.Join(api.searched, ","); got != "doe" {
		t.Fatalf("expected one search for doe, got %q", got)
	}
	if app.focus != focusResults {
		t.Fatalf("expected focus on results, got %d", app.focus)
	}

	app = press(t, app, "enter")
	if got := app.tr.Store.Snapshot().OrderID(); got != "abc123" {
		t.Fatalf("expected abc123 active, got %q", got)
	}
	if app.focus != focusOrder {
		t.Fatalf("expected focus back on order after select")
	}
	if !strings.Contains(app.View(), "Plan text") {
		t.Fatalf("expected care plan preview in view")
	}

	app = press(t, app, "d")
	if app.downloading {
		t.Fatalf("download should have finished")
	}
	path := filepath.Join(app.saver.Dir, "careplan_123456_Pyridostigmine_20240301.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read downloaded plan: %v", err)
	}
	if string(data) != "Plan text" {
		t.Fatalf("unexpected plan content %q", data)
	}
	if !strings.HasPrefix(app.notice, "Saved ") {
		t.Fatalf("expected saved notice, got %q", app.notice)
	}
}

func TestRefreshFailureShowsTransientError(t *testing.T) {
	api := &stubAPI{getErr: &client.TransportError{Op: "get order", Err: errors.New("connection refused")}}
	prior := model.OrderRecord{OrderID: "abc123", Status: model.StatusProcessing}
	app := newTestApp(t, api, tracker.WithInitial(prior))

	app = press(t, app, "r")
	rec, _ := app.tr.Store.Active()
	if rec.Status != model.StatusProcessing {
		t.Fatalf("status must survive a failed refresh, got %s", rec.Status)
	}
	view := app.View()
	if !strings.Contains(view, "Refresh failed") || !strings.Contains(view, "connection refused") {
		t.Fatalf("expected transient error in view:\n%s", view)
	}
}

func TestRefreshWithoutOrder(t *testing.T) {
	app := newTestApp(t, &stubAPI{})
	app = press(t, app, "r")
	if app.notice == "" {
		t.Fatalf("expected a notice when nothing is tracked")
	}
}

func TestDownloadUnavailableUntilCompleted(t *testing.T) {
	prior := model.OrderRecord{OrderID: "abc123", Status: model.StatusPending}
	app := newTestApp(t, &stubAPI{}, tracker.WithInitial(prior))
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if cmd != nil {
		t.Fatalf("download must not start for a pending order")
	}
	if model.(*App).notice == "" {
		t.Fatalf("expected not-ready notice")
	}
}

func TestStatusTextKeepsUnknownStatus(t *testing.T) {
	if got := StatusText(model.Status("on_hold")); got != "ON_HOLD" {
		t.Fatalf("expected upper-cased unknown status, got %q", got)
	}
}
