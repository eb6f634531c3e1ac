package tracker

import (
	"context"
	"errors"
	"sync"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/client"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
)

var errUnreachable = &client.TransportError{Op: "get order", Err: errors.New("connection refused")}

// fakeAPI answers from per-endpoint funcs and counts calls.
type fakeAPI struct {
	mu       sync.Mutex
	calls    map[string]int
	requests []model.CreateOrderRequest

	create func(ctx context.Context, req model.CreateOrderRequest) (model.OrderRecord, error)
	get    func(ctx context.Context, id string) (model.OrderRecord, error)
	search func(ctx context.Context, q string) (model.SearchResults, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: map[string]int{}}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeAPI) CreateOrder(ctx context.Context, req model.CreateOrderRequest) (model.OrderRecord, error) {
	f.record("create")
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.create(ctx, req)
}

func (f *fakeAPI) GetOrder(ctx context.Context, id string) (model.OrderRecord, error) {
	f.record("get")
	return f.get(ctx, id)
}

func (f *fakeAPI) SearchOrders(ctx context.Context, q string) (model.SearchResults, error) {
	f.record("search")
	return f.search(ctx, q)
}

func (f *fakeAPI) DownloadURL(id string) string {
	return "http://api.test/api/orders/" + id + "/download"
}

func completedRecord(id, content string) model.OrderRecord {
	return model.OrderRecord{
		OrderID:    id,
		Status:     model.StatusCompleted,
		Patient:    &model.Patient{Name: "Jane Doe", MRN: "123456"},
		Medication: &model.Medication{Name: "Pyridostigmine"},
		CarePlan:   &model.CarePlan{Content: content},
		Message:    "Care Plan generated successfully",
	}
}
