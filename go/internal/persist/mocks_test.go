package persist

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// --- Store ---

type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveRecord(ctx context.Context, doc Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockStore) SaveSeries(ctx context.Context, series int) error {
	args := m.Called(ctx, series)
	return args.Error(0)
}

func (m *MockStore) LoadSeries(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// --- Publisher ---

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// --- Sink ---

type recordingSink struct {
	docs   []Document
	series []int
	events []Event
}

func (r *recordingSink) SaveRecord(doc Document) { r.docs = append(r.docs, doc) }
func (r *recordingSink) SaveSeries(series int)   { r.series = append(r.series, series) }
func (r *recordingSink) PublishEvent(e Event)    { r.events = append(r.events, e) }

func (r *recordingSink) lastDoc() Document {
	return r.docs[len(r.docs)-1]
}

func (r *recordingSink) eventTypes() []EventType {
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
