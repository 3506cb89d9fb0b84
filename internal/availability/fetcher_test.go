package availability

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	kind     Kind
	openErr  map[string]error
	monthErr map[string]error
	opened   map[string]int
	months   map[string]int
	slots    func(rec *Record, month civil.Date)
	closed   bool
}

func newFakeSource(kind Kind) *fakeSource {
	return &fakeSource{
		kind:     kind,
		openErr:  map[string]error{},
		monthErr: map[string]error{},
		opened:   map[string]int{},
		months:   map[string]int{},
	}
}

func (f *fakeSource) Kind() Kind { return f.kind }

func (f *fakeSource) Open(_ context.Context, id string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened[id]++
	if err := f.openErr[id]; err != nil {
		return nil, err
	}
	return NewRecord(id, f.kind, "Name "+id), nil
}

func (f *fakeSource) FetchMonth(_ context.Context, rec *Record, month civil.Date) error {
	f.mu.Lock()
	f.months[rec.ID+"@"+month.String()]++
	err := f.monthErr[rec.ID]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if f.slots != nil {
		f.slots(rec, month)
	}
	return nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func TestFetcherRequestsEachIdentifierMonthOnce(t *testing.T) {
	src := newFakeSource(KindPermit)
	f := NewFetcher(src, 2, nil)

	report := f.Run(context.Background(), []string{"1", "2", "1", " 2 ", ""}, mustWindow(t, "2026-06-15", "2026-08-02"), Constraints{})

	require.Len(t, report.Summaries, 2)
	assert.Equal(t, "1", report.Summaries[0].ID)
	assert.Equal(t, "2", report.Summaries[1].ID)
	assert.Equal(t, map[string]int{"1": 1, "2": 1}, src.opened)
	assert.Len(t, src.months, 6)
	for key, n := range src.months {
		assert.Equal(t, 1, n, key)
	}
	assert.Equal(t, KindPermit, report.Kind)
	assert.False(t, report.FetchedAt.IsZero())
}

func TestFetcherSkipsAndReportsFailedIdentifiers(t *testing.T) {
	src := newFakeSource(KindCampground)
	src.openErr["bad"] = errors.New("campground lookup failed")
	src.monthErr["worse"] = errors.New("HTTP 500")
	src.slots = func(rec *Record, month civil.Date) {
		rec.Set(month, SubUnit{ID: "site-1"}, Slot{Remaining: 1})
	}
	f := NewFetcher(src, 1, nil)

	report := f.Run(context.Background(), []string{"bad", "good", "worse"}, mustWindow(t, "2026-06-01", "2026-06-30"), Constraints{})

	require.Len(t, report.Summaries, 3)
	assert.Contains(t, report.Summaries[0].Error, "campground lookup failed")
	assert.Empty(t, report.Summaries[1].Error)
	assert.Equal(t, 1, report.Summaries[1].AvailableSubUnits)
	assert.Equal(t, "Name good", report.Summaries[1].Name)
	assert.Contains(t, report.Summaries[2].Error, "month 2026-06")
	assert.Contains(t, report.Summaries[2].Error, "HTTP 500")
	assert.False(t, report.Failed())
	assert.True(t, report.HasAvailability())
}

func TestFetcherEmptyIdentifierList(t *testing.T) {
	src := newFakeSource(KindPermit)
	f := NewFetcher(src, 0, nil)

	report := f.Run(context.Background(), nil, mustWindow(t, "2026-06-01", "2026-06-30"), Constraints{})

	assert.Empty(t, report.Summaries)
	assert.False(t, report.Failed())
	assert.Empty(t, src.opened)
}

func TestFetcherCloseClosesSource(t *testing.T) {
	src := newFakeSource(KindPermit)
	f := NewFetcher(src, 1, nil)
	require.NoError(t, f.Close())
	assert.True(t, src.closed)
}
