package session_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tably/checkout/internal/backend"
	"github.com/tably/checkout/internal/logging"
	"github.com/tably/checkout/internal/session"
)

// fakeFetcher answers from a scripted queue of results.
type fakeFetcher struct {
	calls   int
	results []fetchResult
}

type fetchResult struct {
	snap *backend.TableOrdersSnapshot
	err  error
}

func (f *fakeFetcher) TableOrders(_ context.Context, _, _ string) (*backend.TableOrdersSnapshot, error) {
	idx := f.calls
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	f.calls++
	r := f.results[idx]
	return r.snap, r.err
}

func TestResolvePreconditions(t *testing.T) {
	r := session.NewResolver(&fakeFetcher{}, logging.Discard())

	_, err := r.Resolve(context.Background(), "", "5")
	assert.True(t, errors.Is(err, session.ErrRestaurantRequired))

	_, err = r.Resolve(context.Background(), "r1", "")
	assert.True(t, errors.Is(err, session.ErrTableRequired))
}

func TestResolveActiveOrders(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{{snap: &backend.TableOrdersSnapshot{
		ActiveOrders:   []backend.Order{{ID: "o1"}, {ID: "o2"}},
		CurrentSession: &backend.TableSession{ID: "s1"},
	}}}}
	r := session.NewResolver(f, logging.Discard())

	res, err := r.Resolve(context.Background(), "r1", "5")
	require.NoError(t, err)
	assert.True(t, res.HasActiveOrders)
	assert.Equal(t, 2, res.ActiveOrdersCount)
	require.NotNil(t, res.CurrentSession)
	assert.Equal(t, "s1", res.CurrentSession.ID)
}

func TestResolveEmptyTable(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{{snap: &backend.TableOrdersSnapshot{}}}}
	r := session.NewResolver(f, logging.Discard())

	res, err := r.Resolve(context.Background(), "r1", "5")
	require.NoError(t, err)
	assert.False(t, res.HasActiveOrders)
	assert.Zero(t, res.ActiveOrdersCount)
}

func TestResolveRetriesTransientErrors(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{
		{err: errors.New("connection reset")},
		{snap: &backend.TableOrdersSnapshot{ActiveOrders: []backend.Order{{ID: "o1"}}}},
	}}
	r := session.NewResolver(f, logging.Discard())

	res, err := r.Resolve(context.Background(), "r1", "5")
	require.NoError(t, err)
	assert.True(t, res.HasActiveOrders)
	assert.Equal(t, 2, f.calls)
}

func TestResolveClientErrorIsPermanent(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{
		{err: &backend.APIError{Status: http.StatusNotFound, Message: "unknown table"}},
		{snap: &backend.TableOrdersSnapshot{}},
	}}
	r := session.NewResolver(f, logging.Discard())

	_, err := r.Resolve(context.Background(), "r1", "5")
	require.Error(t, err)
	assert.Equal(t, 1, f.calls, "4xx must not be retried")
	assert.True(t, backend.IsStatus(err, http.StatusNotFound))
}

// Two consecutive resolutions reflect backend state at each call; nothing
// is cached in between.
func TestResolveNeverCaches(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{
		{snap: &backend.TableOrdersSnapshot{ActiveOrders: []backend.Order{{ID: "o1"}}}},
		{snap: &backend.TableOrdersSnapshot{}},
	}}
	r := session.NewResolver(f, logging.Discard())

	first, err := r.Resolve(context.Background(), "r1", "5")
	require.NoError(t, err)
	assert.True(t, first.HasActiveOrders)

	second, err := r.Resolve(context.Background(), "r1", "5")
	require.NoError(t, err)
	assert.False(t, second.HasActiveOrders, "second call must see the fresh state")
	assert.Equal(t, 2, f.calls)
}
