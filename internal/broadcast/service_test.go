package broadcast_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertarea/alertarea/internal/broadcast"
	"github.com/alertarea/alertarea/internal/catalogue"
)

// fakeDispatcher records calls to the sending network.
type fakeDispatcher struct {
	created   []*broadcast.Broadcast
	cancelled []string
	err       error
}

func (d *fakeDispatcher) CreateBroadcast(_ context.Context, b *broadcast.Broadcast) error {
	if d.err != nil {
		return d.err
	}
	d.created = append(d.created, b)
	return nil
}

func (d *fakeDispatcher) CancelBroadcast(_ context.Context, id string) error {
	if d.err != nil {
		return d.err
	}
	d.cancelled = append(d.cancelled, id)
	return nil
}

func newTestService(t *testing.T, dispatcher broadcast.Dispatcher) (*broadcast.Service, *harness, *broadcast.InMemoryRepository) {
	t.Helper()
	h := newHarness(t)
	repo := broadcast.NewInMemoryRepository()
	svc := broadcast.NewService(broadcast.ServiceConfig{
		Repo:       repo,
		Composer:   h.composer,
		Store:      h.store,
		Builder:    h.builder,
		Dispatcher: dispatcher,
	})
	return svc, h, repo
}

func TestServiceCreate(t *testing.T) {
	svc, h, _ := newTestService(t, nil)
	ctx := context.Background()

	b, err := svc.Create(ctx, broadcast.CreateInput{
		Reference:     "flooding in Oxford",
		Content:       "Severe flooding expected. Move to higher ground.",
		Selection:     h.selection(t, "wd23-E05009997"),
		ForceOverride: true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, broadcast.StatusDraft, b.Status)
	assert.Equal(t, []string{"wd23-E05009997"}, b.AreaIDs)
	assert.Equal(t, []string{"Carfax"}, b.AreaNames)
	assert.Equal(t, []string{"Oxford"}, b.AggregateNames)
	assert.True(t, b.ForceOverride)
	assert.NotEmpty(t, b.SimplePolygons)
	assert.Equal(t, 8000.0, b.CountOfPhones)

	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.False(t, got.Drifted)
}

func TestServiceLifecycle(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, h, _ := newTestService(t, dispatcher)
	ctx := context.Background()

	b, err := svc.Create(ctx, broadcast.CreateInput{
		Reference: "test",
		Content:   "test message",
		Selection: h.selection(t, "wd23-E05009997"),
	})
	require.NoError(t, err)

	// draft cannot go straight to broadcasting
	_, err = svc.Approve(ctx, b.ID)
	assert.ErrorIs(t, err, broadcast.ErrInvalidTransition)

	b, err = svc.Submit(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, broadcast.StatusPendingApproval, b.Status)

	b, err = svc.Approve(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, broadcast.StatusBroadcasting, b.Status)
	require.Len(t, dispatcher.created, 1)
	assert.Equal(t, b.ID, dispatcher.created[0].ID)

	b, err = svc.Cancel(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, broadcast.StatusCancelled, b.Status)
	assert.Equal(t, []string{b.ID}, dispatcher.cancelled)
}

func TestServiceApprove_DispatchFailureKeepsStatus(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("network down")}
	svc, h, _ := newTestService(t, dispatcher)
	ctx := context.Background()

	b, err := svc.Create(ctx, broadcast.CreateInput{
		Reference: "test",
		Content:   "test message",
		Selection: h.selection(t, "wd23-E05009997"),
	})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, b.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, b.ID)
	require.Error(t, err)

	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, broadcast.StatusPendingApproval, got.Status)
}

func TestServiceUpdateSelection(t *testing.T) {
	svc, h, _ := newTestService(t, nil)
	ctx := context.Background()

	b, err := svc.Create(ctx, broadcast.CreateInput{
		Reference: "test",
		Content:   "test message",
		Selection: h.selection(t, "wd23-E05009997"),
	})
	require.NoError(t, err)

	b, err = svc.UpdateSelection(ctx, b.ID, h.selection(t, "wd23-E05009997", "wd23-E05009998"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Carfax", "Holywell"}, b.AreaNames)
	assert.Equal(t, 20000.0, b.CountOfPhones)
}

func TestServiceUpdate_RefusedOnceLive(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, h, _ := newTestService(t, dispatcher)
	ctx := context.Background()

	b, err := svc.Create(ctx, broadcast.CreateInput{
		Reference: "test",
		Content:   "test message",
		Selection: h.selection(t, "wd23-E05009997"),
	})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, b.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, b.ID)
	require.NoError(t, err)

	_, err = svc.UpdateContent(ctx, b.ID, "changed")
	assert.ErrorIs(t, err, broadcast.ErrNotEditable)
	_, err = svc.UpdateSelection(ctx, b.ID, h.selection(t, "wd23-E05009998"))
	assert.ErrorIs(t, err, broadcast.ErrNotEditable)
}

func TestServiceGet_DriftedSelectionRendersAsCustom(t *testing.T) {
	svc, _, repo := newTestService(t, nil)
	ctx := context.Background()

	// a record archived against a previous catalogue version
	stored := &broadcast.Broadcast{
		ID:             "archived",
		Reference:      "old storm warning",
		Status:         broadcast.StatusCompleted,
		AreaIDs:        []string{"wd23-E05009997", "wd20-E05000123"},
		AreaNames:      []string{"Carfax", "Old Ward"},
		SimplePolygons: [][][]float64{{{51.75, -1.27}, {51.76, -1.27}, {51.76, -1.26}, {51.75, -1.27}}},
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, stored))

	got, err := svc.Get(ctx, "archived")
	require.NoError(t, err)
	assert.True(t, got.Drifted)
	assert.NotEmpty(t, got.SimplePolygons)
}

func TestServiceList(t *testing.T) {
	svc, h, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, broadcast.CreateInput{
		Reference: "first",
		Content:   "m",
		Selection: h.selection(t, "wd23-E05009997"),
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, broadcast.CreateInput{
		Reference: "second",
		Content:   "m",
		Selection: h.selection(t, "wd23-E05009998"),
	})
	require.NoError(t, err)

	all, err := svc.List(ctx, broadcast.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Submit(ctx, first.ID)
	require.NoError(t, err)

	pending, err := svc.List(ctx, broadcast.ListOptions{
		Statuses: []broadcast.Status{broadcast.StatusPendingApproval},
	})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "first", pending[0].Reference)
}

func TestServiceAddAreas(t *testing.T) {
	svc, h, _ := newTestService(t, nil)
	ctx := context.Background()

	b, err := svc.Create(ctx, broadcast.CreateInput{
		Reference: "test",
		Content:   "test message",
		Selection: h.selection(t, "wd23-E05009997"),
	})
	require.NoError(t, err)

	b, err = svc.AddAreas(ctx, b.ID, h.selection(t, "wd23-E05009998"))
	require.NoError(t, err)
	assert.Equal(t, []string{"wd23-E05009997", "wd23-E05009998"}, b.AreaIDs)
	assert.Equal(t, 20000.0, b.CountOfPhones)

	// already-selected areas are not duplicated
	b, err = svc.AddAreas(ctx, b.ID, h.selection(t, "wd23-E05009997"))
	require.NoError(t, err)
	assert.Equal(t, []string{"wd23-E05009997", "wd23-E05009998"}, b.AreaIDs)
}

func TestServiceRemoveArea(t *testing.T) {
	svc, h, _ := newTestService(t, nil)
	ctx := context.Background()

	b, err := svc.Create(ctx, broadcast.CreateInput{
		Reference: "test",
		Content:   "test message",
		Selection: h.selection(t, "wd23-E05009997", "wd23-E05009998"),
	})
	require.NoError(t, err)

	b, err = svc.RemoveArea(ctx, b.ID, "wd23-E05009998")
	require.NoError(t, err)
	assert.Equal(t, []string{"wd23-E05009997"}, b.AreaIDs)
	assert.Equal(t, []string{"Carfax"}, b.AreaNames)
	assert.Equal(t, 8000.0, b.CountOfPhones)

	var notFound *catalogue.NotFoundError
	_, err = svc.RemoveArea(ctx, b.ID, "wd23-E05000000")
	assert.ErrorAs(t, err, &notFound)

	_, err = svc.RemoveArea(ctx, b.ID, "wd23-E05009997")
	assert.ErrorIs(t, err, broadcast.ErrEmptySelection)
}

func TestServiceCustomDiscs_RebuiltAcrossEdits(t *testing.T) {
	svc, h, _ := newTestService(t, nil)
	ctx := context.Background()

	disc, err := h.builder.FromCoordinates(ctx, 51.755, -1.265, 1)
	require.NoError(t, err)
	sel := h.selection(t, "wd23-E05009997")
	sel.Custom = append(sel.Custom, disc)

	b, err := svc.Create(ctx, broadcast.CreateInput{
		Reference: "test",
		Content:   "test message",
		Selection: sel,
	})
	require.NoError(t, err)
	require.Len(t, b.CustomDiscs, 1)
	assert.Equal(t, disc.ID, b.CustomDiscs[0].ID)
	assert.Contains(t, b.AreaIDs, disc.ID)

	// custom discs are not catalogue ids and must not read as drift
	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.Drifted)

	b, err = svc.RemoveArea(ctx, b.ID, "wd23-E05009997")
	require.NoError(t, err)
	assert.Equal(t, []string{disc.ID}, b.AreaIDs)
	require.Len(t, b.CustomDiscs, 1)

	b, err = svc.AddAreas(ctx, b.ID, h.selection(t, "wd23-E05009998"))
	require.NoError(t, err)
	assert.Contains(t, b.AreaIDs, disc.ID)
	assert.Contains(t, b.AreaIDs, "wd23-E05009998")
}
