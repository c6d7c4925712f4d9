package ledger

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/ossms/internal/db"
	"github.com/erazemk/ossms/internal/errs"
	"github.com/erazemk/ossms/internal/model"
	"github.com/erazemk/ossms/internal/store"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	st     *store.Store
	ledger *Ledger
	actor  string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	st := store.New(db.NewTestDB(t))
	ctx := context.Background()

	actor := &model.User{Username: "admin", PasswordHash: "x", Email: "admin@example.com", Role: model.RoleAdmin}
	require.NoError(t, st.Update(ctx, func(q store.Querier) error {
		return store.CreateUser(ctx, q, actor)
	}))

	return &fixture{st: st, ledger: New(st), actor: actor.ID}
}

func (f *fixture) create(t *testing.T, name string, qty, min int) *model.Supply {
	t.Helper()
	s, err := f.ledger.Create(context.Background(), f.actor, &model.Supply{
		Name: name, Quantity: qty, MinQuantity: min, Unit: "box",
	}, "")
	require.NoError(t, err)
	return s
}

func (f *fixture) history(t *testing.T, supplyID string) []model.HistoryEntry {
	t.Helper()
	var entries []model.HistoryEntry
	require.NoError(t, f.st.View(context.Background(), func(q store.Querier) error {
		var err error
		entries, err = store.ListSupplyHistoryForSupply(context.Background(), q, supplyID)
		return err
	}))
	return entries
}

func (f *fixture) supply(t *testing.T, id string) *model.Supply {
	t.Helper()
	var s *model.Supply
	require.NoError(t, f.st.View(context.Background(), func(q store.Querier) error {
		var err error
		s, err = store.GetSupply(context.Background(), q, id)
		return err
	}))
	return s
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		quantity, min int
		want          string
	}{
		{5, 10, model.StatusLow},
		{10, 10, model.StatusLow},
		{14, 10, model.StatusModerate},
		{15, 10, model.StatusModerate},
		{16, 10, model.StatusHigh},
		{0, 0, model.StatusLow},
		{1, 0, model.StatusHigh},
		{3, 2, model.StatusModerate},
		{4, 3, model.StatusModerate},
		{5, 3, model.StatusHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.quantity, tt.min), "StatusFor(%d, %d)", tt.quantity, tt.min)
	}
}

func TestMovement(t *testing.T) {
	action, magnitude, changed := Movement(10, 25)
	assert.True(t, changed)
	assert.Equal(t, model.ActionStockIn, action)
	assert.Equal(t, 15, magnitude)

	action, magnitude, changed = Movement(10, 0)
	assert.True(t, changed)
	assert.Equal(t, model.ActionStockOut, action)
	assert.Equal(t, 10, magnitude)

	_, _, changed = Movement(7, 7)
	assert.False(t, changed)
}

func TestCreateWritesInitialStockIn(t *testing.T) {
	f := setup(t)
	s := f.create(t, "A4 Bond Paper", 100, 20)

	assert.Equal(t, model.StatusHigh, s.Status)
	assert.Equal(t, 12, s.PiecesPerBulk)

	entries := f.history(t, s.ID)
	require.Len(t, entries, 1)
	h := entries[0]
	assert.Equal(t, model.ActionStockIn, h.Action)
	assert.Equal(t, 0, h.PreviousQuantity)
	assert.Equal(t, 100, h.NewQuantity)
	assert.Equal(t, 100, h.Quantity)
	assert.Equal(t, NoteInitialStock, h.Notes)
	assert.Equal(t, f.actor, h.UserID)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ledger.Create(ctx, f.actor, &model.Supply{Name: "  "}, "")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.ledger.Create(ctx, f.actor, &model.Supply{Name: "x", MinQuantity: -1}, "")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.ledger.Create(ctx, "ghost", &model.Supply{Name: "x"}, "")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateQuantityWritesMovement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := f.create(t, "Pens", 10, 5)

	updated, err := f.ledger.Update(ctx, f.actor, s.ID, Change{Quantity: ptr(25), StockInReason: "Monthly restock"})
	require.NoError(t, err)
	assert.Equal(t, 25, updated.Quantity)
	assert.Equal(t, model.StatusHigh, updated.Status)

	entries := f.history(t, s.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionStockIn, entries[0].Action)
	assert.Equal(t, 15, entries[0].Quantity)
	assert.Equal(t, 10, entries[0].PreviousQuantity)
	assert.Equal(t, 25, entries[0].NewQuantity)
	assert.Equal(t, "Monthly restock", entries[0].Notes)

	_, err = f.ledger.Update(ctx, f.actor, s.ID, Change{Quantity: ptr(20)})
	require.NoError(t, err)
	entries = f.history(t, s.ID)
	assert.Equal(t, model.ActionStockOut, entries[0].Action)
	assert.Equal(t, NoteStockReleased, entries[0].Notes)
}

func TestUpdateClampsNegativeQuantity(t *testing.T) {
	f := setup(t)
	s := f.create(t, "Tape", 5, 2)

	updated, err := f.ledger.Update(context.Background(), f.actor, s.ID, Change{Quantity: ptr(-8)})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, model.StatusLow, updated.Status)

	h := f.history(t, s.ID)[0]
	assert.Equal(t, model.ActionStockOut, h.Action)
	assert.Equal(t, 5, h.PreviousQuantity)
	assert.Equal(t, 0, h.NewQuantity)
	assert.Equal(t, 5, h.Quantity)
}

func TestUpdateDetailsOnlyWritesItemUpdated(t *testing.T) {
	f := setup(t)
	s := f.create(t, "Stapler", 4, 1)

	updated, err := f.ledger.Update(context.Background(), f.actor, s.ID, Change{
		Patch: model.SupplyPatch{Location: ptr("Storage Room A")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Storage Room A", updated.Location)

	entries := f.history(t, s.ID)
	require.Len(t, entries, 2)
	h := entries[0]
	assert.Equal(t, model.ActionItemUpdated, h.Action)
	assert.Equal(t, 0, h.Quantity)
	assert.Equal(t, 4, h.PreviousQuantity)
	assert.Equal(t, 4, h.NewQuantity)
	assert.Equal(t, NoteItemUpdated, h.Notes)
}

func TestUpdateQuantityAndDetailsWritesOneRow(t *testing.T) {
	f := setup(t)
	s := f.create(t, "Folders", 200, 50)

	_, err := f.ledger.Update(context.Background(), f.actor, s.ID, Change{
		Patch:    model.SupplyPatch{Name: ptr("Manila Folders")},
		Quantity: ptr(150),
	})
	require.NoError(t, err)

	entries := f.history(t, s.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionStockOut, entries[0].Action)
	assert.Equal(t, "Manila Folders", entries[0].ItemName)
}

func TestNoopUpdateWritesNothing(t *testing.T) {
	f := setup(t)
	s := f.create(t, "Scissors", 10, 2)
	base := s.UpdatedAt
	f.ledger.now = func() time.Time { return base.Add(time.Hour) }

	updated, err := f.ledger.Update(context.Background(), f.actor, s.ID, Change{Quantity: ptr(10)})
	require.NoError(t, err)
	assert.Len(t, f.history(t, s.ID), 1)
	assert.True(t, updated.UpdatedAt.After(base), "updated_at should be refreshed")
}

func TestMinQuantityChangeRecomputesStatus(t *testing.T) {
	f := setup(t)
	s := f.create(t, "Markers", 20, 5)
	require.Equal(t, model.StatusHigh, s.Status)

	updated, err := f.ledger.Update(context.Background(), f.actor, s.ID, Change{
		Patch: model.SupplyPatch{MinQuantity: ptr(20)},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusLow, updated.Status)
}

func TestUpdateMissingSupplyOrActor(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := f.create(t, "Wipes", 10, 2)

	_, err := f.ledger.Update(ctx, f.actor, "missing", Change{Quantity: ptr(1)})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.ledger.Update(ctx, "ghost", s.ID, Change{Quantity: ptr(1)})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, 10, f.supply(t, s.ID).Quantity)
	assert.Len(t, f.history(t, s.ID), 1)

	_, err = f.ledger.Update(ctx, f.actor, s.ID, Change{Patch: model.SupplyPatch{Name: ptr("")}})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestDeleteWritesTerminalRow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := f.create(t, "Coffee Beans", 42, 2)

	require.NoError(t, f.ledger.Delete(ctx, f.actor, s.ID))
	assert.Nil(t, f.supply(t, s.ID))

	entries := f.history(t, s.ID)
	require.Len(t, entries, 2)
	h := entries[0]
	assert.Equal(t, model.ActionDeleted, h.Action)
	assert.Equal(t, 42, h.Quantity)
	assert.Equal(t, 42, h.PreviousQuantity)
	assert.Equal(t, 0, h.NewQuantity)
	assert.Equal(t, NoteDeleted, h.Notes)
	assert.Equal(t, "Coffee Beans", h.ItemName)

	assert.ErrorIs(t, f.ledger.Delete(ctx, f.actor, s.ID), errs.ErrNotFound)
}

func TestStockInAndOut(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := f.create(t, "Batteries", 10, 3)

	updated, err := f.ledger.StockIn(ctx, f.actor, s.ID, 5, "Emergency order")
	require.NoError(t, err)
	assert.Equal(t, 15, updated.Quantity)

	updated, err = f.ledger.StockOut(ctx, f.actor, s.ID, 40, "")
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)

	h := f.history(t, s.ID)[0]
	assert.Equal(t, model.ActionStockOut, h.Action)
	assert.Equal(t, 15, h.Quantity)
	assert.Equal(t, 15, h.PreviousQuantity)
	assert.Equal(t, 0, h.NewQuantity)

	_, err = f.ledger.StockIn(ctx, f.actor, s.ID, 0, "")
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = f.ledger.StockOut(ctx, f.actor, s.ID, -2, "")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestStockInBeyondMaximumRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := f.create(t, "Staplers", 5, 2)

	_, err := f.ledger.StockIn(ctx, f.actor, s.ID, math.MaxInt, "restock")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.ledger.StockIn(ctx, f.actor, s.ID, MaxQuantity, "restock")
	assert.ErrorIs(t, err, errs.ErrValidation)

	assert.Equal(t, 5, f.supply(t, s.ID).Quantity)
	h := f.history(t, s.ID)
	require.Len(t, h, 1)
	assert.Equal(t, model.ActionStockIn, h[0].Action)

	updated, err := f.ledger.StockIn(ctx, f.actor, s.ID, MaxQuantity-5, "")
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, updated.Quantity)
	assert.Equal(t, model.StatusHigh, updated.Status)

	updated, err = f.ledger.StockOut(ctx, f.actor, s.ID, math.MaxInt, "")
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, MaxQuantity, f.history(t, s.ID)[0].Quantity)
}

func TestQuantityBounds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ledger.Create(ctx, f.actor, &model.Supply{Name: "x", Quantity: MaxQuantity + 1}, "")
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = f.ledger.Create(ctx, f.actor, &model.Supply{Name: "x", MinQuantity: math.MaxInt}, "")
	assert.ErrorIs(t, err, errs.ErrValidation)

	s := f.create(t, "Folders", 10, 2)
	_, err = f.ledger.Update(ctx, f.actor, s.ID, Change{Quantity: ptr(math.MaxInt)})
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = f.ledger.Update(ctx, f.actor, s.ID, Change{Patch: model.SupplyPatch{MinQuantity: ptr(MaxQuantity + 1)}})
	assert.ErrorIs(t, err, errs.ErrValidation)

	assert.Equal(t, 10, f.supply(t, s.ID).Quantity)
	assert.Len(t, f.history(t, s.ID), 1)
}

func TestConcurrentStockOutNeverNegative(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := f.create(t, "Sticky Notes", 10, 2)

	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.StockOut(ctx, f.actor, s.ID, 1, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, f.supply(t, s.ID).Quantity)

	outs := 0
	for _, h := range f.history(t, s.ID) {
		assert.GreaterOrEqual(t, h.NewQuantity, 0)
		if h.Action == model.ActionStockOut {
			outs++
			assert.Equal(t, h.PreviousQuantity-h.Quantity, h.NewQuantity)
		}
	}
	assert.Equal(t, 10, outs)
}

func TestRecalculate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.create(t, "A", 5, 10)
	f.create(t, "B", 50, 10)

	require.NoError(t, f.st.Update(ctx, func(q store.Querier) error {
		return store.SetSupplyStatus(ctx, q, a.ID, model.StatusHigh)
	}))

	n, err := f.ledger.Recalculate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, model.StatusLow, f.supply(t, a.ID).Status)
}

func TestPurgeHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := f.create(t, "Cables", 3, 1)

	entries := f.history(t, s.ID)
	require.Len(t, entries, 1)

	require.NoError(t, f.ledger.PurgeHistory(ctx, f.actor, entries[0].ID))
	assert.Empty(t, f.history(t, s.ID))

	assert.ErrorIs(t, f.ledger.PurgeHistory(ctx, f.actor, entries[0].ID), errs.ErrNotFound)
}

func TestReads(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	low := f.create(t, "Toner", 1, 4)
	f.create(t, "Envelopes", 400, 50)

	all, err := f.ledger.Supplies(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Envelopes", all[0].Name)

	got, err := f.ledger.Supply(ctx, low.ID)
	require.NoError(t, err)
	assert.Equal(t, "Toner", got.Name)

	_, err = f.ledger.Supply(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	lows, err := f.ledger.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, lows, 1)
	assert.Equal(t, low.ID, lows[0].ID)
}

func TestHistoryFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f.ledger.now = func() time.Time { return day }
	s := f.create(t, "Stamps", 10, 2)
	other := f.create(t, "Labels", 10, 2)

	f.ledger.now = func() time.Time { return day.Add(48 * time.Hour) }
	_, err := f.ledger.StockOut(ctx, f.actor, s.ID, 4, "post room")
	require.NoError(t, err)

	all, err := f.ledger.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, model.ActionStockOut, all[0].Action)

	forSupply, err := f.ledger.History(ctx, HistoryFilter{SupplyID: other.ID})
	require.NoError(t, err)
	require.Len(t, forSupply, 1)
	assert.Equal(t, "Labels", forSupply[0].ItemName)

	ranged, err := f.ledger.History(ctx, HistoryFilter{From: day.Add(24 * time.Hour), To: day.Add(72 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, 4, ranged[0].Quantity)

	both, err := f.ledger.History(ctx, HistoryFilter{SupplyID: s.ID, To: day.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, model.ActionStockIn, both[0].Action)

	_, err = f.ledger.History(ctx, HistoryFilter{From: day, To: day.Add(-time.Hour)})
	assert.ErrorIs(t, err, errs.ErrValidation)
}
