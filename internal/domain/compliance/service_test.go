package compliance_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannapos/internal/config"
	"cannapos/internal/core/apperror"
	appctx "cannapos/internal/core/context"
	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
	"cannapos/internal/domain/catalog"
	"cannapos/internal/domain/compliance"
	"cannapos/internal/domain/events"
	"cannapos/internal/domain/regulator"
	"cannapos/internal/domain/regulator/regulatortest"
	"cannapos/internal/infrastructure/storage/memory"
)

var now = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	metrc *regulatortest.Fake
	svc   *compliance.Service
	ctx   context.Context
	disp  *entity.Dispensary
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	disp := &entity.Dispensary{
		Name:                  "Green Door",
		CannabisLicense:       "PAAA-0001",
		StateOfUsa:            "OK",
		MetrcAPIKey:           "user-key",
		MetrcConnectionStatus: true,
	}
	store.PutDispensary(disp)

	fake := regulatortest.New()
	svc := compliance.NewService(compliance.ServiceConfig{
		Repo:      store,
		Catalog:   catalog.NewService(store, nil),
		TxManager: memory.NewTxManager(store),
		Regulator: fake,
		Audit:     store,
		Events:    store,
		Metrc:     config.DefaultMetrcConfig(),
		Now:       func() time.Time { return now },
	})

	user := &appctx.UserContext{UserID: 3, DispensaryID: disp.ID, Roles: []string{appctx.RoleManager}}
	return &fixture{
		store: store,
		metrc: fake,
		svc:   svc,
		ctx:   appctx.WithUser(context.Background(), user),
		disp:  disp,
	}
}

func (f *fixture) putPackage(label string, metrcQty, posQty string, status entity.PackageStatus) *entity.Package {
	p := &entity.Package{
		DispensaryID:           f.disp.ID,
		PackageID:              900,
		Label:                  label,
		Status:                 status,
		Quantity:               types.MustMoney(metrcQty),
		PosQty:                 types.MustMoney(posQty),
		UnitOfMeasureName:      "Grams",
		IsConnectedWithProduct: true,
	}
	f.store.PutPackage(p)
	return p
}

func TestAdjustAndReconcile(t *testing.T) {
	f := newFixture(t)
	p := f.putPackage("PKG-1", "12", "12", entity.PackageActive)

	a, err := f.svc.Adjust(f.ctx, compliance.AdjustInput{
		PackageID:     p.ID,
		NewQty:        types.MustMoney("15"),
		Reason:        "Drying",
		Notes:         "recount",
		NeedMetrcSync: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "3", a.Delta.String())
	assert.Equal(t, int64(3), a.UserID)

	pkg, err := f.store.GetPackage(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "15", pkg.PosQty.String())

	synced, err := f.svc.Reconcile(f.ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, synced.SyncMetrc)
	assert.NotNil(t, synced.SyncedAt)

	require.Len(t, f.metrc.Adjustments, 1)
	sent := f.metrc.Adjustments[0]
	require.Len(t, sent, 1)
	assert.Equal(t, "PKG-1", sent[0].Label)
	assert.Equal(t, "Grams", sent[0].UnitOfMeasure)
	assert.Equal(t, "Drying", sent[0].AdjustmentReason)
	assert.Equal(t, "3", sent[0].Quantity.String())
	assert.Equal(t, "2024-05-10", sent[0].AdjustmentDate)
	assert.Equal(t, "recount", sent[0].ReasonNote)

	_, err = f.svc.Reconcile(f.ctx, a.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Current record was synced in the past.")
	assert.Len(t, f.metrc.Adjustments, 1)

	err = f.svc.CancelReconcile(f.ctx, a.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synced in the past")

	var kinds []string
	for _, e := range f.store.Events() {
		kinds = append(kinds, e.EventType)
	}
	assert.Equal(t, []string{events.PackageAdjusted, events.PackageReconciled}, kinds)
}

func TestReconcile_RejectedLeavesAdjustmentPending(t *testing.T) {
	f := newFixture(t)
	f.metrc.AdjustStatus = http.StatusBadRequest
	p := f.putPackage("PKG-1", "12", "12", entity.PackageActive)

	a, err := f.svc.Adjust(f.ctx, compliance.AdjustInput{PackageID: p.ID, NewQty: types.MustMoney("10"), Reason: "Waste", NeedMetrcSync: true})
	require.NoError(t, err)
	assert.Equal(t, "-2", a.Delta.String())

	_, err = f.svc.Reconcile(f.ctx, a.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsExternalService(err))
	assert.Contains(t, err.Error(), apperror.MessageMetrcSyncFail)

	got, err := f.store.GetAdjustment(f.ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.SyncMetrc)
	assert.Nil(t, got.SyncedAt)

	pending, err := f.svc.PendingAdjustments(f.ctx, f.disp.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestReconcile_NotSyncable(t *testing.T) {
	f := newFixture(t)
	p := f.putPackage("PKG-1", "12", "12", entity.PackageActive)

	a, err := f.svc.Adjust(f.ctx, compliance.AdjustInput{PackageID: p.ID, NewQty: types.MustMoney("11")})
	require.NoError(t, err)

	_, err = f.svc.Reconcile(f.ctx, a.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "This record can not be synced.")
	assert.Zero(t, f.metrc.Calls())
}

func TestAdjust_ReplacesPendingAdjustment(t *testing.T) {
	f := newFixture(t)
	p := f.putPackage("PKG-1", "12", "12", entity.PackageActive)

	first, err := f.svc.Adjust(f.ctx, compliance.AdjustInput{PackageID: p.ID, NewQty: types.MustMoney("14"), Reason: "Drying", NeedMetrcSync: true})
	require.NoError(t, err)
	second, err := f.svc.Adjust(f.ctx, compliance.AdjustInput{PackageID: p.ID, NewQty: types.MustMoney("13"), Reason: "Drying", NeedMetrcSync: true})
	require.NoError(t, err)

	pending, err := f.svc.PendingAdjustments(f.ctx, f.disp.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	_, err = f.store.GetAdjustment(f.ctx, first.ID)
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, f.svc.CancelReconcile(f.ctx, second.ID))
	pending, err = f.svc.PendingAdjustments(f.ctx, f.disp.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFinish(t *testing.T) {
	tests := []struct {
		name      string
		posQty    string
		status    entity.PackageStatus
		finishSt  int
		wantErr   string
		wantCalls int
	}{
		{name: "stock left", posQty: "1", status: entity.PackageActive, wantErr: "To finish, package inventory must be zero."},
		{name: "not active", posQty: "0", status: entity.PackageHold, wantErr: "Only Active packages can be finished."},
		{name: "regulator rejects", posQty: "0", status: entity.PackageActive, finishSt: http.StatusBadRequest, wantErr: apperror.MessageMetrcFailed, wantCalls: 1},
		{name: "finished", posQty: "0", status: entity.PackageActive, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.metrc.FinishStatus = tt.finishSt
			p := f.putPackage("PKG-1", "0", tt.posQty, tt.status)

			got, err := f.svc.Finish(f.ctx, p.ID, time.Time{})
			assert.Equal(t, tt.wantCalls, f.metrc.Calls())

			stored, serr := f.store.GetPackage(f.ctx, p.ID)
			require.NoError(t, serr)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, tt.status, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entity.PackageFinished, got.Status)
			assert.Equal(t, entity.PackageFinished, stored.Status)
			assert.Equal(t, "2024-05-10", f.metrc.Finished[0][0].ActualDate)
		})
	}
}

func TestFinish_UnregulatedSkipsRegulator(t *testing.T) {
	f := newFixture(t)
	p := &entity.Package{DispensaryID: f.disp.ID, Label: "LOCAL-1", Status: entity.PackageActive}
	f.store.PutPackage(p)

	got, err := f.svc.Finish(f.ctx, p.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, entity.PackageFinished, got.Status)
	assert.Zero(t, f.metrc.Calls())
}

func TestReactivate(t *testing.T) {
	f := newFixture(t)
	p := f.putPackage("PKG-1", "0", "0", entity.PackageFinished)

	f.metrc.UnfinishStatus = http.StatusInternalServerError
	_, err := f.svc.Reactivate(f.ctx, p.ID)
	require.Error(t, err)
	stored, err := f.store.GetPackage(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PackageFinished, stored.Status)

	f.metrc.UnfinishStatus = http.StatusOK
	got, err := f.svc.Reactivate(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PackageActive, got.Status)

	_, err = f.svc.Reactivate(f.ctx, p.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only Finished packages can be reactivated.")
}

func TestFinishEmpty(t *testing.T) {
	f := newFixture(t)
	f.putPackage("PKG-1", "0", "0", entity.PackageActive)
	f.putPackage("PKG-2", "0", "0", entity.PackageActive)
	f.putPackage("PKG-3", "1", "0", entity.PackageActive)
	f.store.PutPackage(&entity.Package{DispensaryID: f.disp.ID, Label: "LOCAL-1", Status: entity.PackageActive})

	n, err := f.svc.FinishEmpty(f.ctx, f.disp.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, f.metrc.Finished, 1)
	assert.Len(t, f.metrc.Finished[0], 2)
}

func TestHoldUnhold(t *testing.T) {
	f := newFixture(t)
	p := f.putPackage("PKG-1", "5", "5", entity.PackageActive)

	held, err := f.svc.Hold(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PackageHold, held.Status)

	released, err := f.svc.Unhold(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PackageActive, released.Status)
	assert.Zero(t, f.metrc.Calls())
}

func TestDrift(t *testing.T) {
	f := newFixture(t)
	f.putPackage("PKG-B", "10", "8", entity.PackageActive)
	f.putPackage("PKG-A", "10", "12.5", entity.PackageActive)
	f.putPackage("PKG-C", "10", "10", entity.PackageActive)
	f.putPackage("PKG-D", "10", "3", entity.PackageFinished)

	page, err := f.svc.Drift(f.ctx, compliance.DriftFilter{DispensaryID: f.disp.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "PKG-A", page.Items[0].Label)
	assert.Equal(t, "2.5", page.Items[0].Delta.String())
	assert.Equal(t, "-2", page.Items[1].Delta.String())

	page, err = f.svc.Drift(f.ctx, compliance.DriftFilter{DispensaryID: f.disp.ID, SortKey: compliance.SortPosQty, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "PKG-B", page.Items[0].Label)
}

func TestSyncPackages(t *testing.T) {
	f := newFixture(t)
	existing := f.putPackage("PKG-1", "10", "7", entity.PackageActive)

	f.metrc.Packages[regulator.PackagesActive] = []regulator.RemotePackage{
		{ID: 900, Label: "PKG-1", Quantity: types.MustMoney("9"), UnitOfMeasureName: "Grams", Item: regulator.RemoteItem{Name: "Blue Dream"}},
		{ID: 901, Label: "PKG-2", Quantity: types.MustMoney("4"), UnitOfMeasureName: "Each"},
	}
	f.metrc.Packages[regulator.PackagesInactive] = []regulator.RemotePackage{
		{ID: 902, Label: "PKG-3", IsFinished: true},
	}

	h, err := f.svc.SyncPackages(f.ctx, f.disp.ID, 3)
	require.NoError(t, err)
	assert.True(t, h.IsSuccess)
	assert.Equal(t, 3, h.Count)
	assert.Equal(t, []string{"1990-01-17T06:25:00Z", "1990-01-17T06:25:00Z"}, f.metrc.Listed)

	kept, err := f.store.GetPackage(f.ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "9", kept.Quantity.String())
	assert.Equal(t, "7", kept.PosQty.String(), "store quantity survives sync")
	assert.True(t, kept.IsConnectedWithProduct)
	assert.Equal(t, "Blue Dream", kept.ItemName)

	fresh, err := f.store.FindPackageByLabel(f.ctx, f.disp.ID, "PKG-2")
	require.NoError(t, err)
	assert.Equal(t, "4", fresh.PosQty.String())

	finished, err := f.store.FindPackageByLabel(f.ctx, f.disp.ID, "PKG-3")
	require.NoError(t, err)
	assert.Equal(t, entity.PackageFinished, finished.Status)

	_, err = f.svc.SyncPackages(f.ctx, f.disp.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-10T14:55:00Z", f.metrc.Listed[2])
}

func TestSyncPackages_EmptyIsUnsuccessful(t *testing.T) {
	f := newFixture(t)

	h, err := f.svc.SyncPackages(f.ctx, f.disp.ID, 3)
	require.NoError(t, err)
	assert.False(t, h.IsSuccess)
	assert.Zero(t, h.Count)
}

func TestSyncAll(t *testing.T) {
	f := newFixture(t)
	f.store.PutDispensary(&entity.Dispensary{Name: "Offline", StateOfUsa: "OK"})

	n, err := f.svc.SyncAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
