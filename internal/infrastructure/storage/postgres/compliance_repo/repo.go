// Package compliance_repo stores packages, adjustments and sync runs in
// PostgreSQL.
package compliance_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"cannapos/internal/core/apperror"
	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
	"cannapos/internal/domain/compliance"
	"cannapos/internal/domain/order"
	"cannapos/internal/domain/registers/stock"
	"cannapos/internal/infrastructure/storage/postgres"
)

var (
	_ compliance.Repository = (*Repo)(nil)
	_ order.PackageReader   = (*Repo)(nil)
	_ stock.Repository      = (*Repo)(nil)
)

// Repo implements compliance.Repository and the package-side ports of the
// order and stock services.
type Repo struct {
	txm         *postgres.TxManager
	packages    *postgres.Table[entity.Package]
	adjustments *postgres.Table[entity.AdjustPackage]
	syncs       *postgres.Table[entity.SyncHistory]
}

// New creates a compliance repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:         txm,
		packages:    postgres.NewTable[entity.Package](txm, "packages", "package"),
		adjustments: postgres.NewTable[entity.AdjustPackage](txm, "adjust_packages", "package adjustment"),
		syncs:       postgres.NewTable[entity.SyncHistory](txm, "sync_histories", "sync history"),
	}
}

func (r *Repo) GetPackage(ctx context.Context, id int64) (*entity.Package, error) {
	return r.packages.Get(ctx, id)
}

func (r *Repo) FindPackageByLabel(ctx context.Context, dispensaryID int64, label string) (*entity.Package, error) {
	p, err := r.packages.First(ctx, r.packages.Select().
		Where(squirrel.Eq{"dispensary_id": dispensaryID, "package_label": label}))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NewNotFound("package", label)
	}
	return p, nil
}

// regulatorColumns are overwritten on every sync.
var regulatorColumns = []string{
	"package_id", "package_status", "quantity", "original_qty",
	"unit_of_measure_name", "item_name", "item_product_category_name",
	"last_modified", "updated_at",
}

func upsertQuery(p *entity.Package) squirrel.InsertBuilder {
	row := postgres.ToMap(p, "id")
	row["pos_qty"] = p.Quantity

	set := ""
	for i, col := range regulatorColumns {
		if i > 0 {
			set += ", "
		}
		set += col + " = EXCLUDED." + col
	}

	return postgres.Builder().Insert("packages").
		SetMap(row).
		Suffix("ON CONFLICT (dispensary_id, package_label) DO UPDATE SET " + set +
			" RETURNING id, pos_qty, product_id, is_connected_with_product, created_at")
}

// UpsertPackage implements compliance.Repository.
func (r *Repo) UpsertPackage(ctx context.Context, p *entity.Package) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	sql, args, err := upsertQuery(p).ToSql()
	if err != nil {
		return fmt.Errorf("build package upsert: %w", err)
	}
	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).
		Scan(&p.ID, &p.PosQty, &p.ProductID, &p.IsConnectedWithProduct, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert package %s: %w", p.Label, postgres.MapError(err))
	}
	return nil
}

func (r *Repo) UpdatePackage(ctx context.Context, p *entity.Package) error {
	p.Touch()
	return r.packages.Update(ctx, p.ID, p)
}

func driftWhere(dispensaryID int64) squirrel.And {
	return squirrel.And{
		squirrel.Eq{
			"dispensary_id":             dispensaryID,
			"package_status":            entity.PackageActive,
			"is_connected_with_product": true,
		},
		squirrel.Gt{"package_id": 0},
		squirrel.Expr("pos_qty <> quantity"),
	}
}

func (r *Repo) driftQuery(f compliance.DriftFilter) squirrel.SelectBuilder {
	dir := " ASC"
	if f.Desc {
		dir = " DESC"
	}
	return r.packages.Select().
		Where(driftWhere(f.DispensaryID)).
		OrderBy(f.SortKey.Column()+dir, "id"+dir).
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))
}

// ListDrift implements compliance.Repository.
func (r *Repo) ListDrift(ctx context.Context, f compliance.DriftFilter) ([]*entity.Package, int, error) {
	total, err := r.packages.Count(ctx, driftWhere(f.DispensaryID))
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.packages.List(ctx, r.driftQuery(f))
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListEmptyActive implements compliance.Repository.
func (r *Repo) ListEmptyActive(ctx context.Context, dispensaryID int64) ([]*entity.Package, error) {
	return r.packages.List(ctx, r.packages.Select().
		Where(squirrel.Eq{
			"dispensary_id":  dispensaryID,
			"package_status": entity.PackageActive,
			"quantity":       0,
			"pos_qty":        0,
		}).
		OrderBy("id"))
}

// AdjustPosQty implements stock.Repository.
func (r *Repo) AdjustPosQty(ctx context.Context, dispensaryID int64, label string, delta types.Money) error {
	q := postgres.Builder().Update("packages").
		Set("pos_qty", squirrel.Expr("pos_qty + ?", delta)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"dispensary_id": dispensaryID, "package_label": label})
	return r.packages.Exec(ctx, q, label)
}

func (r *Repo) GetAdjustment(ctx context.Context, id int64) (*entity.AdjustPackage, error) {
	return r.adjustments.Get(ctx, id)
}

func (r *Repo) CreateAdjustment(ctx context.Context, a *entity.AdjustPackage) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	id, err := r.adjustments.Insert(ctx, a)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (r *Repo) UpdateAdjustment(ctx context.Context, a *entity.AdjustPackage) error {
	return r.adjustments.Update(ctx, a.ID, a)
}

func (r *Repo) DeleteAdjustment(ctx context.Context, id int64) error {
	return r.adjustments.Delete(ctx, squirrel.Eq{"id": id})
}

func pendingWhere(dispensaryID int64) squirrel.Eq {
	return squirrel.Eq{
		"dispensary_id":   dispensaryID,
		"need_metrc_sync": true,
		"sync_metrc":      false,
	}
}

// DeletePendingAdjustments implements compliance.Repository.
func (r *Repo) DeletePendingAdjustments(ctx context.Context, dispensaryID int64, label string) error {
	where := pendingWhere(dispensaryID)
	where["package_label"] = label
	return r.adjustments.Delete(ctx, where)
}

// ListPendingAdjustments implements compliance.Repository.
func (r *Repo) ListPendingAdjustments(ctx context.Context, dispensaryID int64) ([]*entity.AdjustPackage, error) {
	return r.adjustments.List(ctx, r.adjustments.Select().
		Where(pendingWhere(dispensaryID)).
		OrderBy("id"))
}

// LatestSync implements compliance.Repository.
func (r *Repo) LatestSync(ctx context.Context, dispensaryID int64, syncType entity.SyncType) (*entity.SyncHistory, error) {
	return r.syncs.First(ctx, r.syncs.Select().
		Where(squirrel.Eq{"dispensary_id": dispensaryID, "sync_type": syncType}).
		OrderBy("created_at DESC"))
}

func (r *Repo) CreateSyncHistory(ctx context.Context, h *entity.SyncHistory) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	id, err := r.syncs.Insert(ctx, h)
	if err != nil {
		return err
	}
	h.ID = id
	return nil
}
