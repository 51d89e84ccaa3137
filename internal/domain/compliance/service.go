package compliance

import (
	"context"
	"fmt"
	"time"

	"cannapos/internal/config"
	"cannapos/internal/core/apperror"
	appctx "cannapos/internal/core/context"
	"cannapos/internal/core/entity"
	"cannapos/internal/core/tx"
	"cannapos/internal/core/types"
	"cannapos/internal/domain/audit"
	"cannapos/internal/domain/catalog"
	"cannapos/internal/domain/events"
	"cannapos/internal/domain/regulator"
	"cannapos/pkg/logger"
)

const (
	entityPackage    = "package"
	entityAdjustment = "adjust_package"

	// syncOverlap is subtracted from the high-water mark so that edits made
	// during the previous run are picked up again.
	syncOverlap = 5 * time.Minute

	windowLayout = "2006-01-02T15:04:05Z"
	dateLayout   = "2006-01-02"
)

// ServiceConfig holds the collaborators of Service.
type ServiceConfig struct {
	Repo      Repository
	Catalog   *catalog.Service
	TxManager tx.Manager
	Regulator regulator.Client
	Audit     audit.Recorder
	Events    events.Publisher
	Metrc     config.MetrcConfig
	Now       func() time.Time
}

// Service is the reconciliation engine.
type Service struct {
	repo      Repository
	catalog   *catalog.Service
	txManager tx.Manager
	regulator regulator.Client
	audit     audit.Recorder
	events    events.Publisher
	metrc     config.MetrcConfig
	now       func() time.Time
}

// NewService creates a compliance service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		catalog:   cfg.Catalog,
		txManager: cfg.TxManager,
		regulator: cfg.Regulator,
		audit:     cfg.Audit,
		events:    cfg.Events,
		metrc:     cfg.Metrc,
		now:       cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// AdjustInput stages a manual quantity correction.
type AdjustInput struct {
	PackageID     int64
	NewQty        types.Money
	Reason        string
	Notes         string
	NeedMetrcSync bool
}

// DriftRow is a package whose store and regulator quantities differ.
type DriftRow struct {
	*entity.Package
	Delta types.Money `json:"delta"`
}

// DriftPage is one page of the drift listing.
type DriftPage struct {
	Items []DriftRow `json:"items"`
	Total int        `json:"total"`
}

// SyncPackages pulls every package modified since the last package sync
// and upserts it by label. Regulator failures yield an empty page set and
// a SyncHistory row with IsSuccess false.
func (s *Service) SyncPackages(ctx context.Context, dispensaryID, userID int64) (*entity.SyncHistory, error) {
	d, err := s.catalog.Dispensary(ctx, dispensaryID)
	if err != nil {
		return nil, err
	}
	last, err := s.repo.LatestSync(ctx, dispensaryID, entity.SyncTypePackage)
	if err != nil {
		return nil, fmt.Errorf("latest package sync: %w", err)
	}
	start, err := s.windowStart(last)
	if err != nil {
		return nil, err
	}

	creds := regulator.CredentialsFor(d)
	remote := s.regulator.ListPackages(ctx, creds, regulator.PackagesActive, start)
	remote = append(remote, s.regulator.ListPackages(ctx, creds, regulator.PackagesInactive, start)...)

	h := &entity.SyncHistory{
		DispensaryID: dispensaryID,
		UserID:       userID,
		SyncType:     entity.SyncTypePackage,
		IsSuccess:    len(remote) > 0,
		Count:        len(remote),
		CreatedAt:    s.now().UTC(),
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, r := range remote {
			p := fromRemote(dispensaryID, r)
			if err := s.repo.UpsertPackage(ctx, p); err != nil {
				return fmt.Errorf("upsert package %s: %w", r.Label, err)
			}
		}
		if err := s.repo.CreateSyncHistory(ctx, h); err != nil {
			return fmt.Errorf("create sync history: %w", err)
		}
		return s.record(ctx, audit.Entry{
			Action:       audit.ActionPackageSync,
			EntityType:   entityPackage,
			DispensaryID: dispensaryID,
			UserID:       userID,
			Fields:       map[string]any{"count": len(remote), "from": start},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "packages synced", "dispensary_id", dispensaryID, "count", len(remote), "from", start)
	return h, nil
}

func (s *Service) windowStart(last *entity.SyncHistory) (string, error) {
	var mark time.Time
	if last != nil {
		mark = last.CreatedAt
	} else {
		var err error
		if mark, err = time.Parse(time.RFC3339, s.metrc.LastModifiedStart); err != nil {
			return "", fmt.Errorf("parse default sync start: %w", err)
		}
	}
	return mark.Add(-syncOverlap).UTC().Format(windowLayout), nil
}

func fromRemote(dispensaryID int64, r regulator.RemotePackage) *entity.Package {
	return &entity.Package{
		DispensaryID:      dispensaryID,
		PackageID:         r.ID,
		Label:             r.Label,
		Status:            r.Status(),
		Quantity:          r.Quantity,
		PosQty:            r.Quantity,
		OriginalQty:       r.OriginalPackageQuantity,
		UnitOfMeasureName: r.UnitOfMeasureName,
		ItemName:          r.Item.Name,
		ItemCategory:      r.Item.ProductCategoryName,
		LastModified:      r.LastModified,
		Timestamps:        entity.NewTimestamps(),
	}
}

// SyncAll syncs every dispensary connected to the regulator. Failures of
// one dispensary are logged and do not stop the others.
func (s *Service) SyncAll(ctx context.Context) (int, error) {
	dispensaries, err := s.catalog.MetrcDispensaries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list metrc dispensaries: %w", err)
	}

	synced := 0
	for _, d := range dispensaries {
		if _, err := s.SyncPackages(ctx, d.ID, 0); err != nil {
			logger.Error(ctx, "package sync failed", "dispensary_id", d.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// Drift lists packages whose store quantity differs from the regulator's.
func (s *Service) Drift(ctx context.Context, filter DriftFilter) (*DriftPage, error) {
	filter.normalize()
	pkgs, total, err := s.repo.ListDrift(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list drift: %w", err)
	}

	page := &DriftPage{Items: make([]DriftRow, 0, len(pkgs)), Total: total}
	for _, p := range pkgs {
		page.Items = append(page.Items, DriftRow{Package: p, Delta: p.Drift()})
	}
	return page, nil
}

// Adjust sets the store quantity of a package and stages the difference
// to the regulator quantity. At most one unsynced adjustment needing sync
// exists per label.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (*entity.AdjustPackage, error) {
	p, err := s.repo.GetPackage(ctx, in.PackageID)
	if err != nil {
		return nil, err
	}

	newQty := types.TruncateQuantity(in.NewQty)
	a := &entity.AdjustPackage{
		DispensaryID:      p.DispensaryID,
		UserID:            appctx.GetUserID(ctx),
		PackageID:         p.ID,
		PackageLabel:      p.Label,
		NewQty:            newQty,
		PrevQty:           p.Quantity,
		Delta:             types.TruncateQuantity(newQty.Sub(p.Quantity)),
		UnitOfMeasureName: p.UnitOfMeasureName,
		Reason:            in.Reason,
		Notes:             in.Notes,
		NeedMetrcSync:     in.NeedMetrcSync,
		CreatedAt:         s.now().UTC(),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p.PosQty = types.TruncateCurrency(in.NewQty)
		p.Touch()
		if err := s.repo.UpdatePackage(ctx, p); err != nil {
			return fmt.Errorf("update package quantity: %w", err)
		}
		if a.NeedMetrcSync {
			if err := s.repo.DeletePendingAdjustments(ctx, p.DispensaryID, p.Label); err != nil {
				return fmt.Errorf("delete pending adjustments: %w", err)
			}
		}
		if err := s.repo.CreateAdjustment(ctx, a); err != nil {
			return fmt.Errorf("create adjustment: %w", err)
		}
		if err := s.publish(ctx, events.PackageAdjusted, p, a); err != nil {
			return err
		}
		return s.record(ctx, audit.Entry{
			Action:       audit.ActionPackageAdjust,
			EntityType:   entityAdjustment,
			EntityID:     a.ID,
			DispensaryID: p.DispensaryID,
			PackageLabel: p.Label,
			Fields:       map[string]any{"newQty": newQty.String(), "metrcQty": p.Quantity.String()},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "package adjusted", "package_label", p.Label, "delta", a.Delta.String())
	return a, nil
}

// Reconcile sends a staged adjustment to the regulator. Nothing is marked
// when the regulator rejects it; a synced adjustment is immutable.
func (s *Service) Reconcile(ctx context.Context, adjustID int64) (*entity.AdjustPackage, error) {
	a, err := s.repo.GetAdjustment(ctx, adjustID)
	if err != nil {
		return nil, err
	}
	if a.SyncMetrc {
		return nil, apperror.NewValidation("Current record was synced in the past.")
	}
	if !a.NeedMetrcSync {
		return nil, apperror.NewValidation("This record can not be synced.")
	}

	d, err := s.catalog.Dispensary(ctx, a.DispensaryID)
	if err != nil {
		return nil, err
	}
	status, err := s.regulator.Adjust(ctx, regulator.CredentialsFor(d), []regulator.Adjustment{{
		Label:            a.PackageLabel,
		Quantity:         types.TruncateQuantity(a.Delta),
		UnitOfMeasure:    a.UnitOfMeasureName,
		AdjustmentReason: a.Reason,
		AdjustmentDate:   s.now().UTC().Format(dateLayout),
		ReasonNote:       a.Notes,
	}})
	if err != nil {
		return nil, apperror.NewExternalService(apperror.MessageMetrcSyncFail, err)
	}
	if !regulator.OK(status) {
		return nil, apperror.NewExternalService(apperror.MessageMetrcSyncFail, fmt.Errorf("metrc adjust returned %d", status))
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		now := s.now().UTC()
		a.SyncMetrc = true
		a.SyncedAt = &now
		if err := s.repo.UpdateAdjustment(ctx, a); err != nil {
			return fmt.Errorf("mark adjustment synced: %w", err)
		}
		p := &entity.Package{ID: a.PackageID, DispensaryID: a.DispensaryID, Label: a.PackageLabel}
		if err := s.publish(ctx, events.PackageReconciled, p, a); err != nil {
			return err
		}
		return s.record(ctx, audit.Entry{
			Action:       audit.ActionPackageReconcile,
			EntityType:   entityAdjustment,
			EntityID:     a.ID,
			DispensaryID: a.DispensaryID,
			PackageLabel: a.PackageLabel,
			Fields:       map[string]any{"status": status, "newQty": a.NewQty.String(), "delta": a.Delta.String()},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "package reconciled", "package_label", a.PackageLabel, "delta", a.Delta.String())
	return a, nil
}

// CancelReconcile deletes an unsynced adjustment.
func (s *Service) CancelReconcile(ctx context.Context, adjustID int64) error {
	a, err := s.repo.GetAdjustment(ctx, adjustID)
	if err != nil {
		return err
	}
	if a.SyncMetrc {
		return apperror.NewValidation("Current record was synced in the past.")
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteAdjustment(ctx, a.ID); err != nil {
			return fmt.Errorf("delete adjustment: %w", err)
		}
		return s.record(ctx, audit.Entry{
			Action:       audit.ActionAdjustCancel,
			EntityType:   entityAdjustment,
			EntityID:     a.ID,
			DispensaryID: a.DispensaryID,
			PackageLabel: a.PackageLabel,
		})
	})
}

// PendingAdjustments lists unsynced adjustments awaiting regulator sync.
func (s *Service) PendingAdjustments(ctx context.Context, dispensaryID int64) ([]*entity.AdjustPackage, error) {
	return s.repo.ListPendingAdjustments(ctx, dispensaryID)
}

// Finish closes an ACTIVE package whose store quantity is zero. Regulator
// packages are finished remotely first.
func (s *Service) Finish(ctx context.Context, packageID int64, actualDate time.Time) (*entity.Package, error) {
	p, err := s.repo.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if p.Status != entity.PackageActive {
		return nil, apperror.NewValidation("Only Active packages can be finished.")
	}
	if !p.PosQty.IsZero() {
		return nil, apperror.NewValidation("To finish, package inventory must be zero.")
	}

	if p.IsRegulated() {
		if err := s.finishRemote(ctx, p.DispensaryID, []string{p.Label}, actualDate, apperror.MessageMetrcFailed); err != nil {
			return nil, err
		}
	}

	if err := s.setStatus(ctx, p, entity.PackageFinished, audit.ActionPackageFinish); err != nil {
		return nil, err
	}
	return p, nil
}

// Reactivate reopens a FINISHED package. The local status changes only
// after the regulator accepted the unfinish call.
func (s *Service) Reactivate(ctx context.Context, packageID int64) (*entity.Package, error) {
	p, err := s.repo.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if p.Status != entity.PackageFinished {
		return nil, apperror.NewValidation("Only Finished packages can be reactivated.")
	}

	d, err := s.catalog.Dispensary(ctx, p.DispensaryID)
	if err != nil {
		return nil, err
	}
	status, err := s.regulator.Unfinish(ctx, regulator.CredentialsFor(d), []regulator.UnfinishRequest{{Label: p.Label}})
	if err != nil {
		return nil, apperror.NewExternalService(apperror.MessageMetrcSyncFail, err)
	}
	if !regulator.OK(status) {
		return nil, apperror.NewExternalService(apperror.MessageMetrcSyncFail, fmt.Errorf("metrc unfinish returned %d", status))
	}

	if err := s.setStatus(ctx, p, entity.PackageActive, audit.ActionPackageReopen); err != nil {
		return nil, err
	}
	return p, nil
}

// FinishEmpty finishes every ACTIVE package of a dispensary with zero
// regulator and store quantity, in one regulator call.
func (s *Service) FinishEmpty(ctx context.Context, dispensaryID int64, actualDate time.Time) (int, error) {
	pkgs, err := s.repo.ListEmptyActive(ctx, dispensaryID)
	if err != nil {
		return 0, fmt.Errorf("list empty packages: %w", err)
	}
	if len(pkgs) == 0 {
		return 0, nil
	}

	var labels []string
	for _, p := range pkgs {
		if p.IsRegulated() {
			labels = append(labels, p.Label)
		}
	}
	if len(labels) > 0 {
		if err := s.finishRemote(ctx, dispensaryID, labels, actualDate, apperror.MessageMetrcSyncFail); err != nil {
			return 0, err
		}
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, p := range pkgs {
			p.Status = entity.PackageFinished
			p.Touch()
			if err := s.repo.UpdatePackage(ctx, p); err != nil {
				return fmt.Errorf("finish package %s: %w", p.Label, err)
			}
			if err := s.record(ctx, audit.Entry{
				Action:       audit.ActionPackageFinish,
				EntityType:   entityPackage,
				EntityID:     p.ID,
				DispensaryID: p.DispensaryID,
				PackageLabel: p.Label,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "empty packages finished", "dispensary_id", dispensaryID, "count", len(pkgs))
	return len(pkgs), nil
}

// Hold puts an ACTIVE package on hold locally.
func (s *Service) Hold(ctx context.Context, packageID int64) (*entity.Package, error) {
	return s.localTransition(ctx, packageID, entity.PackageActive, entity.PackageHold, audit.ActionPackageHold,
		"Only Active packages can be held.")
}

// Unhold releases a held package.
func (s *Service) Unhold(ctx context.Context, packageID int64) (*entity.Package, error) {
	return s.localTransition(ctx, packageID, entity.PackageHold, entity.PackageActive, audit.ActionPackageUnhold,
		"Only Hold packages can be released.")
}

func (s *Service) localTransition(ctx context.Context, packageID int64, from, to entity.PackageStatus, action audit.Action, msg string) (*entity.Package, error) {
	p, err := s.repo.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if p.Status != from {
		return nil, apperror.NewValidation(msg)
	}
	if err := s.setStatus(ctx, p, to, action); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) setStatus(ctx context.Context, p *entity.Package, status entity.PackageStatus, action audit.Action) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p.Status = status
		p.Touch()
		if err := s.repo.UpdatePackage(ctx, p); err != nil {
			return fmt.Errorf("update package status: %w", err)
		}
		return s.record(ctx, audit.Entry{
			Action:       action,
			EntityType:   entityPackage,
			EntityID:     p.ID,
			DispensaryID: p.DispensaryID,
			PackageLabel: p.Label,
		})
	})
}

func (s *Service) finishRemote(ctx context.Context, dispensaryID int64, labels []string, actualDate time.Time, failMsg string) error {
	d, err := s.catalog.Dispensary(ctx, dispensaryID)
	if err != nil {
		return err
	}
	if actualDate.IsZero() {
		actualDate = s.now()
	}
	date := actualDate.UTC().Format(dateLayout)

	reqs := make([]regulator.FinishRequest, 0, len(labels))
	for _, l := range labels {
		reqs = append(reqs, regulator.FinishRequest{Label: l, ActualDate: date})
	}
	status, err := s.regulator.Finish(ctx, regulator.CredentialsFor(d), reqs)
	if err != nil {
		return apperror.NewExternalService(failMsg, err)
	}
	if !regulator.OK(status) {
		return apperror.NewExternalService(failMsg, fmt.Errorf("metrc finish returned %d", status))
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, p *entity.Package, a *entity.AdjustPackage) error {
	if s.events == nil {
		return nil
	}
	err := s.events.Publish(ctx, events.Event{
		AggregateType: events.AggregatePackage,
		AggregateID:   p.ID,
		EventType:     eventType,
		Payload: events.PackagePayload{
			PackageID:    p.ID,
			AdjustID:     a.ID,
			DispensaryID: p.DispensaryID,
			Label:        p.Label,
			Delta:        a.Delta.String(),
			Reason:       a.Reason,
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) error {
	if s.audit == nil {
		return nil
	}
	audit.Enrich(ctx, &entry)
	if err := s.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("record %s: %w", entry.Action, err)
	}
	return nil
}
