package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannapos/internal/config"
	"cannapos/internal/core/apperror"
	appctx "cannapos/internal/core/context"
	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
	"cannapos/internal/core/units"
	"cannapos/internal/domain/catalog"
	"cannapos/internal/domain/order"
	"cannapos/internal/domain/registers/stock"
	"cannapos/internal/domain/regulator/regulatortest"
	"cannapos/internal/infrastructure/storage/memory"
)

const cashierID = 7

type fixture struct {
	store    *memory.Store
	metrc    *regulatortest.Fake
	svc      *order.Service
	ctx      context.Context
	manager  context.Context
	disp     *entity.Dispensary
	flower   *entity.Product
	pipe     *entity.Product
	customer *entity.Customer
	pkg      *entity.Package
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
	store.PutDrawer(&entity.Drawer{DispensaryID: disp.ID, UserID: cashierID, IsUsing: true})

	flowerCat := &entity.ItemCategory{DispensaryID: disp.ID, Name: "Flower", ContainMj: true, PurchaseLimitType: "flower"}
	gearCat := &entity.ItemCategory{DispensaryID: disp.ID, Name: "Accessories"}
	store.PutCategory(flowerCat)
	store.PutCategory(gearCat)

	flower := &entity.Product{
		DispensaryID:  disp.ID,
		CategoryID:    flowerCat.ID,
		Name:          "Blue Dream",
		Price:         types.MustMoney("10"),
		Cost:          types.MustMoney("4"),
		UnitOfMeasure: entity.ProductUnitGram,
	}
	pipe := &entity.Product{
		DispensaryID:  disp.ID,
		CategoryID:    gearCat.ID,
		Name:          "Glass Pipe",
		Price:         types.MustMoney("100"),
		Cost:          types.MustMoney("40"),
		UnitOfMeasure: entity.ProductUnitEach,
	}
	store.PutProduct(flower)
	store.PutProduct(pipe)

	store.PutPurchaseLimit(&entity.PurchaseLimit{
		DispensaryID: disp.ID,
		LimitType:    "flower",
		LimitAmount:  types.MustMoney("28"),
		LimitUnit:    units.Gram,
		LimitWeight:  entity.LimitByNetWeight,
	})
	store.PutTaxRule(&entity.TaxRule{
		DispensaryID:    disp.ID,
		Name:            "Sales",
		BasePercent:     types.MustMoney("5"),
		CompoundPercent: types.MustMoney("5"),
		ApplyTo:         entity.MjTypeNMJ,
		IsActive:        true,
	})

	customer := &entity.Customer{
		DispensaryID:   disp.ID,
		Name:           "Pat",
		MedicalLicense: "med-123",
		LoyaltyPoints:  types.MustMoney("100"),
	}
	store.PutCustomer(customer)

	pkg := &entity.Package{
		DispensaryID:      disp.ID,
		PackageID:         501,
		Label:             "1A400000000000000001",
		Status:            entity.PackageActive,
		Quantity:          types.MustMoney("30"),
		PosQty:            types.MustMoney("30"),
		UnitOfMeasureName: "Grams",
	}
	store.PutPackage(pkg)

	fake := regulatortest.New()
	fake.ReceiptID = 4242

	metrcCfg := config.DefaultMetrcConfig()
	svc := order.NewService(order.ServiceConfig{
		Repo:      store,
		Packages:  store,
		Catalog:   catalog.NewService(store, nil),
		TxManager: memory.NewTxManager(store),
		Stock:     stock.NewService(store),
		Regulator: fake,
		Audit:     store,
		Events:    store,
		Metrc:     metrcCfg,
		Now:       func() time.Time { return time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC) },
	})

	user := &appctx.UserContext{UserID: cashierID, DispensaryID: disp.ID, Roles: []string{appctx.RoleUser}}
	mgr := &appctx.UserContext{UserID: cashierID, DispensaryID: disp.ID, Roles: []string{appctx.RoleManager}}

	return &fixture{
		store:    store,
		metrc:    fake,
		svc:      svc,
		ctx:      appctx.WithUser(context.Background(), user),
		manager:  appctx.WithUser(context.Background(), mgr),
		disp:     disp,
		flower:   flower,
		pipe:     pipe,
		customer: customer,
		pkg:      pkg,
	}
}

func (f *fixture) newOrder(t *testing.T, customerID *int64) *entity.Order {
	t.Helper()
	o, err := f.svc.Create(f.ctx, order.CreateInput{DispensaryID: f.disp.ID, UserID: cashierID, CustomerID: customerID})
	require.NoError(t, err)
	return o
}

func (f *fixture) addPipe(t *testing.T, orderID int64) *entity.OrderItem {
	t.Helper()
	item, err := f.svc.AddItem(f.ctx, order.AddItemInput{
		OrderID:   orderID,
		ProductID: f.pipe.ID,
		Quantity:  types.MustMoney("1"),
		Price:     types.MustMoney("100"),
		Cost:      types.MustMoney("40"),
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) addFlower(t *testing.T, orderID int64, qty string) (*entity.OrderItem, error) {
	t.Helper()
	return f.svc.AddItem(f.ctx, order.AddItemInput{
		OrderID:      orderID,
		ProductID:    f.flower.ID,
		PackageLabel: f.pkg.Label,
		Quantity:     types.MustMoney(qty),
		Price:        types.MustMoney("10"),
		Cost:         types.MustMoney("4"),
	})
}

func TestCreate_RequiresDrawer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, order.CreateInput{DispensaryID: f.disp.ID, UserID: 99})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Please start Drawer.")
}

func TestDiscountAndTax_EndToEnd(t *testing.T) {
	f := newFixture(t)
	o := f.newOrder(t, nil)
	f.addPipe(t, o.ID)

	_, err := f.svc.ApplyDiscount(f.ctx, order.DiscountInput{
		OrderID: o.ID,
		Name:    "Ten off",
		Method:  entity.DiscountByPercent,
		Value:   types.MustMoney("10"),
	})
	require.NoError(t, err)

	items, err := f.store.ListItems(f.ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "10", items[0].DiscountedAmount.String())
	assert.Equal(t, "90", items[0].FundAmount().String())

	taxes, err := f.store.ListTaxes(f.ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, taxes, 1)
	assert.Equal(t, "4.5", taxes[0].TaxAmount.String())

	info, err := f.svc.AmountInfo(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", info.Totals.SubTotal)
	assert.Equal(t, "10.00", info.Totals.Discount)
	assert.Equal(t, "4.50", info.Totals.Tax)
	assert.Equal(t, "85.50", info.Totals.NetTotal)
	assert.Nil(t, info.Limits)
}

func TestDiscount_FollowsNewItems(t *testing.T) {
	f := newFixture(t)
	o := f.newOrder(t, nil)
	f.addPipe(t, o.ID)

	_, err := f.svc.ApplyDiscount(f.ctx, order.DiscountInput{
		OrderID: o.ID,
		Method:  entity.DiscountByAmount,
		Value:   types.MustMoney("30"),
	})
	require.NoError(t, err)

	second := f.addPipe(t, o.ID)
	assert.Equal(t, "15", second.DiscountedAmount.String())

	items, err := f.store.ListItems(f.ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "15", items[0].DiscountedAmount.String())
	assert.Equal(t, "15", items[1].DiscountedAmount.String())

	require.NoError(t, f.svc.RemoveItem(f.ctx, second.ID))
	items, err = f.store.ListItems(f.ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "30", items[0].DiscountedAmount.String())
}

func TestCancelDiscount_RequiresManager(t *testing.T) {
	f := newFixture(t)
	o := f.newOrder(t, nil)
	f.addPipe(t, o.ID)
	_, err := f.svc.ApplyDiscount(f.ctx, order.DiscountInput{OrderID: o.ID, Method: entity.DiscountByPercent, Value: types.MustMoney("10")})
	require.NoError(t, err)

	err = f.svc.CancelDiscount(f.ctx, o.ID)
	assert.True(t, apperror.IsForbidden(err))

	require.NoError(t, f.svc.CancelDiscount(f.manager, o.ID))
	info, err := f.svc.AmountInfo(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", info.Totals.Discount)
	assert.Equal(t, "5.00", info.Totals.Tax)
}

func TestRecomputeTax_Idempotent(t *testing.T) {
	f := newFixture(t)
	o := f.newOrder(t, nil)
	f.addPipe(t, o.ID)

	first, err := f.svc.RecomputeTax(f.ctx, o.ID)
	require.NoError(t, err)
	rowsA, err := f.store.ListTaxes(f.ctx, o.ID)
	require.NoError(t, err)

	second, err := f.svc.RecomputeTax(f.ctx, o.ID)
	require.NoError(t, err)
	rowsB, err := f.store.ListTaxes(f.ctx, o.ID)
	require.NoError(t, err)

	assert.True(t, first.Tax.Equal(second.Tax))
	require.Len(t, rowsB, len(rowsA))
	for i := range rowsA {
		assert.Equal(t, rowsA[i].OrderItemID, rowsB[i].OrderItemID)
		assert.Equal(t, rowsA[i].TaxName, rowsB[i].TaxName)
		assert.True(t, rowsA[i].TaxAmount.Equal(rowsB[i].TaxAmount))
	}
}

func TestAddItem_PurchaseLimitGate(t *testing.T) {
	f := newFixture(t)
	o := f.newOrder(t, nil)

	_, err := f.addFlower(t, o.ID, "27")
	require.NoError(t, err)

	_, err = f.addFlower(t, o.ID, "2")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Exceeded flower limit")

	items, err := f.store.ListItems(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1, "rejected line must not be persisted")

	_, err = f.addFlower(t, o.ID, "1")
	require.NoError(t, err)

	info, err := f.svc.AmountInfo(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "28.00", info.Limits["flower"])

	got, err := f.svc.Get(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MjTypeMJ, got.MjType)
}

func TestAddItem_RejectsReturnOrder(t *testing.T) {
	f := newFixture(t)
	o := f.newOrder(t, nil)
	_, err := f.svc.ConvertToReturn(f.ctx, o.ID)
	require.NoError(t, err)

	_, err = f.svc.AddItem(f.ctx, order.AddItemInput{OrderID: o.ID, ProductID: f.pipe.ID, Quantity: types.MustMoney("1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is RETURN type")

	item, err := f.svc.AddReturnItem(f.ctx, order.AddItemInput{OrderID: o.ID, ProductID: f.pipe.ID, Quantity: types.MustMoney("2")})
	require.NoError(t, err)
	assert.Equal(t, "200", item.Amount.String())
}

func TestConvertToReturn_RequiresEmptyOrder(t *testing.T) {
	f := newFixture(t)
	o := f.newOrder(t, nil)
	f.addPipe(t, o.ID)

	_, err := f.svc.ConvertToReturn(f.ctx, o.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "please remove all products")
}

func TestLoyalty_ApplyAndCancel(t *testing.T) {
	f := newFixture(t)
	f.store.PutLoyaltyProgram(&entity.LoyaltyProgram{
		DispensaryID: f.disp.ID,
		Name:         "Points",
		Type:         entity.LoyaltyManual,
		PointWorth:   types.MustMoney("0.1"),
		IsActive:     true,
	})
	o := f.newOrder(t, &f.customer.ID)
	f.addPipe(t, o.ID)

	_, err := f.svc.ApplyLoyalty(f.ctx, o.ID, types.MustMoney("50"))
	require.NoError(t, err)

	_, err = f.svc.ApplyLoyalty(f.ctx, o.ID, types.MustMoney("10"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already applied")

	c, err := f.store.GetCustomer(f.ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "50", c.LoyaltyPoints.String())

	items, err := f.store.ListItems(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "5", items[0].LoyaltyAmount.String())

	require.NoError(t, f.svc.CancelLoyalty(f.ctx, o.ID))
	c, err = f.store.GetCustomer(f.ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", c.LoyaltyPoints.String())

	items, err = f.store.ListItems(f.ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, items[0].LoyaltyAmount.IsZero())
}

func TestApplyLoyalty_NotEnoughPoints(t *testing.T) {
	f := newFixture(t)
	o := f.newOrder(t, &f.customer.ID)

	_, err := f.svc.ApplyLoyalty(f.ctx, o.ID, types.MustMoney("500"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not enough loyalty points.")
}

func TestHoldUnhold(t *testing.T) {
	f := newFixture(t)
	o := f.newOrder(t, nil)

	held, err := f.svc.Hold(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusHold, held.Status)

	_, err = f.svc.Hold(f.ctx, o.ID)
	assert.True(t, apperror.IsValidation(err))

	resumed, err := f.svc.Unhold(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusEdit, resumed.Status)
}

func TestAddItem_RejectsHeldOrder(t *testing.T) {
	f := newFixture(t)
	o := f.newOrder(t, nil)
	_, err := f.svc.Hold(f.ctx, o.ID)
	require.NoError(t, err)

	_, err = f.addFlower(t, o.ID, "1")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "is not editable")

	got, err := f.svc.Get(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusHold, got.Status)
	assert.Equal(t, entity.MjTypeNone, got.MjType)
	items, err := f.store.ListItems(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCancel_DeletesOrder(t *testing.T) {
	f := newFixture(t)
	o := f.newOrder(t, nil)
	f.addPipe(t, o.ID)

	require.NoError(t, f.svc.Cancel(f.ctx, o.ID))

	_, err := f.svc.Get(f.ctx, o.ID)
	assert.True(t, apperror.IsNotFound(err))
	items, err := f.store.ListItems(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	taxes, err := f.store.ListTaxes(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, taxes)
}
