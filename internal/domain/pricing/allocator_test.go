package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cannapos/internal/core/entity"
	"cannapos/internal/core/types"
)

func itemsWithAmounts(amounts ...string) []*entity.OrderItem {
	items := make([]*entity.OrderItem, 0, len(amounts))
	for i, a := range amounts {
		items = append(items, &entity.OrderItem{ID: int64(i + 1), Amount: types.MustMoney(a)})
	}
	return items
}

func assertMoney(t *testing.T, want string, got types.Money) {
	t.Helper()
	assert.True(t, got.Equal(types.MustMoney(want)), "want %s, got %s", want, got)
}

func TestAllocateDiscount_ByPercent(t *testing.T) {
	items := itemsWithAmounts("10", "20", "30")

	got := AllocateDiscount(items, entity.DiscountByPercent, types.MustMoney("10"), types.Zero())

	assertMoney(t, "1", items[0].DiscountedAmount)
	assertMoney(t, "2", items[1].DiscountedAmount)
	assertMoney(t, "3", items[2].DiscountedAmount)
	assertMoney(t, "0", got)
}

func TestAllocateDiscount_ByPercentReturnsExtraBaseShare(t *testing.T) {
	items := itemsWithAmounts("10", "20")

	got := AllocateDiscount(items, entity.DiscountByPercent, types.MustMoney("10"), types.MustMoney("30"))

	assertMoney(t, "3", got)
	assertMoney(t, "1", items[0].DiscountedAmount)
}

func TestAllocateDiscount_ByAmount(t *testing.T) {
	items := itemsWithAmounts("10", "20", "30")

	AllocateDiscount(items, entity.DiscountByAmount, types.MustMoney("12"), types.Zero())

	assertMoney(t, "2", items[0].DiscountedAmount)
	assertMoney(t, "4", items[1].DiscountedAmount)
	assertMoney(t, "6", items[2].DiscountedAmount)
	assertMoney(t, "12", SumDiscount(items))
}

func TestAllocateDiscount_ByAmountWithPendingItem(t *testing.T) {
	items := itemsWithAmounts("10", "20")

	got := AllocateDiscount(items, entity.DiscountByAmount, types.MustMoney("12"), types.MustMoney("30"))

	assertMoney(t, "2", items[0].DiscountedAmount)
	assertMoney(t, "4", items[1].DiscountedAmount)
	assertMoney(t, "6", got)
}

func TestAllocateDiscount_ToAmount(t *testing.T) {
	items := itemsWithAmounts("10", "20", "30")

	AllocateDiscount(items, entity.DiscountToAmount, types.MustMoney("45"), types.Zero())

	assertMoney(t, "2.5", items[0].DiscountedAmount)
	assertMoney(t, "5", items[1].DiscountedAmount)
	assertMoney(t, "7.5", items[2].DiscountedAmount)
	assertMoney(t, "15", SumDiscount(items))
}

func TestAllocateDiscount_EmptyOrder(t *testing.T) {
	for _, m := range []entity.DiscountMethod{entity.DiscountByAmount, entity.DiscountToAmount} {
		got := AllocateDiscount(nil, m, types.MustMoney("5"), types.Zero())
		assertMoney(t, "0", got)
	}
}

func TestAllocateDiscount_TruncatesPerItem(t *testing.T) {
	items := itemsWithAmounts("1", "1", "1")

	AllocateDiscount(items, entity.DiscountByAmount, types.MustMoney("1"), types.Zero())

	for _, item := range items {
		assertMoney(t, "0.3333", item.DiscountedAmount)
	}
	// Drift stays below one cent per item.
	drift := types.MustMoney("1").Sub(SumDiscount(items))
	assert.True(t, drift.LessThan(types.MustMoney("0.03")))
}

func TestClearDiscount(t *testing.T) {
	items := itemsWithAmounts("10", "20")
	AllocateDiscount(items, entity.DiscountByPercent, types.MustMoney("50"), types.Zero())

	ClearDiscount(items)

	assertMoney(t, "0", SumDiscount(items))
}

func TestAllocateLoyalty_Manual(t *testing.T) {
	items := itemsWithAmounts("25", "75")

	got := AllocateLoyalty(items, entity.LoyaltyManual, types.MustMoney("0.1"), types.MustMoney("100"), types.Zero())

	assertMoney(t, "2.5", items[0].LoyaltyAmount)
	assertMoney(t, "7.5", items[1].LoyaltyAmount)
	assertMoney(t, "10", SumLoyalty(items))
	assertMoney(t, "0", got)
}

func TestAllocateLoyalty_NonManualIsNoop(t *testing.T) {
	items := itemsWithAmounts("25", "75")
	items[0].LoyaltyAmount = types.MustMoney("1")

	got := AllocateLoyalty(items, entity.LoyaltyAuto, types.MustMoney("0.1"), types.MustMoney("100"), types.MustMoney("50"))

	assertMoney(t, "0", got)
	assertMoney(t, "1", items[0].LoyaltyAmount)
	assertMoney(t, "0", items[1].LoyaltyAmount)
}
