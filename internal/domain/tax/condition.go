package tax

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"cannapos/internal/core/entity"
)

// RuleMatcher evaluates optional tax-rule conditions written in CEL.
// Expressions see two maps, item and customer, for example:
//
//	item.amount >= 100.0 && !customer.medical
type RuleMatcher struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewRuleMatcher creates a matcher with the item/customer environment.
func NewRuleMatcher() (*RuleMatcher, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("customer", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &RuleMatcher{env: env, programs: make(map[string]cel.Program)}, nil
}

// Compile checks an expression and caches its program.
func (m *RuleMatcher) Compile(expr string) (cel.Program, error) {
	m.mu.RLock()
	prg, ok := m.programs[expr]
	m.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := m.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile tax condition %q: %w", expr, iss.Err())
	}
	prg, err := m.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program tax condition %q: %w", expr, err)
	}

	m.mu.Lock()
	m.programs[expr] = prg
	m.mu.Unlock()
	return prg, nil
}

// Match reports whether the rule applies to the item. Empty conditions match.
func (m *RuleMatcher) Match(rule *entity.TaxRule, item *entity.OrderItem, customer *entity.Customer) (bool, error) {
	if rule.Condition == "" {
		return true, nil
	}
	prg, err := m.Compile(rule.Condition)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]any{
		"item":     itemVars(item),
		"customer": customerVars(customer),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate tax condition %q: %w", rule.Condition, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("tax condition %q is not boolean", rule.Condition)
	}
	return matched, nil
}

func itemVars(item *entity.OrderItem) map[string]any {
	amount, _ := item.Amount.Float64()
	quantity, _ := item.Quantity.Float64()
	price, _ := item.Price.Float64()
	return map[string]any{
		"productId":    item.ProductID,
		"packageLabel": item.PackageLabel,
		"mjType":       string(item.MjType),
		"amount":       amount,
		"quantity":     quantity,
		"price":        price,
	}
}

func customerVars(c *entity.Customer) map[string]any {
	if c == nil {
		return map[string]any{"id": int64(0), "taxExempt": false, "medical": false}
	}
	return map[string]any{
		"id":        c.ID,
		"taxExempt": c.IsTaxExempt,
		"medical":   c.MedicalLicense != "",
	}
}
