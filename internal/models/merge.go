package models

import (
	"fmt"
	"strings"
)

// OrderPolicy decides the display order of a merged list.
type OrderPolicy int

const (
	// OrderUnion keeps the receiver's order, then appends ids from the other
	// order that were not placed yet.
	OrderUnion OrderPolicy = iota
	// OrderReceiver keeps only the receiver's order.
	OrderReceiver
)

// ParseOrderPolicy maps the config spelling to a policy.
func ParseOrderPolicy(s string) (OrderPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "union":
		return OrderUnion, nil
	case "receiver", "self":
		return OrderReceiver, nil
	default:
		return 0, fmt.Errorf("unknown order policy %q (expected union or receiver)", s)
	}
}

func (p OrderPolicy) String() string {
	if p == OrderReceiver {
		return "receiver"
	}
	return "union"
}

// Merge reconciles l with other using OrderUnion.
func (l *HabitList) Merge(other *HabitList) (*HabitList, error) {
	return l.MergeWith(other, OrderUnion)
}

// MergeWith reconciles two lists by habit id. Habits only in l are kept,
// habits only in other are added, and habits in both are merged with
// l's version as the receiver. Inputs are not modified.
func (l *HabitList) MergeWith(other *HabitList, policy OrderPolicy) (*HabitList, error) {
	if other == nil {
		return l.Clone(), nil
	}

	merged := make([]*Habit, 0, len(l.habits)+len(other.habits))
	for _, h := range l.habits {
		if o, ok := other.Get(h.id); ok {
			m, err := h.Merge(o)
			if err != nil {
				return nil, err
			}
			merged = append(merged, m)
			continue
		}
		merged = append(merged, h.Clone())
	}
	for _, o := range other.habits {
		if l.index(o.id) < 0 {
			merged = append(merged, o.Clone())
		}
	}

	order := l.Order()
	if policy == OrderUnion {
		order = append(order, other.order...)
	}
	return NewHabitList(merged, order)
}
