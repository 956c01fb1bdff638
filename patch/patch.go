// Package patch consumes a JSON-patch specification and walks it
// against a record, invoking callbacks the update planner (C12) uses
// to emit UPDATE/DELETE/INSERT commands (§4.12, §6 "JSON-patch
// application library"). A default walker is provided since the spec
// treats this as an external collaborator but the engine still needs
// a working one to exercise end to end. Grounded on the teacher's
// privacy/rules.go-style callback-threading pattern, generalized from
// privacy decision rules to patch-op dispatch.
package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relkit/relkit"
)

// Op is one JSON-patch operation (RFC 6902 ops, plus the engine's
// "test" op used for optimistic-concurrency checks).
type Op struct {
	Kind  string // "add" (insert), "replace" (set), "remove", "test"
	Path  string // JSON pointer, e.g. "/price" or "/lines/0/qty"
	Value any
}

// Callbacks receives the walker's emitted events (§4.12 phase 2).
type Callbacks struct {
	// OnSet handles a scalar/map-value replace.
	OnSet func(ptr string, newValue, oldValue any) error
	// OnInsert handles an array/map element or whole-collection insert.
	OnInsert func(ptr string, newValue any) error
	// OnRemove handles an array/map element or whole-collection removal.
	OnRemove func(ptr string, oldValue any) error
	// OnTest handles a "test" op's pass/fail outcome. When passed is
	// false the walker stops processing further ops for this record.
	OnTest func(ptr string, value any, passed bool) error
}

// Walk applies ops against current (the pre-update hydrated record, as
// a nested map[string]any/[]any tree) in order, invoking cb for each.
// It stops (without error) at the first failed "test" op, per §4.12
// step 3's onTest(passed=false) contract.
func Walk(ops []Op, current map[string]any, cb Callbacks) (testFailed bool, err error) {
	for _, op := range ops {
		switch op.Kind {
		case "test":
			old, _ := resolvePointer(current, op.Path)
			passed := valuesEqual(old, op.Value)
			if cb.OnTest != nil {
				if err := cb.OnTest(op.Path, op.Value, passed); err != nil {
					return testFailed, err
				}
			}
			if !passed {
				return true, nil
			}
		case "replace":
			old, _ := resolvePointer(current, op.Path)
			if isCollectionReplace(old, op.Value) {
				if cb.OnRemove != nil {
					if err := cb.OnRemove(op.Path, old); err != nil {
						return testFailed, err
					}
				}
				if cb.OnInsert != nil {
					if err := cb.OnInsert(op.Path, op.Value); err != nil {
						return testFailed, err
					}
				}
				continue
			}
			if cb.OnSet != nil {
				if err := cb.OnSet(op.Path, op.Value, old); err != nil {
					return testFailed, err
				}
			}
		case "add":
			if cb.OnInsert != nil {
				if err := cb.OnInsert(op.Path, op.Value); err != nil {
					return testFailed, err
				}
			}
		case "remove":
			old, _ := resolvePointer(current, op.Path)
			if cb.OnRemove != nil {
				if err := cb.OnRemove(op.Path, old); err != nil {
					return testFailed, err
				}
			}
		default:
			return testFailed, relkit.NewUsageError("patch.Walk", fmt.Sprintf("unsupported patch op %q", op.Kind))
		}
	}
	return testFailed, nil
}

func isCollectionReplace(old, newValue any) bool {
	switch newValue.(type) {
	case []any, map[string]any:
		return true
	}
	switch old.(type) {
	case []any, map[string]any:
		return true
	}
	return false
}

func valuesEqual(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// resolvePointer resolves a JSON-pointer-like path ("/lines/0/qty")
// against a nested map/slice tree.
func resolvePointer(root map[string]any, ptr string) (any, bool) {
	segs := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	var cur any = root
	for _, seg := range segs {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			cur = v[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}
