package library

import "fmt"

// record is anything stored in a collection under a unique id.
type record interface {
	Book | User | Loan
	key() string
}

// The helpers below never modify their input slice; each returns a fresh
// collection so a failed save can simply drop the result.

func appendRecords[T record](items []T, add ...T) ([]T, error) {
	seen := make(map[string]struct{}, len(items)+len(add))
	for _, it := range items {
		seen[it.key()] = struct{}{}
	}
	for _, it := range add {
		if it.key() == "" {
			return nil, &ValidationError{Fields: []FieldError{{Field: "id", Message: "This field is required"}}}
		}
		if _, dup := seen[it.key()]; dup {
			return nil, fmt.Errorf("id %q: %w", it.key(), ErrDuplicateID)
		}
		seen[it.key()] = struct{}{}
	}
	out := make([]T, 0, len(items)+len(add))
	out = append(out, items...)
	return append(out, add...), nil
}

func replaceRecord[T record](items []T, item T) ([]T, bool) {
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		if out[i].key() == item.key() {
			out[i] = item
			return out, true
		}
	}
	return nil, false
}

func removeRecord[T record](items []T, id string) ([]T, bool) {
	out := make([]T, 0, len(items))
	found := false
	for _, it := range items {
		if it.key() == id {
			found = true
			continue
		}
		out = append(out, it)
	}
	return out, found
}

func findRecord[T record](items []T, id string) (T, bool) {
	for _, it := range items {
		if it.key() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func cloneRecords[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}

// cloneAll copies items along with the values their pointer fields refer to.
// Everything handed to callers goes through it.
func cloneAll[T interface{ clone() T }](items []T) []T {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
