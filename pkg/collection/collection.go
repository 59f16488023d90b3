// Package collection provides generic helpers for slices.
//
//	ready, active := collection.Partition(orders, func(o models.Order) bool { return o.Status == models.StatusReady })
//	byCategory := collection.GroupBy(products, func(p models.Product) string { return p.CategoryID })
//
// Every helper returns a non-nil slice so JSON output is [] rather than null.
package collection

// Map transforms each element of slice s using fn.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// Filter returns elements of s for which fn returns true.
func Filter[T any](s []T, fn func(T) bool) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if fn(v) {
			out = append(out, v)
		}
	}
	return out
}

// Partition splits s into the elements fn accepts and the rest, keeping order.
func Partition[T any](s []T, fn func(T) bool) (yes, no []T) {
	yes, no = make([]T, 0, len(s)), make([]T, 0, len(s))
	for _, v := range s {
		if fn(v) {
			yes = append(yes, v)
		} else {
			no = append(no, v)
		}
	}
	return yes, no
}

// GroupBy partitions s into a map keyed by fn. Order within a group is kept.
func GroupBy[T any, K comparable](s []T, fn func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, v := range s {
		k := fn(v)
		out[k] = append(out[k], v)
	}
	return out
}

// KeyBy turns s into a map using the key produced by fn.
// If two elements produce the same key, the last one wins.
func KeyBy[T any, K comparable](s []T, fn func(T) K) map[K]T {
	out := make(map[K]T, len(s))
	for _, v := range s {
		out[fn(v)] = v
	}
	return out
}
