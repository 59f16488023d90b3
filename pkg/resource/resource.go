// Package resource shapes models into the JSON the API returns.
//
// A Transformer controls exactly which fields leave the service:
//
//	var StaffResource resource.Transformer[models.User] = func(u models.User) resource.Map {
//	    return resource.Map{"id": u.ID, "name": u.Name, "role": u.Role}
//	}
//
//	c.Success(resource.One(user, StaffResource))
//	c.Success(resource.Many(users, StaffResource))
package resource

// Map is the output of a Transformer.
type Map = map[string]interface{}

// Transformer converts one model into a Map.
type Transformer[T any] func(T) Map

// One applies t to v.
func One[T any](v T, t Transformer[T]) Map {
	return t(v)
}

// Many applies t to every item. The result is never nil.
func Many[T any](items []T, t Transformer[T]) []Map {
	out := make([]Map, len(items))
	for i, v := range items {
		out[i] = t(v)
	}
	return out
}

// With returns a copy of m with extra keys set.
func With(m Map, extra Map) Map {
	out := make(Map, len(m)+len(extra))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
