package ecs

// Get returns the entity's component of concrete type T.
func Get[T Component](e *Entity) (T, bool) {
	for _, c := range e.components {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
