package helpers

// Ptr returns a pointer to the value passed as an argument.
func Ptr[T any](v T) *T {
	return &v
}
