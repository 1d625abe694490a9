package utils

// ToStringSlice extracts the string elements of a decoded JSON array,
// dropping anything of another type.
func ToStringSlice(slice []any) []string {
	out := make([]string, 0, len(slice))
	for _, v := range slice {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
