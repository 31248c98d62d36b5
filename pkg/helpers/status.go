package helpers

import (
	"maps"
	"slices"
	"strconv"
)

// StatusLabel returns the label for an HTTP status code, e.g. "404 Not Found".
// Codes missing from the table are rendered as the bare number.
func (h *Helpers) StatusLabel(code int) string {
	if label, ok := h.site.StatusCodes[code]; ok {
		return label
	}
	return strconv.Itoa(code)
}

// StatusCodes returns every code in the table in ascending order.
func (h *Helpers) StatusCodes() []int {
	return slices.Sorted(maps.Keys(h.site.StatusCodes))
}
