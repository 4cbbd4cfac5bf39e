package prometheus

import "strconv"

// itoa is a label-formatting helper; Prometheus label values must be strings, and
// most of this package's int label inputs are small enough that allocation cost
// isn't worth avoiding.
func itoa(n int) string {
	return strconv.Itoa(n)
}
