package domain

import "strings"

// ItemCode derives a stable item code from an item name: uppercase with
// spaces replaced by underscores. Pure so codes stay identical across runs.
func ItemCode(name string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}
