// Package steps holds the payload keys shared by the built-in step types.
package steps

import (
	"os"

	"github.com/vinigracindo/database-as-a-service/internal/model"
)

var (
	// HostKey names the host a workflow operates on. Empty means local.
	HostKey = model.NewKey[string]("host")
	// VarsKey carries free-form values from the workflow file.
	VarsKey = model.NewKey[map[string]string]("vars")
)

// Expand replaces ${name} and $name references in s with values from the
// payload vars. "host" resolves to HostKey when vars has no such entry.
// Unknown names expand to the empty string.
func Expand(s string, data *model.Payload) string {
	vars, _ := model.Lookup(data, VarsKey)
	return os.Expand(s, func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		if name == "host" {
			host, _ := model.Lookup(data, HostKey)
			return host
		}
		return ""
	})
}
