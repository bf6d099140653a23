// Package privilege reports whether the process can change the host's
// resolver configuration.
package privilege

// Status is a summary for preflight checks and the API.
type Status struct {
	Elevated bool   `json:"elevated"`
	Path     string `json:"path,omitempty"`
	Writable bool   `json:"writable"`
}

// Check inspects elevation and, when path is set, write access to it.
func Check(path string) Status {
	s := Status{Elevated: Elevated(), Path: path}
	if path != "" {
		s.Writable = Writable(path) == nil
	}
	return s
}
