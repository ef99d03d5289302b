package shipkit

import (
	"fmt"
	"strings"
)

// checkPreconditions fails before any stage runs when the host is not
// supported or a required tool is not on PATH.
func checkPreconditions(goos string, s *Settings, lookPath func(string) (string, error)) (platformProfile, error) {
	profile, err := profileFor(goos)
	if err != nil {
		return platformProfile{}, err
	}

	var missing []string
	for _, tool := range []struct{ role, name string }{
		{"python", s.Python},
		{"C compiler", s.CC},
		{"bundler", s.PyInstaller},
	} {
		if tool.name == "" {
			missing = append(missing, tool.role)
			continue
		}
		if _, err := lookPath(tool.name); err != nil {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.role, tool.name))
		}
	}
	if len(missing) > 0 {
		return platformProfile{}, &PreconditionError{Reason: "missing tools: " + strings.Join(missing, ", ")}
	}
	return profile, nil
}
