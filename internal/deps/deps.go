package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"rarpack/internal/faults"
)

// Requirement defines an external dependency rarpack relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		results = append(results, status)
	}
	return results
}

// CompressorRequirement describes the configured archiver.
func CompressorRequirement(executable string) Requirement {
	return Requirement{
		Name:        "RAR",
		Command:     executable,
		Description: "Required to create archives",
	}
}

// RequireCompressor fails with ErrExecutableMissing when the archiver cannot
// be executed.
func RequireCompressor(executable string) error {
	status := CheckBinaries([]Requirement{CompressorRequirement(executable)})[0]
	if status.Available {
		return nil
	}
	return faults.Wrap(faults.ErrExecutableMissing, "deps", "compressor", status.Detail, nil)
}
