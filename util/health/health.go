// Package health aggregates the health of a node's stores into one JSON report.
package health

import (
	"context"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Check struct {
	Name  string
	Check func(context.Context, bool) (int, string, error)
}

type Dependency struct {
	Resource string `json:"resource"`
	Status   int    `json:"status"`
	Error    string `json:"error,omitempty"`
	// Message holds the raw report of dependencies that report JSON themselves.
	Message jsoniter.RawMessage `json:"dependencies,omitempty"`
	Text    string              `json:"message,omitempty"`
}

type Report struct {
	Status       int          `json:"status"`
	Dependencies []Dependency `json:"dependencies"`
}

// CheckAll runs every check and returns http.StatusOK only when all of them pass. The returned
// message is a JSON Report.
func CheckAll(ctx context.Context, checkLiveness bool, checks []Check) (int, string, error) {
	report := Report{
		Status:       http.StatusOK,
		Dependencies: make([]Dependency, 0, len(checks)),
	}

	for _, check := range checks {
		status, message, err := check.Check(ctx, checkLiveness)
		if err != nil || status != http.StatusOK {
			report.Status = http.StatusServiceUnavailable
		}

		dep := Dependency{Resource: check.Name, Status: status}

		if err != nil {
			dep.Error = err.Error()
		}

		if len(message) > 0 && message[0] == '{' && json.Valid([]byte(message)) {
			dep.Message = jsoniter.RawMessage(message)
		} else {
			dep.Text = message
		}

		report.Dependencies = append(report.Dependencies, dep)
	}

	data, err := json.Marshal(&report)
	if err != nil {
		return http.StatusInternalServerError, "", err
	}

	return report.Status, string(data), nil
}
