package health

import (
	"context"
	"time"
)

// Status represents the outcome of a health check
type Status string

const (
	// StatusHealthy means the component is fully operational
	StatusHealthy Status = "healthy"
	// StatusDegraded means the component works but with reduced capability
	StatusDegraded Status = "degraded"
	// StatusUnhealthy means the component is not operational
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one checker run
type CheckResult struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Checker performs a single health check
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// RunAll executes every checker and collects the results
func RunAll(ctx context.Context, checkers ...Checker) []CheckResult {
	results := make([]CheckResult, 0, len(checkers))
	for _, checker := range checkers {
		results = append(results, checker.Check(ctx))
	}
	return results
}

// Overall reduces a set of results to the worst status observed
func Overall(results []CheckResult) Status {
	overall := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}
