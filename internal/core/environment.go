package core

import "strings"

// Environment is the deployment environment, bound from APP_ENV.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

func (e Environment) IsProduction() bool {
	return e == Production
}

// AllowsInMemoryState reports whether conversations may live in process
// memory. Production runs several replicas, so state must be shared.
func (e Environment) AllowsInMemoryState() bool {
	return e != Production && e != Staging
}

// Decode lets envconfig bind APP_ENV directly into an Environment.
func (e *Environment) Decode(v string) error {
	*e = ParseEnvironment(v)
	return nil
}

// ParseEnvironment accepts the full names and the usual short forms.
// Anything else is Development.
func ParseEnvironment(v string) Environment {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	case "testing", "test":
		return Testing
	default:
		return Development
	}
}
