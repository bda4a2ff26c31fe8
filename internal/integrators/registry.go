package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// Default is the integrator used when none is configured.
const Default = "yoshida8"

var registry = map[string]func() dynamo.Integrator{
	"yoshida8": func() dynamo.Integrator { return NewYoshida8() },
	"yoshida4": func() dynamo.Integrator { return NewYoshida4() },
	"leapfrog": func() dynamo.Integrator { return NewLeapfrog() },
	"rk4":      func() dynamo.Integrator { return NewRK4() },
}

// Get returns the integrator registered under name; an empty name selects Default.
func Get(name string) (dynamo.Integrator, error) {
	if name == "" {
		name = Default
	}
	fn, ok := registry[name]
	if !ok {
		return nil, &dynamo.ConfigError{Field: "integrator", Reason: fmt.Sprintf("unknown integrator %q (have %v)", name, List())}
	}
	return fn(), nil
}

func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
