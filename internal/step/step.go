package step

import (
	"fmt"
	"time"

	"provkit/pkg/plan"
)

// Kind tags an installation step variant. Steps are a closed sum: the
// registry maps each tag to the recipe that executes it.
type Kind string

const (
	KindCommand       Kind = "command"
	KindCondition     Kind = "condition"
	KindSkipCondition Kind = "skip_condition"
	KindDeploy        Kind = "deploy"
	KindGroup         Kind = "group"
)

// Definition is the resolved, immutable description of one installation
// step as declared in a plan.
type Definition struct {
	Kind        Kind
	Name        string
	Command     string
	Fatal       bool
	Timeout     time.Duration
	Source      string
	Destination string
	Steps       []Definition
}

// FromSpec converts a plan step declaration into a definition, validating
// the kind-specific required fields. Problems here are build-time
// configuration errors, never discovered mid-run.
func FromSpec(spec plan.StepSpec) (Definition, error) {
	def := Definition{
		Kind:        Kind(spec.Type),
		Name:        spec.Name,
		Command:     spec.Command,
		Fatal:       spec.Fatal,
		Timeout:     time.Duration(spec.TimeoutSeconds) * time.Second,
		Source:      spec.Source,
		Destination: spec.Destination,
	}

	switch def.Kind {
	case KindCommand, KindCondition, KindSkipCondition:
		if def.Command == "" {
			return Definition{}, fmt.Errorf("%s step %q requires a command", def.Kind, def.Name)
		}
	case KindDeploy:
		if def.Source == "" || def.Destination == "" {
			return Definition{}, fmt.Errorf("deploy step %q requires a source and a destination", def.Name)
		}
	case KindGroup:
		if len(spec.Steps) == 0 {
			return Definition{}, fmt.Errorf("group step %q requires nested steps", def.Name)
		}
		for _, nested := range spec.Steps {
			child, err := FromSpec(nested)
			if err != nil {
				return Definition{}, err
			}
			def.Steps = append(def.Steps, child)
		}
	}

	if def.Name == "" {
		def.Name = defaultName(def)
	}
	return def, nil
}

func defaultName(def Definition) string {
	switch def.Kind {
	case KindDeploy:
		return fmt.Sprintf("deploy %s", def.Source)
	case KindGroup:
		return fmt.Sprintf("group (%d steps)", len(def.Steps))
	default:
		return def.Command
	}
}
