package parser

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"provkit/internal/connection"
	"provkit/pkg/plan"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Parse reads and validates a provisioning plan YAML file, returning the
// parsed Plan struct or an error. Connection entries also pass the
// type-dependent checks here so a bad plan fails before any flow is built.
func Parse(filePath string) (*plan.Plan, error) {
	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("plan file not found: %s", filePath)
	}

	// Configure Viper
	v := viper.New()
	v.SetConfigFile(filePath)
	v.SetConfigType("yaml")

	// Read the file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("plan file not found: %s", filePath)
		}
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	// Unmarshal into Plan struct
	var p plan.Plan
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("failed to parse plan file - malformed YAML: %w", err)
	}

	// Validate the structure
	if err := validate.Struct(&p); err != nil {
		return nil, formatValidationError(err)
	}

	// Per-type connection validation
	for i := range p.Spec.Connections {
		if err := connection.Validate(&p.Spec.Connections[i]); err != nil {
			return nil, err
		}
	}

	// Flow references must resolve now, not mid-run
	if err := validateFlowRefs(&p); err != nil {
		return nil, err
	}

	return &p, nil
}

// validateFlowRefs checks that every flow names a declared connection and
// that chain parents exist and contain no self references.
func validateFlowRefs(p *plan.Plan) error {
	connections := make(map[string]bool, len(p.Spec.Connections))
	for _, c := range p.Spec.Connections {
		connections[c.Name] = true
	}

	flows := make(map[string]bool, len(p.Spec.Flows))
	for _, f := range p.Spec.Flows {
		if flows[f.Name] {
			return fmt.Errorf("duplicate flow name: %s", f.Name)
		}
		flows[f.Name] = true
	}

	for _, f := range p.Spec.Flows {
		if !connections[f.Connection] {
			return fmt.Errorf("flow %q references unknown connection %q", f.Name, f.Connection)
		}
		if f.After != "" {
			if f.After == f.Name {
				return fmt.Errorf("flow %q chains after itself", f.Name)
			}
			if !flows[f.After] {
				return fmt.Errorf("flow %q chains after unknown flow %q", f.Name, f.After)
			}
		}
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, formatFieldError(e))
		}

		if len(errorMessages) == 1 {
			return fmt.Errorf("validation error: %s", errorMessages[0])
		}

		result := "validation errors:\n"
		for _, msg := range errorMessages {
			result += fmt.Sprintf("  - %s\n", msg)
		}
		return fmt.Errorf("%s", result)
	}
	return fmt.Errorf("validation failed: %w", err)
}

// formatFieldError formats a single validation error into a user-friendly message.
func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", field)
	case "eq":
		return fmt.Sprintf("field '%s' must be '%s'", field, e.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, e.Param())
	case "gte", "lte":
		return fmt.Sprintf("field '%s' is out of range (%s=%s)", field, tag, e.Param())
	case "min":
		return fmt.Sprintf("field '%s' needs at least %s entries", field, e.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", field, tag)
	}
}
