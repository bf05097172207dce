package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a single node against its field rules.
func (n Node) Validate() error {
	if err := validate.Struct(n); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// Validate checks a single edge against its field rules.
func (e Edge) Validate() error {
	if err := validate.Struct(e); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// Validate checks every record plus referential integrity: node ids must be
// unique and edges must reference known nodes.
func (d *Dataset) Validate() error {
	var problems []string
	seen := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if err := n.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("node %d (%s): %v", i, n.ID, err))
			continue
		}
		if seen[n.ID] {
			problems = append(problems, fmt.Sprintf("node %d: duplicate id %q", i, n.ID))
		}
		seen[n.ID] = true
	}
	for i, e := range d.Edges {
		if err := e.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("edge %d (%s): %v", i, e.ID, err))
			continue
		}
		if !seen[e.Source] {
			problems = append(problems, fmt.Sprintf("edge %d (%s): unknown source %q", i, e.ID, e.Source))
		}
		if !seen[e.Target] {
			problems = append(problems, fmt.Sprintf("edge %d (%s): unknown target %q", i, e.ID, e.Target))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
