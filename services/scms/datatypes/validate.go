// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// recordValidate is the validator for records and settings.
// Initialized in init() with the custom tags below.
var recordValidate *validator.Validate

func init() {
	recordValidate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their YAML name so errors match the store document.
	recordValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = recordValidate.RegisterValidation("format", func(fl validator.FieldLevel) bool {
		return Format(fl.Field().String()).Valid()
	})
	_ = recordValidate.RegisterValidation("relationship", func(fl validator.FieldLevel) bool {
		return Relationship(fl.Field().String()).Valid()
	})
}

// Validate checks v against its validate tags.
//
// # Outputs
//
//   - error: nil when valid, otherwise validator.ValidationErrors (convert
//     with FieldErrors for API responses).
func Validate(v any) error {
	return recordValidate.Struct(v)
}

// FieldError is one failed schema check, reported in error responses.
type FieldError struct {
	// Record is the record id, set when the error comes from a store document.
	Record string `json:"record,omitempty"`

	// Field is the dotted path of the field, e.g. "xpath[1]".
	Field string `json:"field"`

	// Tag is the failed rule ("required", "format", ...).
	Tag string `json:"tag"`

	// Param is the rule parameter, e.g. "1" for min=1.
	Param string `json:"param,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// FieldErrors converts a Validate error into FieldError values.
//
// Errors that are not validator.ValidationErrors become a single FieldError
// with an empty Field and the error text as Message.
func FieldErrors(record string, err error) []FieldError {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Record: record, Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Record:  record,
			Field:   fieldPath(fe.Namespace()),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

// fieldPath strips the struct name from a validator namespace
// ("Parameter.xpath[0]" -> "xpath[0]").
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s element(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "format":
		return fmt.Sprintf("%s must be one of [yaml json], got %q", field, fe.Value())
	case "relationship":
		return fmt.Sprintf("%s must be one of [child parent sibling], got %q", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s fails %s", field, fe.Tag())
	}
}
