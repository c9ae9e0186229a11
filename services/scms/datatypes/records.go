// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the record, result and response types of the
// scms service.
//
// Records are the operator-supplied definitions read from the per-category
// YAML store documents. Output types add the fields resolved at read time
// (configuration content, parameter value). Every record carries validator
// tags; see validate.go for the shared validator instance.
package datatypes

// =============================================================================
// Categories
// =============================================================================

// Category names one of the record categories served by the API.
type Category string

const (
	CategoryChains         Category = "chains"
	CategoryCommands       Category = "commands"
	CategoryConfigurations Category = "configurations"
	CategoryParameters     Category = "parameters"
)

// Categories lists every category in route registration order.
var Categories = []Category{
	CategoryChains,
	CategoryCommands,
	CategoryConfigurations,
	CategoryParameters,
}

// Label returns the singular, human-readable name used in error messages.
func (c Category) Label() string {
	switch c {
	case CategoryChains:
		return "chain"
	case CategoryCommands:
		return "command"
	case CategoryConfigurations:
		return "configuration"
	case CategoryParameters:
		return "parameter"
	default:
		return string(c)
	}
}

// =============================================================================
// Enumerations
// =============================================================================

// Format is the serialization format of an external target file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	return f == FormatYAML || f == FormatJSON
}

// Relationship is the position of a chain node relative to this one.
type Relationship string

const (
	RelationshipChild   Relationship = "child"
	RelationshipParent  Relationship = "parent"
	RelationshipSibling Relationship = "sibling"
)

// Valid reports whether r is a known relationship.
func (r Relationship) Valid() bool {
	switch r {
	case RelationshipChild, RelationshipParent, RelationshipSibling:
		return true
	}
	return false
}

// =============================================================================
// Records
// =============================================================================

// Chain describes a remote scms node and how it relates to this one.
// The relationship is metadata only.
type Chain struct {
	URI          string       `yaml:"uri" json:"uri" validate:"required"`
	Relationship Relationship `yaml:"relationship" json:"relationship" validate:"required,relationship"`
}

// Command is a shell script that can be executed on request.
//
// When Daemon is true the script is launched detached and the request
// returns immediately.
type Command struct {
	Script string `yaml:"script" json:"script" validate:"required"`
	Daemon bool   `yaml:"daemon" json:"daemon"`
}

// Configuration points at a whole JSON or YAML file.
type Configuration struct {
	Path   string `yaml:"path" json:"path" validate:"required"`
	Format Format `yaml:"format" json:"format" validate:"required,format"`
}

// ConfigurationOutput is a Configuration with the parsed file attached.
type ConfigurationOutput struct {
	Configuration
	Content any `json:"content"`
}

// Parameter addresses a single field inside a JSON or YAML file.
//
// XPath is the ordered list of keys leading from the document root to the
// field. It is unrelated to XML XPath.
type Parameter struct {
	Source string   `yaml:"source" json:"source" validate:"required"`
	Format Format   `yaml:"format" json:"format" validate:"required,format"`
	XPath  []string `yaml:"xpath" json:"xpath" validate:"required,min=1,dive,required"`
}

// ParameterOutput is a Parameter with the resolved value attached.
// NotFound is true when the xpath leads nowhere; Value is then null.
type ParameterOutput struct {
	Parameter
	Value    any  `json:"value"`
	NotFound bool `json:"not_found"`
}
