// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package app

import (
	"errors"

	"github.com/AleutianAI/scms/services/scms/datatypes"
	"github.com/AleutianAI/scms/services/scms/settings"
	"github.com/AleutianAI/scms/services/scms/store"
)

// Stores holds the record store of every category.
type Stores struct {
	Chains         *store.Store[datatypes.Chain]
	Commands       *store.Store[datatypes.Command]
	Configurations *store.Store[datatypes.Configuration]
	Parameters     *store.Store[datatypes.Parameter]
}

// Loader loads one category store.
type Loader struct {
	Category datatypes.Category
	Path     string
	Load     func() error
}

// NewStores creates the four stores at the paths of s. Nothing is loaded.
func NewStores(s *settings.Settings, opts ...store.Option) *Stores {
	return &Stores{
		Chains:         store.New[datatypes.Chain](datatypes.CategoryChains, s.StorePath(datatypes.CategoryChains), opts...),
		Commands:       store.New[datatypes.Command](datatypes.CategoryCommands, s.StorePath(datatypes.CategoryCommands), opts...),
		Configurations: store.New[datatypes.Configuration](datatypes.CategoryConfigurations, s.StorePath(datatypes.CategoryConfigurations), opts...),
		Parameters:     store.New[datatypes.Parameter](datatypes.CategoryParameters, s.StorePath(datatypes.CategoryParameters), opts...),
	}
}

// Loaders returns one Loader per category in route order.
func (s *Stores) Loaders() []Loader {
	return []Loader{
		{datatypes.CategoryChains, s.Chains.Path(), s.Chains.Load},
		{datatypes.CategoryCommands, s.Commands.Path(), s.Commands.Load},
		{datatypes.CategoryConfigurations, s.Configurations.Path(), s.Configurations.Load},
		{datatypes.CategoryParameters, s.Parameters.Path(), s.Parameters.Load},
	}
}

// LoadAll loads every store.
//
// # Outputs
//
//   - []*store.ValidationError: Invalid records per category. Those records
//     stay in the documents and answer with INVALID_RECORD.
//   - error: The joined errors of stores that could not be installed (missing
//     file, unparseable document). nil when every document loaded, even if
//     some records are invalid.
func (s *Stores) LoadAll() ([]*store.ValidationError, error) {
	var (
		fatal   []error
		invalid []*store.ValidationError
	)
	for _, l := range s.Loaders() {
		err := l.Load()
		var verr *store.ValidationError
		switch {
		case err == nil:
		case errors.As(err, &verr):
			invalid = append(invalid, verr)
		default:
			fatal = append(fatal, err)
		}
	}
	return invalid, errors.Join(fatal...)
}
