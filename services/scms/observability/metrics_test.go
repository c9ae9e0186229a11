// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/scms/services/scms/datatypes"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetrics(reg), reg
}

func TestRecordAction(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordAction(datatypes.CategoryCommands, 0.1, false, nil)
	m.RecordAction(datatypes.CategoryCommands, 0.2, true, nil)
	m.RecordAction(datatypes.CategoryCommands, 0, false, errors.New("missing file"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsTotal.WithLabelValues("commands", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsTotal.WithLabelValues("commands", StatusFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsTotal.WithLabelValues("commands", StatusError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ActionDurationSeconds))
}

func TestObserveLoad(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.ObserveLoad(datatypes.CategoryChains, 3, nil)
	m.ObserveLoad(datatypes.CategoryChains, 2, errors.New("invalid"))
	m.ObserveLoad(datatypes.CategoryChains, -1, errors.New("missing"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReloadsTotal.WithLabelValues("chains", ReloadOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReloadsTotal.WithLabelValues("chains", ReloadInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReloadsTotal.WithLabelValues("chains", ReloadError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Records.WithLabelValues("chains")), "failed load keeps the gauge")
}

func TestRecordRequest(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.RecordRequest("GET", "/chains/:id", 404, 0.01)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/chains/:id", "404")))
}

type fixedCounter int

func (f fixedCounter) Running() int { return int(f) }

func TestRegisterDaemons(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.RegisterDaemons(fixedCounter(2))

	expected := `
# HELP scms_daemons_running Detached daemons launched and not yet exited
# TYPE scms_daemons_running gauge
scms_daemons_running 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "scms_daemons_running"))
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
