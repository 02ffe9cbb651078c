// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package boundaries

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeCall(t *testing.T, s *store.Store, file, caller, callee string) {
	t.Helper()
	require.NoError(t, s.WriteCall(context.Background(), model.Call{CallerFile: file, CallerFunc: caller, CallerLine: 1, Callee: callee}))
}

func TestAnalyze_ClassifiesAcceptableAtDistanceOne(t *testing.T) {
	s := openTestStore(t)
	writeCall(t, s, "auth.go", "HandleLogin", "validateInput")
	writeCall(t, s, "auth.go", "validateInput", "doStuff")

	findings, err := Analyze(context.Background(), s, time.Now())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "boundary-acceptable", findings[0].Rule)
	assert.Equal(t, 1, findings[0].Details["distance"])
}

func TestAnalyze_ClassifiesMissingWhenNoControlReached(t *testing.T) {
	s := openTestStore(t)
	writeCall(t, s, "raw.go", "HandleRaw", "doStuff")
	writeCall(t, s, "raw.go", "doStuff", "writeFile")

	findings, err := Analyze(context.Background(), s, time.Now())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "boundary-missing", findings[0].Rule)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
}

func TestClassify_MultipleControlsAreFuzzy(t *testing.T) {
	assert.Equal(t, QualityFuzzy, classify(2, 1))
}

func TestClassify_DistanceZeroIsClear(t *testing.T) {
	assert.Equal(t, QualityClear, classify(1, 0))
}
