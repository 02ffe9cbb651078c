// Copyright 2026 The FCE Authors
//
// SPDX-License-Identifier: Apache-2.0

package structural

import (
	"context"
	"path/filepath"
	"testing"

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

// TestDetectAll_IsolatedModule is spec.md §8 scenario 4: a file with
// symbols, never imported, never mentioned in any expression, is an
// isolated module at high confidence.
func TestDetectAll_IsolatedModule(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteSymbol(ctx, model.Symbol{File: "orphan.py", Line: 1, Type: "function", Name: "helper"}))
	require.NoError(t, s.WriteSymbol(ctx, model.Symbol{File: "used.py", Line: 1, Type: "function", Name: "main_entry"}))
	require.NoError(t, s.WriteRef(ctx, model.Ref{SrcFile: "app.py", Kind: "from", Value: "used.py", Line: 1}))

	findings, err := DetectAll(ctx, s, Options{})
	require.NoError(t, err)

	var modules []model.DeadCodeFinding
	for _, f := range findings {
		if f.Kind == model.DeadCodeModule {
			modules = append(modules, f)
		}
	}
	require.Len(t, modules, 1)
	assert.Equal(t, "orphan.py", modules[0].File)
	assert.Equal(t, "high", modules[0].Confidence)
}

func TestDetectAll_EmptyInitPyIsLowConfidence(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	confidence, reason := classifyModule("pkg/__init__.py", 0)
	assert.Equal(t, "low", confidence)
	assert.Contains(t, reason, "empty package marker")
	_ = s
}

func TestDetectAll_CLIEntryPointIsMediumConfidence(t *testing.T) {
	confidence, _ := classifyModule("theauditor/cli.py", 3)
	assert.Equal(t, "medium", confidence)
}

// TestDetectDeadFunctions_ExcludesCalledAndJSXUsed.
func TestDetectDeadFunctions_ExcludesCalledAndJSXUsed(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteSymbol(ctx, model.Symbol{File: "a.py", Line: 1, Type: "function", Name: "called_fn"}))
	require.NoError(t, s.WriteSymbol(ctx, model.Symbol{File: "a.py", Line: 5, Type: "function", Name: "dead_fn"}))
	require.NoError(t, s.WriteSymbol(ctx, model.Symbol{File: "a.tsx", Line: 1, Type: "function", Name: "POSHome"}))

	_, err := s.Exec(ctx, `INSERT INTO function_call_args (file, line, callee_function, arg_index, argument_expr) VALUES ('b.py', 1, 'called_fn', 0, '')`)
	require.NoError(t, err)
	_, err = s.Exec(ctx, `INSERT INTO variable_usage (file, line, variable_name, usage_kind) VALUES ('routes.tsx', 1, 'POSHome', 'jsx')`)
	require.NoError(t, err)

	findings, err := detectDeadFunctions(ctx, s, Options{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "dead_fn", findings[0].Name)
}

func TestDetectDeadClasses_ExcludesBaseAndExceptionSuffixedNames(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteSymbol(ctx, model.Symbol{File: "a.py", Line: 1, Type: "class", Name: "BaseHandler"}))
	require.NoError(t, s.WriteSymbol(ctx, model.Symbol{File: "a.py", Line: 5, Type: "class", Name: "CustomError"}))
	require.NoError(t, s.WriteSymbol(ctx, model.Symbol{File: "a.py", Line: 9, Type: "class", Name: "DeadWidget"}))

	findings, err := detectDeadClasses(ctx, s, Options{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "DeadWidget", findings[0].Name)
}

func TestComputeComplexity_CountsFanInAndFanOut(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteRef(ctx, model.Ref{SrcFile: "a.py", Kind: "import", Value: "b.py", Line: 1}))
	require.NoError(t, s.WriteRef(ctx, model.Ref{SrcFile: "a.py", Kind: "import", Value: "c.py", Line: 2}))
	require.NoError(t, s.WriteRef(ctx, model.Ref{SrcFile: "d.py", Kind: "import", Value: "b.py", Line: 1}))

	facts, err := ComputeComplexity(ctx, s)
	require.NoError(t, err)

	byFile := make(map[string]model.ComplexityFact)
	for _, f := range facts {
		byFile[f.File] = f
	}
	assert.Equal(t, 2, byFile["a.py"].FanOut)
	assert.Equal(t, 2, byFile["b.py"].FanIn)
}

func TestDetectCycles_FindsTwoFileCycleOnce(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteRef(ctx, model.Ref{SrcFile: "a.py", Kind: "import", Value: "b.py", Line: 1}))
	require.NoError(t, s.WriteRef(ctx, model.Ref{SrcFile: "b.py", Kind: "import", Value: "a.py", Line: 1}))

	cycles, err := DetectCycles(ctx, s)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"a.py", "b.py"}, cycles[0].Files)
}

func TestDetectCycles_NoCycleInStraightChain(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.WriteRef(ctx, model.Ref{SrcFile: "a.py", Kind: "import", Value: "b.py", Line: 1}))
	require.NoError(t, s.WriteRef(ctx, model.Ref{SrcFile: "b.py", Kind: "import", Value: "c.py", Line: 1}))

	cycles, err := DetectCycles(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestStructuralFiles_UnionsComplexityAndCycleFiles(t *testing.T) {
	facts := []model.ComplexityFact{{File: "a.py", FanOut: 1}, {File: "z.py"}}
	cycles := []model.Cycle{{Files: []string{"b.py", "c.py"}}}
	files := StructuralFiles(facts, cycles)
	assert.True(t, files["a.py"])
	assert.True(t, files["b.py"])
	assert.True(t, files["c.py"])
	assert.False(t, files["z.py"])
}
