// Copyright 2026 The FCE Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package indexer walks a Go repository and extracts the facts the
// resolve and analyze stages build on: the file manifest, import refs,
// symbol declarations, call sites, and assignments. It parses with the
// standard library's go/parser rather than a tree-sitter grammar,
// matching this module's Go-only scope (see DESIGN.md).
package indexer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/faultline/fce/pkg/model"
	"github.com/faultline/fce/pkg/store"
)

// excludedDirs are never descended into, matching the directories every
// Go project agrees are generated/vendored rather than authored.
var excludedDirs = map[string]bool{
	"vendor": true, "node_modules": true, ".git": true, ".hg": true, ".svn": true,
	"testdata": true, "_examples": true,
}

// Result summarizes one Index run for the caller's phase-count and
// logging needs.
type Result struct {
	Manifest []model.WorksetFile
	Refs     []model.Ref
	Files    int
	Symbols  int
	Calls    int
}

// Index walks root for .go files, records each in the store's files
// table, parses it, and writes its symbols/refs/calls/assignments.
// Parse failures are logged and skip that file rather than aborting the
// run — one malformed file should not block indexing the rest of the
// repository.
func Index(ctx context.Context, s *store.Store, root string, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			name := entry.Name()
			if name != "." && (excludedDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("indexer: walk %s: %w", root, err)
	}
	sort.Strings(paths)

	var result Result
	fset := token.NewFileSet()

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		src, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("indexer.file.read_failed", "path", rel, "error", err)
			continue
		}

		sum := sha256.Sum256(src)
		hash := hex.EncodeToString(sum[:])
		if err := s.WriteFile(ctx, rel, "go", hash, int64(len(src))); err != nil {
			return result, fmt.Errorf("indexer: write file %s: %w", rel, err)
		}
		result.Manifest = append(result.Manifest, model.WorksetFile{Path: rel, SHA256: hash})
		result.Files++

		file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
		if err != nil {
			logger.Warn("indexer.file.parse_failed", "path", rel, "error", err)
			continue
		}

		fi := &fileIndexer{ctx: ctx, s: s, fset: fset, rel: rel, result: &result}
		if err := fi.run(file); err != nil {
			return result, err
		}
	}

	return result, nil
}

// fileIndexer walks one parsed file's declarations, threading the
// enclosing function name through call/assignment extraction.
type fileIndexer struct {
	ctx    context.Context
	s      *store.Store
	fset   *token.FileSet
	rel    string
	result *Result
}

func (fi *fileIndexer) line(pos token.Pos) int {
	return fi.fset.Position(pos).Line
}

func (fi *fileIndexer) exprString(e ast.Expr) string {
	if e == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fi.fset, e); err != nil {
		return ""
	}
	return buf.String()
}

func (fi *fileIndexer) run(file *ast.File) error {
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			path = imp.Path.Value
		}
		ref := model.Ref{SrcFile: fi.rel, Kind: "import", Value: path, Line: fi.line(imp.Pos())}
		if err := fi.s.WriteRef(fi.ctx, ref); err != nil {
			return fmt.Errorf("indexer: write ref %s: %w", fi.rel, err)
		}
		fi.result.Refs = append(fi.result.Refs, ref)
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok == token.TYPE {
				if err := fi.writeTypeDecl(d); err != nil {
					return err
				}
			}
		case *ast.FuncDecl:
			if err := fi.writeFuncDecl(d); err != nil {
				return err
			}
		}
	}
	return nil
}

func (fi *fileIndexer) writeTypeDecl(d *ast.GenDecl) error {
	for _, spec := range d.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}
		kind := "type"
		switch ts.Type.(type) {
		case *ast.StructType:
			kind = "struct"
		case *ast.InterfaceType:
			kind = "interface"
		}
		sym := model.Symbol{
			File:      fi.rel,
			Line:      fi.line(ts.Pos()),
			EndLine:   fi.line(ts.End()),
			Type:      kind,
			Name:      ts.Name.Name,
			Signature: fi.exprString(ts.Type),
		}
		if err := fi.s.WriteSymbol(fi.ctx, sym); err != nil {
			return fmt.Errorf("indexer: write symbol %s.%s: %w", fi.rel, ts.Name.Name, err)
		}
		fi.result.Symbols++
	}
	return nil
}

func (fi *fileIndexer) writeFuncDecl(d *ast.FuncDecl) error {
	name := d.Name.Name
	kind := "function"
	if d.Recv != nil && len(d.Recv.List) > 0 {
		kind = "method"
		name = fi.exprString(stripPointer(d.Recv.List[0].Type)) + "." + name
	}

	sym := model.Symbol{
		File:      fi.rel,
		Line:      fi.line(d.Pos()),
		EndLine:   fi.line(d.End()),
		Type:      kind,
		Name:      name,
		Signature: fi.exprString(d.Type),
	}
	if d.Body != nil {
		sum := sha256.Sum256([]byte(fi.exprString(d.Type) + fi.bodyText(d.Body)))
		sym.ContentHash = hex.EncodeToString(sum[:8])
	}
	if err := fi.s.WriteSymbol(fi.ctx, sym); err != nil {
		return fmt.Errorf("indexer: write symbol %s.%s: %w", fi.rel, name, err)
	}
	fi.result.Symbols++

	if d.Body == nil {
		return nil
	}
	return fi.walkBody(d.Body, name)
}

func (fi *fileIndexer) bodyText(body *ast.BlockStmt) string {
	return fmt.Sprintf("%d-%d", body.Pos(), body.End())
}

func stripPointer(e ast.Expr) ast.Expr {
	if star, ok := e.(*ast.StarExpr); ok {
		return star.X
	}
	return e
}

// walkBody records every call site and assignment inside a function
// body, attributing them to inFunc. Nested function literals are walked
// under the same attribution: a closure's calls still belong to the
// function that defines it for taint-tracking purposes.
func (fi *fileIndexer) walkBody(body *ast.BlockStmt, inFunc string) error {
	var walkErr error
	ast.Inspect(body, func(n ast.Node) bool {
		if walkErr != nil {
			return false
		}
		switch node := n.(type) {
		case *ast.CallExpr:
			args := make([]string, 0, len(node.Args))
			for _, a := range node.Args {
				args = append(args, fi.exprString(a))
			}
			call := model.Call{
				CallerFile: fi.rel,
				CallerFunc: inFunc,
				CallerLine: fi.line(node.Pos()),
				Callee:     fi.exprString(node.Fun),
				ArgExpr:    strings.Join(args, ", "),
			}
			if err := fi.s.WriteCall(fi.ctx, call); err != nil {
				walkErr = fmt.Errorf("indexer: write call in %s: %w", fi.rel, err)
				return false
			}
			fi.result.Calls++
		case *ast.AssignStmt:
			for i, lhs := range node.Lhs {
				if i >= len(node.Rhs) {
					break
				}
				a := model.Assignment{
					File:       fi.rel,
					Line:       fi.line(node.Pos()),
					Target:     fi.exprString(lhs),
					SourceExpr: fi.exprString(node.Rhs[i]),
					InFunction: inFunc,
				}
				if err := fi.s.WriteAssignment(fi.ctx, a); err != nil {
					walkErr = fmt.Errorf("indexer: write assignment in %s: %w", fi.rel, err)
					return false
				}
			}
		case *ast.ValueSpec:
			for i, name := range node.Names {
				if i >= len(node.Values) {
					break
				}
				a := model.Assignment{
					File:       fi.rel,
					Line:       fi.line(node.Pos()),
					Target:     name.Name,
					SourceExpr: fi.exprString(node.Values[i]),
					InFunction: inFunc,
				}
				if err := fi.s.WriteAssignment(fi.ctx, a); err != nil {
					walkErr = fmt.Errorf("indexer: write assignment in %s: %w", fi.rel, err)
					return false
				}
			}
		}
		return true
	})
	return walkErr
}
