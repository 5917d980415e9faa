// Package nopasswordlog defines an analyzer that reports zap logger calls
// receiving a variable or struct field whose name mentions a password.
package nopasswordlog

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

const zapPackagePath = "go.uber.org/zap"

// Analyzer reports values named like passwords that reach a zap logger.
// Error values are ignored, so sentinel errors such as ErrIncorrectPassword
// may still be logged.
var Analyzer = &analysis.Analyzer{
	Name: "nopasswordlog",
	Doc:  "forbids passing password variables or fields to zap loggers",
	Run:  run,
}

var errorType = types.Universe.Lookup("error").Type().Underlying().(*types.Interface)

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok || !isZapLoggerCall(pass, call) {
				return true
			}

			for _, arg := range call.Args {
				ast.Inspect(arg, func(n ast.Node) bool {
					ident, ok := n.(*ast.Ident)
					if !ok || !mentionsPassword(ident.Name) {
						return true
					}
					if v, ok := pass.TypesInfo.ObjectOf(ident).(*types.Var); ok && !types.Implements(v.Type(), errorType) {
						pass.Reportf(ident.Pos(), "%s must not be logged", ident.Name)
					}
					return true
				})
			}

			return true
		})
	}

	return nil, nil
}

// isZapLoggerCall reports whether call is a method call on *zap.Logger or *zap.SugaredLogger.
func isZapLoggerCall(pass *analysis.Pass, call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}

	recv := pass.TypesInfo.TypeOf(sel.X)
	if recv == nil {
		return false
	}
	if ptr, ok := recv.(*types.Pointer); ok {
		recv = ptr.Elem()
	}

	named, ok := recv.(*types.Named)
	if !ok || named.Obj().Pkg() == nil {
		return false
	}

	name := named.Obj().Name()

	return named.Obj().Pkg().Path() == zapPackagePath && (name == "Logger" || name == "SugaredLogger")
}

func mentionsPassword(name string) bool {
	return strings.Contains(strings.ToLower(name), "password")
}
