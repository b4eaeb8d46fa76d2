package handler_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIHandlers_CarrySwagAnnotations(t *testing.T) {
	for _, file := range []string{"invoice_handler.go", "job_handler.go"} {
		f, err := parser.ParseFile(token.NewFileSet(), file, nil, parser.ParseComments)
		require.NoError(t, err)

		for _, decl := range f.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || !fn.Name.IsExported() {
				continue
			}
			require.NotNil(t, fn.Doc, "%s: %s has no doc comment", file, fn.Name.Name)
			doc := fn.Doc.Text()
			for _, tag := range []string{"@Summary", "@Tags", "@Produce", "@Param X-User-ID header", "@Success", "@Failure", "@Router"} {
				assert.True(t, strings.Contains(doc, tag), "%s: %s missing %s", file, fn.Name.Name, tag)
			}
		}
	}
}
