// Package extractor locates C/C++ function definitions in source text and
// splits them into signature, return type, and body. It is the front end of
// the obfuscation engine: transforms operate on the parts it produces, and
// callers use the reported spans to splice transformed text back into files.
package extractor

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
)

// Language identifies a supported source language.
type Language string

const (
	C   Language = "c"
	CPP Language = "cpp"
)

// FunctionParts holds the pieces of a single function definition.
// Signature covers everything up to the opening brace of the body;
// Body is the text between the braces, braces excluded.
type FunctionParts struct {
	Signature  string
	ReturnType string
	Body       string
}

// FunctionInfo describes a function definition found in a source file.
type FunctionInfo struct {
	Name       string
	Params     string
	ReturnType string
	LineNumber int
}

// Span is a half-open byte range [Start, End) within the source text.
type Span struct {
	Start int
	End   int
}

// FunctionNotFoundError reports that the named function has no definition
// in the given source text.
type FunctionNotFoundError struct {
	Name string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function %q not found", e.Name)
}

// parserPools holds reusable tree-sitter parsers per language.
var parserPools = map[Language]*sync.Pool{
	C: {
		New: func() interface{} {
			parser := sitter.NewParser()
			parser.SetLanguage(c.GetLanguage())
			return parser
		},
	},
	CPP: {
		New: func() interface{} {
			parser := sitter.NewParser()
			parser.SetLanguage(cpp.GetLanguage())
			return parser
		},
	},
}

// LanguageForFile maps a file path to its language by extension.
// Unknown extensions default to C, which also handles bare function text.
func LanguageForFile(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx":
		return CPP
	default:
		return C
	}
}

// parse runs the pooled parser for lang over src and returns the tree.
// The caller must Close the tree.
func parse(src []byte, lang Language) *sitter.Tree {
	pool, ok := parserPools[lang]
	if !ok {
		pool = parserPools[C]
	}
	parser := pool.Get().(*sitter.Parser)
	defer pool.Put(parser)
	return parser.Parse(nil, src)
}
