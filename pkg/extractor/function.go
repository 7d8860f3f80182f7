package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ExtractParts locates the definition of name in src and returns its
// signature, return type, and body text.
func ExtractParts(src []byte, lang Language, name string) (*FunctionParts, error) {
	tree := parse(src, lang)
	defer tree.Close()

	funcNode := findFunction(tree.RootNode(), src, name)
	if funcNode == nil {
		return nil, &FunctionNotFoundError{Name: name}
	}

	return partsFromNode(funcNode, src)
}

// Locate returns the byte span of the whole definition of name in src,
// so a caller can splice replacement text back into the surrounding file.
func Locate(src []byte, lang Language, name string) (Span, error) {
	tree := parse(src, lang)
	defer tree.Close()

	funcNode := findFunction(tree.RootNode(), src, name)
	if funcNode == nil {
		return Span{}, &FunctionNotFoundError{Name: name}
	}

	return Span{Start: int(funcNode.StartByte()), End: int(funcNode.EndByte())}, nil
}

// ListFunctions enumerates every function definition in src.
func ListFunctions(src []byte, lang Language) []FunctionInfo {
	tree := parse(src, lang)
	defer tree.Close()

	var infos []FunctionInfo
	walkForFunctions(tree.RootNode(), func(node *sitter.Node) {
		name, params, stars := declaratorParts(node, src)
		if name == "" {
			return
		}
		infos = append(infos, FunctionInfo{
			Name:       name,
			Params:     params,
			ReturnType: returnType(node, src, stars),
			LineNumber: int(node.StartPoint().Row) + 1,
		})
	})
	return infos
}

// findFunction walks the tree for a function_definition whose declared
// name matches name.
func findFunction(node *sitter.Node, src []byte, name string) *sitter.Node {
	var found *sitter.Node
	walkForFunctions(node, func(fn *sitter.Node) {
		if found != nil {
			return
		}
		declared, _, _ := declaratorParts(fn, src)
		if declared == name {
			found = fn
		}
	})
	return found
}

// walkForFunctions visits every function_definition node under node.
func walkForFunctions(node *sitter.Node, visit func(*sitter.Node)) {
	if node == nil {
		return
	}
	if node.Type() == "function_definition" {
		visit(node)
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkForFunctions(node.Child(i), visit)
	}
}

// partsFromNode splits a function_definition node into its parts. The body
// is the interior of the compound_statement; relying on the parse tree
// keeps nested braces intact where textual matching would truncate them.
func partsFromNode(node *sitter.Node, src []byte) (*FunctionParts, error) {
	body := findChildByType(node, "compound_statement")
	if body == nil {
		name, _, _ := declaratorParts(node, src)
		return nil, &FunctionNotFoundError{Name: name}
	}

	signature := strings.TrimSpace(string(src[node.StartByte():body.StartByte()]))

	bodyText := string(src[body.StartByte():body.EndByte()])
	bodyText = strings.TrimPrefix(bodyText, "{")
	bodyText = strings.TrimSuffix(bodyText, "}")

	_, _, stars := declaratorParts(node, src)

	return &FunctionParts{
		Signature:  signature,
		ReturnType: returnType(node, src, stars),
		Body:       bodyText,
	}, nil
}

// returnType assembles the declared return type of a definition, appending
// one star per pointer_declarator level.
func returnType(node *sitter.Node, src []byte, stars int) string {
	var base string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "primitive_type", "type_identifier", "sized_type_specifier",
			"struct_specifier", "enum_specifier", "qualified_identifier",
			"template_type":
			if base == "" {
				base = nodeText(child, src)
			}
		}
	}
	if base == "" {
		return ""
	}
	if stars > 0 {
		return base + " " + strings.Repeat("*", stars)
	}
	return base
}

// declaratorParts digs through the declarator chain of a function_definition
// and returns the declared name, the parameter list text, and the pointer
// depth contributed by pointer_declarator wrappers.
func declaratorParts(node *sitter.Node, src []byte) (name, params string, stars int) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "function_declarator":
			name, params = functionDeclarator(child, src)
			return name, params, stars
		case "pointer_declarator", "parenthesized_declarator":
			n, p, s := pointerDeclarator(child, src)
			if n != "" {
				return n, p, stars + s
			}
		}
	}
	return "", "", 0
}

// pointerDeclarator unwraps pointer/parenthesized declarators, counting
// pointer levels until the function_declarator is reached.
func pointerDeclarator(node *sitter.Node, src []byte) (name, params string, stars int) {
	if node.Type() == "pointer_declarator" {
		stars = 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "function_declarator":
			name, params = functionDeclarator(child, src)
			return name, params, stars
		case "pointer_declarator", "parenthesized_declarator":
			n, p, s := pointerDeclarator(child, src)
			if n != "" {
				return n, p, stars + s
			}
		}
	}
	return "", "", 0
}

// functionDeclarator extracts the identifier and parameter list from a
// function_declarator node.
func functionDeclarator(node *sitter.Node, src []byte) (name, params string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "field_identifier", "qualified_identifier":
			if name == "" {
				name = nodeText(child, src)
			}
		case "parenthesized_declarator":
			n, p := functionDeclaratorInParens(child, src)
			if name == "" {
				name = n
			}
			if params == "" {
				params = p
			}
		case "parameter_list":
			params = nodeText(child, src)
		}
	}
	return name, params
}

func functionDeclaratorInParens(node *sitter.Node, src []byte) (string, string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == "function_declarator" {
			return functionDeclarator(child, src)
		}
	}
	return "", ""
}

func findChildByType(node *sitter.Node, childType string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == childType {
			return child
		}
	}
	return nil
}

func nodeText(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start >= uint32(len(src)) || end > uint32(len(src)) {
		return ""
	}
	return string(src[start:end])
}
