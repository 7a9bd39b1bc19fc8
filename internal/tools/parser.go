package tools

import (
	"go/parser"
	"go/scanner"
	"go/token"
)

// Validation is the parser collaborator contract.
type Validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// GoParser validates Go source syntactically.
type GoParser struct{}

func NewGoParser() *GoParser {
	return &GoParser{}
}

func (p *GoParser) Validate(source string) Validation {
	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "generated.go", source, parser.AllErrors)
	if err == nil {
		return Validation{Valid: true}
	}

	var msgs []string
	var list scanner.ErrorList
	if el, ok := err.(scanner.ErrorList); ok {
		list = el
	}
	if len(list) > 0 {
		for _, e := range list {
			msgs = append(msgs, e.Error())
		}
	} else {
		msgs = append(msgs, err.Error())
	}
	return Validation{Valid: false, Errors: msgs}
}
