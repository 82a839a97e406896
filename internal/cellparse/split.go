package cellparse

import (
	"fmt"
	"go/scanner"
	"go/token"
)

// splitImports separates the leading run of import declarations from the
// rest of the cell. Only a token scan is needed: imports are valid solely at
// the top of a cell, so the split point is the end of the last import
// declaration before the first non-import token.
func splitImports(src string) (imports, body string, err error) {
	fset := token.NewFileSet()
	file := fset.AddFile("cell.go", fset.Base(), len(src))
	var s scanner.Scanner
	s.Init(file, []byte(src), nil, 0)

	end := 0
scan:
	for {
		_, tok, _ := s.Scan()
		switch tok {
		case token.SEMICOLON:
			// Separator between import declarations, real or auto-inserted.
		case token.IMPORT:
			declEnd, derr := scanImportDecl(&s, file)
			if derr != nil {
				return "", "", derr
			}
			end = declEnd
		default:
			break scan
		}
	}
	return src[:end], src[end:], nil
}

// scanImportDecl consumes one import declaration after its `import` keyword
// and returns the byte offset just past its final token.
func scanImportDecl(s *scanner.Scanner, file *token.File) (int, error) {
	pos, tok, lit := s.Scan()
	switch tok {
	case token.STRING:
		return file.Offset(pos) + len(lit), nil

	case token.IDENT, token.PERIOD:
		pos2, tok2, lit2 := s.Scan()
		if tok2 != token.STRING {
			return 0, fmt.Errorf("syntax error: malformed import")
		}
		return file.Offset(pos2) + len(lit2), nil

	case token.LPAREN:
		for {
			pos2, tok2, _ := s.Scan()
			switch tok2 {
			case token.RPAREN:
				return file.Offset(pos2) + 1, nil
			case token.STRING, token.IDENT, token.PERIOD, token.SEMICOLON:
				// Elements and separators of the factored list.
			case token.EOF:
				return 0, fmt.Errorf("syntax error: unterminated import block")
			default:
				return 0, fmt.Errorf("syntax error: malformed import block")
			}
		}

	default:
		return 0, fmt.Errorf("syntax error: malformed import")
	}
}
