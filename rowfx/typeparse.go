package rowfx

import (
	"fmt"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/cottand/rowfx/frontend/ir"
)

// typeParser reads the compact notation value types and effect rows are written in:
//
//	Int   List[a]   Fn(Int, a) -> Unit !{Console, State[Int] | e}
//	{}    {Console}   {IO | e}   e
//
// Lowercase names, and names in typeParams, are type variables
type typeParser struct {
	s          scanner.Scanner
	tok        rune
	src        string
	at         ir.Range
	typeParams map[string]bool
	err        error
}

func newTypeParser(src string, at ir.Range, typeParams []string) *typeParser {
	p := &typeParser{src: src, at: at, typeParams: make(map[string]bool, len(typeParams))}
	for _, tp := range typeParams {
		p.typeParams[tp] = true
	}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents
	p.s.IsIdentRune = func(ch rune, i int) bool {
		return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch) && i > 0
	}
	p.s.Error = func(_ *scanner.Scanner, msg string) { p.fail("%s", msg) }
	p.next()
	return p
}

func (p *typeParser) next() {
	p.tok = p.s.Scan()
}

func (p *typeParser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("in %q at column %d: %s", p.src, p.s.Position.Column, fmt.Sprintf(format, args...))
	}
}

func (p *typeParser) describe(tok rune) string {
	if tok == scanner.EOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", p.s.TokenText())
}

func (p *typeParser) expect(tok rune) {
	if p.tok != tok {
		p.fail("expected %q, found %s", tok, p.describe(p.tok))
		return
	}
	p.next()
}

func (p *typeParser) ident() string {
	if p.tok != scanner.Ident {
		p.fail("expected a name, found %s", p.describe(p.tok))
		return ""
	}
	name := p.s.TokenText()
	p.next()
	return name
}

func (p *typeParser) done() error {
	if p.err == nil && p.tok != scanner.EOF {
		p.fail("unexpected %s", p.describe(p.tok))
	}
	return p.err
}

func (p *typeParser) isTypeVar(name string) bool {
	return p.typeParams[name] || unicode.IsLower([]rune(name)[0])
}

func (p *typeParser) parseType() ir.Type {
	if p.err != nil {
		return nil
	}
	name := p.ident()
	if name == "" {
		return nil
	}
	if name == "Fn" && p.tok == '(' {
		return p.parseFn()
	}
	if p.tok != '[' {
		if p.isTypeVar(name) {
			return &ir.TypeVar{Range: p.at, Name: name}
		}
		return &ir.TypeName{Range: p.at, Name: name}
	}
	return &ir.TypeName{Range: p.at, Name: name, Args: p.parseTypeArgs()}
}

func (p *typeParser) parseTypeArgs() []ir.Type {
	p.expect('[')
	var args []ir.Type
	for p.err == nil && p.tok != ']' {
		args = append(args, p.parseType())
		if p.tok != ',' {
			break
		}
		p.next()
	}
	p.expect(']')
	return args
}

func (p *typeParser) parseFn() ir.Type {
	fn := &ir.FnType{Range: p.at}
	p.expect('(')
	for p.err == nil && p.tok != ')' {
		fn.Params = append(fn.Params, p.parseType())
		if p.tok != ',' {
			break
		}
		p.next()
	}
	p.expect(')')
	p.expect('-')
	p.expect('>')
	fn.Ret = p.parseType()
	if p.tok == '!' {
		p.next()
		fn.Effects = p.parseRow()
	}
	return fn
}

// parseRow reads `{A, B[T] | tail}`, or a lone row variable
func (p *typeParser) parseRow() *ir.RowAnnotation {
	row := &ir.RowAnnotation{Range: p.at}
	if p.tok == scanner.Ident {
		row.Tail = p.ident()
		return row
	}
	p.expect('{')
	for p.err == nil && p.tok == scanner.Ident {
		row.Effects = append(row.Effects, p.parseEffectRef())
		if p.tok != ',' {
			break
		}
		p.next()
	}
	if p.tok == '|' {
		p.next()
		row.Tail = p.ident()
	}
	p.expect('}')
	return row
}

// parseEffectRef reads a single `Name` or `Name[T...]`
func (p *typeParser) parseEffectRef() ir.EffectRef {
	ref := ir.EffectRef{Range: p.at, Name: p.ident()}
	if p.tok == '[' {
		ref.Args = p.parseTypeArgs()
	}
	return ref
}

// ParseType reads a value type written in the compact notation
func ParseType(src string) (ir.Type, error) {
	p := newTypeParser(src, ir.Range{}, nil)
	t := p.parseType()
	return t, p.done()
}

// ParseRow reads an effect row written in the compact notation
func ParseRow(src string) (*ir.RowAnnotation, error) {
	p := newTypeParser(src, ir.Range{}, nil)
	row := p.parseRow()
	return row, p.done()
}
