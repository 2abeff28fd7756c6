package rowfx

import (
	_ "embed"
	"fmt"
	"go/token"
	"io/fs"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cottand/rowfx/frontend/ir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SupportedFormats are the versions of the program format LoadProgram reads
const SupportedFormats = "^1.0"

const defaultFormat = "1.0"

var rangeNone = ir.Range{}

//go:embed prelude.yaml
var preludeSource []byte

const preludePath = "rowfx/prelude.yaml"

// LoadProgram reads the program at path in fsys. Positions in the resulting
// program resolve against its FileSet
func LoadProgram(fsys fs.FS, path string) (*ir.Program, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading program %s", path)
	}
	return ParseProgram(data, path, token.NewFileSet())
}

// ParseProgram decodes the YAML encoding of a typed program.
// The path argument is used for positions and error messages. A nil fset gets a new FileSet
func ParseProgram(data []byte, path string, fset *token.FileSet) (*ir.Program, error) {
	if fset == nil {
		fset = token.NewFileSet()
	}
	d, root, err := newDecoder(data, path, fset)
	if err != nil {
		return nil, err
	}
	prog, usePrelude, err := d.program(root)
	if err != nil {
		return nil, err
	}
	prog.FileSet = fset
	if usePrelude {
		prelude, err := loadPrelude(fset)
		if err != nil {
			return nil, errors.Wrap(err, "loading prelude")
		}
		var effects []*ir.EffectDecl
		for _, e := range prelude {
			declared := slices.ContainsFunc(prog.Effects, func(own *ir.EffectDecl) bool { return own.Name == e.Name })
			if !declared {
				effects = append(effects, e)
			}
		}
		prog.Effects = append(effects, prog.Effects...)
	}
	return prog, nil
}

// Prelude returns the effects programs get when they ask for the prelude
func Prelude() []*ir.EffectDecl {
	effects, err := loadPrelude(token.NewFileSet())
	if err != nil {
		panic(fmt.Sprintf("invalid prelude: %v", err))
	}
	return effects
}

func loadPrelude(fset *token.FileSet) ([]*ir.EffectDecl, error) {
	d, root, err := newDecoder(preludeSource, preludePath, fset)
	if err != nil {
		return nil, err
	}
	prog, _, err := d.program(root)
	if err != nil {
		return nil, err
	}
	return prog.Effects, nil
}

type decoder struct {
	path string
	file *token.File
	// typeParams are the type parameters of the effect being decoded
	typeParams []string
}

func newDecoder(data []byte, path string, fset *token.FileSet) (*decoder, *yaml.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, errors.Wrapf(err, "parsing %s", path)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil, errors.Errorf("%s: empty program", path)
	}
	file := fset.AddFile(path, -1, len(data))
	file.SetLinesForContent(data)
	return &decoder{path: path, file: file}, &root, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && (n.Kind == yaml.AliasNode || n.Kind == yaml.DocumentNode) {
		if n.Kind == yaml.AliasNode {
			n = n.Alias
		} else {
			n = n.Content[0]
		}
	}
	return n
}

func isNull(n *yaml.Node) bool {
	n = resolve(n)
	return n == nil || n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...any) error {
	if n == nil {
		return errors.Errorf("%s: %s", d.path, fmt.Sprintf(format, args...))
	}
	return errors.Errorf("%s:%d:%d: %s", d.path, n.Line, n.Column, fmt.Sprintf(format, args...))
}

func (d *decoder) pos(n *yaml.Node) token.Pos {
	if n == nil || n.Line <= 0 || n.Line > d.file.LineCount() {
		return token.NoPos
	}
	pos := d.file.LineStart(n.Line) + token.Pos(n.Column-1)
	return min(pos, d.limit())
}

func (d *decoder) limit() token.Pos {
	return token.Pos(d.file.Base() + d.file.Size())
}

// end is the position right after the last scalar within n
func (d *decoder) end(n *yaml.Node) token.Pos {
	n = resolve(n)
	if n == nil {
		return token.NoPos
	}
	if n.Kind == yaml.ScalarNode {
		start := d.pos(n)
		if !start.IsValid() {
			return start
		}
		return min(start+token.Pos(len(n.Value)), d.limit())
	}
	end := d.pos(n)
	for _, child := range n.Content {
		end = max(end, d.end(child))
	}
	return end
}

func (d *decoder) rangeOf(n *yaml.Node) ir.Range {
	return ir.Range{PosStart: d.pos(n), PosEnd: d.end(n)}
}

type mapping map[string]*yaml.Node

// mappingOf reads the fields of n, which may only be allowed ones
func (d *decoder) mappingOf(n *yaml.Node, what string, allowed ...string) (mapping, error) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, "expected %s to be a mapping", what)
	}
	m := make(mapping, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if !slices.Contains(allowed, key.Value) {
			return nil, d.errorf(key, "unknown field %q in %s, expected one of %s", key.Value, what, strings.Join(allowed, ", "))
		}
		if _, dup := m[key.Value]; dup {
			return nil, d.errorf(key, "duplicate field %q in %s", key.Value, what)
		}
		m[key.Value] = n.Content[i+1]
	}
	return m, nil
}

func (d *decoder) str(n *yaml.Node, what string) (string, error) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.ScalarNode || isNull(n) {
		return "", d.errorf(n, "expected %s to be a string", what)
	}
	return n.Value, nil
}

func (d *decoder) requiredStr(m mapping, key string, parent *yaml.Node, what string) (string, error) {
	n, ok := m[key]
	if !ok {
		return "", d.errorf(parent, "%s: %s is required", what, key)
	}
	return d.str(n, what+"."+key)
}

func (d *decoder) boolean(n *yaml.Node, what string) (bool, error) {
	if isNull(n) {
		return false, nil
	}
	var b bool
	if err := resolve(n).Decode(&b); err != nil {
		return false, d.errorf(n, "expected %s to be a boolean", what)
	}
	return b, nil
}

// seq returns the items of a sequence. A missing field is an empty sequence
func (d *decoder) seq(n *yaml.Node, what string) ([]*yaml.Node, error) {
	if isNull(n) {
		return nil, nil
	}
	n = resolve(n)
	if n.Kind != yaml.SequenceNode {
		return nil, d.errorf(n, "expected %s to be a list", what)
	}
	return n.Content, nil
}

func (d *decoder) typ(n *yaml.Node) (ir.Type, error) {
	if isNull(n) {
		return nil, nil
	}
	src, err := d.str(n, "type")
	if err != nil {
		return nil, err
	}
	p := newTypeParser(src, d.rangeOf(n), d.typeParams)
	t := p.parseType()
	if err := p.done(); err != nil {
		return nil, d.errorf(n, "invalid type: %v", err)
	}
	return t, nil
}

func (d *decoder) types(n *yaml.Node, what string) ([]ir.Type, error) {
	items, err := d.seq(n, what)
	if err != nil {
		return nil, err
	}
	ts := make([]ir.Type, len(items))
	for i, item := range items {
		if ts[i], err = d.typ(item); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

func (d *decoder) row(n *yaml.Node) (*ir.RowAnnotation, error) {
	if isNull(n) {
		return nil, nil
	}
	src, err := d.str(n, "effect row")
	if err != nil {
		return nil, err
	}
	p := newTypeParser(src, d.rangeOf(n), d.typeParams)
	row := p.parseRow()
	if err := p.done(); err != nil {
		return nil, d.errorf(n, "invalid effect row: %v", err)
	}
	return row, nil
}

func (d *decoder) checkFormat(n *yaml.Node) error {
	format := defaultFormat
	if n != nil {
		var err error
		if format, err = d.str(n, "format"); err != nil {
			return err
		}
	}
	version, err := semver.NewVersion(format)
	if err != nil {
		return d.errorf(n, "invalid format version %q: %v", format, err)
	}
	constraint, err := semver.NewConstraint(SupportedFormats)
	if err != nil {
		return errors.Wrap(err, "invalid supported formats")
	}
	if !constraint.Check(version) {
		return d.errorf(n, "unsupported format %s, expected %s", version, SupportedFormats)
	}
	return nil
}

func (d *decoder) program(root *yaml.Node) (*ir.Program, bool, error) {
	m, err := d.mappingOf(root, "program", "format", "name", "prelude", "effects", "aliases", "functions")
	if err != nil {
		return nil, false, err
	}
	if err := d.checkFormat(m["format"]); err != nil {
		return nil, false, err
	}
	prog := &ir.Program{Name: strings.TrimSuffix(d.path, ".yaml")}
	if n, ok := m["name"]; ok {
		if prog.Name, err = d.str(n, "name"); err != nil {
			return nil, false, err
		}
	}
	usePrelude, err := d.boolean(m["prelude"], "prelude")
	if err != nil {
		return nil, false, err
	}

	effects, err := d.seq(m["effects"], "effects")
	if err != nil {
		return nil, false, err
	}
	for _, n := range effects {
		decl, err := d.effectDecl(n)
		if err != nil {
			return nil, false, err
		}
		prog.Effects = append(prog.Effects, decl)
	}

	aliases, err := d.seq(m["aliases"], "aliases")
	if err != nil {
		return nil, false, err
	}
	for _, n := range aliases {
		alias, err := d.alias(n)
		if err != nil {
			return nil, false, err
		}
		prog.Aliases = append(prog.Aliases, alias)
	}

	functions, err := d.seq(m["functions"], "functions")
	if err != nil {
		return nil, false, err
	}
	seen := make(map[string]bool, len(functions))
	for _, n := range functions {
		fn, err := d.funcDecl(n)
		if err != nil {
			return nil, false, err
		}
		if seen[fn.Name] {
			return nil, false, d.errorf(n, "function %s is declared twice", fn.Name)
		}
		seen[fn.Name] = true
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, usePrelude, nil
}

func (d *decoder) effectDecl(n *yaml.Node) (*ir.EffectDecl, error) {
	m, err := d.mappingOf(n, "effect", "name", "kind", "type_params", "suspends", "ops")
	if err != nil {
		return nil, err
	}
	decl := &ir.EffectDecl{Range: d.rangeOf(n), Kind: ir.TailResumptive}
	if decl.Name, err = d.requiredStr(m, "name", n, "effect"); err != nil {
		return nil, err
	}
	if kindNode, ok := m["kind"]; ok {
		kind, err := d.str(kindNode, "kind")
		if err != nil {
			return nil, err
		}
		decl.Kind = ir.ResumeKind(kind)
		if !slices.Contains([]ir.ResumeKind{ir.TailResumptive, ir.OneShot, ir.MultiShot}, decl.Kind) {
			return nil, d.errorf(kindNode, "unknown kind %q for effect %s", kind, decl.Name)
		}
	}
	if decl.Suspends, err = d.boolean(m["suspends"], "suspends"); err != nil {
		return nil, err
	}
	params, err := d.seq(m["type_params"], "type_params")
	if err != nil {
		return nil, err
	}
	for _, p := range params {
		name, err := d.str(p, "type parameter")
		if err != nil {
			return nil, err
		}
		decl.TypeParams = append(decl.TypeParams, name)
	}

	d.typeParams = decl.TypeParams
	defer func() { d.typeParams = nil }()
	ops, err := d.seq(m["ops"], "ops")
	if err != nil {
		return nil, err
	}
	for _, opNode := range ops {
		om, err := d.mappingOf(opNode, "operation", "name", "params", "ret")
		if err != nil {
			return nil, err
		}
		op := ir.OpDecl{Range: d.rangeOf(opNode)}
		if op.Name, err = d.requiredStr(om, "name", opNode, "operation"); err != nil {
			return nil, err
		}
		if _, dup := decl.Op(op.Name); dup {
			return nil, d.errorf(opNode, "operation %s.%s is declared twice", decl.Name, op.Name)
		}
		if op.Params, err = d.types(om["params"], "params"); err != nil {
			return nil, err
		}
		if op.Ret, err = d.typ(om["ret"]); err != nil {
			return nil, err
		}
		decl.Ops = append(decl.Ops, op)
	}
	return decl, nil
}

func (d *decoder) alias(n *yaml.Node) (*ir.EffectAlias, error) {
	m, err := d.mappingOf(n, "alias", "name", "effects")
	if err != nil {
		return nil, err
	}
	alias := &ir.EffectAlias{Range: d.rangeOf(n)}
	if alias.Name, err = d.requiredStr(m, "name", n, "alias"); err != nil {
		return nil, err
	}
	row, err := d.row(m["effects"])
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, d.errorf(n, "alias %s: effects is required", alias.Name)
	}
	if row.Tail != "" {
		return nil, d.errorf(m["effects"], "alias %s must name a closed row", alias.Name)
	}
	alias.Effects = row.Effects
	return alias, nil
}

func (d *decoder) param(n *yaml.Node) (ir.Param, error) {
	n = resolve(n)
	if n != nil && n.Kind == yaml.ScalarNode {
		name, err := d.str(n, "parameter")
		return ir.Param{Range: d.rangeOf(n), Name: name}, err
	}
	m, err := d.mappingOf(n, "parameter", "name", "type")
	if err != nil {
		return ir.Param{}, err
	}
	p := ir.Param{Range: d.rangeOf(n)}
	if p.Name, err = d.requiredStr(m, "name", n, "parameter"); err != nil {
		return ir.Param{}, err
	}
	if p.Type, err = d.typ(m["type"]); err != nil {
		return ir.Param{}, err
	}
	return p, nil
}

func (d *decoder) params(n *yaml.Node) ([]ir.Param, error) {
	items, err := d.seq(n, "params")
	if err != nil {
		return nil, err
	}
	params := make([]ir.Param, len(items))
	for i, item := range items {
		if params[i], err = d.param(item); err != nil {
			return nil, err
		}
	}
	return params, nil
}

func (d *decoder) funcDecl(n *yaml.Node) (*ir.FuncDecl, error) {
	m, err := d.mappingOf(n, "function", "name", "params", "ret", "effects", "where", "entry", "body")
	if err != nil {
		return nil, err
	}
	fn := &ir.FuncDecl{Range: d.rangeOf(n)}
	if fn.Name, err = d.requiredStr(m, "name", n, "function"); err != nil {
		return nil, err
	}
	if fn.Params, err = d.params(m["params"]); err != nil {
		return nil, err
	}
	if fn.Ret, err = d.typ(m["ret"]); err != nil {
		return nil, err
	}
	if fn.Effects, err = d.row(m["effects"]); err != nil {
		return nil, err
	}
	if fn.Entry, err = d.boolean(m["entry"], "entry"); err != nil {
		return nil, err
	}
	if where := resolve(m["where"]); !isNull(where) {
		if where.Kind != yaml.MappingNode {
			return nil, d.errorf(where, "expected where to map row variables to effect rows")
		}
		for i := 0; i+1 < len(where.Content); i += 2 {
			key, value := where.Content[i], where.Content[i+1]
			row, err := d.row(value)
			if err != nil {
				return nil, err
			}
			if row == nil || row.Tail != "" {
				return nil, d.errorf(value, "the bound of %s must be a closed row", key.Value)
			}
			fn.Bounds = append(fn.Bounds, ir.Bound{Range: d.rangeOf(value), Var: key.Value, Effects: *row})
		}
	}
	if body, ok := m["body"]; ok && !isNull(body) {
		if fn.Body, err = d.expr(body); err != nil {
			return nil, err
		}
	}
	return fn, nil
}

var exprKeywords = []string{"lit", "var", "perform", "call", "fn", "let", "block", "if", "handle", "resume", "ascribe"}

func (d *decoder) exprs(n *yaml.Node, what string) ([]ir.Expr, error) {
	items, err := d.seq(n, what)
	if err != nil {
		return nil, err
	}
	es := make([]ir.Expr, len(items))
	for i, item := range items {
		if es[i], err = d.expr(item); err != nil {
			return nil, err
		}
	}
	return es, nil
}

// scalarExpr reads the shorthands for literals and variables: quoted strings and
// numbers are literals, plain words are variables
func (d *decoder) scalarExpr(n *yaml.Node) (ir.Expr, error) {
	r := d.rangeOf(n)
	switch {
	case isNull(n):
		return nil, d.errorf(n, "expected an expression, found null")
	case n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0:
		return &ir.Literal{Range: r, Syntax: n.Value, Type: &ir.TypeName{Range: r, Name: "String"}}, nil
	case n.ShortTag() == "!!int":
		return &ir.Literal{Range: r, Syntax: n.Value, Type: &ir.TypeName{Range: r, Name: "Int"}}, nil
	case n.ShortTag() == "!!float":
		return &ir.Literal{Range: r, Syntax: n.Value, Type: &ir.TypeName{Range: r, Name: "Float"}}, nil
	case n.ShortTag() == "!!bool":
		return &ir.Literal{Range: r, Syntax: n.Value, Type: &ir.TypeName{Range: r, Name: "Bool"}}, nil
	default:
		return &ir.Var{Range: r, Name: n.Value}, nil
	}
}

func (d *decoder) expr(n *yaml.Node) (ir.Expr, error) {
	n = resolve(n)
	if n == nil {
		return nil, errors.Errorf("%s: missing expression", d.path)
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return d.scalarExpr(n)
	case yaml.SequenceNode:
		es, err := d.exprs(n, "block")
		return &ir.Block{Range: d.rangeOf(n), Exprs: es}, err
	case yaml.MappingNode:
	default:
		return nil, d.errorf(n, "expected an expression")
	}

	keyword := ""
	for i := 0; i < len(n.Content); i += 2 {
		if slices.Contains(exprKeywords, n.Content[i].Value) {
			keyword = n.Content[i].Value
			break
		}
	}
	r := d.rangeOf(n)
	switch keyword {
	case "lit":
		m, err := d.mappingOf(n, "literal", "lit", "type")
		if err != nil {
			return nil, err
		}
		lit := &ir.Literal{Range: r}
		if lit.Syntax, err = d.str(m["lit"], "lit"); err != nil {
			return nil, err
		}
		lit.Type, err = d.typ(m["type"])
		return lit, err

	case "var":
		m, err := d.mappingOf(n, "variable", "var")
		if err != nil {
			return nil, err
		}
		name, err := d.str(m["var"], "var")
		return &ir.Var{Range: r, Name: name}, err

	case "perform":
		m, err := d.mappingOf(n, "perform", "perform", "type_args", "args")
		if err != nil {
			return nil, err
		}
		qualified, err := d.str(m["perform"], "perform")
		if err != nil {
			return nil, err
		}
		effect, op, ok := splitOp(qualified)
		if !ok {
			return nil, d.errorf(m["perform"], "expected Effect.op, found %q", qualified)
		}
		perform := &ir.Perform{Range: r, Effect: effect, Op: op}
		if perform.TypeArgs, err = d.types(m["type_args"], "type_args"); err != nil {
			return nil, err
		}
		perform.Args, err = d.exprs(m["args"], "args")
		return perform, err

	case "call":
		m, err := d.mappingOf(n, "call", "call", "args")
		if err != nil {
			return nil, err
		}
		call := &ir.Call{Range: r}
		if call.Func, err = d.expr(m["call"]); err != nil {
			return nil, err
		}
		call.Args, err = d.exprs(m["args"], "args")
		return call, err

	case "fn":
		m, err := d.mappingOf(n, "lambda", "fn", "body", "effects")
		if err != nil {
			return nil, err
		}
		lambda := &ir.Lambda{Range: r}
		if lambda.Params, err = d.params(m["fn"]); err != nil {
			return nil, err
		}
		if lambda.Effects, err = d.row(m["effects"]); err != nil {
			return nil, err
		}
		lambda.Body, err = d.expr(m["body"])
		return lambda, err

	case "let":
		m, err := d.mappingOf(n, "let", "let", "value", "in")
		if err != nil {
			return nil, err
		}
		let := &ir.Let{Range: r}
		if let.Name, err = d.str(m["let"], "let"); err != nil {
			return nil, err
		}
		if let.Value, err = d.expr(m["value"]); err != nil {
			return nil, err
		}
		let.Body, err = d.expr(m["in"])
		return let, err

	case "block":
		m, err := d.mappingOf(n, "block", "block")
		if err != nil {
			return nil, err
		}
		es, err := d.exprs(m["block"], "block")
		return &ir.Block{Range: r, Exprs: es}, err

	case "if":
		m, err := d.mappingOf(n, "if", "if", "then", "else")
		if err != nil {
			return nil, err
		}
		cond := &ir.If{Range: r}
		if cond.Cond, err = d.expr(m["if"]); err != nil {
			return nil, err
		}
		if cond.Then, err = d.expr(m["then"]); err != nil {
			return nil, err
		}
		if els, ok := m["else"]; ok {
			cond.Else, err = d.expr(els)
		}
		return cond, err

	case "handle":
		return d.handle(n, r)

	case "resume":
		m, err := d.mappingOf(n, "resume", "resume")
		if err != nil {
			return nil, err
		}
		resume := &ir.Resume{Range: r}
		if !isNull(m["resume"]) {
			resume.Arg, err = d.expr(m["resume"])
		}
		return resume, err

	case "ascribe":
		m, err := d.mappingOf(n, "ascription", "ascribe", "effects")
		if err != nil {
			return nil, err
		}
		ascribe := &ir.Ascribe{Range: r}
		if ascribe.Expr, err = d.expr(m["ascribe"]); err != nil {
			return nil, err
		}
		row, err := d.row(m["effects"])
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, d.errorf(n, "ascribe requires effects")
		}
		ascribe.Effects = *row
		return ascribe, nil

	default:
		return nil, d.errorf(n, "expected an expression with one of %s", strings.Join(exprKeywords, ", "))
	}
}

func splitOp(qualified string) (effect, op string, ok bool) {
	i := strings.LastIndexByte(qualified, '.')
	if i <= 0 || i == len(qualified)-1 {
		return "", "", false
	}
	return qualified[:i], qualified[i+1:], true
}

func (d *decoder) handle(n *yaml.Node, r ir.Range) (ir.Expr, error) {
	m, err := d.mappingOf(n, "handle", "handle", "with", "return", "type")
	if err != nil {
		return nil, err
	}
	h := &ir.Handle{Range: r}
	if h.Body, err = d.expr(m["handle"]); err != nil {
		return nil, err
	}
	if h.BodyType, err = d.typ(m["type"]); err != nil {
		return nil, err
	}
	clauses, err := d.seq(m["with"], "with")
	if err != nil {
		return nil, err
	}
	for _, cn := range clauses {
		cm, err := d.mappingOf(cn, "clause", "op", "type_args", "params", "body", "type")
		if err != nil {
			return nil, err
		}
		qualified, err := d.requiredStr(cm, "op", cn, "clause")
		if err != nil {
			return nil, err
		}
		effect, op, ok := splitOp(qualified)
		if !ok {
			return nil, d.errorf(cm["op"], "expected Effect.op, found %q", qualified)
		}
		cl := &ir.Clause{Range: d.rangeOf(cn), Effect: effect, Op: op}
		if cl.TypeArgs, err = d.types(cm["type_args"], "type_args"); err != nil {
			return nil, err
		}
		if cl.Params, err = d.params(cm["params"]); err != nil {
			return nil, err
		}
		if cl.Type, err = d.typ(cm["type"]); err != nil {
			return nil, err
		}
		if cl.Body, err = d.expr(cm["body"]); err != nil {
			return nil, err
		}
		h.Clauses = append(h.Clauses, cl)
	}
	if rn, ok := m["return"]; ok && !isNull(rn) {
		rm, err := d.mappingOf(rn, "return clause", "param", "body", "type")
		if err != nil {
			return nil, err
		}
		ret := &ir.ReturnClause{Range: d.rangeOf(rn)}
		if ret.Param, err = d.param(rm["param"]); err != nil {
			return nil, err
		}
		if ret.Type, err = d.typ(rm["type"]); err != nil {
			return nil, err
		}
		if ret.Body, err = d.expr(rm["body"]); err != nil {
			return nil, err
		}
		h.Return = ret
	}
	return h, nil
}
