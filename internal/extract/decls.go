package extract

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"doccov/internal/adapters"
	"doccov/internal/doctags"
	"doccov/internal/openpkg"
)

// builder holds the state of one extraction.
type builder struct {
	pkg      *packages.Package
	fset     *token.FileSet
	root     string
	opts     Options
	registry *adapters.Registry
	logger   *slog.Logger

	docs  map[token.Pos]string
	enums map[*types.TypeName][]*types.Const
	refs  map[string]bool // local type names reached through $ref
	diags []openpkg.Diagnostic
}

func (b *builder) build(modulePath string, tests []*ast.File) *openpkg.Spec {
	tpkg := b.pkg.Types
	spec := openpkg.New(tpkg.Path(), b.opts.Version)
	spec.Meta.Module = modulePath
	spec.Meta.Description = synopsis(b.pkg.Syntax)
	b.enums = collectEnums(tpkg)

	scope := tpkg.Scope()
	for _, name := range scope.Names() {
		obj := scope.Lookup(name)
		if !obj.Exported() {
			continue
		}
		if c, ok := obj.(*types.Const); ok && b.isEnumMember(c) {
			continue
		}
		src := position(b.fset, obj.Pos(), b.root)
		if excluded(src.File, b.opts.Exclude) {
			continue
		}
		if exp, ok := b.safely(obj.Name(), src, func() openpkg.Export { return b.export(obj, src) }); ok {
			spec.Exports = append(spec.Exports, exp)
		}
	}

	attachExamples(spec, b.fset, tests)
	spec.Types = b.typeDefs()
	openpkg.Normalize(spec)
	return spec
}

// safely runs fn, turning a panic into an error diagnostic for that export.
func (b *builder) safely(name string, src openpkg.Source, fn func() openpkg.Export) (exp openpkg.Export, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.diags = append(b.diags, openpkg.Diagnostic{
				Message:  fmt.Sprintf("failed to extract %s: %v", name, r),
				File:     src.File,
				Line:     src.Line,
				Severity: openpkg.SeverityError,
				Export:   name,
			})
			b.logger.Warn("export skipped", "export", name, "panic", r)
			ok = false
		}
	}()
	return fn(), true
}

func (b *builder) export(obj types.Object, src openpkg.Source) openpkg.Export {
	doc := doctags.Parse(b.docs[obj.Pos()])
	exp := openpkg.Export{
		ID:          obj.Name(),
		Name:        obj.Name(),
		Description: doc.Description,
		Deprecated:  doc.Deprecated,
		Tags:        doc.Tags,
		Examples:    doc.Examples,
		Source:      src,
	}

	if obj.Type() == types.Typ[types.Invalid] {
		b.diags = append(b.diags, openpkg.Diagnostic{
			Message:  obj.Name() + " has an invalid type",
			File:     src.File,
			Line:     src.Line,
			Severity: openpkg.SeverityWarning,
			Export:   obj.Name(),
		})
	}

	switch o := obj.(type) {
	case *types.Func:
		exp.Kind = openpkg.KindFunction
		sig := o.Type().(*types.Signature)
		exp.Signatures = []openpkg.Signature{b.signature(sig, doc)}
		exp.TypeParameters = exp.Signatures[0].TypeParameters
	case *types.TypeName:
		b.typeExport(&exp, o)
	case *types.Var:
		exp.Kind = openpkg.KindVariable
		exp.Schema = b.schema(o.Type())
	case *types.Const:
		exp.Kind = openpkg.KindVariable
		exp.Schema = b.schema(o.Type())
	default:
		panic(fmt.Sprintf("unsupported declaration %T", obj))
	}
	return exp
}

func (b *builder) typeExport(exp *openpkg.Export, obj *types.TypeName) {
	exp.Kind = b.kindOf(obj)
	b.refs[obj.Name()] = true

	if obj.IsAlias() {
		exp.Schema = b.schema(types.Unalias(obj.Type()))
		return
	}
	named, ok := obj.Type().(*types.Named)
	if !ok {
		panic(fmt.Sprintf("type %s is %T, not a named type", obj.Name(), obj.Type()))
	}
	exp.TypeParameters = b.typeParams(named.TypeParams())

	switch u := named.Underlying().(type) {
	case *types.Struct:
		exp.Members = append(exp.Members, b.fields(obj.Name(), u)...)
	case *types.Interface:
		for i := 0; i < u.NumMethods(); i++ {
			if m := u.Method(i); m.Exported() {
				exp.Members = append(exp.Members, b.method(obj.Name(), m))
			}
		}
		return
	default:
		exp.Schema = b.schema(u)
	}

	for i := 0; i < named.NumMethods(); i++ {
		if m := named.Method(i); m.Exported() {
			exp.Members = append(exp.Members, b.method(obj.Name(), m))
		}
	}
	for _, c := range b.enums[obj] {
		mdoc := doctags.Parse(b.docs[c.Pos()])
		exp.Members = append(exp.Members, openpkg.Member{
			ID:          obj.Name() + "." + c.Name(),
			Name:        c.Name(),
			Kind:        openpkg.MemberConstant,
			Description: mdoc.Description,
			Tags:        mdoc.Tags,
			Deprecated:  mdoc.Deprecated,
			Value:       c.Val().ExactString(),
		})
	}
}

func (b *builder) fields(owner string, st *types.Struct) []openpkg.Member {
	var out []openpkg.Member
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Exported() {
			continue
		}
		doc := doctags.Parse(b.docs[f.Pos()])
		out = append(out, openpkg.Member{
			ID:          owner + "." + f.Name(),
			Name:        f.Name(),
			Kind:        openpkg.MemberField,
			Schema:      b.schema(f.Type()),
			Description: doc.Description,
			Tags:        doc.Tags,
			Deprecated:  doc.Deprecated,
			Embedded:    f.Embedded(),
		})
	}
	return out
}

func (b *builder) method(owner string, m *types.Func) openpkg.Member {
	doc := doctags.Parse(b.docs[m.Pos()])
	return openpkg.Member{
		ID:          owner + "." + m.Name(),
		Name:        m.Name(),
		Kind:        openpkg.MemberMethod,
		Signatures:  []openpkg.Signature{b.signature(m.Type().(*types.Signature), doc)},
		Description: doc.Description,
		Tags:        doc.Tags,
		Deprecated:  doc.Deprecated,
	}
}

func (b *builder) signature(sig *types.Signature, doc *doctags.Doc) openpkg.Signature {
	paramDocs := map[string]string{}
	var returnsDoc string
	for _, t := range doc.Tags {
		switch t.Name {
		case "param":
			paramDocs[t.Param] = t.Text
		case "returns":
			returnsDoc = t.Text
		}
	}

	out := openpkg.Signature{Parameters: []openpkg.Parameter{}}
	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		name := p.Name()
		if name == "" || name == "_" {
			name = fmt.Sprintf("arg%d", i)
		}
		variadic := sig.Variadic() && i == params.Len()-1
		out.Parameters = append(out.Parameters, openpkg.Parameter{
			Name:        name,
			Schema:      b.schema(p.Type()),
			Required:    !variadic,
			Variadic:    variadic,
			Description: paramDocs[name],
		})
	}

	results := sig.Results()
	if n := results.Len(); n > 0 {
		hasErr := isError(results.At(n - 1).Type())
		values := n
		if hasErr {
			values--
		}
		ret := &openpkg.Returns{Error: hasErr, Description: returnsDoc}
		switch {
		case values == 1:
			ret.Schema = b.schema(results.At(0).Type())
		case values > 1:
			items := make([]*openpkg.Schema, values)
			for i := range items {
				items[i] = b.schema(results.At(i).Type())
			}
			ret.Schema = openpkg.Tuple(items...)
		}
		out.Returns = ret
		for i := 0; i < n; i++ {
			if _, ok := results.At(i).Type().Underlying().(*types.Chan); ok {
				out.Async = true
			}
		}
	}

	out.TypeParameters = b.typeParams(sig.TypeParams())
	return out
}

func (b *builder) typeParams(list *types.TypeParamList) []openpkg.TypeParameter {
	if list == nil || list.Len() == 0 {
		return nil
	}
	out := make([]openpkg.TypeParameter, list.Len())
	for i := range out {
		tp := list.At(i)
		out[i] = openpkg.TypeParameter{
			Name:       tp.Obj().Name(),
			Constraint: types.TypeString(tp.Constraint(), b.qualifier()),
		}
	}
	return out
}

func (b *builder) kindOf(obj *types.TypeName) openpkg.Kind {
	if obj.IsAlias() {
		return openpkg.KindType
	}
	switch obj.Type().Underlying().(type) {
	case *types.Struct:
		return openpkg.KindClass
	case *types.Interface:
		return openpkg.KindInterface
	}
	if len(b.enums[obj]) > 0 {
		return openpkg.KindEnum
	}
	return openpkg.KindType
}

// collectEnums groups exported constants by their package-local named type.
func collectEnums(pkg *types.Package) map[*types.TypeName][]*types.Const {
	enums := map[*types.TypeName][]*types.Const{}
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		c, ok := scope.Lookup(name).(*types.Const)
		if !ok || !c.Exported() {
			continue
		}
		named, ok := c.Type().(*types.Named)
		if !ok || named.Obj().Pkg() != pkg || !named.Obj().Exported() {
			continue
		}
		enums[named.Obj()] = append(enums[named.Obj()], c)
	}
	return enums
}

func (b *builder) isEnumMember(c *types.Const) bool {
	named, ok := c.Type().(*types.Named)
	return ok && len(b.enums[named.Obj()]) > 0
}

// typeDefs describes every local named type reached so far. Describing a
// type can reach further types, so the set is drained until it is stable.
func (b *builder) typeDefs() []openpkg.Type {
	scope := b.pkg.Types.Scope()
	done := map[string]bool{}
	defs := []openpkg.Type{}
	for {
		var pending []string
		for name := range b.refs {
			if !done[name] {
				pending = append(pending, name)
			}
		}
		if len(pending) == 0 {
			break
		}
		sort.Strings(pending)
		for _, name := range pending {
			done[name] = true
			obj, ok := scope.Lookup(name).(*types.TypeName)
			if !ok {
				continue
			}
			src := position(b.fset, obj.Pos(), b.root)
			if def, ok := b.safeType(obj, src); ok {
				defs = append(defs, def)
			}
		}
	}
	return defs
}

func (b *builder) safeType(obj *types.TypeName, src openpkg.Source) (def openpkg.Type, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.diags = append(b.diags, openpkg.Diagnostic{
				Message:  fmt.Sprintf("failed to describe type %s: %v", obj.Name(), r),
				File:     src.File,
				Line:     src.Line,
				Severity: openpkg.SeverityError,
				Export:   obj.Name(),
			})
			ok = false
		}
	}()

	def = openpkg.Type{
		ID:          obj.Name(),
		Name:        obj.Name(),
		Kind:        b.kindOf(obj),
		Description: doctags.Parse(b.docs[obj.Pos()]).Description,
		Source:      src,
	}
	underlying := types.Unalias(obj.Type())
	if !obj.IsAlias() {
		underlying = obj.Type().Underlying()
	}
	def.Schema = b.schema(underlying)
	return def, true
}

// indexDocs maps the position of every declared identifier to its doc text.
func indexDocs(files []*ast.File) map[token.Pos]string {
	docs := map[token.Pos]string{}
	for _, f := range files {
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				docs[d.Name.Pos()] = d.Doc.Text()
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					switch s := spec.(type) {
					case *ast.TypeSpec:
						text := s.Doc.Text()
						if text == "" && len(d.Specs) == 1 {
							text = d.Doc.Text()
						}
						docs[s.Name.Pos()] = text
						indexMembers(s.Type, docs)
					case *ast.ValueSpec:
						text := s.Doc.Text()
						if text == "" {
							text = s.Comment.Text()
						}
						if text == "" && len(d.Specs) == 1 {
							text = d.Doc.Text()
						}
						for _, n := range s.Names {
							docs[n.Pos()] = text
						}
					}
				}
			}
		}
	}
	return docs
}

// indexMembers records docs of struct fields and interface methods.
func indexMembers(expr ast.Expr, docs map[token.Pos]string) {
	ast.Inspect(expr, func(n ast.Node) bool {
		var list *ast.FieldList
		switch t := n.(type) {
		case *ast.StructType:
			list = t.Fields
		case *ast.InterfaceType:
			list = t.Methods
		default:
			return true
		}
		if list == nil {
			return true
		}
		for _, field := range list.List {
			text := field.Doc.Text()
			if text == "" {
				text = field.Comment.Text()
			}
			if len(field.Names) == 0 {
				if id := embeddedIdent(field.Type); id != nil {
					docs[id.Pos()] = text
				}
				continue
			}
			for _, name := range field.Names {
				docs[name.Pos()] = text
			}
		}
		return true
	})
}

func embeddedIdent(expr ast.Expr) *ast.Ident {
	switch t := expr.(type) {
	case *ast.Ident:
		return t
	case *ast.StarExpr:
		return embeddedIdent(t.X)
	case *ast.SelectorExpr:
		return t.Sel
	case *ast.IndexExpr:
		return embeddedIdent(t.X)
	case *ast.IndexListExpr:
		return embeddedIdent(t.X)
	}
	return nil
}

// synopsis returns the first paragraph of the package comment.
func synopsis(files []*ast.File) string {
	for _, f := range files {
		if f.Doc == nil {
			continue
		}
		text := strings.TrimSpace(f.Doc.Text())
		if i := strings.Index(text, "\n\n"); i >= 0 {
			text = text[:i]
		}
		return strings.Join(strings.Fields(text), " ")
	}
	return ""
}

var errorType = types.Universe.Lookup("error").Type()

func isError(t types.Type) bool {
	return types.Identical(t, errorType)
}
