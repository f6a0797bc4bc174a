package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doccov/internal/docs"
	"doccov/internal/openpkg"
)

func intSchema() *openpkg.Schema {
	return &openpkg.Schema{Type: openpkg.TypeInteger, Format: "int"}
}

func strSchema() *openpkg.Schema {
	return openpkg.Primitive(openpkg.TypeString)
}

func fn(id string, params []openpkg.Parameter, ret *openpkg.Returns) openpkg.Export {
	return openpkg.Export{
		ID:          id,
		Name:        id,
		Kind:        openpkg.KindFunction,
		Description: id + " does things.",
		Tags:        []openpkg.Tag{},
		Signatures:  []openpkg.Signature{{Parameters: params, Returns: ret}},
		Docs:        &openpkg.Docs{CoverageScore: 100, Missing: []openpkg.MissingDocRule{}, Drift: []openpkg.Drift{}},
	}
}

func req(name string, s *openpkg.Schema) openpkg.Parameter {
	return openpkg.Parameter{Name: name, Schema: s, Required: true}
}

func variadic(name string, s *openpkg.Schema) openpkg.Parameter {
	return openpkg.Parameter{Name: name, Schema: openpkg.ArrayOf(s, -1), Variadic: true}
}

func add() openpkg.Export {
	return fn("Add", []openpkg.Parameter{req("a", intSchema()), req("b", intSchema())}, &openpkg.Returns{Schema: intSchema()})
}

func spec(exports ...openpkg.Export) *openpkg.Spec {
	s := openpkg.New("example.com/calc", "1.0.0")
	s.Exports = exports
	openpkg.Normalize(s)
	return s
}

func node() openpkg.Export {
	return openpkg.Export{
		ID: "Node", Name: "Node", Kind: openpkg.KindClass, Description: "Node is a cell.", Tags: []openpkg.Tag{},
		Members: []openpkg.Member{
			{ID: "Node.Value", Name: "Value", Kind: openpkg.MemberField, Schema: intSchema()},
			{ID: "Node.Len", Name: "Len", Kind: openpkg.MemberMethod, Signatures: []openpkg.Signature{{
				Parameters: []openpkg.Parameter{}, Returns: &openpkg.Returns{Schema: intSchema()},
			}}},
		},
	}
}

func shape() openpkg.Export {
	return openpkg.Export{
		ID: "Shape", Name: "Shape", Kind: openpkg.KindInterface, Description: "Shape has an area.", Tags: []openpkg.Tag{},
		Members: []openpkg.Member{
			{ID: "Shape.Area", Name: "Area", Kind: openpkg.MemberMethod, Signatures: []openpkg.Signature{{
				Parameters: []openpkg.Parameter{}, Returns: &openpkg.Returns{Schema: openpkg.Primitive(openpkg.TypeNumber)},
			}}},
		},
	}
}

func TestDiff_Identity(t *testing.T) {
	withDrift := add()
	withDrift.Docs.Drift = []openpkg.Drift{
		openpkg.NewDrift(openpkg.DriftReturnTypeMismatch, "Add", "mismatch", "", true),
	}
	s := spec(withDrift, node(), shape())

	d := Diff(s, s)
	assert.Empty(t, d.Breaking)
	assert.Empty(t, d.NonBreaking)
	assert.Empty(t, d.DocsOnly)
	assert.Empty(t, d.DriftIntroduced)
	assert.Empty(t, d.DriftResolved)
	assert.Empty(t, d.MemberChanges)
	assert.Empty(t, d.Changes)
	assert.Zero(t, d.CoverageDelta)
	assert.Equal(t, "patch", d.SemverAdvice)
	assert.False(t, d.HasBreakingChanges())
	assert.Nil(t, d.DocsImpact)
}

func TestDiff_Parameters(t *testing.T) {
	tests := []struct {
		name     string
		head     openpkg.Export
		breaking bool
		reason   string
	}{
		{
			name:     "required parameter removed",
			head:     fn("Add", []openpkg.Parameter{req("a", intSchema())}, &openpkg.Returns{Schema: intSchema()}),
			breaking: true,
			reason:   "parameter b of Add was removed",
		},
		{
			name: "optional parameter added",
			head: fn("Add", []openpkg.Parameter{req("a", intSchema()), req("b", intSchema()), variadic("more", intSchema())},
				&openpkg.Returns{Schema: intSchema()}),
		},
		{
			name: "required parameter added",
			head: fn("Add", []openpkg.Parameter{req("a", intSchema()), req("b", intSchema()), req("c", intSchema())},
				&openpkg.Returns{Schema: intSchema()}),
			breaking: true,
			reason:   "required parameter c was added to Add",
		},
		{
			name:     "parameter type changed",
			head:     fn("Add", []openpkg.Parameter{req("a", intSchema()), req("b", strSchema())}, &openpkg.Returns{Schema: intSchema()}),
			breaking: true,
			reason:   "parameter b of Add changed from integer to string",
		},
		{
			name: "parameter type widened",
			head: fn("Add", []openpkg.Parameter{req("a", intSchema()), req("b", openpkg.Primitive(openpkg.TypeAny))},
				&openpkg.Returns{Schema: intSchema()}),
		},
		{
			name: "parameter renamed",
			head: fn("Add", []openpkg.Parameter{req("x", intSchema()), req("b", intSchema())}, &openpkg.Returns{Schema: intSchema()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Diff(spec(add()), spec(tt.head))
			if tt.breaking {
				assert.Equal(t, []string{"Add"}, d.Breaking)
				assert.Empty(t, d.NonBreaking)
				require.Len(t, d.CategorizedBreaking, 1)
				assert.Equal(t, BreakingHigh, d.CategorizedBreaking[0].Severity)
				assert.Equal(t, tt.reason, d.CategorizedBreaking[0].Reason)
				assert.Equal(t, "major", d.SemverAdvice)
				return
			}
			assert.Empty(t, d.Breaking)
			assert.Equal(t, []string{"Add"}, d.NonBreaking)
			assert.Equal(t, "minor", d.SemverAdvice)
		})
	}
}

func TestDiff_VariadicBecomesRequired(t *testing.T) {
	base := fn("Sum", []openpkg.Parameter{variadic("values", intSchema())}, nil)
	head := fn("Sum", []openpkg.Parameter{req("values", openpkg.ArrayOf(intSchema(), -1))}, nil)

	d := Diff(spec(base), spec(head))
	assert.Equal(t, []string{"Sum"}, d.Breaking)
	assert.Equal(t, "parameter values of Sum is now required", d.CategorizedBreaking[0].Reason)
}

func TestDiff_Returns(t *testing.T) {
	tests := []struct {
		name     string
		base     *openpkg.Returns
		head     *openpkg.Returns
		breaking bool
	}{
		{"error result added", &openpkg.Returns{Schema: intSchema()}, &openpkg.Returns{Schema: intSchema(), Error: true}, true},
		{"result removed", &openpkg.Returns{Schema: intSchema()}, nil, true},
		{"type changed", &openpkg.Returns{Schema: intSchema()}, &openpkg.Returns{Schema: strSchema()}, true},
		{"narrowed from any", &openpkg.Returns{Schema: openpkg.Primitive(openpkg.TypeAny)}, &openpkg.Returns{Schema: intSchema()}, false},
		{"pointer to value", &openpkg.Returns{Schema: openpkg.Nullable(openpkg.Ref("Node"))}, &openpkg.Returns{Schema: openpkg.Ref("Node")}, true},
		{"value to pointer", &openpkg.Returns{Schema: openpkg.Ref("Node")}, &openpkg.Returns{Schema: openpkg.Nullable(openpkg.Ref("Node"))}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := fn("Get", []openpkg.Parameter{}, tt.base)
			head := fn("Get", []openpkg.Parameter{}, tt.head)
			d := Diff(spec(base), spec(head))
			if tt.breaking {
				assert.Equal(t, []string{"Get"}, d.Breaking)
			} else {
				assert.Equal(t, []string{"Get"}, d.NonBreaking)
			}
		})
	}
}

func TestDiff_RemovedAndAdded(t *testing.T) {
	base := spec(add(), fn("Div", []openpkg.Parameter{req("a", intSchema())}, &openpkg.Returns{Schema: intSchema()}))
	undocumented := fn("Mul", []openpkg.Parameter{req("a", strSchema())}, nil)
	undocumented.Description = ""
	head := spec(add(),
		fn("Divide", []openpkg.Parameter{req("a", intSchema())}, &openpkg.Returns{Schema: intSchema()}),
		undocumented)

	d := Diff(base, head)
	assert.Equal(t, []string{"Div"}, d.Breaking)
	assert.Equal(t, []string{"Divide", "Mul"}, d.NonBreaking)
	assert.Equal(t, []string{"Mul"}, d.NewUndocumented)

	require.NotEmpty(t, d.Changes)
	removed := d.Changes[0]
	assert.Equal(t, ChangeRemoved, removed.Kind)
	assert.Equal(t, "function Div was renamed to Divide", removed.Description)
	assert.Equal(t, "replace uses of Div with Divide", removed.Suggestion)
}

func TestDiff_KindChanged(t *testing.T) {
	base := add()
	head := add()
	head.Kind = openpkg.KindVariable
	head.Signatures = nil
	head.Schema = intSchema()

	d := Diff(spec(base), spec(head))
	assert.Equal(t, []string{"Add"}, d.Breaking)
	assert.Equal(t, "Add changed from function to variable", d.CategorizedBreaking[0].Reason)
	assert.Equal(t, BreakingLow, d.CategorizedBreaking[0].Severity)
}

func TestDiff_Members(t *testing.T) {
	t.Run("field added", func(t *testing.T) {
		head := node()
		head.Members = append(head.Members, openpkg.Member{ID: "Node.Next", Name: "Next", Kind: openpkg.MemberField, Schema: openpkg.Nullable(openpkg.Ref("Node"))})

		d := Diff(spec(node()), spec(head))
		assert.Equal(t, []string{"Node"}, d.NonBreaking)
		require.Len(t, d.MemberChanges, 1)
		assert.Equal(t, MemberChange{ExportID: "Node", Member: "Next", Change: MemberAdded, NewSignature: "Node | null"}, d.MemberChanges[0])
	})

	t.Run("method removed", func(t *testing.T) {
		head := node()
		head.Members = head.Members[:1]

		d := Diff(spec(node()), spec(head))
		assert.Equal(t, []string{"Node"}, d.Breaking)
		require.Len(t, d.MemberChanges, 1)
		assert.Equal(t, MemberRemoved, d.MemberChanges[0].Change)
		assert.Equal(t, "() integer", d.MemberChanges[0].OldSignature)
	})

	t.Run("method renamed", func(t *testing.T) {
		head := node()
		head.Members[1].ID, head.Members[1].Name = "Node.Length", "Length"

		d := Diff(spec(node()), spec(head))
		assert.Equal(t, []string{"Node"}, d.Breaking)
		var removed *MemberChange
		for i := range d.MemberChanges {
			if d.MemberChanges[i].Change == MemberRemoved {
				removed = &d.MemberChanges[i]
			}
		}
		require.NotNil(t, removed)
		assert.Equal(t, "use Node.Length", removed.Suggestion)
	})

	t.Run("field type changed", func(t *testing.T) {
		head := node()
		head.Members[0].Schema = strSchema()

		d := Diff(spec(node()), spec(head))
		assert.Equal(t, []string{"Node"}, d.Breaking)
		require.Len(t, d.MemberChanges, 1)
		assert.Equal(t, MemberChange{
			ExportID: "Node", Member: "Value", Change: MemberChanged,
			OldSignature: "integer", NewSignature: "string",
		}, d.MemberChanges[0])
	})

	t.Run("method added to interface", func(t *testing.T) {
		head := shape()
		head.Members = append(head.Members, openpkg.Member{
			ID: "Shape.Perimeter", Name: "Perimeter", Kind: openpkg.MemberMethod,
			Signatures: []openpkg.Signature{{Parameters: []openpkg.Parameter{}, Returns: &openpkg.Returns{Schema: openpkg.Primitive(openpkg.TypeNumber)}}},
		})

		d := Diff(spec(shape()), spec(head))
		assert.Equal(t, []string{"Shape"}, d.Breaking)
		assert.Equal(t, BreakingMedium, d.CategorizedBreaking[0].Severity)
		assert.Contains(t, d.CategorizedBreaking[0].Reason, "existing implementations")
	})

	t.Run("interface method result narrowed", func(t *testing.T) {
		base := shape()
		base.Members[0].Signatures[0].Returns.Schema = openpkg.Primitive(openpkg.TypeAny)

		d := Diff(spec(base), spec(shape()))
		assert.Equal(t, []string{"Shape"}, d.Breaking, "implementers must change too")
	})
}

func TestDiff_Deprecation(t *testing.T) {
	head := add()
	head.Deprecated = true

	d := Diff(spec(add()), spec(head))
	assert.Equal(t, []string{"Add"}, d.NonBreaking)
	assert.Equal(t, ChangeDeprecated, d.Changes[0].Kind)
}

func TestDiff_TypeParameters(t *testing.T) {
	generic := func(constraint string) openpkg.Export {
		e := fn("Max", []openpkg.Parameter{req("a", openpkg.Ref("T"))}, nil)
		e.Signatures[0].TypeParameters = []openpkg.TypeParameter{{Name: "T", Constraint: constraint}}
		return e
	}

	d := Diff(spec(generic("cmp.Ordered")), spec(generic("~int")))
	assert.Equal(t, []string{"Max"}, d.Breaking)

	d = Diff(spec(generic("cmp.Ordered")), spec(generic("any")))
	assert.Equal(t, []string{"Max"}, d.NonBreaking)
}

func TestDiff_DocsOnly(t *testing.T) {
	head := add()
	head.Description = "Add sums two integers."
	head.Tags = []openpkg.Tag{{Name: "param", Param: "a"}}

	d := Diff(spec(add()), spec(head))
	assert.Equal(t, []string{"Add"}, d.DocsOnly)
	assert.Empty(t, d.Breaking)
	assert.Empty(t, d.NonBreaking)
	assert.Equal(t, "patch", d.SemverAdvice)
}

func TestDiff_BreakingWinsOverDocs(t *testing.T) {
	head := fn("Add", []openpkg.Parameter{req("a", intSchema())}, &openpkg.Returns{Schema: intSchema()})
	head.Description = "Add returns a."

	d := Diff(spec(add()), spec(head))
	assert.Equal(t, []string{"Add"}, d.Breaking)
	assert.Empty(t, d.DocsOnly)
}

func TestDiff_CoverageAndDrift(t *testing.T) {
	mismatch := openpkg.NewDrift(openpkg.DriftReturnTypeMismatch, "Add", "returns documents string", "", true)
	broken := openpkg.NewDrift(openpkg.DriftBrokenLink, "Sub", "link Sub does not resolve", "", false)

	baseAdd := add()
	baseAdd.Docs = &openpkg.Docs{CoverageScore: 50, Missing: []openpkg.MissingDocRule{openpkg.RuleParams}, Drift: []openpkg.Drift{mismatch}}
	baseNode := node()
	baseNode.Docs = &openpkg.Docs{CoverageScore: 100, Missing: []openpkg.MissingDocRule{}, Drift: []openpkg.Drift{}}

	headAdd := add()
	headAdd.Docs = &openpkg.Docs{CoverageScore: 100, Missing: []openpkg.MissingDocRule{}, Drift: []openpkg.Drift{}}
	headNode := node()
	headNode.Docs = &openpkg.Docs{CoverageScore: 0, Missing: []openpkg.MissingDocRule{openpkg.RuleDescription}, Drift: []openpkg.Drift{broken}}
	newExport := fn("Sum", []openpkg.Parameter{}, nil)
	newExport.Docs = &openpkg.Docs{CoverageScore: 80, Missing: []openpkg.MissingDocRule{}, Drift: []openpkg.Drift{}}

	d := Diff(spec(baseAdd, baseNode), spec(headAdd, headNode, newExport))

	assert.Equal(t, 75, d.OldCoverage)
	assert.Equal(t, 60, d.NewCoverage)
	assert.Equal(t, -15, d.CoverageDelta)
	assert.Equal(t, []string{"Add"}, d.ImprovedExports)
	assert.Equal(t, []string{"Node"}, d.RegressedExports)

	require.Len(t, d.DriftResolved, 1)
	assert.Equal(t, "Add", d.DriftResolved[0].ExportID)
	assert.Equal(t, mismatch, d.DriftResolved[0].Drift)
	require.Len(t, d.DriftIntroduced, 1)
	assert.Equal(t, "Node", d.DriftIntroduced[0].ExportID)

	assert.ElementsMatch(t, []string{"Add", "Node"}, d.DocsOnly)
}

func TestDiff_DocsImpact(t *testing.T) {
	base := spec(add(), fn("Div", []openpkg.Parameter{req("a", intSchema())}, nil), node())
	changedAdd := fn("Add", []openpkg.Parameter{req("a", intSchema())}, &openpkg.Returns{Schema: intSchema()})
	head := spec(changedAdd, node(), fn("Sum", []openpkg.Parameter{}, nil))

	scanner := docs.NewScanner("/repo")
	results := []docs.ScanResult{
		scanner.ScanContent("README.md", "Use `calc.Add` or `calc.Div`, and `Node.Len`.\n"),
		scanner.ScanContent("docs/other.md", "Nothing relevant in `calc.Node`.\n"),
	}

	d := Diff(base, head, WithDocs(results))
	require.NotNil(t, d.DocsImpact)
	require.Len(t, d.DocsImpact.Files, 1)

	refs := d.DocsImpact.Files[0].References
	require.Len(t, refs, 2)
	assert.Equal(t, "calc.Add", refs[0].Name)
	assert.Equal(t, docs.ChangeChanged, refs[0].Change)
	assert.Equal(t, "calc.Div", refs[1].Name)
	assert.Equal(t, docs.ChangeRemoved, refs[1].Change)
	assert.Equal(t, []string{"calc.Sum"}, d.DocsImpact.UnmentionedNewExports)
}

func TestRenderSignature(t *testing.T) {
	sig := openpkg.Signature{
		Parameters: []openpkg.Parameter{req("a", intSchema()), variadic("rest", strSchema())},
		Returns:    &openpkg.Returns{Schema: intSchema(), Error: true},
	}
	assert.Equal(t, "(a integer, rest ...string) (integer, error)", RenderSignature(sig))
	assert.Equal(t, "()", RenderSignature(openpkg.Signature{}))
}

func TestHasher(t *testing.T) {
	h := NewHasher()
	a, b := add(), add()
	assert.Equal(t, h.HashAPI(&a), h.HashAPI(&b))

	b.Description = "changed"
	assert.Equal(t, h.HashAPI(&a), h.HashAPI(&b), "documentation is not part of the API hash")
	assert.NotEqual(t, h.HashDocs(&a), h.HashDocs(&b))

	b.Source.Line = 42
	b.Description = a.Description
	assert.Equal(t, h.HashDocs(&a), h.HashDocs(&b), "positions are ignored")

	// Length prefixes keep field boundaries unambiguous.
	assert.NotEqual(t, h.hashFields([]string{"ab", "c"}), h.hashFields([]string{"a", "bc"}))
}

func TestDiff_CoverageIgnoresRemovedExports(t *testing.T) {
	documented := add()
	documented.Docs = &openpkg.Docs{CoverageScore: 100, Missing: []openpkg.MissingDocRule{}, Drift: []openpkg.Drift{}}
	gone := fn("Gone", []openpkg.Parameter{}, nil)
	gone.Docs = &openpkg.Docs{CoverageScore: 0, Missing: []openpkg.MissingDocRule{openpkg.RuleDescription}, Drift: []openpkg.Drift{}}

	d := Diff(spec(documented, gone), spec(documented))
	assert.Equal(t, []string{"Gone"}, d.Breaking)
	assert.Equal(t, 100, d.OldCoverage)
	assert.Equal(t, 100, d.NewCoverage)
	assert.Zero(t, d.CoverageDelta)

	d = Diff(spec(gone), spec(documented))
	assert.Equal(t, 100, d.OldCoverage, "nothing shared scores like an empty package")
}
