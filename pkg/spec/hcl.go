package spec

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
)

// refFunc lets HCL specs write ref("name") instead of { "$ref" = "name" }.
var refFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.Object(map[string]cty.Type{KeyRef: cty.String})),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.ObjectVal(map[string]cty.Value{KeyRef: args[0]}), nil
	},
})

// literalFunc marks a value as a literal: literal({ create = "x" }).
var literalFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "value", Type: cty.DynamicPseudoType, AllowNull: true},
	},
	Type: func(args []cty.Value) (cty.Type, error) {
		return cty.Object(map[string]cty.Type{KeyLiteral: args[0].Type()}), nil
	},
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.ObjectVal(map[string]cty.Value{KeyLiteral: args[0]}), nil
	},
})

func hclEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"ref":     refFunc,
			"literal": literalFunc,
		},
	}
}

// ParseHCL decodes an HCL file whose top-level attributes are components:
//
//	logger = { create = "log" }
//	server = { create = { module = "http", args = [ref("logger")] } }
//
// Components keep their source order; object constructor keys keep the
// order they were written in.
func ParseHCL(data []byte, filename string) (*Map, error) {
	file, diags := hclsyntax.ParseConfig(data, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diags
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("spec: unexpected HCL body type %T", file.Body)
	}
	if len(body.Blocks) > 0 {
		block := body.Blocks[0]
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported block",
			Detail:   fmt.Sprintf("Blocks are not supported in wiring specs; declare %q as an attribute.", block.Type),
			Subject:  block.DefRange().Ptr(),
		}}
	}

	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	evalCtx := hclEvalContext()
	m := NewMap()
	for _, attr := range attrs {
		v, diags := exprToNative(attr.Expr, evalCtx)
		if diags.HasErrors() {
			return nil, diags
		}
		m.Set(attr.Name, v)
	}
	return m, nil
}

func exprToNative(expr hclsyntax.Expression, evalCtx *hcl.EvalContext) (any, hcl.Diagnostics) {
	switch e := expr.(type) {
	case *hclsyntax.ObjectConsExpr:
		m := NewMap()
		for _, item := range e.Items {
			keyVal, diags := item.KeyExpr.Value(evalCtx)
			if diags.HasErrors() {
				return nil, diags
			}
			keyStr, err := convert.Convert(keyVal, cty.String)
			if err != nil || keyStr.IsNull() {
				return nil, hcl.Diagnostics{{
					Severity: hcl.DiagError,
					Summary:  "Invalid object key",
					Detail:   "Object keys in wiring specs must be strings.",
					Subject:  item.KeyExpr.Range().Ptr(),
				}}
			}
			v, diags := exprToNative(item.ValueExpr, evalCtx)
			if diags.HasErrors() {
				return nil, diags
			}
			m.Set(keyStr.AsString(), v)
		}
		return m, nil

	case *hclsyntax.TupleConsExpr:
		list := make([]any, 0, len(e.Exprs))
		for _, item := range e.Exprs {
			v, diags := exprToNative(item, evalCtx)
			if diags.HasErrors() {
				return nil, diags
			}
			list = append(list, v)
		}
		return list, nil

	default:
		val, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, diags
		}
		v, err := ctyToNative(val)
		if err != nil {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Unsupported value",
				Detail:   err.Error(),
				Subject:  expr.Range().Ptr(),
			}}
		}
		return v, nil
	}
}

// ctyToNative converts a cty.Value into the spec value tree.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		list := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, item := it.Element()
			native, err := ctyToNative(item)
			if err != nil {
				return nil, err
			}
			list = append(list, native)
		}
		return list, nil

	case ty.IsObjectType() || ty.IsMapType():
		m := NewMap()
		it := v.ElementIterator()
		for it.Next() {
			key, item := it.Element()
			native, err := ctyToNative(item)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			m.Set(key.AsString(), native)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported cty type %s", ty.FriendlyName())
	}
}
