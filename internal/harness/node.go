package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/datalens-tech/datalens-backend-sub013/internal/ast"
	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/ir"
)

// NodeSpec is the YAML form of a formula node. See the package
// documentation for the accepted shapes.
type NodeSpec struct {
	Field   string `yaml:"field,omitempty"`
	Literal any    `yaml:"literal,omitempty"`
	Call    string `yaml:"call,omitempty"`
	Window  string `yaml:"window,omitempty"`
	Op      string `yaml:"op,omitempty"`

	Type string     `yaml:"type,omitempty"`
	Args []NodeSpec `yaml:"args,omitempty"`

	Fixed   []NodeSpec `yaml:"fixed,omitempty"`
	Include []NodeSpec `yaml:"include,omitempty"`
	Exclude []NodeSpec `yaml:"exclude,omitempty"`

	Total   bool       `yaml:"total,omitempty"`
	Within  []NodeSpec `yaml:"within,omitempty"`
	Among   []NodeSpec `yaml:"among,omitempty"`
	OrderBy []NodeSpec `yaml:"order_by,omitempty"`

	Asc  *NodeSpec `yaml:"asc,omitempty"`
	Desc *NodeSpec `yaml:"desc,omitempty"`

	BeforeFilterBy []string `yaml:"before_filter_by,omitempty"`

	keys     []string
	position ast.Position
}

var nodeKeys = []string{
	"field", "literal", "call", "window", "op",
	"type", "args",
	"fixed", "include", "exclude",
	"total", "within", "among", "order_by",
	"asc", "desc",
	"before_filter_by",
}

var kindKeys = []string{"field", "literal", "call", "window", "op", "asc", "desc"}

// UnmarshalYAML decodes a node mapping, rejecting unknown keys and
// remembering which keys were present so that "literal: null" and a missing
// literal can be told apart.
func (n *NodeSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: a formula node must be a mapping", value.Line)
	}

	var keys []string
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i]
		if !slices.Contains(nodeKeys, key.Value) {
			return fmt.Errorf("line %d: unknown node key %q", key.Line, key.Value)
		}
		keys = append(keys, key.Value)
	}

	type plain NodeSpec
	var decoded plain
	if err := value.Decode(&decoded); err != nil {
		return err
	}
	*n = NodeSpec(decoded)
	n.keys = keys
	n.position = ast.Position{Line: value.Line, Column: value.Column}
	return nil
}

func (n *NodeSpec) has(key string) bool {
	return slices.Contains(n.keys, key)
}

func (n *NodeSpec) empty() bool {
	return len(n.keys) == 0
}

// kind returns the node's discriminating key.
func (n *NodeSpec) kind() (string, error) {
	var found []string
	for _, k := range kindKeys {
		if n.has(k) {
			found = append(found, k)
		}
	}
	if len(found) != 1 {
		return "", n.errorf("exactly one of %s is required, got %d", strings.Join(kindKeys, ", "), len(found))
	}
	return found[0], nil
}

func (n *NodeSpec) errorf(format string, args ...any) error {
	if n.position.Line > 0 {
		return fmt.Errorf("line %d: %s", n.position.Line, fmt.Sprintf(format, args...))
	}
	return fmt.Errorf(format, args...)
}

// allowOnly rejects keys outside the set valid for the node kind.
func (n *NodeSpec) allowOnly(kind string, allowed ...string) error {
	for _, k := range n.keys {
		if k != kind && !slices.Contains(allowed, k) {
			return n.errorf("%s node does not take %q", kind, k)
		}
	}
	return nil
}

// Build converts n into an AST node.
func (n *NodeSpec) Build() (ast.Node, error) {
	kind, err := n.kind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case "field":
		if err := n.allowOnly(kind, "type"); err != nil {
			return nil, err
		}
		if n.Type == "" {
			return nil, n.errorf("field %q needs a type", n.Field)
		}
		t, err := datatype.Parse(n.Type)
		if err != nil {
			return nil, n.errorf("%v", err)
		}
		return &ast.Field{Name: n.Field, Type: t, Position: n.position}, nil

	case "literal":
		if err := n.allowOnly(kind, "type"); err != nil {
			return nil, err
		}
		return n.buildLiteral()

	case "call":
		if err := n.allowOnly(kind, "args", "type", "fixed", "include", "exclude", "before_filter_by"); err != nil {
			return nil, err
		}
		return n.buildCall()

	case "window":
		if err := n.allowOnly(kind, "args", "type", "total", "within", "among", "order_by", "before_filter_by"); err != nil {
			return nil, err
		}
		return n.buildWindow()

	case "op":
		if err := n.allowOnly(kind, "args", "type"); err != nil {
			return nil, err
		}
		args, err := buildAll(n.Args)
		if err != nil {
			return nil, err
		}
		switch len(args) {
		case 1:
			return &ast.Unary{Op: n.Op, Operand: args[0], Position: n.position}, nil
		case 2:
			return &ast.Binary{Op: n.Op, Left: args[0], Right: args[1], Position: n.position}, nil
		}
		return nil, n.errorf("operator %q takes one or two args, got %d", n.Op, len(args))
	}
	return nil, n.errorf("%s is only allowed in order_by and default_ordering", kind)
}

// BuildOrderItem converts an ordering item: asc/desc mappings keep their
// direction, any other node is ordered ascending.
func (n *NodeSpec) BuildOrderItem() (ast.Node, error) {
	kind, err := n.kind()
	if err != nil {
		return nil, err
	}
	if kind != "asc" && kind != "desc" {
		expr, err := n.Build()
		if err != nil {
			return nil, err
		}
		return &ast.OrderAscending{Expr: expr, Position: n.position}, nil
	}
	if err := n.allowOnly(kind); err != nil {
		return nil, err
	}

	inner := n.Asc
	if kind == "desc" {
		inner = n.Desc
	}
	if inner == nil {
		return nil, n.errorf("%s needs a node", kind)
	}
	expr, err := inner.Build()
	if err != nil {
		return nil, err
	}
	if kind == "desc" {
		return &ast.OrderDescending{Expr: expr, Position: n.position}, nil
	}
	return &ast.OrderAscending{Expr: expr, Position: n.position}, nil
}

func (n *NodeSpec) buildCall() (ast.Node, error) {
	args, err := buildAll(n.Args)
	if err != nil {
		return nil, err
	}
	call := &ast.FuncCall{Name: n.Call, Args: args, Position: n.position}

	lods := 0
	for _, key := range []string{"fixed", "include", "exclude"} {
		if n.has(key) {
			lods++
		}
	}
	if lods > 1 {
		return nil, n.errorf("only one of fixed, include and exclude is allowed")
	}
	switch {
	case n.has("fixed"):
		dims, err := buildAll(n.Fixed)
		if err != nil {
			return nil, err
		}
		call.Lod = &ast.FixedLod{Dims: dims, Position: n.position}
	case n.has("include"):
		dims, err := buildAll(n.Include)
		if err != nil {
			return nil, err
		}
		call.Lod = &ast.IncludeLod{Dims: dims, Position: n.position}
	case n.has("exclude"):
		dims, err := buildAll(n.Exclude)
		if err != nil {
			return nil, err
		}
		call.Lod = &ast.ExcludeLod{Dims: dims, Position: n.position}
	}

	call.BeforeFilterBy = n.beforeFilterBy()
	return call, nil
}

func (n *NodeSpec) buildWindow() (ast.Node, error) {
	args, err := buildAll(n.Args)
	if err != nil {
		return nil, err
	}
	w := &ast.WindowFuncCall{Name: n.Window, Args: args, Position: n.position}

	groupings := 0
	for _, key := range []string{"total", "within", "among"} {
		if n.has(key) {
			groupings++
		}
	}
	if groupings > 1 {
		return nil, n.errorf("only one of total, within and among is allowed")
	}
	switch {
	case n.Total:
		w.Grouping = &ast.WindowGroupingTotal{Position: n.position}
	case n.has("within"):
		dims, err := buildAll(n.Within)
		if err != nil {
			return nil, err
		}
		w.Grouping = &ast.WindowGroupingWithin{Dims: dims, Position: n.position}
	case n.has("among"):
		dims, err := buildAll(n.Among)
		if err != nil {
			return nil, err
		}
		w.Grouping = &ast.WindowGroupingAmong{Dims: dims, Position: n.position}
	}

	if len(n.OrderBy) > 0 {
		items, err := BuildOrdering(n.OrderBy)
		if err != nil {
			return nil, err
		}
		w.Ordering = &ast.Ordering{Items: items, Position: n.position}
	}

	w.BeforeFilterBy = n.beforeFilterBy()
	return w, nil
}

func (n *NodeSpec) beforeFilterBy() *ast.BeforeFilterBy {
	if len(n.BeforeFilterBy) == 0 {
		return nil
	}
	return &ast.BeforeFilterBy{FieldNames: slices.Clone(n.BeforeFilterBy), Position: n.position}
}

// buildLiteral infers the literal's type from its YAML scalar, or coerces
// the scalar to the declared type.
func (n *NodeSpec) buildLiteral() (ast.Node, error) {
	t, err := n.literalType()
	if err != nil {
		return nil, err
	}
	value, err := coerceLiteral(n.Literal, t)
	if err != nil {
		return nil, n.errorf("literal %v: %v", n.Literal, err)
	}
	return &ast.Literal{Value: value, Type: t, Position: n.position}, nil
}

func (n *NodeSpec) literalType() (datatype.DataType, error) {
	if n.Type != "" {
		t, err := datatype.Parse(n.Type)
		if err != nil {
			return datatype.Unsupported, n.errorf("%v", err)
		}
		return t.ConstType(), nil
	}
	switch n.Literal.(type) {
	case nil:
		return datatype.Null, nil
	case bool:
		return datatype.ConstBoolean, nil
	case int, int64, uint64:
		return datatype.ConstInteger, nil
	case float64:
		return datatype.ConstFloat, nil
	case string:
		return datatype.ConstString, nil
	}
	return datatype.Unsupported, n.errorf("cannot infer the type of literal %v; set type", n.Literal)
}

func coerceLiteral(v any, t datatype.DataType) (ir.Value, error) {
	if v == nil || t == datatype.Null {
		if v != nil {
			return nil, fmt.Errorf("NULL literal must be null")
		}
		return ir.Null{}, nil
	}

	switch t {
	case datatype.ConstInteger:
		i, err := cast.ToInt64E(v)
		return ir.Int(i), err
	case datatype.ConstFloat:
		f, err := cast.ToFloat64E(v)
		return ir.Float(f), err
	case datatype.ConstBoolean:
		b, err := cast.ToBoolE(v)
		return ir.Bool(b), err
	case datatype.ConstString, datatype.ConstDate, datatype.ConstDatetime, datatype.ConstDatetimeTZ,
		datatype.ConstGenericDatetime, datatype.ConstUUID, datatype.ConstMarkup:
		s, err := cast.ToStringE(v)
		return ir.String(s), err
	case datatype.ConstArrayInt, datatype.ConstArrayFloat, datatype.ConstArrayStr:
		items, err := cast.ToSliceE(v)
		if err != nil {
			return nil, err
		}
		out := make(ir.Array, len(items))
		for i, item := range items {
			elem, err := coerceLiteral(item, arrayElement(t))
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = elem
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s literals are not supported", t)
}

func arrayElement(t datatype.DataType) datatype.DataType {
	switch t {
	case datatype.ConstArrayInt:
		return datatype.ConstInteger
	case datatype.ConstArrayFloat:
		return datatype.ConstFloat
	}
	return datatype.ConstString
}

func buildAll(specs []NodeSpec) ([]ast.Node, error) {
	out := make([]ast.Node, len(specs))
	for i := range specs {
		n, err := specs[i].Build()
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// BuildOrdering converts ordering items, see BuildOrderItem.
func BuildOrdering(specs []NodeSpec) ([]ast.Node, error) {
	out := make([]ast.Node, len(specs))
	for i := range specs {
		item, err := specs[i].BuildOrderItem()
		if err != nil {
			return nil, err
		}
		out[i] = item
	}
	return out, nil
}
