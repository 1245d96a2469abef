package hclgraph

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/seibert/metagraph/internal/ctxlog"
	"github.com/seibert/metagraph/internal/registry"
	"github.com/seibert/metagraph/internal/task"
)

// keyType carries task keys through HCL expression evaluation.
var keyType = cty.Capsule("task key", reflect.TypeOf(task.Key("")))

var fileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "outputs"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "node", LabelNames: []string{"id"}},
	},
}

var nodeSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "call", Required: true},
		{Name: "args"},
		{Name: "kwargs"},
	},
}

// LoadFile parses the HCL file at path into a validated task graph plus its
// declared output keys. Callable names are resolved through reg.
func LoadFile(ctx context.Context, path string, reg *registry.Registry) (task.Graph, []task.Key, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, nil, diags
	}
	return fromFile(ctx, file, reg)
}

// Parse is LoadFile over an in-memory source, used by tests and embedders.
func Parse(ctx context.Context, src []byte, filename string, reg *registry.Registry) (task.Graph, []task.Key, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, nil, diags
	}
	return fromFile(ctx, file, reg)
}

func fromFile(ctx context.Context, file *hcl.File, reg *registry.Registry) (task.Graph, []task.Key, error) {
	logger := ctxlog.FromContext(ctx)

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, nil, diags
	}

	// First pass: collect node ids so references can be evaluated regardless
	// of declaration order.
	vars := make(map[string]cty.Value, len(content.Blocks))
	for _, block := range content.Blocks {
		id := block.Labels[0]
		if _, exists := vars[id]; exists {
			return nil, nil, fmt.Errorf("duplicate node %q at %s", id, block.DefRange)
		}
		key := task.Key(id)
		vars[id] = cty.CapsuleVal(keyType, &key)
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"node": cty.ObjectVal(vars)},
	}
	logger.Debug("Collected node declarations.", "count", len(vars))

	// Second pass: decode each node block into a task spec.
	g := make(task.Graph, len(content.Blocks))
	for _, block := range content.Blocks {
		id := block.Labels[0]
		spec, err := decodeNode(block, evalCtx, reg)
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: %w", id, err)
		}
		g[task.Key(id)] = spec
	}

	outputs, err := decodeOutputs(content, g)
	if err != nil {
		return nil, nil, err
	}

	if err := g.Validate(); err != nil {
		return nil, nil, err
	}
	logger.Debug("Graph loaded.", "nodes", len(g), "outputs", len(outputs))
	return g, outputs, nil
}

func decodeNode(block *hcl.Block, evalCtx *hcl.EvalContext, reg *registry.Registry) (task.Spec, error) {
	content, diags := block.Body.Content(nodeSchema)
	if diags.HasErrors() {
		return task.Spec{}, diags
	}

	callVal, diags := content.Attributes["call"].Expr.Value(nil)
	if diags.HasErrors() {
		return task.Spec{}, diags
	}
	if callVal.Type() != cty.String {
		return task.Spec{}, fmt.Errorf("call must be a string")
	}
	callable, ok := reg.Callable(callVal.AsString())
	if !ok {
		return task.Spec{}, fmt.Errorf("unknown callable %q", callVal.AsString())
	}

	spec := task.Spec{Callable: callable}

	if attr, ok := content.Attributes["args"]; ok {
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return task.Spec{}, diags
		}
		if !val.CanIterateElements() {
			return task.Spec{}, fmt.Errorf("args must be a list")
		}
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			arg, err := toArgument(elem)
			if err != nil {
				return task.Spec{}, err
			}
			spec.Args = append(spec.Args, arg)
		}
	}

	if attr, ok := content.Attributes["kwargs"]; ok {
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return task.Spec{}, diags
		}
		if !val.Type().IsObjectType() && !val.Type().IsMapType() {
			return task.Spec{}, fmt.Errorf("kwargs must be an object")
		}
		spec.Kwargs = make(map[string]task.Argument)
		for it := val.ElementIterator(); it.Next(); {
			name, elem := it.Element()
			arg, err := toArgument(elem)
			if err != nil {
				return task.Spec{}, err
			}
			spec.Kwargs[name.AsString()] = arg
		}
	}

	return spec, nil
}

func decodeOutputs(content *hcl.BodyContent, g task.Graph) ([]task.Key, error) {
	attr, ok := content.Attributes["outputs"]
	if !ok {
		// No outputs attribute means every node is an output.
		return g.Keys(), nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("outputs must be a list of node ids")
	}
	var outputs []task.Key
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.Type() != cty.String {
			return nil, fmt.Errorf("outputs must be a list of node ids")
		}
		key := task.Key(elem.AsString())
		if _, ok := g[key]; !ok {
			return nil, fmt.Errorf("output %q is not a declared node", key)
		}
		outputs = append(outputs, key)
	}
	return outputs, nil
}

// toArgument converts an evaluated cty value to the argument union. Capsule
// values are node references; everything else is literal data.
func toArgument(val cty.Value) (task.Argument, error) {
	if val.IsNull() {
		return task.Literal{Value: nil}, nil
	}
	ty := val.Type()
	switch {
	case ty == keyType:
		key := val.EncapsulatedValue().(*task.Key)
		return task.Ref{Key: *key}, nil
	case ty == cty.String:
		return task.Literal{Value: val.AsString()}, nil
	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return task.Literal{Value: f}, nil
	case ty == cty.Bool:
		return task.Literal{Value: val.True()}, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		var elems []task.Argument
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			arg, err := toArgument(elem)
			if err != nil {
				return nil, err
			}
			elems = append(elems, arg)
		}
		return task.List{Elems: elems}, nil
	case ty.IsObjectType() || ty.IsMapType():
		entries := make(map[string]task.Argument)
		for it := val.ElementIterator(); it.Next(); {
			name, elem := it.Element()
			arg, err := toArgument(elem)
			if err != nil {
				return nil, err
			}
			entries[name.AsString()] = arg
		}
		return task.Map{Entries: entries}, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}
