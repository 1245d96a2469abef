package tokenize

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/seibert/metagraph/internal/task"
)

// canonical is a JSON encoder with sorted map keys, so that the same
// argument structure always produces the same byte form.
var canonical = sonic.Config{SortMapKeys: true}.Froze()

// NodeKey derives the key for a node computing callable over the given
// resolved arguments. The key is the callable name plus a digest of the
// canonical encoding, e.g. "mul-3f5a...".
func NodeKey(c *task.Callable, args []task.Argument, kwargs map[string]task.Argument) task.Key {
	encodedArgs := make([]any, len(args))
	for i, arg := range args {
		encodedArgs[i] = encodeArgument(arg)
	}
	record := map[string]any{
		"call":    c.Name,
		"backend": c.Backend,
		"args":    encodedArgs,
	}
	if kwargs != nil {
		encodedKwargs := make(map[string]any, len(kwargs))
		for name, arg := range kwargs {
			encodedKwargs[name] = encodeArgument(arg)
		}
		record["kwargs"] = encodedKwargs
	}

	// The record is built from strings, slices and string-keyed maps only,
	// so this marshal cannot fail.
	encoded, err := canonical.Marshal(record)
	if err != nil {
		encoded = []byte(uuid.NewString())
	}
	sum := sha256.Sum256(encoded)
	return task.Key(c.Name + "-" + hex.EncodeToString(sum[:16]))
}

// encodeArgument maps an argument to a JSON-encodable shape. Each variant
// gets its own wrapper key, so a literal string can never collide with a
// reference to a key of the same spelling.
func encodeArgument(arg task.Argument) any {
	switch arg := arg.(type) {
	case task.Literal:
		return map[string]any{"lit": encodeLiteral(arg.Value)}
	case task.Ref:
		return map[string]any{"ref": string(arg.Key)}
	case task.List:
		elems := make([]any, len(arg.Elems))
		for i, elem := range arg.Elems {
			elems[i] = encodeArgument(elem)
		}
		return map[string]any{"seq": elems}
	case task.Map:
		entries := make(map[string]any, len(arg.Entries))
		for name, elem := range arg.Entries {
			entries[name] = encodeArgument(elem)
		}
		return map[string]any{"map": entries}
	}
	return nil
}

// encodeLiteral returns a stable encoding of a literal value. Values with no
// JSON form (functions, channels) get a random token instead: nodes built
// over them are unique rather than structurally shared, which mirrors how
// the underlying engine tokenizes opaque objects.
func encodeLiteral(v any) string {
	encoded, err := canonical.Marshal(v)
	if err != nil {
		return "opaque-" + uuid.NewString()
	}
	return string(encoded)
}
