package script

import (
	"encoding/json"
	"fmt"

	"github.com/risor-io/risor/object"
)

// toObject converts a bound argument into a Risor value. Values outside the
// supported shapes are passed as their string form.
func toObject(v any) object.Object {
	switch x := v.(type) {
	case nil:
		return object.Nil
	case object.Object:
		return x
	case string:
		return object.NewString(x)
	case bool:
		return object.NewBool(x)
	case float64:
		return object.NewFloat(x)
	case float32:
		return object.NewFloat(float64(x))
	case int:
		return object.NewInt(int64(x))
	case int64:
		return object.NewInt(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return object.NewInt(i)
		}
		if f, err := x.Float64(); err == nil {
			return object.NewFloat(f)
		}
		return object.NewString(x.String())
	case []any:
		items := make([]object.Object, len(x))
		for i, item := range x {
			items[i] = toObject(item)
		}
		return object.NewList(items)
	case []string:
		items := make([]object.Object, len(x))
		for i, item := range x {
			items[i] = object.NewString(item)
		}
		return object.NewList(items)
	case map[string]any:
		m := make(map[string]object.Object, len(x))
		for k, item := range x {
			m[k] = toObject(item)
		}
		return object.NewMap(m)
	default:
		return object.NewString(fmt.Sprint(x))
	}
}
