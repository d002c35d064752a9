package logging

import (
	"maps"
	"slices"
)

// fieldValue flattens errors so both backends print their message.
func fieldValue(v any) any {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}
	return v
}

// logParamsToZapParams emits key/value pairs in key order.
func logParamsToZapParams(keys map[ExtraKey]any) []any {
	params := make([]any, 0, len(keys)*2)

	for _, k := range slices.Sorted(maps.Keys(keys)) {
		params = append(params, string(k), fieldValue(keys[k]))
	}

	return params
}

func logParamsToZeroParams(keys map[ExtraKey]any) map[string]any {
	params := make(map[string]any, len(keys))

	for k, v := range keys {
		params[string(k)] = fieldValue(v)
	}

	return params
}
