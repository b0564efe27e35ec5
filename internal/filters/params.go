package filters

// Params holds decode parameters taken from a stream's /DecodeParms
// dictionary, already converted to Go primitives (int, float64, bool, string).
type Params map[string]interface{}

// getIntParam returns params[key] as an int, or defaultValue when the key is
// missing or not numeric.
func getIntParam(params Params, key string, defaultValue int) int {
	if params == nil {
		return defaultValue
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

// getBoolParam returns params[key] as a bool, or defaultValue when the key is
// missing or not a bool.
func getBoolParam(params Params, key string, defaultValue bool) bool {
	if params == nil {
		return defaultValue
	}
	if v, ok := params[key].(bool); ok {
		return v
	}
	return defaultValue
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
