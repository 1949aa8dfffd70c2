package diaglog

import "strings"

const redacted = "[REDACTED]"

// secretKeys have their values replaced outright.
var secretKeys = map[string]bool{
	"password": true,
	"secret":   true,
	"token":    true,
}

// commandKeys hold shell lines. Only the program name is kept, since the
// arguments and any leading VAR=value assignments may carry credentials.
var commandKeys = map[string]bool{
	"post_command": true,
	"command_line": true,
}

// Redact returns a copy of v with sensitive values masked, descending into
// nested maps and slices. v itself is not modified.
func Redact(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[k] = redactField(k, child)
		}
		return out
	case map[string]string:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[k] = redactField(k, child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = Redact(elem)
		}
		return out
	default:
		return v
	}
}

func redactField(key string, v interface{}) interface{} {
	switch {
	case secretKeys[key]:
		return redacted
	case commandKeys[key]:
		if s, ok := v.(string); ok {
			return redactCommand(s)
		}
		return redacted
	}
	return Redact(v)
}

// redactCommand reduces "FOO=bar notify-send 'done' x" to "notify-send [REDACTED]".
func redactCommand(line string) string {
	fields := strings.Fields(line)
	for _, f := range fields {
		if strings.Contains(f, "=") {
			continue
		}
		if len(fields) == 1 {
			return f
		}
		return f + " " + redacted
	}
	if len(fields) == 0 {
		return ""
	}
	return redacted
}
