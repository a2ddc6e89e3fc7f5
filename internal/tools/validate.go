package tools

import (
	"strings"
)

// validateArgs checks args against a tool's JSON-schema parameters before
// dispatch: required properties present, provided properties of the
// declared type, enum membership honored. Unknown properties are
// rejected — a misspelled argument name should bounce back to the model,
// not vanish silently.
func validateArgs(schema map[string]any, args map[string]any) *ToolError {
	props, _ := schema["properties"].(map[string]any)

	if required, ok := schema["required"].([]string); ok {
		for _, name := range required {
			if _, present := args[name]; !present {
				return Validationf("missing required argument %q", name)
			}
		}
	}

	for name, value := range args {
		propAny, known := props[name]
		if !known {
			return Validationf("unknown argument %q (valid: %s)", name, strings.Join(propNames(props), ", "))
		}
		prop, _ := propAny.(map[string]any)

		if err := checkType(name, prop, value); err != nil {
			return err
		}

		if enum, ok := prop["enum"].([]string); ok {
			s, _ := value.(string)
			found := false
			for _, allowed := range enum {
				if s == allowed {
					found = true
					break
				}
			}
			if !found {
				return Validationf("argument %q must be one of: %s", name, strings.Join(enum, ", "))
			}
		}
	}

	return nil
}

func checkType(name string, prop map[string]any, value any) *ToolError {
	declared, _ := prop["type"].(string)
	switch declared {
	case "string":
		if _, ok := value.(string); !ok {
			return Validationf("argument %q must be a string, got %T", name, value)
		}
	case "integer", "number":
		// JSON numbers decode as float64.
		switch value.(type) {
		case float64, int:
		default:
			return Validationf("argument %q must be a number, got %T", name, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return Validationf("argument %q must be a boolean, got %T", name, value)
		}
	}
	return nil
}

func propNames(props map[string]any) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	return names
}

// intArg extracts an integer argument, tolerating the float64 that JSON
// decoding produces.
func intArg(args map[string]any, name string) (int, bool) {
	switch v := args[name].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// stringArg extracts a trimmed string argument.
func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}
