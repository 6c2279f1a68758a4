package masking

import "strings"

const maskToken = "****"

var personalKeys = map[string]struct{}{
	"mobile_number": {},
	"email":         {},
	"owner_name":    {},
}

// MaskTail redacts value while keeping its last four characters.
func MaskTail(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskPersonalData returns a copy of input with contact details of house
// owners redacted, recursing into nested maps and slices.
func MaskPersonalData(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := personalKeys[strings.ToLower(trimmedKey)]; ok {
			if s, isString := value.(string); isString {
				masked[trimmedKey] = MaskTail(s)
				continue
			}
		}
		masked[trimmedKey] = maskNested(value)
	}
	return masked
}

func maskNested(value any) any {
	switch cast := value.(type) {
	case map[string]any:
		return MaskPersonalData(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskNested(item))
		}
		return out
	default:
		return value
	}
}
