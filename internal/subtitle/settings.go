package subtitle

// Settings is the project's dynamic settings map, re-typed from Python's
// free-form dict as a map constrained to AllowedSettingsKeys at the
// project boundary (internal/project.UpdateProjectSettings).
type Settings map[string]any

// AllowedSettingsKeys mirrors PySubtrans.SubtitleProject's
// DEFAULT_PROJECT_SETTINGS allow-list. Keys outside this set are dropped
// by UpdateProjectSettings.
var AllowedSettingsKeys = map[string]bool{
	"provider":                  true,
	"model":                     true,
	"target_language":           true,
	"prompt":                    true,
	"task_type":                 true,
	"instructions":               true,
	"retry_instructions":        true,
	"movie_name":                true,
	"description":               true,
	"names":                     true,
	"substitutions":             true,
	"substitution_mode":         true,
	"include_original":          true,
	"add_right_to_left_markers": true,
	"instruction_file":          true,
	"format":                    true,
}

// Clone returns a shallow copy of the settings map.
func (s Settings) Clone() Settings {
	clone := make(Settings, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// GetString returns the string value of a setting, or "" if absent or of
// another type.
func (s Settings) GetString(key string) string {
	if v, ok := s[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// GetBool returns the bool value of a setting, or false if absent.
func (s Settings) GetBool(key string) bool {
	if v, ok := s[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// GetStringList returns the []string value of a setting, flattening a
// []any of strings if that is how it was decoded from JSON.
func (s Settings) GetStringList(key string) []string {
	v, ok := s[key]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// SettingsEqual compares two setting values, used by
// internal/project.UpdateProjectSettings to decide whether anything
// actually changed before writing and marking the project dirty.
func SettingsEqual(a, b any) bool {
	al, aIsList := a.([]string)
	bl, bIsList := b.([]string)
	if aIsList || bIsList {
		if !aIsList || !bIsList || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if al[i] != bl[i] {
				return false
			}
		}
		return true
	}
	return a == b
}
