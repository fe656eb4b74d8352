package pagefile

const (
	keyPath   = "path"
	keyName   = "name"
	keyLayout = "layout"
)

// Validation reasons.
const (
	ReasonMissingMeta          = "Missing meta export"
	ReasonMetaNotObject        = "Meta export must return an object"
	ReasonMissingDefaultExport = "Missing default export"
	ReasonPathNotString        = `"path" must be a string`
	ReasonPathEmpty            = `"path" must not be empty`
	ReasonNameNotString        = `"name" must be a string`
	ReasonLayoutNotStringNull  = `"layout" must be a string or null`
)

// Validate returns every reason r is unusable, in a fixed order. An empty
// result means the record is valid.
func Validate(r Record) []string {
	var reasons []string

	meta, isObject := r.Meta.(map[string]any)
	switch {
	case r.Meta == nil, isObject && meta == nil:
		isObject = false
		reasons = append(reasons, ReasonMissingMeta)
	case !isObject:
		reasons = append(reasons, ReasonMetaNotObject)
	}

	if !r.HasDefaultExport {
		reasons = append(reasons, ReasonMissingDefaultExport)
	}

	if isObject {
		if v, ok := meta[keyPath]; ok {
			if path, ok := v.(string); !ok {
				reasons = append(reasons, ReasonPathNotString)
			} else if path == "" {
				reasons = append(reasons, ReasonPathEmpty)
			}
		}
		if v, ok := meta[keyName]; ok {
			if _, ok := v.(string); !ok {
				reasons = append(reasons, ReasonNameNotString)
			}
		}
		if v, ok := meta[keyLayout]; ok && v != nil {
			if _, ok := v.(string); !ok {
				reasons = append(reasons, ReasonLayoutNotStringNull)
			}
		}
	}

	return reasons
}

// Valid reports whether r passes Validate.
func Valid(r Record) bool {
	return len(Validate(r)) == 0
}
