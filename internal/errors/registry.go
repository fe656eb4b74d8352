package errors

import "sort"

// Template defines a registered error kind.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[Code]Template{
	CodeUnknown: {
		Category: CategoryInternal,
		Message:  "Unknown error",
		Detail:   "An unexpected error occurred while generating routes.",
	},
	CodeInvalidPagefile: {
		Category:   CategoryValidation,
		Message:    "Invalid pagefile",
		Detail:     "The pagefile's exports do not have the expected shape, so it was left out of the route tree.",
		Suggestion: `Export a Meta function returning { path?: string, name?: string, layout?: string | null } and a default component`,
	},
	CodeUnableToExtractMeta: {
		Category:   CategoryExtraction,
		Message:    "Unable to extract meta from file",
		Detail:     "The pagefile could not be bundled or evaluated in the extraction sandbox.",
		Suggestion: "Fix syntax errors and avoid top-level code that throws or never finishes",
	},
	CodeMissingLayout: {
		Category:   CategoryResolution,
		Message:    "Layout not found",
		Suggestion: "Check the layout's name, or remove the layout reference to infer it from the path",
	},
	CodeDuplicateLayoutAtPath: {
		Category:   CategoryResolution,
		Message:    "Duplicate layout at path",
		Detail:     "Only one layout may claim a given path.",
		Suggestion: "Remove the path from one layout and reference it by name instead",
	},
	CodeDuplicateLayoutWithName: {
		Category:   CategoryResolution,
		Message:    "Duplicate layout with name",
		Detail:     "Layout names come from Meta.name, the default export's displayName, or its function name, in that order.",
		Suggestion: "Give one of the layouts a distinct Meta.name",
	},
	CodeLayoutCycle: {
		Category:   CategoryResolution,
		Message:    "Layout cycle",
		Detail:     "Layouts that reference each other can never be rendered.",
		Suggestion: "Break the loop by removing one of the layout references",
	},
	CodeInvalidConfig: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
}

// Codes returns all registered error codes in sorted order.
func Codes() []Code {
	codes := make([]Code, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code Code) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code Code, template Template) {
	registry[code] = template
}
