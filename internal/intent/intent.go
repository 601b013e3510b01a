package intent

// Category classifies what area of the store a request touches.
type Category string

const (
	CategoryPlugin   Category = "plugin_management"
	CategoryCache    Category = "cache_management"
	CategoryContent  Category = "content_management"
	CategorySettings Category = "settings_management"
	CategoryUnknown  Category = "unknown"
)

// Verb is the requested action.
type Verb string

const (
	VerbActivate   Verb = "activate"
	VerbDeactivate Verb = "deactivate"
	VerbInstall    Verb = "install"
	VerbUninstall  Verb = "uninstall"
	VerbClear      Verb = "clear"
	VerbCreate     Verb = "create"
	VerbUpdate     Verb = "update"
	VerbDelete     Verb = "delete"
	VerbUnknown    Verb = "unknown"
)

// Intent is the structured reading of one free-text request. It lives for
// one dispatch; only its snapshot ends up in the audit trail.
type Intent struct {
	Category Category          `json:"category"`
	Verb     Verb              `json:"verb"`
	Target   string            `json:"target"`
	Params   map[string]string `json:"params"`
}

// Unknown is the safe default an unresolvable request degrades to. It can
// never match a capability or render a template.
func Unknown() Intent {
	return Intent{
		Category: CategoryUnknown,
		Verb:     VerbUnknown,
		Target:   "",
		Params:   map[string]string{},
	}
}

var validCategories = map[Category]bool{
	CategoryPlugin:   true,
	CategoryCache:    true,
	CategoryContent:  true,
	CategorySettings: true,
	CategoryUnknown:  true,
}

var validVerbs = map[Verb]bool{
	VerbActivate:   true,
	VerbDeactivate: true,
	VerbInstall:    true,
	VerbUninstall:  true,
	VerbClear:      true,
	VerbCreate:     true,
	VerbUpdate:     true,
	VerbDelete:     true,
	VerbUnknown:    true,
}

func normalizeCategory(s string) Category {
	c := Category(s)
	if validCategories[c] {
		return c
	}
	return CategoryUnknown
}

func normalizeVerb(s string) Verb {
	v := Verb(s)
	if validVerbs[v] {
		return v
	}
	return VerbUnknown
}
