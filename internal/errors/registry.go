package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Binding Errors (B001-B019)
	// ============================================

	"B001": {
		Category: CategoryBinding,
		Message:  "Bind target has no recognized capability",
		Detail:   "The target implements none of the accessor, sequence or mapping contracts, so no propagation can be wired.",
	},
	"B002": {
		Category: CategoryBinding,
		Message:  "Bind type mismatch",
		Detail:   "Source values cannot be assigned to the target (or back) and no transform was supplied.",
	},
	"B003": {
		Category: CategoryBinding,
		Message:  "No template to render source",
		Detail:   "Rendering without a target needs a template or a transform when the source type is not assignable to the rendered type.",
	},
	"B004": {
		Category: CategoryBinding,
		Message:  "Bind target is not comparable",
		Detail:   "Bindings are keyed by target identity. Pass a pointer rather than a struct or slice value.",
	},

	// ============================================
	// Remote Source Errors (R001-R019)
	// ============================================

	"R001": {
		Category: CategoryRemote,
		Message:  "Remote read failed",
		Detail:   "The read call for a remote source returned an error. The source is now in the Error state.",
	},
	"R002": {
		Category: CategoryRemote,
		Message:  "Remote commit failed",
		Detail:   "The commit call for a remote source returned an error. The local value is kept; the source is now in the Error state.",
	},
	"R003": {
		Category: CategoryRemote,
		Message:  "Remote value could not be decoded",
		Detail:   "The server returned a result that does not match the source's value type.",
	},
	"R004": {
		Category: CategoryRemote,
		Message:  "Remote source closed",
		Detail:   "The source was closed and no longer issues calls.",
	},

	// ============================================
	// Transport Errors (T001-T019)
	// ============================================

	"T001": {
		Category: CategoryTransport,
		Message:  "HTTP request failed",
		Detail:   "The server answered with a status outside the 2xx range.",
	},
	"T002": {
		Category: CategoryTransport,
		Message:  "Network failure",
		Detail:   "The request could not be delivered or the response could not be read.",
	},
	"T003": {
		Category: CategoryTransport,
		Message:  "Malformed JSON-RPC response",
		Detail:   "The response body is not a JSON-RPC envelope with result and error members.",
	},
	"T004": {
		Category: CategoryTransport,
		Message:  "CSRF token rejected",
		Detail:   "The endpoint requires a valid X-CSRF-Token header.",
	},
	"T005": {
		Category: CategoryTransport,
		Message:  "Push connection failed",
		Detail:   "The WebSocket push feed could not be established or was lost.",
	},

	// ============================================
	// Storage Errors (S001-S019)
	// ============================================

	"S001": {
		Category: CategoryStorage,
		Message:  "Snapshot not found",
		Detail:   "No snapshot has been saved under this name.",
	},
	"S002": {
		Category: CategoryStorage,
		Message:  "Snapshot store failed",
		Detail:   "The snapshot backend returned an error.",
	},
	"S003": {
		Category: CategoryStorage,
		Message:  "Unknown snapshot store",
		Detail:   "Supported stores are memory, bolt and s3.",
	},

	// ============================================
	// Config Errors (C001-C019)
	// ============================================

	"C001": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No bindsync.json, bindsync.toml or bindsync.yaml was found.",
	},
	"C002": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "The configuration file could not be parsed.",
	},
	"C003": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value is out of range or malformed.",
	},
	"C004": {
		Category: CategoryConfig,
		Message:  "Failed to write config",
		Detail:   "The configuration file could not be written.",
	},

	// ============================================
	// CLI Errors (X001-X019)
	// ============================================

	"X001": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
		Detail:   "The command was called with arguments it cannot use.",
	},
	"X002": {
		Category: CategoryCLI,
		Message:  "Invalid JSON argument",
		Detail:   "Params and values given on the command line must be valid JSON.",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template Template) {
	registry[code] = template
}
