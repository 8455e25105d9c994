package sheets

import "strconv"

// Action is a remote guest store operation, named as the current API expects.
type Action string

const (
	ActionGetGuests          Action = "getGuests"
	ActionGetEventDetails    Action = "getEventDetails"
	ActionUpdateGuestStatus  Action = "updateGuestStatus"
	ActionMarkGuestContacted Action = "markGuestContacted"
)

var legacyOperations = map[Action]string{
	ActionGetGuests:          "get_guests",
	ActionGetEventDetails:    "get_event_details",
	ActionUpdateGuestStatus:  "update_status",
	ActionMarkGuestContacted: "mark_contacted",
}

// RequestFormat is one request shape the remote store has accepted over time.
type RequestFormat struct {
	Name string
	// ActionField carries the operation name, SecretField the tenant secret.
	ActionField string
	SecretField string
	// Legacy selects snake_case operation names.
	Legacy bool
	// Rename maps canonical field names to the names this shape expects.
	Rename map[string]string
	// StringCounts sends numeric fields as strings.
	StringCounts bool
}

// DefaultFormats is the fixed order in which request shapes are attempted.
var DefaultFormats = []RequestFormat{
	{Name: "action", ActionField: "action", SecretField: "secretKey"},
	{Name: "operation", ActionField: "operation", SecretField: "secretKey"},
	{
		Name:         "legacy",
		ActionField:  "operation",
		SecretField:  "key",
		Legacy:       true,
		Rename:       map[string]string{"guestCount": "count"},
		StringCounts: true,
	},
}

// Build assembles the request body for action.
func (f RequestFormat) Build(action Action, secret string, fields map[string]any) map[string]any {
	body := make(map[string]any, len(fields)+2)
	for name, value := range fields {
		if renamed, ok := f.Rename[name]; ok {
			name = renamed
		}
		if n, ok := value.(int); ok && f.StringCounts {
			value = strconv.Itoa(n)
		}
		body[name] = value
	}

	operation := string(action)
	if f.Legacy {
		if legacy, ok := legacyOperations[action]; ok {
			operation = legacy
		}
	}
	body[f.ActionField] = operation
	body[f.SecretField] = secret
	return body
}
