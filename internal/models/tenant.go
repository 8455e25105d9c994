package models

// Tenant is one customer's event
type Tenant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactPhone string `json:"phone"`
	EventName    string `json:"eventName"`
	EventDate    string `json:"eventDate"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// Credentials locate a tenant's remote guest store
type Credentials struct {
	Endpoint string `json:"appScriptUrl"`
	Secret   string `json:"secretKey"`
}
