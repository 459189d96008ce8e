package models

// Endpoint describes a chat agent the proxy can forward to.
type Endpoint struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	BaseURL string `json:"baseURL" yaml:"baseURL"`
	IconURL string `json:"iconURL,omitempty" yaml:"iconURL,omitempty"`
}

// User is the default identity presented to the UI.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// InterfaceOptions toggles UI features.
type InterfaceOptions struct {
	CustomWelcome string `json:"customWelcome"`
	EndpointsMenu bool   `json:"endpointsMenu"`
	ModelSelect   bool   `json:"modelSelect"`
}

// AppConfig is the payload of GET /api/config.
type AppConfig struct {
	AppTitle   string              `json:"appTitle"`
	AppVersion string              `json:"appVersion"`
	Endpoints  map[string]Endpoint `json:"endpoints"`
	Interface  InterfaceOptions    `json:"interface"`
	User       User                `json:"user"`
}
