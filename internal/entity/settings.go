package entity

import (
	"encoding/json"
)

// Provider is one configured AI provider entry. The sync engine never calls
// providers; it only carries them inside the settings document.
type Provider struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"` // gemini, openai-compatible
	APIKeys      []string `json:"apiKeys"`
	BaseURL      string   `json:"baseUrl,omitempty"`
	Models       []string `json:"models"`
	DefaultModel string   `json:"defaultModel"`
}

// Settings is the per-user singleton. It is not part of the realtime sync
// protocol: pulled once at login, pushed only explicitly.
type Settings struct {
	Providers        []Provider `json:"providers"`
	ActiveProviderID string     `json:"activeProviderId"`
	Theme            string     `json:"theme"` // dark, light
}

// legacySettings is the pre-provider settings shape, kept only so
// UpgradeSettings can read old documents.
type legacySettings struct {
	Providers        []Provider `json:"providers"`
	ActiveProviderID string     `json:"activeProviderId"`
	Theme            string     `json:"theme"`
	AIProvider       string     `json:"aiProvider"`
	APIKey           string     `json:"apiKey"`
	APIKeys          []string   `json:"apiKeys"`
	OpenAIBaseURL    string     `json:"openaiBaseUrl"`
	CustomModel      string     `json:"customModel"`
}

func defaultGeminiProvider() Provider {
	return Provider{
		ID:           "gemini-default",
		Name:         "Google Gemini",
		Type:         "gemini",
		APIKeys:      []string{},
		Models:       []string{"gemini-2.5-flash", "gemini-1.5-pro"},
		DefaultModel: "gemini-2.5-flash",
	}
}

// DefaultSettings returns the settings for a completely fresh install.
func DefaultSettings() Settings {
	return Settings{
		Providers:        []Provider{defaultGeminiProvider()},
		ActiveProviderID: "gemini-default",
		Theme:            "dark",
	}
}

// UpgradeSettings parses a stored settings document and upgrades it to the
// current schema in one explicit step, run once when the document is loaded.
//
// Documents that predate the provider list synthesize one from the legacy
// single-provider fields. Unreadable input degrades to DefaultSettings;
// this function never fails.
func UpgradeSettings(raw []byte) Settings {
	if len(raw) == 0 {
		return DefaultSettings()
	}

	var legacy legacySettings
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return DefaultSettings()
	}

	// Already current schema.
	if len(legacy.Providers) > 0 {
		s := Settings{
			Providers:        legacy.Providers,
			ActiveProviderID: legacy.ActiveProviderID,
			Theme:            legacy.Theme,
		}
		if s.Theme == "" {
			s.Theme = "dark"
		}
		if s.ActiveProviderID == "" {
			s.ActiveProviderID = s.Providers[0].ID
		}
		return s
	}

	legacyKeys := legacy.APIKeys
	if legacyKeys == nil && legacy.APIKey != "" {
		legacyKeys = []string{legacy.APIKey}
	}

	gemini := defaultGeminiProvider()
	providers := []Provider{gemini}
	activeID := gemini.ID

	switch legacy.AIProvider {
	case "openai":
		baseURL := legacy.OpenAIBaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := legacy.CustomModel
		if model == "" {
			model = "gpt-4o-mini"
		}
		providers = append(providers, Provider{
			ID:           "openai-legacy",
			Name:         "OpenAI (Legacy)",
			Type:         "openai-compatible",
			APIKeys:      legacyKeys,
			BaseURL:      baseURL,
			Models:       []string{model},
			DefaultModel: model,
		})
		activeID = "openai-legacy"
	default:
		// Gemini was the implicit default provider.
		providers[0].APIKeys = legacyKeys
		if providers[0].APIKeys == nil {
			providers[0].APIKeys = []string{}
		}
	}

	theme := legacy.Theme
	if theme == "" {
		theme = "dark"
	}

	return Settings{
		Providers:        providers,
		ActiveProviderID: activeID,
		Theme:            theme,
	}
}
