package config

// AgentConfig is the agent's own file configuration (config.yaml), as opposed
// to the extension settings tracked by Store.
type AgentConfig struct {
	SettingsFile string      `mapstructure:"settings_file"` // Extension settings (watched)
	Workspace    []string    `mapstructure:"workspace"`     // Open workspace folders, first one wins
	DBPath       string      `mapstructure:"db_path"`       // Event journal location
	API          APIConfig   `mapstructure:"api"`
	Tests        TestsConfig `mapstructure:"tests"`
}

type APIConfig struct {
	Endpoints         map[string]string `mapstructure:"endpoints"`          // Environment -> base URL overrides
	HeartbeatInterval string            `mapstructure:"heartbeat_interval"` // Time between backend checks
	Disabled          bool              `mapstructure:"disabled"`           // Skip the backend pinger
}

type TestsConfig struct {
	Root       string `mapstructure:"root"`        // Extension development path
	TestAssets string `mapstructure:"test_assets"` // Fixture repositories
	Output     string `mapstructure:"output"`      // Forwarded output folder
	CodePath   string `mapstructure:"code_path"`   // Editor executable used to launch tests
}
