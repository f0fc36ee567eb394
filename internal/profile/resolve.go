package profile

import "github.com/matheus3301/deskchat/internal/config"

const DefaultProfileName = "main"

// Resolve determines the active profile name using precedence:
// 1. flagOverride (--profile flag)
// 2. config.toml default_profile (or DESKCHAT_PROFILE)
// 3. "main"
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.Resolve(ConfigPath())
	if err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultProfileName
}

// LoadConfig returns the effective config for a profile: global file, then
// the profile's own file, then environment.
func LoadConfig(name string) (*config.Config, error) {
	return config.Resolve(ConfigPath(), ProfileConfigPath(name))
}
