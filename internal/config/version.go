package config

// Version is the schemafence binary version.
// Set at build time via: -ldflags "-X github.com/schemafence/schemafence/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
