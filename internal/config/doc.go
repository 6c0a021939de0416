// Package config provides centralized configuration management for the
// OmniEVM runtime. Settings are loaded from a JSON file with sensible
// defaults applied for anything left unset, so a minimal config only needs
// the chain endpoints it actually uses.
package config
