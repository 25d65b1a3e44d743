// Package config resolves peresub settings from defaults, an optional TOML
// file, PERESUB_* environment variables and command-line flags, in increasing
// order of precedence.
//
// API keys also fall back to the conventional OPENAI_API_KEY and
// NIUTRANS_API_KEY variables so a plain .env file works without a config file.
package config
