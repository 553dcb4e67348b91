// Package config loads replicante.yaml (spec.md §6) into a nested Config
// struct via github.com/spf13/viper, applying defaults before unmarshal
// exactly as SPEC_FULL.md §2.3 describes.
//
// Grounded on original_source/bin/replicante/src/config/mod.rs for the
// key set and defaults, and on johnjansen-torua/cmd/coordinator/main.go's
// getenv-based flag bootstrap for the CLI surface cmd/replicore uses to
// locate the file.
package config
