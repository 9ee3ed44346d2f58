// Package configs provides the embedded configuration template for readstash.
//
// The template is embedded at build time using Go's //go:embed directive so
// it is available in all distributions (source builds and binary releases).
// It is written out by `readstash init` when no config file exists yet.
package configs

import _ "embed"

// ConfigTemplate is the default user configuration template.
// Created by: `readstash init` at ~/.config/readstash/config.yaml
//
//go:embed config.example.yaml
var ConfigTemplate string
