// Package configs provides the embedded configuration template for recall.
//
// The template is embedded at build time with //go:embed so it ships in
// every distribution. `recall config init` writes it to
// ~/.recall/config.yaml for the user to edit.
package configs

import _ "embed"

// ConfigTemplate is the commented starter config written by `recall config init`.
//
//go:embed config.example.yaml
var ConfigTemplate string
