// Package config provides the run configuration for sitemapcrawl: crawl
// limits, transport settings, output preferences and the optional
// .sitemapcrawl file with per-host request settings.
package config
