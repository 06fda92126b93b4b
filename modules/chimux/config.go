package chimux

import (
	"github.com/GoCodeAlone/kernel"
)

// ConfigSection is the configuration section the module reads.
const ConfigSection = "router"

// Config holds the settings of the chimux module, read from the "router"
// section of the application configuration.
//
// Example YAML configuration:
//
//	router:
//	  resource: "@app/config/routing.yaml"
//	  base_url: /app
//	  host: example.com
//	  scheme: https
//	  watch: true
//
// Example environment variables:
//
//	APP__router__base_url=/app
//	APP__router__watch=false
type Config struct {
	// Resource is the routing file. It is either a path, relative paths
	// being resolved against the application root dir, or a module
	// resource such as "@blog/routing.yaml".
	Resource string

	// BaseURL is the prefix the router is mounted under.
	BaseURL string

	Host   string
	Scheme string

	// Watch reloads routes when the routing file changes. It defaults to
	// the application debug flag.
	Watch bool
}

func loadConfig(cfg *kernel.Config, debug bool) Config {
	return Config{
		Resource: cfg.GetString(ConfigSection+".resource", ""),
		BaseURL:  cfg.GetString(ConfigSection+".base_url", ""),
		Host:     cfg.GetString(ConfigSection+".host", ""),
		Scheme:   cfg.GetString(ConfigSection+".scheme", "http"),
		Watch:    cfg.GetBool(ConfigSection+".watch", debug),
	}
}
