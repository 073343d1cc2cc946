// Package config loads eventgraph's configuration.
//
// A Config has one section per consuming package (graphql, bus, store) plus
// logging. Each section validates itself and fills its own defaults.
//
// # Layers
//
// The Loader applies, lowest precedence first:
//
//  1. built-in defaults (Default)
//  2. config files added with AddLayer, in order (.json, .yaml, .yml);
//     a later file only overrides the fields it sets
//  3. dotenv files added with AddEnvFile
//  4. process environment variables
//
// Recognised variables: EVENTGRAPH_HTTP_ADDR, EVENTGRAPH_BUS_BACKEND,
// EVENTGRAPH_BUS_HOST, EVENTGRAPH_BUS_PORT, EVENTGRAPH_BUS_USERNAME,
// EVENTGRAPH_BUS_PASSWORD, EVENTGRAPH_FIXTURE, EVENTGRAPH_STRICT_REFERENCES,
// EVENTGRAPH_LOG_LEVEL and EVENTGRAPH_LOG_FORMAT.
//
// The bus host and port have no defaults. Leaving them unset is valid: the
// bus then retries its connection forever while queries keep working.
//
// # Usage
//
//	loader := config.NewLoader()
//	loader.AddLayer("eventgraph.yaml")
//	loader.AddEnvFile(".env")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//
// Config files are read through size, type and path traversal checks, and JSON
// files are rejected past a fixed nesting depth.
package config
