// Package manifest loads batch download manifests. A manifest lists release
// asset URLs with optional per-asset destinations.
//
// # Manifest Format
//
// Manifests can be written in YAML or JSON format:
//
//	sources:
//	  - url: https://github.com/acme/tool/releases/download/v1.2.0/tool-linux-amd64.tar.gz
//	  - url: https://github.com/acme/agent/releases/download/v0.9.1/agent.zip
//	    output: vendor/agent.zip
//	    force: true
//	options:
//	  continue_on_error: true
//	  output: ./dist
//	  concurrency: 4
//	  timeout: 5m
//
// A source without output is saved under options.output using the last
// element of the URL path as filename. Relative outputs are resolved
// against options.output.
//
// # Usage
//
//	loader := manifest.NewLoader()
//	cfg, err := loader.Load("assets.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, source := range cfg.Sources {
//	    dest, _ := source.Destination(cfg.Options.Output)
//	    // download source.URL to dest
//	}
//
// # Error Handling
//
// The package defines sentinel errors for common failure cases:
//   - ErrNoSources: manifest has no sources defined
//   - ErrEmptyURL: source is missing required URL field
//   - ErrInvalidOutput: no usable destination filename
//   - ErrDuplicateOutput: two sources write the same file
//   - ErrInvalidFormat: file is not valid YAML/JSON
//   - ErrFileNotFound: manifest file does not exist
//   - ErrUnsupportedExt: unsupported file extension
package manifest
