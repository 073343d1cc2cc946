//go:build tools

package eventgraph

import (
	_ "github.com/99designs/gqlgen"
)
