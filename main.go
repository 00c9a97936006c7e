// orgsync manages GitHub organization configuration as code. It loads a
// declarative YAML description of an organization, compares it with the
// live state, and plans or applies the changes needed to converge.
//
// Usage:
//
//	orgsync validate -c org.yaml
//	orgsync plan -c org.yaml
//	orgsync apply -c org.yaml
//	orgsync import --org myorg -o org.yaml
package main

import (
	"orgsync/internal/cmd"
)

// Version is the current version of orgsync. It can be overridden at
// build time using:
//
//	go build -ldflags="-X main.Version=v1.0.0"
var Version = "dev"

func main() {
	cmd.Version = Version
	cmd.Execute()
}
