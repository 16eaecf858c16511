// Package synth turns a service record into a compose descriptor.
// This is part of the Functional Core - all functions are pure with no I/O.
package synth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownKind is returned for service kinds without a catalog entry.
var ErrUnknownKind = errors.New("unknown service kind")

// Kind describes how a service flavor is deployed.
type Kind struct {
	Name  string
	Image string
	// DataPath is where the primary data volume is mounted.
	DataPath string
	// Owner is the uid:gid the service process runs as; persistent storage is chowned to it.
	Owner string
	// BaseEnv derives default environment variables from the service config.
	BaseEnv func(config map[string]string) map[string]string
}

var catalog = map[string]Kind{
	"vscodeserver": {
		Name:     "vscodeserver",
		Image:    "codercom/code-server",
		DataPath: "/home/coder",
		Owner:    "1000:1000",
		BaseEnv: func(config map[string]string) map[string]string {
			return map[string]string{"PASSWORD": config["password"]}
		},
	},
	"n8n": {
		Name:     "n8n",
		Image:    "n8nio/n8n",
		DataPath: "/home/node/.n8n",
		Owner:    "1000:1000",
		BaseEnv: func(config map[string]string) map[string]string {
			env := map[string]string{}
			if tz := config["timezone"]; tz != "" {
				env["GENERIC_TIMEZONE"] = tz
			}
			return env
		},
	},
}

// LookupKind returns the catalog entry for name.
func LookupKind(name string) (Kind, error) {
	k, ok := catalog[name]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownKind, name, strings.Join(Kinds(), ", "))
	}
	return k, nil
}

// Kinds returns the names of all supported kinds, sorted.
func Kinds() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
