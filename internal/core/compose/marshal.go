package compose

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Marshal serializes a descriptor to compose YAML.
// Environment values have "$" doubled so the engine passes them through uninterpolated.
func Marshal(d Descriptor) ([]byte, error) {
	out := d
	out.Services = make(map[string]ServiceEntry, len(d.Services))
	for name, svc := range d.Services {
		if svc.Environment != nil {
			env := make(map[string]string, len(svc.Environment))
			for k, v := range svc.Environment {
				env[k] = strings.ReplaceAll(v, "$", "$$")
			}
			svc.Environment = env
		}
		out.Services[name] = svc
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, NewParseError("", err.Error(), ErrInvalidYAML)
	}
	if err := enc.Close(); err != nil {
		return nil, NewParseError("", err.Error(), ErrInvalidYAML)
	}
	return buf.Bytes(), nil
}
