package compose

import (
	"context"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// projectName is the name compose-go needs to load a document in memory.
const projectName = "berth-check"

// =============================================================================
// Parser Functions
// =============================================================================

// ParseComposeSpec loads compose YAML with compose-go and converts it to a ParsedSpec.
// Services, networks and volumes are sorted by name.
func ParseComposeSpec(yamlContent []byte) (*ParsedSpec, error) {
	if strings.TrimSpace(string(yamlContent)) == "" {
		return nil, ErrEmptyInput
	}

	project, err := loadComposeSpec(yamlContent)
	if err != nil {
		return nil, err
	}
	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	spec := &ParsedSpec{
		Services: make([]Service, 0, len(project.Services)),
		Networks: make([]Network, 0, len(project.Networks)),
		Volumes:  make([]Volume, 0, len(project.Volumes)),
	}
	for _, svc := range project.Services {
		spec.Services = append(spec.Services, convertService(svc))
	}
	for name, net := range project.Networks {
		spec.Networks = append(spec.Networks, Network{Name: name, External: bool(net.External)})
	}
	for key, vol := range project.Volumes {
		spec.Volumes = append(spec.Volumes, Volume{Key: key, Name: vol.Name, External: bool(vol.External)})
	}

	sort.Slice(spec.Services, func(i, j int) bool { return spec.Services[i].Name < spec.Services[j].Name })
	sort.Slice(spec.Networks, func(i, j int) bool { return spec.Networks[i].Name < spec.Networks[j].Name })
	sort.Slice(spec.Volumes, func(i, j int) bool { return spec.Volumes[i].Key < spec.Volumes[j].Key })

	return spec, nil
}

// Validate checks serialized descriptor YAML. The volume invariant is checked on the
// mount strings as written, since compose-go keeps one mount per target when loading;
// compose-go then confirms the document loads.
func Validate(yamlContent []byte) (*ParsedSpec, error) {
	if strings.TrimSpace(string(yamlContent)) == "" {
		return nil, ErrEmptyInput
	}

	var d Descriptor
	if err := yaml.Unmarshal(yamlContent, &d); err != nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}
	if err := CheckVolumes(d); err != nil {
		return nil, err
	}

	spec, err := ParseComposeSpec(yamlContent)
	if err != nil {
		return nil, err
	}
	for _, svc := range spec.Services {
		if svc.Image == "" {
			return nil, NewParseError("services."+svc.Name, "service must have an image", ErrServiceNoImage)
		}
	}

	return spec, nil
}

// loadComposeSpec loads a compose spec using compose-go
func loadComposeSpec(yamlContent []byte) (*types.Project, error) {
	var dict map[string]interface{}
	if err := yaml.Unmarshal(yamlContent, &dict); err != nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}
	if dict == nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: yamlContent,
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName(projectName, false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false // "$$" in values must collapse to "$"
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return nil, NewParseError("", err.Error(), ErrInvalidYAML)
	}

	return project, nil
}

// convertService converts a compose-go service to our Service type
func convertService(svc types.ServiceConfig) Service {
	service := Service{
		Name:          svc.Name,
		ContainerName: svc.ContainerName,
		Image:         svc.Image,
		Environment:   make(map[string]string),
		Labels:        make(map[string]string),
		Networks:      make([]string, 0, len(svc.Networks)),
		Restart:       RestartPolicy(svc.Restart),
	}

	for k, v := range svc.Environment {
		if v != nil {
			service.Environment[k] = *v
		}
	}

	for _, v := range svc.Volumes {
		mount := VolumeMount{
			Source:   v.Source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		}
		switch v.Type {
		case "bind":
			mount.Type = VolumeMountTypeBind
		case "volume":
			mount.Type = VolumeMountTypeVolume
		case "tmpfs":
			mount.Type = VolumeMountTypeTmpfs
		default:
			// Infer type from source
			if strings.HasPrefix(v.Source, "./") || strings.HasPrefix(v.Source, "/") || strings.HasPrefix(v.Source, "~") {
				mount.Type = VolumeMountTypeBind
			} else {
				mount.Type = VolumeMountTypeVolume
			}
		}
		service.Volumes = append(service.Volumes, mount)
	}

	for net := range svc.Networks {
		service.Networks = append(service.Networks, net)
	}
	sort.Strings(service.Networks)

	for k, v := range svc.Labels {
		service.Labels[k] = v
	}

	return service
}
