package compose

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// Builder
// =============================================================================

// Builder accumulates services, networks and volumes and produces an immutable Descriptor.
// Volumes can only enter the descriptor through Mount, which declares and mounts in one
// step, so declarations and mount lists cannot drift apart.
//
// Example:
//
//	d, err := compose.NewBuilder().
//	    AddService("svc1", compose.ServiceEntry{Image: "codercom/code-server:latest"}).
//	    ExternalNetwork("svc1", "net1").
//	    Mount("svc1", "svc1-data", "/data").
//	    Build()
type Builder struct {
	order    []string
	services map[string]*ServiceEntry
	networks map[string]NetworkEntry
	volumes  map[string]VolumeEntry
	errs     []error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		services: make(map[string]*ServiceEntry),
		networks: make(map[string]NetworkEntry),
		volumes:  make(map[string]VolumeEntry),
	}
}

// AddService adds a service. Volumes and networks on entry are ignored; use Mount and
// ExternalNetwork to attach them.
func (b *Builder) AddService(name string, entry ServiceEntry) *Builder {
	if _, exists := b.services[name]; exists {
		b.errs = append(b.errs, NewParseError("services."+name, "service is already defined", ErrDuplicateService))
		return b
	}
	entry.Volumes = nil
	entry.Networks = nil
	entry.Environment = copyMap(entry.Environment)
	entry.Labels = copyMap(entry.Labels)
	b.services[name] = &entry
	b.order = append(b.order, name)
	return b
}

// ExternalNetwork declares network as externally managed and attaches service to it.
func (b *Builder) ExternalNetwork(service, network string) *Builder {
	svc, ok := b.service(service)
	if !ok {
		return b
	}
	b.networks[network] = NetworkEntry{External: true}
	for _, n := range svc.Networks {
		if n == network {
			return b
		}
	}
	svc.Networks = append(svc.Networks, network)
	return b
}

// Mount declares volume and mounts it into service at target.
func (b *Builder) Mount(service, volume, target string) *Builder {
	svc, ok := b.service(service)
	if !ok {
		return b
	}
	field := fmt.Sprintf("services.%s.volumes[%d]", service, len(svc.Volumes))
	if volume == "" || target == "" {
		b.errs = append(b.errs, NewParseError(field, "volume name and target are required", ErrInvalidVolumeMount))
		return b
	}
	if _, exists := b.volumes[volume]; exists {
		b.errs = append(b.errs, NewParseError("volumes."+volume, "volume is declared more than once", ErrDuplicateVolume))
		return b
	}
	b.volumes[volume] = VolumeEntry{Name: volume}
	svc.Volumes = append(svc.Volumes, volume+":"+target)
	return b
}

func (b *Builder) service(name string) (*ServiceEntry, bool) {
	svc, ok := b.services[name]
	if !ok {
		b.errs = append(b.errs, NewParseError("services."+name, "service is not defined", ErrUnknownService))
	}
	return svc, ok
}

// Build validates the accumulated state and returns the descriptor.
func (b *Builder) Build() (Descriptor, error) {
	if len(b.errs) > 0 {
		return Descriptor{}, errors.Join(b.errs...)
	}
	if len(b.services) == 0 {
		return Descriptor{}, ErrNoServices
	}

	d := Descriptor{
		Version:  SchemaVersion,
		Services: make(map[string]ServiceEntry, len(b.services)),
		Networks: make(map[string]NetworkEntry, len(b.networks)),
		Volumes:  make(map[string]VolumeEntry, len(b.volumes)),
	}
	for _, name := range b.order {
		svc := *b.services[name]
		if svc.Image == "" {
			return Descriptor{}, NewParseError("services."+name, "service must have an image", ErrServiceNoImage)
		}
		svc.Volumes = append([]string(nil), svc.Volumes...)
		svc.Networks = append([]string(nil), svc.Networks...)
		svc.Environment = copyMap(svc.Environment)
		svc.Labels = copyMap(svc.Labels)
		if svc.Deploy != nil {
			deploy := *svc.Deploy
			if deploy.RestartPolicy != nil {
				rp := *deploy.RestartPolicy
				deploy.RestartPolicy = &rp
			}
			svc.Deploy = &deploy
		}
		d.Services[name] = svc
	}
	for name, n := range b.networks {
		d.Networks[name] = n
	}
	for name, v := range b.volumes {
		d.Volumes[name] = v
	}

	if err := CheckVolumes(d); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// =============================================================================
// Invariants
// =============================================================================

// CheckVolumes verifies that every mounted volume is declared exactly once and every
// declared volume is mounted, and that every attached network is declared.
func CheckVolumes(d Descriptor) error {
	mounted := make(map[string]bool)
	for _, name := range sortedKeys(d.Services) {
		svc := d.Services[name]
		for i, v := range svc.Volumes {
			source, _, ok := splitMount(v)
			if !ok {
				return NewParseError(fmt.Sprintf("services.%s.volumes[%d]", name, i), "expected <volume>:<path>", ErrInvalidVolumeMount)
			}
			if _, declared := d.Volumes[source]; !declared {
				return NewParseError(fmt.Sprintf("services.%s.volumes[%d]", name, i), "volume "+source+" is not declared", ErrUndeclaredVolume)
			}
			if mounted[source] {
				return NewParseError(fmt.Sprintf("services.%s.volumes[%d]", name, i), "volume "+source+" is mounted more than once", ErrDuplicateVolume)
			}
			mounted[source] = true
		}
		for _, n := range svc.Networks {
			if _, declared := d.Networks[n]; !declared {
				return NewParseError("services."+name+".networks", "network "+n+" is not declared", ErrUndeclaredNetwork)
			}
		}
	}
	for _, name := range sortedKeys(d.Volumes) {
		if !mounted[name] {
			return NewParseError("volumes."+name, "volume is not mounted by any service", ErrOrphanedVolume)
		}
	}
	return nil
}

func splitMount(v string) (source, target string, ok bool) {
	source, target, found := strings.Cut(v, ":")
	return source, target, found && source != "" && target != ""
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
