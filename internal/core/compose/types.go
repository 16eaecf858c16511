package compose

// SchemaVersion is the compose file format version written into every descriptor.
const SchemaVersion = "3.8"

// =============================================================================
// Descriptor - Synthesized Output
// =============================================================================

// Descriptor is a compose document describing one deployable stack.
// Build it with a Builder; the builder guarantees that the volume declarations and
// every service's mount list stay in lockstep.
type Descriptor struct {
	Version  string                  `yaml:"version"`
	Services map[string]ServiceEntry `yaml:"services"`
	Networks map[string]NetworkEntry `yaml:"networks,omitempty"`
	Volumes  map[string]VolumeEntry  `yaml:"volumes,omitempty"`
}

// ServiceEntry is a single service in a Descriptor.
type ServiceEntry struct {
	ContainerName string            `yaml:"container_name,omitempty"`
	Image         string            `yaml:"image"`
	Environment   map[string]string `yaml:"environment,omitempty"`
	Networks      []string          `yaml:"networks,omitempty"`
	Volumes       []string          `yaml:"volumes,omitempty"` // "<volume>:<container path>"
	Restart       RestartPolicy     `yaml:"restart,omitempty"`
	Labels        map[string]string `yaml:"labels,omitempty"`
	Deploy        *DeployConfig     `yaml:"deploy,omitempty"`
}

// DeployConfig is the deploy stanza of a service.
type DeployConfig struct {
	RestartPolicy *DeployRestartPolicy `yaml:"restart_policy,omitempty"`
}

// DeployRestartPolicy is a bounded retry policy honored by orchestrators that read deploy.
type DeployRestartPolicy struct {
	Condition   RestartPolicy `yaml:"condition"`
	Delay       string        `yaml:"delay"`
	MaxAttempts int           `yaml:"max_attempts"`
	Window      string        `yaml:"window"`
}

// NetworkEntry declares a network used by the stack.
type NetworkEntry struct {
	External bool `yaml:"external"`
}

// VolumeEntry declares a named volume.
type VolumeEntry struct {
	Name string `yaml:"name"`
}

// RestartPolicy represents the restart policy.
type RestartPolicy string

const (
	RestartNo            RestartPolicy = "no"
	RestartAlways        RestartPolicy = "always"
	RestartOnFailure     RestartPolicy = "on-failure"
	RestartUnlessStopped RestartPolicy = "unless-stopped"
)

// Images returns the image references of all services, sorted by service name.
func (d Descriptor) Images() []string {
	names := sortedKeys(d.Services)
	images := make([]string, 0, len(names))
	for _, name := range names {
		images = append(images, d.Services[name].Image)
	}
	return images
}

// =============================================================================
// ParsedSpec - Loaded Output
// =============================================================================

// ParsedSpec is a compose document as loaded back by compose-go.
// It is used to check a serialized descriptor before it is handed to the engine.
type ParsedSpec struct {
	Services []Service `json:"services"`
	Networks []Network `json:"networks,omitempty"`
	Volumes  []Volume  `json:"volumes,omitempty"`
}

// Service represents a single loaded service definition.
type Service struct {
	Name          string            `json:"name"`
	ContainerName string            `json:"container_name,omitempty"`
	Image         string            `json:"image,omitempty"`
	Environment   map[string]string `json:"environment,omitempty"`
	Volumes       []VolumeMount     `json:"volumes,omitempty"`
	Networks      []string          `json:"networks,omitempty"`
	Restart       RestartPolicy     `json:"restart,omitempty"`
	Labels        map[string]string `json:"labels,omitempty"`
}

// VolumeMount represents a volume mount in a service.
type VolumeMount struct {
	Type     VolumeMountType `json:"type"`
	Source   string          `json:"source"`
	Target   string          `json:"target"`
	ReadOnly bool            `json:"readonly"`
}

// VolumeMountType represents the type of volume mount.
type VolumeMountType string

const (
	VolumeMountTypeBind   VolumeMountType = "bind"
	VolumeMountTypeVolume VolumeMountType = "volume"
	VolumeMountTypeTmpfs  VolumeMountType = "tmpfs"
)

// Network represents a loaded network definition.
type Network struct {
	Name     string `json:"name"`
	External bool   `json:"external"`
}

// Volume represents a loaded named volume definition.
type Volume struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	External bool   `json:"external"`
}
