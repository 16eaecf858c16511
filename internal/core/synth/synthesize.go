package synth

import (
	"fmt"

	"github.com/artpar/berth/internal/core/compose"
	"github.com/artpar/berth/internal/core/domain"
)

// Deploy restart policy. The engine is expected to honor restart: always on its own;
// these values only matter to orchestrators that read the deploy stanza.
const (
	RestartDelay       = "5s"
	RestartMaxAttempts = 3
	RestartWindow      = "120s"
)

// Options carries values that do not come from the service record.
type Options struct {
	// PlatformVersion is written into the version label.
	PlatformVersion string
}

// Synthesize builds the compose descriptor for a service.
func Synthesize(svc *domain.Service, opts Options) (compose.Descriptor, error) {
	if err := svc.Validate(); err != nil {
		return compose.Descriptor{}, err
	}
	kind, err := LookupKind(svc.Kind)
	if err != nil {
		return compose.Descriptor{}, err
	}

	config := svc.Config
	if config == nil {
		config = map[string]string{}
	}

	b := compose.NewBuilder().
		AddService(svc.ID, compose.ServiceEntry{
			ContainerName: ContainerName(svc.ID),
			Image:         fmt.Sprintf("%s:%s", kind.Image, svc.Version),
			Environment:   MergeEnvironment(kind.BaseEnv(config), svc.Secrets),
			Restart:       compose.RestartAlways,
			Labels:        Labels(svc.ID, kind.Name, opts.PlatformVersion),
			Deploy: &compose.DeployConfig{
				RestartPolicy: &compose.DeployRestartPolicy{
					Condition:   compose.RestartOnFailure,
					Delay:       RestartDelay,
					MaxAttempts: RestartMaxAttempts,
					Window:      RestartWindow,
				},
			},
		}).
		ExternalNetwork(svc.ID, svc.Destination.Network).
		Mount(svc.ID, DataVolumeName(svc.ID, kind.Name), kind.DataPath)

	for _, path := range svc.PersistentStorage {
		b.Mount(svc.ID, StorageVolumeName(svc.ID, path), path)
	}

	return b.Build()
}
