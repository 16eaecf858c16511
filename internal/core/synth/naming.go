package synth

import (
	"fmt"
	"strings"
)

// =============================================================================
// Resource Naming Functions
// =============================================================================

// DataVolumeName names the primary data volume of a service.
// Pattern: {serviceID}-{kind}-data
//
// Example:
//
//	DataVolumeName("svc1", "vscodeserver") // returns "svc1-vscodeserver-data"
func DataVolumeName(serviceID, kind string) string {
	return fmt.Sprintf("%s-%s-data", serviceID, kind)
}

// StorageVolumeName names the volume backing a persistent storage path.
// Every "/" in the path becomes "-", so the name is stable across deployments.
//
// Example:
//
//	StorageVolumeName("svc1", "/data/logs") // returns "svc1-data-logs"
func StorageVolumeName(serviceID, path string) string {
	return serviceID + strings.ReplaceAll(path, "/", "-")
}

// ContainerName is the container name of a service; it equals the service ID.
func ContainerName(serviceID string) string {
	return serviceID
}
