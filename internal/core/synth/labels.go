package synth

// =============================================================================
// Label Constants
// =============================================================================

const (
	LabelManaged = "com.berth.managed"
	LabelVersion = "com.berth.version"
	LabelType    = "com.berth.type"
	LabelService = "com.berth.service"
)

// Labels returns the discovery labels for a deployed service.
//
// Example:
//
//	Labels("svc1", "vscodeserver", "1.2.0")
//	// {
//	//   "com.berth.managed": "true",
//	//   "com.berth.version": "1.2.0",
//	//   "com.berth.type":    "service-vscodeserver",
//	//   "com.berth.service": "svc1",
//	// }
func Labels(serviceID, kind, version string) map[string]string {
	return map[string]string{
		LabelManaged: "true",
		LabelVersion: version,
		LabelType:    "service-" + kind,
		LabelService: serviceID,
	}
}
