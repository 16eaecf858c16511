package synth

import "github.com/artpar/berth/internal/core/domain"

// MergeEnvironment overlays secrets on the base environment.
//
// Secrets are applied in list order: a secret replaces a base variable of the same name,
// and a later secret replaces an earlier one. Neither input is modified.
func MergeEnvironment(base map[string]string, secrets []domain.Secret) map[string]string {
	env := make(map[string]string, len(base)+len(secrets))
	for k, v := range base {
		env[k] = v
	}
	for _, s := range secrets {
		env[s.Name] = s.Value
	}
	return env
}
