// Package tfm holds the TF-M build knowledge: which platform and profile
// to configure, and how the built tree is laid out.
package tfm

import (
	"fmt"
	"path/filepath"
)

// Profile is the build profile shared by the build invocation and the
// binding generation. Producing it once and passing it to both is what
// keeps the generated bindings describing the ABI that was actually built;
// the two crypto config headers select the feature profile on both sides.
type Profile struct {
	// Name identifies the profile in config files and logs.
	Name string

	// Platform is the TFM_PLATFORM identifier.
	Platform string

	// TFMProfile is the TFM_PROFILE identifier.
	TFMProfile string

	// TestS and TestSCrypto enable the secure-side regression and crypto
	// test suites.
	TestS       bool
	TestSCrypto bool

	// CryptoConfigRel and MbedTLSConfigRel are the crypto configuration
	// headers, relative to the TF-M source tree. They must describe the
	// same feature set TFM_PROFILE selects.
	CryptoConfigRel  string
	MbedTLSConfigRel string
}

// TC3Medium is the profile for the TC3 reference platform with the medium
// isolation profile, matching the upstream secure enclave build.
func TC3Medium() Profile {
	return Profile{
		Name:             "tc3-medium",
		Platform:         "arm/rse/tc/tc3",
		TFMProfile:       "profile_medium",
		TestS:            true,
		TestSCrypto:      true,
		CryptoConfigRel:  "lib/ext/mbedcrypto/mbedcrypto_config/crypto_config_profile_medium.h",
		MbedTLSConfigRel: "lib/ext/mbedcrypto/mbedcrypto_config/tfm_mbedcrypto_config_client.h",
	}
}

// LookupProfile resolves a profile by name.
func LookupProfile(name string) (Profile, error) {
	switch name {
	case "", "tc3-medium":
		return TC3Medium(), nil
	default:
		return Profile{}, fmt.Errorf("unknown build profile %q", name)
	}
}

// PreprocessorDefines returns the macro definitions the binding generation
// must pass so the public header resolves against the same crypto
// configuration the build used. sourceDir is the synced TF-M tree.
func (p Profile) PreprocessorDefines(sourceDir string) map[string]string {
	return map[string]string{
		"MBEDTLS_PSA_CRYPTO_CONFIG_FILE": quoted(filepath.Join(sourceDir, p.CryptoConfigRel)),
		"MBEDTLS_CONFIG_FILE":            quoted(filepath.Join(sourceDir, p.MbedTLSConfigRel)),
	}
}

func quoted(path string) string {
	return `"` + path + `"`
}

// RequirementsPath is the Python dependency manifest inside the TF-M tree.
func RequirementsPath(sourceDir string) string {
	return filepath.Join(sourceDir, "tools", "requirements.txt")
}
