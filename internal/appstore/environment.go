package appstore

// Environment is the server environment a signed payload claims to originate
// from.
//
// Sandbox and Production payloads are signed by the store's certificate
// hierarchy and always require full chain and signature verification. Xcode
// and LocalTesting payloads are produced by developer tooling with no
// production signing infrastructure; for those, verification is structural
// and identity-only, and results are marked TrustSourceLocal.
type Environment string

const (
	EnvironmentSandbox      Environment = "Sandbox"
	EnvironmentProduction   Environment = "Production"
	EnvironmentXcode        Environment = "Xcode"
	EnvironmentLocalTesting Environment = "LocalTesting"
)

// Recognized reports whether the value is one of the known environments.
// Unknown values are preserved as-is so future server environments decode
// without error.
func (e Environment) Recognized() bool {
	switch e {
	case EnvironmentSandbox, EnvironmentProduction, EnvironmentXcode, EnvironmentLocalTesting:
		return true
	}
	return false
}

// SkipsChainVerification reports whether payloads from this environment are
// exempt from chain-of-trust and signature verification. Never true for
// Sandbox or Production.
func (e Environment) SkipsChainVerification() bool {
	return e == EnvironmentXcode || e == EnvironmentLocalTesting
}
