package ports

// ConfigurationSink is the host-side entry point configuration sources push
// dictionaries into. The host fans each call out to the managed listeners
// registered for the pid.
//
// Factory instances are addressed by (factoryPid, name); the host derives the
// full instance pid as factoryPid + "~" + name.
type ConfigurationSink interface {
	// UpdateConfiguration replaces the dictionary for pid.
	UpdateConfiguration(pid string, props map[string]any)

	// DeleteConfiguration withdraws the dictionary for pid. Managed
	// listeners observe a nil dictionary.
	DeleteConfiguration(pid string)

	// UpdateFactoryConfiguration replaces the dictionary for one factory
	// instance.
	UpdateFactoryConfiguration(factoryPid, name string, props map[string]any)

	// DeleteFactoryConfiguration withdraws one factory instance.
	DeleteFactoryConfiguration(factoryPid, name string)
}

// FactoryInstancePID derives the full pid of a factory configuration
// instance.
func FactoryInstancePID(factoryPid, name string) string {
	return factoryPid + "~" + name
}
