// Package config defines the runtime configuration of the noria operator.
//
// A [Config] is read from an optional YAML file, completed with defaults and
// validated. Command line flags on the operator binary override file values
// when they are set explicitly. [RESTConfig] turns the configured
// [CredentialSource] into a client-go REST config.
package config
