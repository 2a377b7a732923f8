// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Sections: client, heartbeat, reconnect, recorder, metrics, log. Every section
// except client is optional.
package config
