// Package config handles loading and validating HSB core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Secrets (MQTT password, InfluxDB token, ASR key) should be set via
//     environment variables or a .env file, not the YAML file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, t := range cfg.Transports {
//	    fmt.Println(t.Name, t.URL)
//	}
package config
