// Package config loads the console's YAML configuration file and
// supplies defaults for everything the file leaves unset.
package config
