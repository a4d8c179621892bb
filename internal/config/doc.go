// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. It provides
// type-safe access to server, polling, task and provider settings while
// keeping configuration details separate from the components that use them.
package config
