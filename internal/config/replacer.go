package config

import "strings"

// envKeyReplacer maps viper's dotted key paths (e.g. "postgres.host") to
// the flat environment variable names the process actually reads (e.g.
// HYDROSEARCH_POSTGRES_HOST).
func envKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}
