// Package config handles YAML config file loading for segwire commands.
package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// LookupFunc resolves a variable name; ok reports whether it is set.
type LookupFunc func(name string) (value string, ok bool)

// ExpandEnv expands ${VAR} and ${VAR:-default} from the process environment.
//
// Unset variables without defaults expand to the empty string. A missing
// redis URL or bucket then fails validation downstream with a clear message.
func ExpandEnv(input string) string {
	return Expand(input, os.LookupEnv)
}

// Expand is ExpandEnv with a caller-supplied lookup. A variable that is set
// but empty takes the default, if one is given.
func Expand(input string, lookup LookupFunc) string {
	matches := envVarPattern.FindAllStringSubmatchIndex(input, -1)
	if len(matches) == 0 {
		return input
	}

	out := make([]byte, 0, len(input))
	last := 0
	for _, m := range matches {
		out = append(out, input[last:m[0]]...)
		last = m[1]

		name := input[m[2]:m[3]]
		if value, ok := lookup(name); ok && value != "" {
			out = append(out, value...)
			continue
		}
		// m[4] is -1 when the :- clause is absent.
		if m[4] >= 0 {
			out = append(out, input[m[4]:m[5]]...)
		}
	}
	out = append(out, input[last:]...)
	return string(out)
}
