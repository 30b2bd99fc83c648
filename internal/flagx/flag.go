// Package flagx lets several loaders share os.Args: each one filters out
// only the flags it owns before parsing, so unknown flags never collide.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the allowed flags and their values from args.
// Both "-f value" and "-f=value" forms are recognised; a following token
// that starts with "-" is never consumed as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// JsonConfigFlags returns the JSON config path given by -c or -config, or "".
func JsonConfigFlags() string {
	return stringFlag([]string{"-c", "-config"}, "c", "config")
}

// DotenvFlags returns the dotenv file path given by -env-file, or "".
func DotenvFlags() string {
	return stringFlag([]string{"-env-file"}, "env-file")
}

func stringFlag(allowed []string, names ...string) string {
	var value string

	fs := flag.NewFlagSet("flagx", flag.ContinueOnError)
	for _, n := range names {
		fs.StringVar(&value, n, "", "path")
	}
	_ = fs.Parse(FilterArgs(os.Args[1:], allowed))

	return value
}
