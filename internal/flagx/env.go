package flagx

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString overrides *dst with the first non-empty variable among keys.
func EnvString(dst *string, keys ...string) {
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
			*dst = v
			return
		}
	}
}

// EnvInt overrides *dst when one of keys holds a valid integer.
func EnvInt(dst *int, keys ...string) {
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
				return
			}
		}
	}
}

// EnvBool overrides *dst when one of keys holds a value strconv.ParseBool accepts.
func EnvBool(dst *bool, keys ...string) {
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
				return
			}
		}
	}
}

// EnvDuration overrides *dst when one of keys parses with time.ParseDuration.
func EnvDuration(dst *time.Duration, keys ...string) {
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
				*dst = d
				return
			}
		}
	}
}
