package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SKILLET_"

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from SKILLET_* variables, e.g.
// SKILLET_ORACLE_MODEL or SKILLET_STORE_DRIVER. List values are comma
// separated.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = splitList(v)
		}
	}
	var errs []string
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *Duration) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
			}
		}
	}

	str("LOG_LEVEL", &c.Log.Level)
	boolean("LOG_JSON", &c.Log.JSON)

	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_DIR", &c.Store.Dir)
	str("STORE_DSN", &c.Store.DSN)
	str("STORE_URL", &c.Store.URL)
	str("STORE_PREFIX", &c.Store.Prefix)

	str("ORACLE_PROVIDER", &c.Oracle.Provider)
	str("ORACLE_MODEL", &c.Oracle.Model)
	str("ORACLE_BASE_URL", &c.Oracle.BaseURL)
	str("ORACLE_API_KEY", &c.Oracle.APIKey)
	dur("ORACLE_TIMEOUT", &c.Oracle.Timeout)
	num("ORACLE_MAX_RETRIES", &c.Oracle.MaxRetries)

	num("SELECTOR_CONCURRENCY", &c.Selector.Concurrency)
	dur("SELECTOR_CALL_TIMEOUT", &c.Selector.CallTimeout)

	dur("SANDBOX_TIMEOUT", &c.Sandbox.Timeout)
	str("SANDBOX_BACKEND", &c.Sandbox.Backend)
	list("SANDBOX_ALLOWED_MODULES", &c.Sandbox.AllowedModules)

	list("READ_PATHS", &c.Script.ReadPaths)
	list("MODULES", &c.Script.Modules)

	str("SERVER_ADDR", &c.Server.Addr)
	list("CORS_ORIGINS", &c.Server.CORSOrigins)

	boolean("WATCH", &c.Watch.Enabled)
	str("WATCH_DIR", &c.Watch.Dir)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
