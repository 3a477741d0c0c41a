package config

import (
	"fmt"
	"os"

	"github.com/postforge/api/model"
)

// TenantEnv is a resolved, immutable configuration snapshot for one tenant
// invocation. It is built once per worker/scheduler/publisher call and passed
// explicitly; the process environment is never mutated, so concurrent
// invocations for different tenants cannot leak config into each other.
type TenantEnv map[string]string

// Keys a tenant may override. Anything else in tenant.env is carried through
// as-is so actions and generators can read custom settings.
var tenantEnvKeys = []string{
	"OPENAI_API_KEY",
	"INSTAGRAM_ACCESS_TOKEN",
	"INSTAGRAM_ACCOUNT_ID",
	"PUBLIC_URL",
	"DISCORD_WEBHOOK_URL",
}

// ForTenant resolves the effective config for a tenant: process-level values
// first, then the tenant's env overlay on top. A nil tenant yields the
// process-level snapshot (tasks without a tenant still need generator creds).
func ForTenant(t *model.Tenant) TenantEnv {
	env := TenantEnv{}
	for _, key := range tenantEnvKeys {
		if v := os.Getenv(key); v != "" {
			env[key] = v
		}
	}
	if t == nil || t.Env == nil {
		return env
	}
	for key, value := range t.Env {
		if value == nil {
			env[key] = ""
			continue
		}
		if s, ok := value.(string); ok {
			env[key] = s
		} else {
			env[key] = fmt.Sprintf("%v", value)
		}
	}
	return env
}

// Get returns the value for key, or def when absent or empty.
func (e TenantEnv) Get(key, def string) string {
	if v, ok := e[key]; ok && v != "" {
		return v
	}
	return def
}

// Require returns the value for key or an error naming the missing key.
func (e TenantEnv) Require(key string) (string, error) {
	if v, ok := e[key]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("required config %s is not set", key)
}
