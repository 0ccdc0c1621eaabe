package orchestrator

import (
	"context"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sentineldb/sentinel/internal/types"
)

// ConnectionConfig is the raw, unresolved connection info for one target;
// Password is opaque (tag-prefixed) until run through the Decryptor
// collaborator.
type ConnectionConfig struct {
	Host              string
	Port              int
	Database          string
	Username          string
	EncryptedPassword string
}

// TargetProvider supplies the set of monitored targets and their
// per-environment connection configuration. Credential management and the
// tenant/environment directory live outside the core; this is the seam.
type TargetProvider interface {
	Targets(ctx context.Context) ([]types.Target, error)
	ConnectionConfig(ctx context.Context, target types.Target) (ConnectionConfig, error)
}

// RegistryEntry is one row of a key registry: either global (TenantID nil)
// or scoped to one tenant.
type RegistryEntry struct {
	TenantID *int
	FullName string
}

// KeyRegistry is the shape shared by the tracked-base-object registry (used
// to build the per-scan inclusion filter) and the tenant custom-object
// registry (used by the isCustom computation); both are "is this fullName
// known for this tenant (or globally)" lookups.
type KeyRegistry interface {
	Entries(ctx context.Context) ([]RegistryEntry, error)
}

// StaticTargetProvider and StaticKeyRegistry below are YAML-file-backed
// implementations suitable for a single-process deployment; a networked
// tenant directory can implement the same interfaces.

type yamlTarget struct {
	TenantID          int    `yaml:"tenantId"`
	TenantCode        string `yaml:"tenantCode"`
	Environment       string `yaml:"environment"`
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	Database          string `yaml:"database"`
	Username          string `yaml:"username"`
	EncryptedPassword string `yaml:"encryptedPassword"`
}

type yamlTargetFile struct {
	Targets []yamlTarget `yaml:"targets"`
}

// StaticTargetProvider is a TargetProvider loaded once from a YAML file.
type StaticTargetProvider struct {
	targets []types.Target
	byKey   map[string]ConnectionConfig
}

func targetKey(t types.Target) string {
	return strings.ToLower(t.TenantCode) + "|" + string(t.Environment) + "|" + strconv.Itoa(t.TenantID)
}

// LoadTargetProvider parses a YAML file in the shape documented by
// yamlTargetFile.
func LoadTargetProvider(path string) (*StaticTargetProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file yamlTargetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	p := &StaticTargetProvider{byKey: make(map[string]ConnectionConfig)}
	for _, yt := range file.Targets {
		target := types.Target{TenantID: yt.TenantID, TenantCode: yt.TenantCode, Environment: types.Environment(yt.Environment)}
		p.targets = append(p.targets, target)
		p.byKey[targetKey(target)] = ConnectionConfig{
			Host: yt.Host, Port: yt.Port, Database: yt.Database,
			Username: yt.Username, EncryptedPassword: yt.EncryptedPassword,
		}
	}
	return p, nil
}

// Targets implements TargetProvider.
func (p *StaticTargetProvider) Targets(ctx context.Context) ([]types.Target, error) {
	return p.targets, nil
}

// ConnectionConfig implements TargetProvider.
func (p *StaticTargetProvider) ConnectionConfig(ctx context.Context, target types.Target) (ConnectionConfig, error) {
	cfg, ok := p.byKey[targetKey(target)]
	if !ok {
		return ConnectionConfig{}, types.ErrNotFound
	}
	return cfg, nil
}

// StaticKeyRegistry is an in-memory KeyRegistry; safe for concurrent reads.
type StaticKeyRegistry struct {
	entries []RegistryEntry
}

// NewStaticKeyRegistry builds a KeyRegistry from a fixed entry list (an
// empty registry means "track everything").
func NewStaticKeyRegistry(entries []RegistryEntry) *StaticKeyRegistry {
	return &StaticKeyRegistry{entries: entries}
}

// Entries implements KeyRegistry.
func (r *StaticKeyRegistry) Entries(ctx context.Context) ([]RegistryEntry, error) {
	return r.entries, nil
}
