package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type ModelKind string

const (
	ModelApplication  ModelKind = "application"
	ModelAccessToken  ModelKind = "access_token"
	ModelRefreshToken ModelKind = "refresh_token"
	ModelGrant        ModelKind = "grant"
	ModelIDToken      ModelKind = "id_token"
)

// ModelDefinition binds a "<label>.<TypeName>" specifier to the table that
// stores records of kind.
type ModelDefinition struct {
	Kind      ModelKind
	Specifier string
	Table     string
}

func (d ModelDefinition) Label() string {
	label, _, _ := strings.Cut(d.Specifier, ".")
	return label
}

func (d ModelDefinition) TypeName() string {
	_, typeName, _ := strings.Cut(d.Specifier, ".")
	return typeName
}

func DefaultModelDefinitions() []ModelDefinition {
	return []ModelDefinition{
		{Kind: ModelApplication, Specifier: "oauth.Application", Table: "oauth_applications"},
		{Kind: ModelAccessToken, Specifier: "oauth.AccessToken", Table: "oauth_access_tokens"},
		{Kind: ModelRefreshToken, Specifier: "oauth.RefreshToken", Table: "oauth_refresh_tokens"},
		{Kind: ModelGrant, Specifier: "oauth.Grant", Table: "oauth_grants"},
		{Kind: ModelIDToken, Specifier: "oauth.IDToken", Table: "oauth_id_tokens"},
	}
}

// ModelsConfig holds the per-kind overrides. Empty slots use the default
// definition.
type ModelsConfig struct {
	Application  string `koanf:"application" mapstructure:"application"`
	AccessToken  string `koanf:"access_token" mapstructure:"access_token"`
	RefreshToken string `koanf:"refresh_token" mapstructure:"refresh_token"`
	Grant        string `koanf:"grant" mapstructure:"grant"`
}

func (c ModelsConfig) Override(kind ModelKind) string {
	switch kind {
	case ModelApplication:
		return strings.TrimSpace(c.Application)
	case ModelAccessToken:
		return strings.TrimSpace(c.AccessToken)
	case ModelRefreshToken:
		return strings.TrimSpace(c.RefreshToken)
	case ModelGrant:
		return strings.TrimSpace(c.Grant)
	default:
		return ""
	}
}

// ParseModelSpecifier splits "<label>.<TypeName>". Any other shape is a
// configuration error.
func ParseModelSpecifier(specifier string) (label string, typeName string, err error) {
	parts := strings.Split(strings.TrimSpace(specifier), ".")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", NewConfigurationError(
			fmt.Sprintf("core: model specifier %q must be of the form 'label.TypeName'", specifier),
		)
	}
	return parts[0], parts[1], nil
}

type modelResolution struct {
	definition ModelDefinition
	err        error
}

// ModelRegistry resolves the active model of each kind. The first resolution
// of a kind is cached; later configuration changes need a new registry.
type ModelRegistry struct {
	mu          sync.RWMutex
	overrides   ModelsConfig
	definitions map[string]ModelDefinition
	resolved    map[ModelKind]modelResolution
}

func NewModelRegistry(overrides ModelsConfig) *ModelRegistry {
	registry := &ModelRegistry{
		overrides:   overrides,
		definitions: make(map[string]ModelDefinition),
		resolved:    make(map[ModelKind]modelResolution),
	}
	for _, def := range DefaultModelDefinitions() {
		registry.definitions[def.Specifier] = def
	}
	return registry
}

func (r *ModelRegistry) Register(def ModelDefinition) error {
	if r == nil {
		return fmt.Errorf("core: model registry is nil")
	}
	if _, _, err := ParseModelSpecifier(def.Specifier); err != nil {
		return err
	}
	if strings.TrimSpace(string(def.Kind)) == "" {
		return fmt.Errorf("core: model kind is required for %s", def.Specifier)
	}
	if strings.TrimSpace(def.Table) == "" {
		return fmt.Errorf("core: model table is required for %s", def.Specifier)
	}
	def.Specifier = strings.TrimSpace(def.Specifier)
	def.Table = strings.TrimSpace(def.Table)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.definitions[def.Specifier]; exists {
		return fmt.Errorf("core: model already registered: %s", def.Specifier)
	}
	r.definitions[def.Specifier] = def
	return nil
}

func (r *ModelRegistry) Resolve(kind ModelKind) (ModelDefinition, error) {
	if r == nil {
		return ModelDefinition{}, fmt.Errorf("core: model registry is nil")
	}
	r.mu.RLock()
	cached, ok := r.resolved[kind]
	r.mu.RUnlock()
	if ok {
		return cached.definition, cached.err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.resolved[kind]; ok {
		return cached.definition, cached.err
	}
	def, err := r.resolveLocked(kind)
	r.resolved[kind] = modelResolution{definition: def, err: err}
	return def, err
}

func (r *ModelRegistry) resolveLocked(kind ModelKind) (ModelDefinition, error) {
	specifier := r.overrides.Override(kind)
	if specifier == "" {
		for _, def := range DefaultModelDefinitions() {
			if def.Kind == kind {
				return def, nil
			}
		}
		return ModelDefinition{}, NewLookupError(fmt.Sprintf("core: unknown model kind %q", kind))
	}
	if _, _, err := ParseModelSpecifier(specifier); err != nil {
		return ModelDefinition{}, err
	}
	def, ok := r.definitions[specifier]
	if !ok {
		return ModelDefinition{}, NewLookupError(
			fmt.Sprintf("core: %s model %q has not been registered", kind, specifier),
		)
	}
	if def.Kind != kind {
		return ModelDefinition{}, NewLookupError(
			fmt.Sprintf("core: model %q is registered as %s, not %s", specifier, def.Kind, kind),
		)
	}
	return def, nil
}

// Table returns the table backing the active model of kind.
func (r *ModelRegistry) Table(kind ModelKind) (string, error) {
	def, err := r.Resolve(kind)
	if err != nil {
		return "", err
	}
	return def.Table, nil
}

// ResolveAll resolves every kind, returning the first failure.
func (r *ModelRegistry) ResolveAll() (map[ModelKind]ModelDefinition, error) {
	out := make(map[ModelKind]ModelDefinition)
	for _, kind := range ModelKinds() {
		def, err := r.Resolve(kind)
		if err != nil {
			return nil, err
		}
		out[kind] = def
	}
	return out, nil
}

// List returns registered definitions ordered by specifier.
func (r *ModelRegistry) List() []ModelDefinition {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.definitions))
	for specifier := range r.definitions {
		keys = append(keys, specifier)
	}
	sort.Strings(keys)
	out := make([]ModelDefinition, 0, len(keys))
	for _, specifier := range keys {
		out = append(out, r.definitions[specifier])
	}
	return out
}

func ModelKinds() []ModelKind {
	return []ModelKind{ModelApplication, ModelAccessToken, ModelRefreshToken, ModelGrant, ModelIDToken}
}
