package oauth

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-oauth/core"
)

// ScopePack contributes scope descriptions and, optionally, default scopes.
type ScopePack struct {
	Name     string
	Scopes   map[string]string
	Defaults []string
}

// ClaimsPack contributes ID token claim sources.
type ClaimsPack struct {
	Name         string
	Contributors []core.ClaimsContributor
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// ExtensionHooks collects named packs from host modules. Packs are applied in
// name order so the result does not depend on registration order.
type ExtensionHooks struct {
	mu sync.RWMutex

	scopePacks  map[string]ScopePack
	claimsPacks map[string]ClaimsPack
	bundles     map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		scopePacks:  map[string]ScopePack{},
		claimsPacks: map[string]ClaimsPack{},
		bundles:     map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterScopePack(pack ScopePack) error {
	if h == nil {
		return fmt.Errorf("oauth: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("oauth: scope pack name is required")
	}
	if len(pack.Scopes) == 0 {
		return fmt.Errorf("oauth: scope pack %q has no scopes", name)
	}

	normalized := ScopePack{Name: name, Scopes: make(map[string]string, len(pack.Scopes))}
	for scope, description := range pack.Scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" || strings.ContainsAny(scope, " \t\n") {
			return fmt.Errorf("oauth: scope pack %q has invalid scope %q", name, scope)
		}
		normalized.Scopes[scope] = description
	}
	for _, scope := range pack.Defaults {
		scope = strings.TrimSpace(scope)
		if _, ok := normalized.Scopes[scope]; !ok {
			return fmt.Errorf("oauth: scope pack %q default %q is not part of the pack", name, scope)
		}
		normalized.Defaults = append(normalized.Defaults, scope)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.scopePacks[name]; exists {
		return fmt.Errorf("oauth: scope pack %q already registered", name)
	}
	h.scopePacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterClaimsPack(pack ClaimsPack) error {
	if h == nil {
		return fmt.Errorf("oauth: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("oauth: claims pack name is required")
	}
	if len(pack.Contributors) == 0 {
		return fmt.Errorf("oauth: claims pack %q has no contributors", name)
	}
	for _, contributor := range pack.Contributors {
		if contributor == nil {
			return fmt.Errorf("oauth: claims pack %q contains nil contributor", name)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.claimsPacks[name]; exists {
		return fmt.Errorf("oauth: claims pack %q already registered", name)
	}
	h.claimsPacks[name] = ClaimsPack{
		Name:         name,
		Contributors: append([]core.ClaimsContributor(nil), pack.Contributors...),
	}
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("oauth: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("oauth: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("oauth: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("oauth: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyScopePacks merges the registered scopes into cfg. A scope that is
// already described differently is a conflict.
func (h *ExtensionHooks) ApplyScopePacks(cfg Config) (Config, error) {
	packs := h.ScopePacks()
	if len(packs) == 0 {
		return cfg, nil
	}
	scopes := make(map[string]string, len(cfg.Scopes))
	for scope, description := range cfg.Scopes {
		scopes[scope] = description
	}
	defaults := append([]string(nil), cfg.DefaultScopes...)
	seenDefault := make(map[string]struct{}, len(defaults))
	for _, scope := range defaults {
		seenDefault[scope] = struct{}{}
	}

	for _, pack := range packs {
		for _, scope := range sortedKeys(pack.Scopes) {
			description := pack.Scopes[scope]
			if existing, ok := scopes[scope]; ok && existing != description {
				return cfg, fmt.Errorf("oauth: scope pack %q redefines scope %q", pack.Name, scope)
			}
			scopes[scope] = description
		}
		for _, scope := range pack.Defaults {
			if _, ok := seenDefault[scope]; ok {
				continue
			}
			seenDefault[scope] = struct{}{}
			defaults = append(defaults, scope)
		}
	}

	cfg.Scopes = scopes
	cfg.DefaultScopes = defaults
	return cfg, nil
}

// Options returns the service options contributed by claims packs.
func (h *ExtensionHooks) Options() []Option {
	if h == nil {
		return nil
	}
	var contributors []core.ClaimsContributor
	for _, pack := range h.ClaimsPacks() {
		contributors = append(contributors, pack.Contributors...)
	}
	if len(contributors) == 0 {
		return nil
	}
	return []Option{core.WithClaimsContributors(contributors...)}
}

// NewService applies every registered pack and builds the service.
func (h *ExtensionHooks) NewService(cfg Config, opts ...Option) (*Service, error) {
	merged, err := h.ApplyScopePacks(cfg)
	if err != nil {
		return nil, err
	}
	all := append(h.Options(), opts...)
	return core.NewService(merged, all...)
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("oauth: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) ScopePacks() []ScopePack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ScopePack, 0, len(h.scopePacks))
	for _, name := range sortedKeys(h.scopePacks) {
		pack := h.scopePacks[name]
		scopes := make(map[string]string, len(pack.Scopes))
		for scope, description := range pack.Scopes {
			scopes[scope] = description
		}
		out = append(out, ScopePack{
			Name:     pack.Name,
			Scopes:   scopes,
			Defaults: append([]string(nil), pack.Defaults...),
		})
	}
	return out
}

func (h *ExtensionHooks) ClaimsPacks() []ClaimsPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ClaimsPack, 0, len(h.claimsPacks))
	for _, name := range sortedKeys(h.claimsPacks) {
		pack := h.claimsPacks[name]
		out = append(out, ClaimsPack{
			Name:         pack.Name,
			Contributors: append([]core.ClaimsContributor(nil), pack.Contributors...),
		})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sortedKeys(h.bundles)
}

func sortedKeys[V any](in map[string]V) []string {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
