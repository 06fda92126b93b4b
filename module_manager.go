package kernel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ModuleManager loads modules and exposes them by name and alias.
type ModuleManager interface {
	Register(module Module) error
	LoadModules(ctx context.Context, host Host) error
	Modules() []string
	Module(name string) (Module, error)
	ModuleByAlias(alias string) (Module, error)
	LocateResource(name, dir string, first bool) ([]string, error)
}

// StdModuleManager keeps modules in registration order.
type StdModuleManager struct {
	mu      sync.RWMutex
	order   []string
	byName  map[string]Module
	byAlias map[string]Module
	ready   map[string]bool
	loaded  bool
	logger  Logger
}

// NewModuleManager creates an empty module manager.
func NewModuleManager(logger Logger) *StdModuleManager {
	if logger == nil {
		logger = discardLogger()
	}
	return &StdModuleManager{
		byName:  make(map[string]Module),
		byAlias: make(map[string]Module),
		ready:   make(map[string]bool),
		logger:  logger,
	}
}

// Register adds a module. Names and aliases must be unique.
func (mm *StdModuleManager) Register(module Module) error {
	if module == nil {
		return ErrModuleNil
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.loaded {
		return fmt.Errorf("%w: cannot register %s", ErrModulesAlreadyLoaded, module.Name())
	}
	if _, exists := mm.byName[module.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrModuleAlreadyExists, module.Name())
	}
	if _, exists := mm.byAlias[module.Alias()]; exists {
		return fmt.Errorf("%w: alias %s", ErrModuleAlreadyExists, module.Alias())
	}

	mm.order = append(mm.order, module.Name())
	mm.byName[module.Name()] = module
	mm.byAlias[module.Alias()] = module
	mm.logger.Debug("Registered module", "name", module.Name(), "alias", module.Alias())
	return nil
}

// LoadModules initializes every Initializable module once, in registration
// order. The first failure aborts loading; a later call resumes with the
// module that failed.
func (mm *StdModuleManager) LoadModules(ctx context.Context, host Host) error {
	mm.mu.Lock()
	if mm.loaded {
		mm.mu.Unlock()
		return nil
	}
	modules := make([]Module, 0, len(mm.order))
	for _, name := range mm.order {
		modules = append(modules, mm.byName[name])
	}
	mm.mu.Unlock()

	for _, module := range modules {
		if mm.initialized(module.Name()) {
			continue
		}
		initializable, ok := module.(Initializable)
		if !ok {
			mm.logger.Debug("Module does not implement Initializable, skipping", "module", module.Name())
			continue
		}
		if err := initializable.Init(ctx, host); err != nil {
			return fmt.Errorf("failed to initialize module '%s': %w", module.Name(), err)
		}
		mm.mu.Lock()
		mm.ready[module.Name()] = true
		mm.mu.Unlock()
		mm.logger.Debug("Initialized module", "module", module.Name())
	}

	mm.mu.Lock()
	mm.loaded = true
	mm.mu.Unlock()
	return nil
}

func (mm *StdModuleManager) initialized(name string) bool {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.ready[name]
}

// Modules returns module names in registration order.
func (mm *StdModuleManager) Modules() []string {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return slices.Clone(mm.order)
}

func (mm *StdModuleManager) Module(name string) (Module, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	module, ok := mm.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return module, nil
}

func (mm *StdModuleManager) ModuleByAlias(alias string) (Module, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	module, ok := mm.byAlias[alias]
	if !ok {
		return nil, fmt.Errorf("%w: alias %q", ErrModuleNotFound, alias)
	}
	return module, nil
}

// LocateResource resolves "@alias/some/path" to files on disk. When dir is
// set, dir/<alias>/some/path is tried before the module's own directory.
// With first set, only the first existing path is returned.
func (mm *StdModuleManager) LocateResource(name, dir string, first bool) ([]string, error) {
	if !strings.HasPrefix(name, "@") {
		return nil, fmt.Errorf("%w: %q must start with @", ErrInvalidResourceName, name)
	}
	if strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: %q contains '..'", ErrInvalidResourceName, name)
	}

	alias, rel, ok := strings.Cut(name[1:], "/")
	if !ok || alias == "" || rel == "" {
		return nil, fmt.Errorf("%w: %q must look like @alias/path", ErrInvalidResourceName, name)
	}

	module, err := mm.ModuleByAlias(alias)
	if err != nil {
		return nil, err
	}

	var candidates []string
	if dir != "" {
		candidates = append(candidates, filepath.Join(dir, alias, rel))
	}
	candidates = append(candidates, filepath.Join(module.Path(), rel))

	var found []string
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if first {
			return []string{path}, nil
		}
		found = append(found, path)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, name)
	}
	return found, nil
}
