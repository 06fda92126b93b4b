package kernel

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderedModule struct {
	BaseModule
	order *[]string
	err   error
}

func (m *orderedModule) Init(context.Context, Host) error {
	*m.order = append(*m.order, m.Name())
	return m.err
}

func TestModuleManager_Register(t *testing.T) {
	mm := NewModuleManager(nil)
	require.NoError(t, mm.Register(newBlogModule()))

	assert.ErrorIs(t, mm.Register(nil), ErrModuleNil)
	assert.ErrorIs(t, mm.Register(newBlogModule()), ErrModuleAlreadyExists)

	sameAlias := NewBaseModule("OtherModule", "blog", "")
	assert.ErrorIs(t, mm.Register(&sameAlias), ErrModuleAlreadyExists)

	module, err := mm.Module("BlogModule")
	require.NoError(t, err)
	byAlias, err := mm.ModuleByAlias("blog")
	require.NoError(t, err)
	assert.Same(t, module, byAlias)

	_, err = mm.Module("blog")
	assert.ErrorIs(t, err, ErrModuleNotFound)
	_, err = mm.ModuleByAlias("BlogModule")
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestModuleManager_LoadModules(t *testing.T) {
	var order []string
	mm := NewModuleManager(nil)
	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, mm.Register(&orderedModule{BaseModule: NewBaseModule(name, "", ""), order: &order}))
	}
	plain := NewBaseModule("plain", "", "")
	require.NoError(t, mm.Register(&plain))

	require.NoError(t, mm.LoadModules(context.Background(), nil))
	require.NoError(t, mm.LoadModules(context.Background(), nil))

	assert.Equal(t, []string{"first", "second", "third"}, order, "modules are initialized once, in order")
	assert.Equal(t, []string{"first", "second", "third", "plain"}, mm.Modules())
	assert.ErrorIs(t, mm.Register(newBlogModule()), ErrModulesAlreadyLoaded)
}

func TestModuleManager_LoadModulesFailure(t *testing.T) {
	var order []string
	cause := errors.New("bad config")
	mm := NewModuleManager(nil)
	require.NoError(t, mm.Register(&orderedModule{BaseModule: NewBaseModule("broken", "", ""), order: &order, err: cause}))
	require.NoError(t, mm.Register(&orderedModule{BaseModule: NewBaseModule("after", "", ""), order: &order}))

	err := mm.LoadModules(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, []string{"broken"}, order)
}

func TestModuleManager_LoadModulesResumesAfterFailure(t *testing.T) {
	var order []string
	mm := NewModuleManager(nil)
	first := &orderedModule{BaseModule: NewBaseModule("first", "", ""), order: &order}
	flaky := &orderedModule{BaseModule: NewBaseModule("flaky", "", ""), order: &order, err: errors.New("not yet")}
	require.NoError(t, mm.Register(first))
	require.NoError(t, mm.Register(flaky))

	require.Error(t, mm.LoadModules(context.Background(), nil))
	flaky.err = nil
	require.NoError(t, mm.LoadModules(context.Background(), nil))

	assert.Equal(t, []string{"first", "flaky", "flaky"}, order, "modules that initialized are not initialized again")
}

func TestModuleManager_LocateResource(t *testing.T) {
	moduleDir := t.TempDir()
	overrideDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(moduleDir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(moduleDir, "config", "routing.yaml"), nil, 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(overrideDir, "blog", "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(overrideDir, "blog", "config", "routing.yaml"), nil, 0o600))

	mm := NewModuleManager(nil)
	blog := NewBaseModule("BlogModule", "blog", moduleDir)
	require.NoError(t, mm.Register(&blog))

	paths, err := mm.LocateResource("@blog/config/routing.yaml", "", true)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(moduleDir, "config", "routing.yaml")}, paths)

	paths, err = mm.LocateResource("@blog/config/routing.yaml", overrideDir, true)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(overrideDir, "blog", "config", "routing.yaml")}, paths)

	paths, err = mm.LocateResource("@blog/config/routing.yaml", overrideDir, false)
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	tests := []struct {
		name string
		want error
	}{
		{"blog/config/routing.yaml", ErrInvalidResourceName},
		{"@blog/../secrets", ErrInvalidResourceName},
		{"@blog", ErrInvalidResourceName},
		{"@shop/config/routing.yaml", ErrModuleNotFound},
		{"@blog/config/missing.yaml", ErrResourceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mm.LocateResource(tt.name, overrideDir, true)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
