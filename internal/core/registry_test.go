package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-cli/forge/config"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	cmd := NewShellCommand("docker-build", "docker build .")
	cmd.AliasList = []string{"db"}
	r.Register(cmd)

	got, ok := r.Get("docker-build")
	require.True(t, ok)
	assert.Equal(t, "docker-build", got.ID())

	got, ok = r.Get("db")
	require.True(t, ok)
	assert.Equal(t, "docker-build", got.ID())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_RegisterIndexesNamespaceIdempotently(t *testing.T) {
	r := NewRegistry()

	cmd := NewShellCommand("docker-build", "docker build .")
	r.Register(cmd)
	r.Register(cmd)
	r.Register(NewShellCommand("docker-push", "docker push"))

	ids := r.CommandsByNamespace("docker")
	assert.Len(t, ids, 2)

	assert.Equal(t, []string{"docker"}, r.Namespaces())
}

func TestRegistry_RegisterAliasUnknownCommand(t *testing.T) {
	r := NewRegistry()

	err := r.RegisterAlias("x", "no-such-command")
	require.Error(t, err)

	var unknownErr *UnknownCommandError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "no-such-command", unknownErr.ID)
}

func TestRegistry_RegisterGroupSetsGroupID(t *testing.T) {
	r := NewRegistry()

	group := NewCommandGroup("quality", "Quality", "", 2)
	group.Add(
		NewShellCommand("lint", "ruff check ."),
		NewShellCommand("test", "pytest"),
	)
	r.RegisterGroup(group)

	cmd, ok := r.Get("lint")
	require.True(t, ok)
	assert.Equal(t, "quality", cmd.GroupID())
	assert.Equal(t, 2, r.Len())
	assert.Len(t, r.CommandsByGroup("quality"), 2)
}

func TestRegistry_LoadFromConfigOverridesBuiltin(t *testing.T) {
	r := NewRegistry()

	builtin := NewShellCommand("docker-build", "docker build .")
	builtin.AliasList = []string{"db"}
	r.Register(builtin)

	cfg := &config.Config{
		Commands: []config.CommandConfig{
			{IDs: []string{"docker-build"}, Shell: "docker buildx build ."},
		},
	}
	r.LoadFromConfig(cfg)

	got, ok := r.Get("docker-build")
	require.True(t, ok)
	shell, _ := got.Shell(nil)
	assert.Equal(t, "docker buildx build .", shell)

	// The purge removes the alias pointing at the old command and leaves no
	// duplicate namespace entry behind.
	_, ok = r.Get("db")
	assert.False(t, ok)
	assert.Len(t, r.CommandsByNamespace("docker"), 1)
}

func TestRegistry_LoadFromConfigIDList(t *testing.T) {
	r := NewRegistry()

	cfg := &config.Config{
		Commands: []config.CommandConfig{
			{IDs: []string{"deploy", "ship", "release"}, Shell: "make deploy"},
		},
	}
	r.LoadFromConfig(cfg)

	for _, name := range []string{"deploy", "ship", "release"} {
		got, ok := r.Get(name)
		require.True(t, ok, "expected %s to resolve", name)
		assert.Equal(t, "deploy", got.ID())
	}
}

func TestRegistry_LoadFromConfigNil(t *testing.T) {
	r := NewRegistry()
	r.LoadFromConfig(nil)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ResolveParts(t *testing.T) {
	r := NewRegistry()

	r.Register(NewShellCommand("docker-build", "docker build ."))
	r.Register(NewShellCommand("docker-build_and_push", "docker build and push"))
	setup := NewShellCommand("setup", "make setup")
	setup.AliasList = []string{"s"}
	r.Register(setup)

	versionGroup := NewCommandGroup("version", "Version", "", 7)
	versionGroup.Add(NewShellCommand("version show", "show"))
	r.RegisterGroup(versionGroup)

	qualityGroup := NewCommandGroup("quality", "Quality", "", 2)
	qualityGroup.Add(NewShellCommand("test", "pytest"))
	r.RegisterGroup(qualityGroup)

	tests := []struct {
		name   string
		parts  []string
		wantID string
		wantOK bool
	}{
		{"single token id", []string{"docker-build"}, "docker-build", true},
		{"single token alias", []string{"s"}, "setup", true},
		{"hyphen join", []string{"docker", "build"}, "docker-build", true},
		{"namespace alias", []string{"d", "build"}, "docker-build", true},
		{"action alias", []string{"docker", "bp"}, "docker-build_and_push", true},
		{"namespace alias plus action alias", []string{"d", "bp"}, "docker-build_and_push", true},
		{"space convention", []string{"version", "show"}, "version show", true},
		{"space convention via namespace alias", []string{"v", "show"}, "version show", true},
		{"group member lookup", []string{"quality", "test"}, "test", true},
		{"group member via namespace alias", []string{"q", "test"}, "test", true},
		{"unknown single", []string{"nope"}, "", false},
		{"unknown pair", []string{"docker", "nope"}, "", false},
		{"empty", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := r.ResolveParts(tt.parts)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, cmd.ID())
			}
		})
	}
}

func TestRegistry_ResolvePartsDoesNotMutateInput(t *testing.T) {
	r := NewRegistry()
	r.Register(NewShellCommand("docker-build", "docker build ."))

	parts := []string{"d", "build"}
	_, ok := r.ResolveParts(parts)
	require.True(t, ok)
	assert.Equal(t, []string{"d", "build"}, parts)
}

func TestRegistry_RegisterNamespaceAndActionAliases(t *testing.T) {
	r := NewRegistry()
	r.Register(NewShellCommand("kube-apply", "kubectl apply -f ."))

	r.RegisterNamespaceAlias("k", "kube")
	cmd, ok := r.ResolveParts([]string{"k", "apply"})
	require.True(t, ok)
	assert.Equal(t, "kube-apply", cmd.ID())

	r.RegisterActionAlias("a", "apply")
	cmd, ok = r.ResolveParts([]string{"kube", "a"})
	require.True(t, ok)
	assert.Equal(t, "kube-apply", cmd.ID())
}

func TestRegistry_GroupsSortedByOrder(t *testing.T) {
	r := NewRegistry()

	r.RegisterGroup(NewCommandGroup("later", "Later", "", 5))
	r.RegisterGroup(NewCommandGroup("first", "First", "", 1))
	r.RegisterGroup(NewCommandGroup("alpha", "Alpha", "", 5))

	groups := r.Groups()
	require.Len(t, groups, 3)
	assert.Equal(t, "first", groups[0].ID())
	assert.Equal(t, "alpha", groups[1].ID())
	assert.Equal(t, "later", groups[2].ID())
}

func TestRegistry_CommandsSortedByID(t *testing.T) {
	r := NewRegistry()
	r.Register(NewShellCommand("zulu", "z"))
	r.Register(NewShellCommand("alpha", "a"))

	cmds := r.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "alpha", cmds[0].ID())
	assert.Equal(t, "zulu", cmds[1].ID())
}

func TestRegistry_ClearKeepsShorthandTables(t *testing.T) {
	r := NewRegistry()
	r.Register(NewShellCommand("docker-build", "docker build ."))
	r.Clear()

	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Contains("docker-build"))

	r.Register(NewShellCommand("docker-build", "docker build ."))
	_, ok := r.ResolveParts([]string{"d", "build"})
	assert.True(t, ok)
}

func TestRegistry_DiscoverBuiltinGroupsSkipsFailures(t *testing.T) {
	r := NewRegistry()

	providers := []GroupProvider{
		func() (*CommandGroup, error) {
			g := NewCommandGroup("good", "Good", "", 1)
			g.Add(NewShellCommand("good-one", "echo one"))
			return g, nil
		},
		func() (*CommandGroup, error) {
			return nil, assert.AnError
		},
		func() (*CommandGroup, error) {
			g := NewCommandGroup("also-good", "Also good", "", 2)
			return g, nil
		},
	}

	loaded := r.DiscoverBuiltinGroups(providers)
	assert.Equal(t, []string{"good", "also-good"}, loaded)
	assert.True(t, r.Contains("good-one"))
}

type stubLoader struct {
	groups []*CommandGroup
	err    error
}

func (s *stubLoader) Load() ([]*CommandGroup, error) {
	return s.groups, s.err
}

func TestRegistry_DiscoverPlugins(t *testing.T) {
	t.Run("nil loader", func(t *testing.T) {
		r := NewRegistry()
		assert.Nil(t, r.DiscoverPlugins(nil))
	})

	t.Run("loader failure keeps partial groups", func(t *testing.T) {
		r := NewRegistry()
		g := NewCommandGroup("ext", "External", "", 50)
		g.Add(NewShellCommand("ext-run", "./run.sh"))

		loaded := r.DiscoverPlugins(&stubLoader{groups: []*CommandGroup{g}, err: assert.AnError})
		assert.Equal(t, []string{"ext"}, loaded)
		assert.True(t, r.Contains("ext-run"))
	})
}
