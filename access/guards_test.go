package access_test

import (
	"strings"
	"testing"

	"github.com/MrEthical07/goGate/access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGuardsFlattensModules(t *testing.T) {
	guards, err := access.LoadGuards(strings.NewReader(guardYAML))
	require.NoError(t, err)

	roles, ok := guards.ControllerDefault("UserController")
	require.True(t, ok)
	assert.Equal(t, []string{"user"}, roles)

	roles, ok = guards.ControllerDefault("HomeController")
	require.True(t, ok)
	assert.Empty(t, roles)

	_, ok = guards.ControllerDefault("LegacyController")
	assert.False(t, ok)

	g, ok := guards.Action("UserController", "edit")
	require.True(t, ok)
	assert.Equal(t, access.ActionGuard{Roles: []string{"editor"}, Resource: "users", Action: "edit"}, g)

	g, ok = guards.Action("LegacyController", "ping")
	require.True(t, ok)
	assert.Equal(t, []string{"guest"}, g.Roles)
}

func TestParseGuardsFromMap(t *testing.T) {
	guards, err := access.ParseGuards(map[string]any{
		"api": map[string]any{
			"controllers": map[string]any{
				"Reports": map[string]any{
					"default": []string{"analyst"},
					"actions": map[string]any{
						"download": map[string]any{"resource": "reports", "action": "download", "role": []any{"analyst", "admin"}},
					},
				},
			},
		},
		"empty": map[string]any{},
	})
	require.NoError(t, err)

	g, ok := guards.Action("Reports", "download")
	require.True(t, ok)
	assert.Equal(t, []string{"analyst", "admin"}, g.Roles)
}

func TestParseGuardsRejectsMalformedShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"module not a map", "site: [a, b]\n"},
		{"controllers not a map", "site:\n  controllers: [x]\n"},
		{"controller not a map", "site:\n  controllers:\n    Home: admin\n"},
		{"default not a list", "site:\n  controllers:\n    Home:\n      default: admin\n"},
		{"default with non-string role", "site:\n  controllers:\n    Home:\n      default: [{a: b}]\n"},
		{"actions not a map", "site:\n  controllers:\n    Home:\n      actions: [index]\n"},
		{"action not a list", "site:\n  controllers:\n    Home:\n      actions:\n        index: admin\n"},
		{"descriptor missing action", "site:\n  controllers:\n    Home:\n      actions:\n        index: {resource: home}\n"},
		{"descriptor bad role", "site:\n  controllers:\n    Home:\n      actions:\n        index: {resource: home, action: view, role: 3}\n"},
		{"controller in two modules", "a:\n  controllers:\n    Home:\n      default: []\nb:\n  controllers:\n    Home:\n      default: []\n"},
		{"not yaml", "site: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := access.LoadGuards(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, access.ErrGuardConfiguration)
		})
	}
}

func TestLoadGuardsEmptyDocument(t *testing.T) {
	guards, err := access.LoadGuards(strings.NewReader(""))
	require.NoError(t, err)
	_, err = guards.RequiresAuthentication("Home", "index")
	assert.ErrorIs(t, err, access.ErrGuardExpected)
}
