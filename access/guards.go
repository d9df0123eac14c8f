package access

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ActionGuard is the guard on one controller action. A guard with a
// Resource delegates to a permission check on that string resource, gated
// by Roles when Roles is non-empty. Otherwise the user needs one of Roles;
// an empty Roles list makes the action public.
type ActionGuard struct {
	Roles    []string
	Resource string
	Action   string
}

func (g ActionGuard) isPermission() bool {
	return g.Resource != ""
}

// Guards is the parsed, read-only guard table.
type Guards struct {
	defaults map[string][]string
	actions  map[string]map[string]ActionGuard
}

// LoadGuards decodes YAML guard configuration from r. See ParseGuards for
// the expected shape.
func LoadGuards(r io.Reader) (*Guards, error) {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrGuardConfiguration, err)
	}
	return ParseGuards(raw)
}

// ParseGuards flattens module-scoped guard configuration:
//
//	<module>:
//	  controllers:
//	    <controller>:
//	      default: [role, ...]
//	      actions:
//	        <action>: [role, ...]
//	        <action>: {resource: <name>, action: <verb>, role: <role or list>}
//
// Any other shape fails with ErrGuardConfiguration. A controller may be
// configured by one module only.
func ParseGuards(raw map[string]any) (*Guards, error) {
	g := &Guards{
		defaults: map[string][]string{},
		actions:  map[string]map[string]ActionGuard{},
	}

	for module, mv := range raw {
		m, ok := mv.(map[string]any)
		if !ok {
			return nil, guardErr("module %q must be a map", module)
		}
		cv, ok := m["controllers"]
		if !ok {
			continue
		}
		controllers, ok := cv.(map[string]any)
		if !ok {
			return nil, guardErr("module %q: controllers must be a map", module)
		}

		for name, v := range controllers {
			if _, dup := g.actions[name]; dup {
				return nil, guardErr("controller %q configured twice", name)
			}
			if err := g.addController(name, v); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func (g *Guards) addController(name string, v any) error {
	c, ok := v.(map[string]any)
	if !ok {
		return guardErr("controller %q must be a map", name)
	}

	if dv, ok := c["default"]; ok {
		roles, err := roleList(dv)
		if err != nil {
			return guardErr("controller %q default: %v", name, err)
		}
		g.defaults[name] = roles
	}

	actions := map[string]ActionGuard{}
	if av, ok := c["actions"]; ok {
		am, ok := av.(map[string]any)
		if !ok {
			return guardErr("controller %q: actions must be a map", name)
		}
		for action, v := range am {
			guard, err := parseActionGuard(v)
			if err != nil {
				return guardErr("controller %q action %q: %v", name, action, err)
			}
			actions[action] = guard
		}
	}
	g.actions[name] = actions
	return nil
}

func parseActionGuard(v any) (ActionGuard, error) {
	d, ok := v.(map[string]any)
	if !ok {
		roles, err := roleList(v)
		if err != nil {
			return ActionGuard{}, err
		}
		return ActionGuard{Roles: roles}, nil
	}

	resource, _ := d["resource"].(string)
	action, _ := d["action"].(string)
	if resource == "" || action == "" {
		return ActionGuard{}, errors.New("descriptor needs resource and action")
	}
	guard := ActionGuard{Resource: resource, Action: action}
	if rv, ok := d["role"]; ok {
		if s, ok := rv.(string); ok {
			guard.Roles = []string{s}
		} else {
			roles, err := roleList(rv)
			if err != nil {
				return ActionGuard{}, err
			}
			guard.Roles = roles
		}
	}
	return guard, nil
}

func roleList(v any) ([]string, error) {
	switch l := v.(type) {
	case []string:
		return append([]string{}, l...), nil
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("role %v is not a string", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a role list, got %T", v)
	}
}

func guardErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGuardConfiguration, fmt.Sprintf(format, args...))
}

// ControllerDefault returns the default roles of a controller and whether
// one is configured.
func (g *Guards) ControllerDefault(controller string) ([]string, bool) {
	if g == nil {
		return nil, false
	}
	roles, ok := g.defaults[controller]
	return roles, ok
}

// Action returns the guard for one action and whether it is configured.
func (g *Guards) Action(controller, action string) (ActionGuard, bool) {
	if g == nil {
		return ActionGuard{}, false
	}
	guard, ok := g.actions[controller][action]
	return guard, ok
}

// RequiresAuthentication reports whether the action needs a logged-in
// user. Action guards win over controller defaults. A pair with neither
// fails with ErrGuardExpected.
func (g *Guards) RequiresAuthentication(controller, action string) (bool, error) {
	if guard, ok := g.Action(controller, action); ok {
		return guard.isPermission() || len(guard.Roles) > 0, nil
	}
	if roles, ok := g.ControllerDefault(controller); ok {
		return len(roles) > 0, nil
	}
	return false, fmt.Errorf("%w: %s/%s", ErrGuardExpected, controller, action)
}
