package kernel

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ControllerNameParser turns "module:Controller:action" shorthand into a
// "class::method" reference.
type ControllerNameParser interface {
	Parse(name string) (string, error)
}

// ModuleNameParser resolves the module part through a ModuleManager alias.
// "blog:Post:show" becomes "<blog module name>.PostController::ShowAction".
type ModuleNameParser struct {
	modules ModuleManager
}

// NewModuleNameParser creates a parser backed by modules.
func NewModuleNameParser(modules ModuleManager) *ModuleNameParser {
	return &ModuleNameParser{modules: modules}
}

func (p *ModuleNameParser) Parse(name string) (string, error) {
	parts := strings.Split(name, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("%w: %q is not a \"module:Controller:action\" string", ErrInvalidControllerName, name)
	}

	module, err := p.modules.ModuleByAlias(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidControllerName, name, err)
	}

	return ControllerClass(module.Name(), parts[1]) + "::" + exported(parts[2]) + "Action", nil
}

// ControllerClass returns the class name under which a module's controller
// is registered: "<module>.<Short>Controller".
func ControllerClass(moduleName, short string) string {
	short = strings.TrimSuffix(short, "Controller")
	return moduleName + "." + exported(short) + "Controller"
}

func exported(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
