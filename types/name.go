package types

import (
	"errors"
	"fmt"
	"strings"
)

var ErrName = errors.New("invalid name")

// Ident is a single Cedar identifier, e.g. `User`. A valid Ident starts with
// a letter or underscore and contains only letters, digits, and underscores.
type Ident string

// Path is a normalized, namespace-qualified name: one or more Idents joined
// by "::", e.g. `PhotoApp::User`. The empty Path is not valid; construct
// Paths through ParsePath (or from trusted literals).
type Path string

// ParseIdent validates s as a single identifier.
func ParseIdent(s string) (Ident, error) {
	if !validIdent(s) {
		return "", fmt.Errorf("%w: %q is not a valid identifier", ErrName, s)
	}
	return Ident(s), nil
}

// ParsePath validates s as a namespace-qualified name.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty name", ErrName)
	}
	for _, part := range strings.Split(s, "::") {
		if !validIdent(part) {
			return "", fmt.Errorf("%w: %q is not a valid name", ErrName, s)
		}
	}
	return Path(s), nil
}

// Basename returns the final component of the path, e.g. `User` for
// `PhotoApp::User`.
func (p Path) Basename() Ident {
	if i := strings.LastIndex(string(p), "::"); i >= 0 {
		return Ident(p[i+2:])
	}
	return Ident(p)
}

// Namespace returns everything before the final component, or "" for an
// unqualified path.
func (p Path) Namespace() Path {
	if i := strings.LastIndex(string(p), "::"); i >= 0 {
		return p[:i]
	}
	return ""
}

// Qualify prefixes name with the namespace ns. Names that are already
// qualified, or an empty ns, are returned unchanged.
func Qualify(ns Path, name Path) Path {
	if ns == "" || strings.Contains(string(name), "::") {
		return name
	}
	return ns + "::" + name
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
