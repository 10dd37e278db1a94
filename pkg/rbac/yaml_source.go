package rbac

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// rolesFile is the on-disk layout:
//
//	roles:
//	  viewer:
//	    permissions: [project:read]
//	  member:
//	    inherits: [viewer]
//	    permissions: [project:create]
type rolesFile struct {
	Roles map[string]Role `yaml:"roles"`
}

type yamlRoleSource struct {
	path string
}

// NewFileRoleSource reads role definitions from a YAML file on every Load.
func NewFileRoleSource(path string) RoleSource {
	return &yamlRoleSource{path: path}
}

func (s *yamlRoleSource) Load(context.Context) (map[string]Role, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Join(ErrLoadRoles, err)
	}
	defer f.Close()
	return DecodeRoles(f)
}

// DecodeRoles parses a YAML role document.
func DecodeRoles(r io.Reader) (map[string]Role, error) {
	var doc rolesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Join(ErrLoadRoles, err)
	}
	if len(doc.Roles) == 0 {
		return nil, fmt.Errorf("%w: no roles defined", ErrLoadRoles)
	}
	return doc.Roles, nil
}
