package hunt

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed pools/*.yaml
var builtinPools embed.FS

// DefaultPoolName is the embedded pool used when no pool file is configured.
const DefaultPoolName = "campus"

// ParsePool decodes a YAML (or JSON) pool document and validates it.
func ParsePool(data []byte) (Pool, error) {
	var p Pool
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pool{}, fmt.Errorf("decode pool: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Pool{}, err
	}
	return p.withDefaults(), nil
}

// LoadPool reads a pool file from disk.
func LoadPool(path string) (Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pool{}, fmt.Errorf("read pool file: %w", err)
	}
	p, err := ParsePool(data)
	if err != nil {
		return Pool{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// BuiltinPool returns one of the pools compiled into the binary.
func BuiltinPool(name string) (Pool, error) {
	data, err := builtinPools.ReadFile("pools/" + name + ".yaml")
	if err != nil {
		return Pool{}, fmt.Errorf("unknown builtin pool %q", name)
	}
	return ParsePool(data)
}

// ResolvePool loads path when set, otherwise the named builtin.
func ResolvePool(path, builtin string) (Pool, error) {
	if path != "" {
		return LoadPool(path)
	}
	if builtin == "" {
		builtin = DefaultPoolName
	}
	return BuiltinPool(builtin)
}
