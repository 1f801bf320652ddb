package stack

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"

	burntoml "github.com/BurntSushi/toml"
	pelletiertoml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// manifestParser extracts dependency entries and tech hints from one
// manifest file. manifestPath is repo-relative, for DependencyEntry's
// ManifestPath field.
type manifestParser func(manifestPath string, data []byte) ([]DependencyEntry, []TechEntry, error)

// manifestParsers maps a manifest filename to its parser. Lookup is by the
// file's exact basename, so nested package.json files in subdirectories
// are still recognized.
var manifestParsers = map[string]manifestParser{
	"package.json":     parsePackageJSON,
	"Cargo.toml":       parseCargoToml,
	"pyproject.toml":   parsePyprojectToml,
	"requirements.txt": parseRequirementsTxt,
	"go.mod":           parseGoMod,
	"docker-compose.yml":  parseDockerComposeYAML,
	"docker-compose.yaml": parseDockerComposeYAML,
}

type npmPackageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func parsePackageJSON(manifestPath string, data []byte) ([]DependencyEntry, []TechEntry, error) {
	var pkg npmPackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, nil, err
	}

	var deps []DependencyEntry
	for name, version := range pkg.Dependencies {
		deps = append(deps, DependencyEntry{Manager: "npm", Name: name, Version: version, Scope: "runtime", ManifestPath: manifestPath})
	}
	for name, version := range pkg.DevDependencies {
		deps = append(deps, DependencyEntry{Manager: "npm", Name: name, Version: version, Scope: "dev", ManifestPath: manifestPath})
	}

	return deps, detectNpmTech(pkg.Dependencies, pkg.DevDependencies, manifestPath), nil
}

var npmTechSignatures = map[string]string{
	"react": "framework", "next": "framework", "vue": "framework", "@angular/core": "framework",
	"tailwindcss": "tooling", "typescript": "language", "express": "framework", "vite": "tooling",
}

func detectNpmTech(deps, devDeps map[string]string, manifestPath string) []TechEntry {
	var out []TechEntry
	for name := range deps {
		if kind, ok := npmTechSignatures[name]; ok {
			out = append(out, TechEntry{Kind: kind, Name: name, Source: manifestPath, Confidence: 0.9})
		}
	}
	for name := range devDeps {
		if kind, ok := npmTechSignatures[name]; ok {
			out = append(out, TechEntry{Kind: kind, Name: name, Source: manifestPath, Confidence: 0.7})
		}
	}
	return out
}

type cargoManifest struct {
	Package      map[string]any    `toml:"package"`
	Dependencies map[string]any    `toml:"dependencies"`
	DevDeps      map[string]any    `toml:"dev-dependencies"`
}

// parseCargoToml uses BurntSushi/toml. Inline-table dependencies
// (`tokio = { version = "1", ... }`) decode to maps, and tomlVersionString
// reads their version key.
func parseCargoToml(manifestPath string, data []byte) ([]DependencyEntry, []TechEntry, error) {
	var m cargoManifest
	if err := burntoml.Unmarshal(data, &m); err != nil {
		return nil, nil, err
	}

	var deps []DependencyEntry
	for name, v := range m.Dependencies {
		deps = append(deps, DependencyEntry{Manager: "cargo", Name: name, Version: tomlVersionString(v), Scope: "runtime", ManifestPath: manifestPath})
	}
	for name, v := range m.DevDeps {
		deps = append(deps, DependencyEntry{Manager: "cargo", Name: name, Version: tomlVersionString(v), Scope: "dev", ManifestPath: manifestPath})
	}
	return deps, nil, nil
}

func tomlVersionString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if ver, ok := t["version"].(string); ok {
			return ver
		}
	}
	return ""
}

type pyprojectManifest struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// parsePyprojectToml uses go-toml/v2: pyproject.toml commonly embeds
// inline tables (`{version = "...", extras = [...]}`) under
// tool.poetry.dependencies, which go-toml/v2 decodes more strictly than
// BurntSushi's decoder, per the DOMAIN STACK split.
func parsePyprojectToml(manifestPath string, data []byte) ([]DependencyEntry, []TechEntry, error) {
	var m pyprojectManifest
	if err := pelletiertoml.Unmarshal(data, &m); err != nil {
		return nil, nil, err
	}

	var deps []DependencyEntry
	for _, spec := range m.Project.Dependencies {
		name, version := splitPEP508(spec)
		deps = append(deps, DependencyEntry{Manager: "pip", Name: name, Version: version, Scope: "runtime", ManifestPath: manifestPath})
	}
	for name, v := range m.Tool.Poetry.Dependencies {
		deps = append(deps, DependencyEntry{Manager: "poetry", Name: name, Version: tomlVersionString(v), Scope: "runtime", ManifestPath: manifestPath})
	}
	return deps, nil, nil
}

var pep508NameRe = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*(.*)$`)

func splitPEP508(spec string) (name, version string) {
	m := pep508NameRe.FindStringSubmatch(strings.TrimSpace(spec))
	if m == nil {
		return spec, ""
	}
	return m[1], strings.TrimSpace(m[2])
}

var requirementLineRe = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*(.*)$`)

func parseRequirementsTxt(manifestPath string, data []byte) ([]DependencyEntry, []TechEntry, error) {
	var deps []DependencyEntry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		m := requirementLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		deps = append(deps, DependencyEntry{Manager: "pip", Name: m[1], Version: m[2], Scope: "runtime", ManifestPath: manifestPath})
	}
	return deps, nil, nil
}

var goModRequireRe = regexp.MustCompile(`(?m)^\s*([\w.\-/]+)\s+(v[\w.\-+]+)`)

func parseGoMod(manifestPath string, data []byte) ([]DependencyEntry, []TechEntry, error) {
	text := string(data)
	inBlock := false
	var deps []DependencyEntry
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "require ("):
			inBlock = true
			continue
		case inBlock && trimmed == ")":
			inBlock = false
			continue
		case inBlock, strings.HasPrefix(trimmed, "require "):
			m := goModRequireRe.FindStringSubmatch(trimmed)
			if m == nil {
				continue
			}
			scope := "runtime"
			if strings.Contains(trimmed, "// indirect") {
				scope = "indirect"
			}
			deps = append(deps, DependencyEntry{Manager: "go", Name: m[1], Version: m[2], Scope: scope, ManifestPath: manifestPath})
		}
	}
	return deps, nil, nil
}

type dockerComposeManifest struct {
	Services map[string]struct {
		Image string `yaml:"image"`
	} `yaml:"services"`
}

func parseDockerComposeYAML(manifestPath string, data []byte) ([]DependencyEntry, []TechEntry, error) {
	var m dockerComposeManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, nil, err
	}
	var tech []TechEntry
	tech = append(tech, TechEntry{Kind: "tooling", Name: "docker-compose", Source: manifestPath, Confidence: 1.0})
	for name, svc := range m.Services {
		if svc.Image != "" {
			tech = append(tech, TechEntry{Kind: "service", Name: name + ":" + svc.Image, Source: manifestPath, Confidence: 0.8})
		}
	}
	return nil, tech, nil
}

// manifestFor returns the parser registered for filename's basename, and
// whether one exists.
func manifestFor(filename string) (manifestParser, bool) {
	p, ok := manifestParsers[filename]
	return p, ok
}

func readManifest(path string) ([]byte, error) {
	return os.ReadFile(path)
}
