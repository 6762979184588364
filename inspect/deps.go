package inspect

import (
	"encoding/xml"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ExternalDeps lists declared dependencies from the language's manifest.
// Languages without a parseable manifest report none.
func ExternalDeps(root, language string) []string {
	p := func(name string) string { return filepath.Join(root, name) }

	switch language {
	case "typescript", "javascript":
		var pkg packageJSON
		if !loadJSONSafe(p("package.json"), &pkg) {
			return nil
		}
		seen := map[string]struct{}{}
		for name := range pkg.Dependencies {
			seen[name] = struct{}{}
		}
		for name := range pkg.DevDependencies {
			seen[name] = struct{}{}
		}
		deps := make([]string, 0, len(seen))
		for name := range seen {
			deps = append(deps, name)
		}
		sort.Strings(deps)
		return deps

	case "python":
		return requirementsDeps(p("requirements.txt"))

	case "go":
		return goModDeps(p("go.mod"))

	case "java", "kotlin":
		if fileExists(p("pom.xml")) {
			return pomDeps(p("pom.xml"))
		}
		for _, name := range []string{"build.gradle", "build.gradle.kts"} {
			if fileExists(p(name)) {
				return gradleDeps(p(name))
			}
		}
	}
	return nil
}

var requirementSplitRe = regexp.MustCompile(`[>=<!\[]`)

func requirementsDeps(path string) []string {
	content := readFileSafe(path)
	if content == "" {
		return nil
	}
	var deps []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name := strings.TrimSpace(requirementSplitRe.Split(line, 2)[0])
		if name != "" {
			deps = append(deps, name)
		}
	}
	return deps
}

var (
	goRequireInlineRe = regexp.MustCompile(`require\s+(\S+)\s+`)
	goModulePathRe    = regexp.MustCompile(`^([a-z0-9._-]+/[a-z0-9./_-]+)`)
)

func goModDeps(path string) []string {
	content := readFileSafe(path)
	if content == "" {
		return nil
	}
	var deps []string
	inRequire := false
	for _, line := range strings.Split(content, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "require") {
			inRequire = true
			if m := goRequireInlineRe.FindStringSubmatch(stripped); m != nil {
				deps = append(deps, m[1])
			}
			continue
		}
		if inRequire {
			if stripped == ")" {
				inRequire = false
				continue
			}
			if m := goModulePathRe.FindStringSubmatch(stripped); m != nil {
				deps = append(deps, m[1])
			}
		}
	}
	return deps
}

type pomProject struct {
	Dependencies []pomDependency `xml:"dependencies>dependency"`
	DepManaged   []pomDependency `xml:"dependencyManagement>dependencies>dependency"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

func pomDeps(path string) []string {
	var project pomProject
	if err := xml.Unmarshal([]byte(readFileSafe(path)), &project); err != nil {
		return nil
	}
	var deps []string
	for _, d := range append(project.Dependencies, project.DepManaged...) {
		if d.GroupID == "" || d.ArtifactID == "" {
			continue
		}
		version := d.Version
		if version == "" {
			version = "managed"
		}
		deps = append(deps, d.GroupID+":"+d.ArtifactID+":"+version)
	}
	return deps
}

var gradleDepRe = regexp.MustCompile(
	`(?:implementation|compile|api|runtimeOnly|compileOnly|testImplementation)\s*['(]['"]([^'"]+)['"]`)

func gradleDeps(path string) []string {
	var deps []string
	for _, m := range gradleDepRe.FindAllStringSubmatch(readFileSafe(path), -1) {
		deps = append(deps, m[1])
	}
	return deps
}
