package inspect

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
)

// DetectLanguage picks the primary language from manifest files, most
// specific first.
func DetectLanguage(root string) string {
	p := func(name string) string { return filepath.Join(root, name) }

	if fileExists(p("package.json")) {
		if fileExists(p("tsconfig.json")) || hasFilesWithExt(p("src"), ".ts", 3) {
			return "typescript"
		}
		return "javascript"
	}
	if fileExists(p("pyproject.toml")) || fileExists(p("setup.py")) || fileExists(p("requirements.txt")) {
		return "python"
	}
	if fileExists(p("go.mod")) {
		return "go"
	}
	if fileExists(p("Cargo.toml")) {
		return "rust"
	}
	if fileExists(p("pom.xml")) || fileExists(p("build.gradle")) || fileExists(p("build.gradle.kts")) {
		if fileExists(p("build.gradle.kts")) && strings.Contains(readFileSafe(p("build.gradle.kts")), "kotlin") {
			return "kotlin"
		}
		if hasFilesWithExt(p("src"), ".kt", 4) {
			return "kotlin"
		}
		return "java"
	}
	if fileExists(p("pubspec.yaml")) {
		return "dart"
	}
	if fileExists(p("Package.swift")) || hasEntryWithSuffix(root, ".xcodeproj") || hasEntryWithSuffix(root, ".xcworkspace") {
		return "swift"
	}
	if hasFilesWithExt(root, ".csproj", 2) || hasEntryWithSuffix(root, ".sln") {
		return "csharp"
	}
	if fileExists(p("composer.json")) {
		return "php"
	}
	if fileExists(p("Gemfile")) || fileExists(p("Rakefile")) {
		return "ruby"
	}
	return "unknown"
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func (pkg packageJSON) has(name string) bool {
	if _, ok := pkg.Dependencies[name]; ok {
		return true
	}
	_, ok := pkg.DevDependencies[name]
	return ok
}

var (
	springWebRe = regexp.MustCompile(`spring-boot-starter-web|spring-webmvc`)
	quarkusRe   = regexp.MustCompile(`quarkus-core|quarkus-bom`)
	micronautRe = regexp.MustCompile(`micronaut-core|micronaut-bom`)
	aspnetRe    = regexp.MustCompile(`Microsoft\.AspNetCore|Microsoft\.NET\.Sdk\.Web`)
	angelRe     = regexp.MustCompile(`angel_framework:|angel3_framework:`)
	railsRe     = regexp.MustCompile(`['"]rails['"]`)
	sinatraRe   = regexp.MustCompile(`['"]sinatra['"]`)
	hanamiRe    = regexp.MustCompile(`['"]hanami['"]`)
)

// DetectFramework identifies the web framework from manifest contents.
func DetectFramework(root, language string) string {
	p := func(name string) string { return filepath.Join(root, name) }

	switch language {
	case "typescript", "javascript":
		var pkg packageJSON
		if !loadJSONSafe(p("package.json"), &pkg) {
			return "unknown"
		}
		switch {
		case pkg.has("next"):
			return "nextjs"
		case pkg.has("express"):
			return "express"
		case pkg.has("@nestjs/core"):
			return "nestjs"
		case pkg.has("fastify"):
			return "fastify"
		}

	case "python":
		for _, name := range []string{"requirements.txt", "pyproject.toml"} {
			content := readFileSafe(p(name))
			if strings.Contains(content, "django") {
				return "django"
			}
			if strings.Contains(content, "fastapi") {
				return "fastapi"
			}
		}

	case "java":
		content := firstExisting(root, "pom.xml", "build.gradle", "build.gradle.kts")
		switch {
		case springWebRe.MatchString(content):
			if strings.Contains(content, "spring-boot-starter") {
				return "spring-boot"
			}
			return "spring-mvc"
		case quarkusRe.MatchString(content):
			return "quarkus"
		case micronautRe.MatchString(content):
			return "micronaut"
		case strings.Contains(content, "dropwizard"):
			return "dropwizard"
		}

	case "go":
		content := readFileSafe(p("go.mod"))
		switch {
		case strings.Contains(content, "github.com/gin-gonic/gin"):
			return "gin"
		case strings.Contains(content, "github.com/labstack/echo"):
			return "echo"
		case strings.Contains(content, "github.com/gofiber/fiber"):
			return "fiber"
		case strings.Contains(content, "github.com/gorilla/mux"):
			return "gorilla"
		case strings.Contains(content, "github.com/go-chi/chi"):
			return "chi"
		}

	case "rust":
		content := readFileSafe(p("Cargo.toml"))
		for _, fw := range []string{"actix-web", "axum", "rocket", "warp", "tide"} {
			if strings.Contains(content, fw) {
				if fw == "actix-web" {
					return "actix"
				}
				return fw
			}
		}

	case "kotlin":
		content := firstExisting(root, "build.gradle.kts", "build.gradle", "pom.xml")
		switch {
		case strings.Contains(content, "spring-boot"):
			return "spring-boot"
		case strings.Contains(content, "io.ktor"):
			return "ktor"
		case strings.Contains(content, "io.micronaut"):
			return "micronaut"
		}

	case "dart":
		content := readFileSafe(p("pubspec.yaml"))
		switch {
		case strings.Contains(content, "flutter:") || strings.Contains(content, "flutter_test:"):
			return "flutter"
		case strings.Contains(content, "aqueduct:"):
			return "aqueduct"
		case strings.Contains(content, "shelf:"):
			return "shelf"
		case angelRe.MatchString(content):
			return "angel"
		}

	case "swift":
		if fileExists(p("Package.swift")) {
			if strings.Contains(readFileSafe(p("Package.swift")), "vapor") {
				return "vapor"
			}
			return "spm"
		}
		if hasEntryWithSuffix(root, ".xcodeproj") || hasEntryWithSuffix(root, ".xcworkspace") {
			return "ios"
		}

	case "csharp":
		content := firstCsprojContent(root)
		switch {
		case aspnetRe.MatchString(content):
			return "aspnet"
		case strings.Contains(content, "Xamarin"):
			return "xamarin"
		case strings.Contains(content, "Microsoft.Maui"):
			return "maui"
		}

	case "php":
		var composer struct {
			Require map[string]string `json:"require"`
		}
		if !loadJSONSafe(p("composer.json"), &composer) {
			return "unknown"
		}
		if _, ok := composer.Require["laravel/framework"]; ok {
			return "laravel"
		}
		if _, ok := composer.Require["laravel/lumen-framework"]; ok {
			return "laravel"
		}
		for name := range composer.Require {
			if strings.HasPrefix(name, "symfony/") {
				return "symfony"
			}
		}
		if _, ok := composer.Require["slim/slim"]; ok {
			return "slim"
		}
		if _, ok := composer.Require["yiisoft/yii2"]; ok {
			return "yii"
		}

	case "ruby":
		content := readFileSafe(p("Gemfile"))
		switch {
		case railsRe.MatchString(content):
			return "rails"
		case sinatraRe.MatchString(content):
			return "sinatra"
		case hanamiRe.MatchString(content):
			return "hanami"
		}
	}
	return "unknown"
}

// firstExisting reads the first build file that exists under root.
func firstExisting(root string, names ...string) string {
	for _, name := range names {
		path := filepath.Join(root, name)
		if fileExists(path) {
			return readFileSafe(path)
		}
	}
	return ""
}

// firstCsprojContent finds the first .csproj at most two levels deep.
func firstCsprojContent(root string) string {
	content := ""
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		depth := 0
		if rel != "." {
			depth = strings.Count(filepath.ToSlash(rel), "/") + 1
		}
		if d.IsDir() {
			if depth > 2 {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".csproj") {
			content = readFileSafe(path)
			return fs.SkipAll
		}
		return nil
	})
	return content
}
