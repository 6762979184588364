package inspect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{"typescript", map[string]string{"package.json": "{}", "tsconfig.json": "{}"}, "typescript"},
		{"javascript", map[string]string{"package.json": "{}"}, "javascript"},
		{"python", map[string]string{"pyproject.toml": ""}, "python"},
		{"go", map[string]string{"go.mod": "module example.com/app\n"}, "go"},
		{"rust", map[string]string{"Cargo.toml": ""}, "rust"},
		{"java", map[string]string{"pom.xml": "<project/>"}, "java"},
		{"kotlin gradle", map[string]string{"build.gradle.kts": "plugins { kotlin(\"jvm\") }"}, "kotlin"},
		{"dart", map[string]string{"pubspec.yaml": "name: app\n"}, "dart"},
		{"swift", map[string]string{"Package.swift": ""}, "swift"},
		{"php", map[string]string{"composer.json": "{}"}, "php"},
		{"ruby", map[string]string{"Gemfile": ""}, "ruby"},
		{"unknown", map[string]string{"readme.txt": ""}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, root, name, content)
			}
			assert.Equal(t, tt.want, DetectLanguage(root))
		})
	}
}

func TestDetectLanguageTSWithoutTsconfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", "{}")
	writeFile(t, root, "src/index.ts", "export {}\n")
	assert.Equal(t, "typescript", DetectLanguage(root))
}

func TestDetectFramework(t *testing.T) {
	t.Run("express", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "package.json", `{"dependencies":{"express":"^4.0.0"}}`)
		assert.Equal(t, "express", DetectFramework(root, "javascript"))
	})
	t.Run("nextjs wins over express", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "package.json", `{"dependencies":{"next":"14","express":"4"}}`)
		assert.Equal(t, "nextjs", DetectFramework(root, "typescript"))
	})
	t.Run("fastapi", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "requirements.txt", "fastapi==0.110\nuvicorn\n")
		assert.Equal(t, "fastapi", DetectFramework(root, "python"))
	})
	t.Run("gin", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "go.mod", "module app\n\nrequire github.com/gin-gonic/gin v1.9.0\n")
		assert.Equal(t, "gin", DetectFramework(root, "go"))
	})
	t.Run("spring boot", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "pom.xml", "<project><artifactId>spring-boot-starter-web</artifactId></project>")
		assert.Equal(t, "spring-boot", DetectFramework(root, "java"))
	})
	t.Run("rails", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "Gemfile", "gem 'rails'\n")
		assert.Equal(t, "rails", DetectFramework(root, "ruby"))
	})
	t.Run("unknown", func(t *testing.T) {
		assert.Equal(t, "unknown", DetectFramework(t.TempDir(), "go"))
	})
}

func TestExternalDepsNode(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"dependencies":{"express":"4"},"devDependencies":{"jest":"29"}}`)
	assert.Equal(t, []string{"express", "jest"}, ExternalDeps(root, "javascript"))
}

func TestExternalDepsPython(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "requirements.txt", "# web\nfastapi==0.110\nuvicorn[standard]>=0.29\n\npydantic\n")
	assert.Equal(t, []string{"fastapi", "uvicorn", "pydantic"}, ExternalDeps(root, "python"))
}

func TestExternalDepsGo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", `module example.com/app

go 1.22

require (
	github.com/spf13/cobra v1.8.0
	gopkg.in/yaml.v3 v3.0.1
)
`)
	assert.Equal(t, []string{"github.com/spf13/cobra", "gopkg.in/yaml.v3"}, ExternalDeps(root, "go"))
}

func TestExternalDepsMaven(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pom.xml", `<?xml version="1.0"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <dependencies>
    <dependency>
      <groupId>org.springframework</groupId>
      <artifactId>spring-core</artifactId>
      <version>6.1.0</version>
    </dependency>
    <dependency>
      <groupId>org.slf4j</groupId>
      <artifactId>slf4j-api</artifactId>
    </dependency>
  </dependencies>
</project>
`)
	assert.Equal(t, []string{
		"org.springframework:spring-core:6.1.0",
		"org.slf4j:slf4j-api:managed",
	}, ExternalDeps(root, "java"))
}

func TestExternalDepsGradle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "build.gradle", `dependencies {
    implementation 'org.springframework.boot:spring-boot-starter-web:3.2.0'
    testImplementation("org.junit.jupiter:junit-jupiter:5.10.0")
}
`)
	assert.Equal(t, []string{
		"org.springframework.boot:spring-boot-starter-web:3.2.0",
		"org.junit.jupiter:junit-jupiter:5.10.0",
	}, ExternalDeps(root, "java"))
}

func TestImportFrequency(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/api/users.ts", "import a from './service'\nimport b from '../db/client'\n")
	writeFile(t, root, "src/api/orders.ts", "import a from './service'\n")
	writeFile(t, root, "node_modules/pkg/index.ts", "import x from './service'\n")

	freq := ImportFrequency(root, "typescript")
	require.Len(t, freq, 2)
	assert.Equal(t, Import{Path: "./service", Count: 2}, freq[0])
	assert.Equal(t, Import{Path: "../db/client", Count: 1}, freq[1])
}

func TestCrossModuleImportsRelative(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/api/users.ts", "import db from '../db/client'\nimport util from './util'\n")
	writeFile(t, root, "src/db/client.ts", "export const pool = null\n")

	got := CrossModuleImports(root, "typescript")
	assert.Equal(t, []CrossImport{{From: "api", To: "db"}}, got)
}

func TestCrossModuleImportsGo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/app\n")
	writeFile(t, root, "api/users.go", "package api\n\nimport (\n\t\"example.com/app/db\"\n\t\"fmt\"\n)\n")
	writeFile(t, root, "db/client.go", "package db\n")

	got := CrossModuleImports(root, "go")
	assert.Equal(t, []CrossImport{{From: "api", To: "db"}}, got)
}

func TestCrossModuleImportsRust(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/api/mod.rs", "use crate::db::Pool;\n")
	writeFile(t, root, "src/db/mod.rs", "pub struct Pool;\n")

	got := CrossModuleImports(root, "rust")
	assert.Equal(t, []CrossImport{{From: "api", To: "db"}}, got)
}

func TestCrossModuleImportsDart(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pubspec.yaml", "name: shop\n")
	writeFile(t, root, "lib/api/users.dart", "import 'package:shop/db/client.dart';\n")
	writeFile(t, root, "lib/db/client.dart", "class Client {}\n")

	got := CrossModuleImports(root, "dart")
	assert.Equal(t, []CrossImport{{From: "api", To: "db"}}, got)
}

func TestCrossModuleImportsSwift(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Sources/App/main.swift", "import Core\nimport Foundation\n")
	writeFile(t, root, "Sources/Core/core.swift", "struct Core {}\n")

	got := CrossModuleImports(root, "swift")
	assert.Equal(t, []CrossImport{{From: "App", To: "Core"}}, got)
}

func TestProfileStructure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/services/user.service.ts", "export {}\n")
	writeFile(t, root, "src/services/user.service.test.ts", "export {}\n")
	writeFile(t, root, "src/controllers/user.controller.ts", "export {}\n")
	writeFile(t, root, "docs/readme.md", "")
	writeFile(t, root, "node_modules/pkg/index.ts", "export {}\n")

	profile, err := ProfileStructure(root)
	require.NoError(t, err)

	assert.Contains(t, profile.RawStructure, "src")
	assert.Contains(t, profile.RawStructure, "src/services")
	assert.NotContains(t, profile.RawStructure, "node_modules")

	// Layer order follows the canonical list: controllers before services.
	assert.Equal(t, []string{"controllers", "services"}, profile.DetectedLayers)

	assert.Contains(t, profile.NamingPatterns, ".service.ts")
	assert.Contains(t, profile.NamingPatterns, ".controller.ts")

	// user.service.ts has a colocated test; the controller does not.
	assert.Equal(t, []string{"src/controllers/user.controller.ts"}, profile.TestGaps)

	assert.Contains(t, profile.FileCounts, DirCount{Dir: "src", Count: 3})
}

func TestInspect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"dependencies":{"express":"4"}}`)
	writeFile(t, root, "src/api/users.js", "import db from '../db/client'\n")
	writeFile(t, root, "src/db/client.js", "export const pool = null\n")

	result, err := Inspect(root)
	require.NoError(t, err)
	assert.Equal(t, "javascript", result.Language)
	assert.Equal(t, "express", result.Framework)
	assert.Equal(t, []string{"express"}, result.ExternalDeps)
	assert.Equal(t, []CrossImport{{From: "api", To: "db"}}, result.CrossModuleImports)
	require.NotNil(t, result.Structure)
}
