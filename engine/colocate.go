package engine

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Test file naming across the supported languages. Files matching any of
// these are tests themselves and are never flagged for a missing test.
var testFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.(test|spec)\.`),
	regexp.MustCompile(`\.d\.ts$`),
	regexp.MustCompile(`(Test|Tests|IT|Spec)\.java$`),
	regexp.MustCompile(`_test\.(go|dart|rb)$`),
	regexp.MustCompile(`_spec\.rb$`),
	regexp.MustCompile(`(Test|Tests)\.kt$`),
	regexp.MustCompile(`(Tests)\.swift$`),
	regexp.MustCompile(`(Tests|Test)\.cs$`),
	regexp.MustCompile(`(Test)\.php$`),
}

var colocateSourceRe = regexp.MustCompile(`\.(ts|js|py|java|go|rs|dart|kt|kts|swift|cs|php|rb)$`)

func isTestFile(relPath string) bool {
	for _, pat := range testFilePatterns {
		if pat.MatchString(relPath) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// hasColocatedTest reports whether a source file has a matching test file
// under any of the naming schemes its language uses. Files that are not
// recognized sources, and test files themselves, always pass.
func hasColocatedTest(root, absPath, relPath string) bool {
	if !colocateSourceRe.MatchString(relPath) {
		return true
	}
	if isTestFile(relPath) {
		return true
	}

	ext := strings.TrimPrefix(filepath.Ext(absPath), ".")
	base := strings.TrimSuffix(absPath, filepath.Ext(absPath))

	// Generic foo.test.ext / foo.spec.ext works for every language.
	if fileExists(base+".test."+ext) || fileExists(base+".spec."+ext) {
		return true
	}

	name := filepath.Base(base)
	dir := filepath.Dir(absPath)
	slashAbs := filepath.ToSlash(absPath)

	switch ext {
	case "java":
		if fileExists(filepath.Join(dir, name+"Test.java")) ||
			fileExists(filepath.Join(dir, name+"Tests.java")) ||
			fileExists(filepath.Join(dir, name+"IT.java")) {
			return true
		}
		// Maven layout mirrors src/main/java under src/test/java.
		if strings.Contains(slashAbs, "/src/main/java/") {
			mirror := strings.Replace(slashAbs, "src/main/java", "src/test/java", 1)
			mirror = strings.TrimSuffix(mirror, filepath.Ext(mirror))
			if fileExists(mirror+"Test.java") || fileExists(mirror+"Tests.java") || fileExists(mirror+"IT.java") {
				return true
			}
		}

	case "go":
		if fileExists(filepath.Join(dir, name+"_test.go")) {
			return true
		}

	case "rs":
		// Rust tests usually live in a #[cfg(test)] module in the same file.
		if data, err := os.ReadFile(absPath); err == nil && strings.Contains(string(data), "#[cfg(test)]") {
			return true
		}
		if fileExists(filepath.Join(root, "tests", name+".rs")) ||
			fileExists(filepath.Join(root, "tests", "test_"+name+".rs")) {
			return true
		}

	case "dart":
		if fileExists(filepath.Join(dir, name+"_test.dart")) {
			return true
		}
		if strings.Contains(slashAbs, "/lib/") {
			mirror := strings.Replace(slashAbs, "/lib/", "/test/", 1)
			mirror = strings.TrimSuffix(mirror, filepath.Ext(mirror))
			if fileExists(mirror + "_test.dart") {
				return true
			}
		}

	case "kt", "kts":
		if fileExists(filepath.Join(dir, name+"Test.kt")) ||
			fileExists(filepath.Join(dir, name+"Tests.kt")) {
			return true
		}
		if strings.Contains(slashAbs, "/src/main/") {
			mirror := strings.Replace(slashAbs, "src/main/kotlin", "src/test/kotlin", 1)
			mirror = strings.Replace(mirror, "src/main/java", "src/test/java", 1)
			mirror = strings.TrimSuffix(mirror, filepath.Ext(mirror))
			if fileExists(mirror+"Test.kt") || fileExists(mirror+"Tests.kt") {
				return true
			}
		}

	case "swift":
		if fileExists(filepath.Join(dir, name+"Tests.swift")) {
			return true
		}
		if strings.Contains(slashAbs, "/Sources/") {
			mirror := strings.Replace(slashAbs, "/Sources/", "/Tests/", 1)
			mirror = strings.TrimSuffix(mirror, filepath.Ext(mirror))
			if fileExists(mirror + "Tests.swift") {
				return true
			}
		}

	case "cs":
		if fileExists(filepath.Join(dir, name+"Tests.cs")) ||
			fileExists(filepath.Join(dir, name+"Test.cs")) {
			return true
		}

	case "php":
		if fileExists(filepath.Join(dir, name+"Test.php")) {
			return true
		}
		if strings.Contains(slashAbs, "/src/") {
			mirror := strings.Replace(slashAbs, "/src/", "/tests/", 1)
			mirror = strings.TrimSuffix(mirror, filepath.Ext(mirror))
			if fileExists(mirror + "Test.php") {
				return true
			}
		}

	case "rb":
		if fileExists(filepath.Join(dir, name+"_test.rb")) ||
			fileExists(filepath.Join(dir, name+"_spec.rb")) {
			return true
		}
		if strings.Contains(slashAbs, "/app/") {
			testMirror := strings.TrimSuffix(strings.Replace(slashAbs, "/app/", "/test/", 1), filepath.Ext(slashAbs))
			specMirror := strings.TrimSuffix(strings.Replace(slashAbs, "/app/", "/spec/", 1), filepath.Ext(slashAbs))
			if fileExists(testMirror+"_test.rb") || fileExists(specMirror+"_spec.rb") {
				return true
			}
		}
	}

	return false
}
