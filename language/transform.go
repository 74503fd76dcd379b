package language

import "regexp"

const (
	// PackageName is the package shared by learner code and injected tests
	PackageName = "challenge"

	// GoVersion is the minimum toolchain version pinned in the manifest
	GoVersion = "1.21"

	// File names inside a test mode workspace
	SourceFileName   = "main.go"
	TestFileName     = "main_test.go"
	ManifestFileName = "go.mod"
)

var mainPackageRe = regexp.MustCompile(`(?m)^[ \t]*(package[ \t]+main)[ \t]*\r?$`)

// Transform rewrites the `package main` clause to the shared package so that
// the learner file and a test file compile as one package. Sources without
// the clause are returned unchanged.
func Transform(source string) string {
	loc := mainPackageRe.FindStringSubmatchIndex(source)
	if loc == nil {
		return source
	}
	return source[:loc[2]] + "package " + PackageName + source[loc[3]:]
}

// Manifest returns the go.mod written into every test mode workspace
func Manifest() string {
	return "module " + PackageName + "\n\ngo " + GoVersion + "\n"
}

// Stub returns the non-test unit used when the learner's own source is the
// test file, since go test needs the package to exist outside _test.go files
func Stub() string {
	return "package " + PackageName + "\n"
}
