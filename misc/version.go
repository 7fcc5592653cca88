// Package misc keeps build time information about the program.
package misc

// Set by the linker: -X csscompat/misc.version=... -X csscompat/misc.githash=...
var (
	version = "dev"
	githash = "unknown"
)

const appName = "csscompat"

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return githash
}
