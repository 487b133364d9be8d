package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformDefaults holds the platform-specific default values
type PlatformDefaults struct {
	RuntimeDir string
	LogFile    string
	ConfigPath string
}

// GetPlatformDefaults returns platform-specific defaults based on runtime.GOOS
func GetPlatformDefaults() PlatformDefaults {
	switch runtime.GOOS {
	case "windows":
		return PlatformDefaults{
			RuntimeDir: `C:\ProgramData\svcctl\run`,
			LogFile:    `C:\ProgramData\svcctl\svcctl.log`,
			ConfigPath: `C:\ProgramData\svcctl\config.yaml`,
		}
	case "darwin":
		return PlatformDefaults{
			RuntimeDir: unixRuntimeDir(),
			LogFile:    "/usr/local/var/log/svcctl/svcctl.log",
			ConfigPath: "/usr/local/etc/svcctl/config.yaml",
		}
	default:
		// Linux, FreeBSD and anything else POSIX-like
		return PlatformDefaults{
			RuntimeDir: unixRuntimeDir(),
			LogFile:    "/var/log/svcctl/svcctl.log",
			ConfigPath: "/etc/svcctl/config.yaml",
		}
	}
}

// unixRuntimeDir prefers the user runtime directory so unprivileged
// runs get a writable lock location; /run/svcctl needs root.
func unixRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "svcctl")
	}
	return "/run/svcctl"
}

// GetDefaultConfigPath returns the platform-specific default config path
func GetDefaultConfigPath() string {
	return GetPlatformDefaults().ConfigPath
}
