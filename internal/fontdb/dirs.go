package fontdb

import (
	"os"
	"path/filepath"
	"runtime"
)

// SystemFontDirs lists the directories a host conventionally keeps fonts in.
// Directories that do not exist are included; scanning them adds nothing.
func SystemFontDirs() []string {
	return systemFontDirs(runtime.GOOS, os.Getenv, userHome())
}

func systemFontDirs(goos string, getenv func(string) string, home string) []string {
	var dirs []string
	add := func(dir string) {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	addHome := func(rel string) {
		if home != "" {
			add(filepath.Join(home, rel))
		}
	}

	switch goos {
	case "windows":
		if windir := getenv("WINDIR"); windir != "" {
			add(filepath.Join(windir, "Fonts"))
		} else {
			add(`C:\Windows\Fonts`)
		}
		if local := getenv("LOCALAPPDATA"); local != "" {
			add(filepath.Join(local, "Microsoft", "Windows", "Fonts"))
		}
	case "darwin", "ios":
		add("/System/Library/Fonts")
		add("/Library/Fonts")
		addHome("Library/Fonts")
	default:
		add("/usr/share/fonts")
		add("/usr/local/share/fonts")
		addHome(".fonts")
		if xdg := getenv("XDG_DATA_HOME"); xdg != "" {
			add(filepath.Join(xdg, "fonts"))
		} else {
			addHome(".local/share/fonts")
		}
	}
	return dirs
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
