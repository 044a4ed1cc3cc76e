package styles

import (
	"path"
	"strings"
)

// Tip: To find icons use https://github.com/loichyan/nerdfix

var (
	IconGithub = " "
	IconRepo   = " "
	IconLock   = " "
	IconIssue  = " "
	IconBrain  = " "
	IconWrench = " "
)

// Directory icons
var (
	IconFolderOpen   = " "
	IconFolderClosed = " "
)

// File type icons
var (
	IconFileDefault  = " "
	IconFileGo       = " "
	IconFileJS       = "󰌞 "
	IconFileTS       = "󰛦 "
	IconFilePython   = " "
	IconFileMarkdown = " "
	IconFileJSON     = " "
	IconFileYAML     = " "
	IconFileTOML     = " "
	IconFileHTML     = " "
	IconFileCSS      = " "
	IconFileRust     = " "
	IconFileC        = " "
	IconFileJava     = " "
	IconFileRuby     = " "
	IconFileShell    = " "
	IconFileDocker   = "󰡨 "
	IconFileMakefile = " "
)

var iconsByExt = map[string]*string{
	".go":   &IconFileGo,
	".js":   &IconFileJS,
	".jsx":  &IconFileJS,
	".mjs":  &IconFileJS,
	".ts":   &IconFileTS,
	".tsx":  &IconFileTS,
	".py":   &IconFilePython,
	".md":   &IconFileMarkdown,
	".json": &IconFileJSON,
	".yaml": &IconFileYAML,
	".yml":  &IconFileYAML,
	".toml": &IconFileTOML,
	".html": &IconFileHTML,
	".css":  &IconFileCSS,
	".rs":   &IconFileRust,
	".c":    &IconFileC,
	".h":    &IconFileC,
	".java": &IconFileJava,
	".rb":   &IconFileRuby,
	".sh":   &IconFileShell,
	".bash": &IconFileShell,
}

// IconForFile returns the icon for a file name.
func IconForFile(name string) string {
	base := strings.ToLower(path.Base(name))
	switch base {
	case "dockerfile":
		return IconFileDocker
	case "makefile":
		return IconFileMakefile
	}
	if icon, ok := iconsByExt[path.Ext(base)]; ok {
		return *icon
	}
	return IconFileDefault
}
