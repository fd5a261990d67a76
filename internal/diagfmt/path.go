package diagfmt

import "path/filepath"

func formatPath(file string, mode PathMode, baseDir string) string {
	if file == "" {
		return ""
	}
	switch mode {
	case PathModeAbsolute:
		if filepath.IsAbs(file) || baseDir == "" {
			return file
		}
		return filepath.Join(baseDir, filepath.FromSlash(file))
	case PathModeRelative:
		if !filepath.IsAbs(file) || baseDir == "" {
			return file
		}
		if rel, err := filepath.Rel(baseDir, file); err == nil {
			return filepath.ToSlash(rel)
		}
		return file
	case PathModeBasename:
		return filepath.Base(file)
	default:
		return file
	}
}
