package archive

import (
	"path/filepath"
	"strings"
)

// ModelExtensions lists the model file types the service accepts.
var ModelExtensions = []string{".glb", ".gltf", ".fbx", ".obj"}

var archiveExtensions = []string{".zip", ".rar", ".7z"}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsModelFile reports whether name carries a model extension.
func IsModelFile(name string) bool {
	return hasExt(name, ModelExtensions)
}

// IsArchiveFile reports whether name carries a supported archive extension.
func IsArchiveFile(name string) bool {
	return hasExt(name, archiveExtensions)
}

// FindModelFiles returns the model files in files, preserving order.
func FindModelFiles(files []ExtractedFile) []ExtractedFile {
	var out []ExtractedFile
	for _, f := range files {
		if IsModelFile(f.Filename) {
			out = append(out, f)
		}
	}
	return out
}

// ContentTypeFor maps a filename to the MIME type served for it.
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".glb":
		return "model/gltf-binary"
	case ".gltf":
		return "model/gltf+json"
	case ".obj":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
