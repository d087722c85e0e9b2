package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const serverIDPrefix = "azfunnel-"

// GetPersistentServerID identifies this process among the instances sharing
// a Valkey broadcast channel. Resolution order: explicit override, the id
// stored under storagePath, the host name, then a fresh random id that is
// written back for the next start.
func GetPersistentServerID(override, storagePath string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}

	idFile := filepath.Join(storagePath, ".server_id")
	if data, err := os.ReadFile(idFile); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	if host, err := os.Hostname(); err == nil && host != "localhost" {
		if clean := sanitizeKeyPart(host); clean != "" {
			return serverIDPrefix + clean
		}
	}

	newID := serverIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	_ = os.MkdirAll(storagePath, 0o755)
	_ = os.WriteFile(idFile, []byte(newID), 0o644)
	return newID
}

func sanitizeKeyPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, s)
}
