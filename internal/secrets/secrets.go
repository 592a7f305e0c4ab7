// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads per-user values kept out of the config file from a
// directory of plain-text files. Each file is one secret: the filename is the
// key and the trimmed contents are the value.
//
// Recognized keys: contact-email (added to the User-Agent so the Neotoma
// maintainers can reach heavy users).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// KeyContactEmail names the file holding the operator's contact address.
const KeyContactEmail = "contact-email"

// Secrets maps a key file name to its trimmed contents.
type Secrets map[string]string

// Load reads all files in dir. A missing directory is not an error and
// yields an empty set. Unreadable files are logged and skipped.
func Load(dir string, log zerolog.Logger) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}
	return s, nil
}

// UserAgent returns base with the contact email appended as a mailto
// comment, or base unchanged when no email is set.
func (s Secrets) UserAgent(base string) string {
	email := s[KeyContactEmail]
	if email == "" {
		return base
	}
	return fmt.Sprintf("%s (mailto:%s)", base, email)
}
