// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/hirechat/internal/storage"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Conversations []storage.StoredConversation `yaml:"conversations"`
}

// SeedRecords decodes the bundled example histories.
func SeedRecords() ([]storage.StoredConversation, error) {
	return decodeSeed(seedYAML)
}

func decodeSeed(data []byte) ([]storage.StoredConversation, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(f.Conversations))
	for _, c := range f.Conversations {
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate seed conversation %q", c.ID)
		}
		seen[c.ID] = true
	}
	return f.Conversations, nil
}
