// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// definition is a reproducible set of estimate hyperparameters that
// can be checked in next to the data it was used on. Both YAML and
// JSON are accepted; explicitly given flags take precedence over the
// definition.
type definition struct {
	Blocks     int     `json:"blocks,omitempty"`
	BlockSize  int     `json:"block-size,omitempty"`
	WindowSize int     `json:"window-size,omitempty"`
	MaxEpochs  int     `json:"max-epochs,omitempty"`
	Tolerance  float64 `json:"tolerance,omitempty"`
	Seed       int64   `json:"seed,omitempty"`
	Threads    int     `json:"threads,omitempty"`
}

func readDefinition(path string) (*definition, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def := new(definition)
	if err := yaml.UnmarshalStrict(buf, def); err != nil {
		return nil, fmt.Errorf("decoding definition %s: %w", path, err)
	}
	if def.Blocks != 0 && def.BlockSize != 0 {
		return nil, fmt.Errorf("definition %s: blocks and block-size are mutually exclusive", path)
	}
	return def, nil
}
