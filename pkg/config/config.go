// Copyright 2018-2021 CERN
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

// Package config reads a process's TOML configuration file into a raw
// map, then decodes named top-level sections of that map into typed
// structs. The two-stage approach keeps Read ignorant of which
// sections any particular binary cares about.
package config

import (
	"io"
	"io/ioutil"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Log holds the logging section common to every binary.
type Log struct {
	Mode  string `mapstructure:"mode"`  // "dev" or "prod"
	Level string `mapstructure:"level"` // zerolog level name
}

// Naming holds the naming server's top-level section.
type Naming struct {
	ServiceAddr      string `mapstructure:"service_addr"`
	RegistrationAddr string `mapstructure:"registration_addr"`
	MetricsAddr      string `mapstructure:"metrics_addr"`
}

// Storage holds a storage server's top-level section.
type Storage struct {
	Root           string `mapstructure:"root"`
	StorageAddr    string `mapstructure:"storage_addr"`
	CommandAddr    string `mapstructure:"command_addr"`
	NamingRegAddr  string `mapstructure:"naming_registration_addr"`
	CapacityHintMB int64  `mapstructure:"capacity_hint_mb"`
}

// Read reads the full configuration from r into a raw section map.
func Read(r io.Reader) (map[string]interface{}, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "config: error reading from reader")
	}

	v := map[string]interface{}{}
	if err := toml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "config: error decoding toml data")
	}
	return v, nil
}

// Section decodes the named top-level section of raw into out, which
// must be a pointer to one of this package's config structs. A
// missing section leaves out at its zero value.
func Section(raw map[string]interface{}, name string, out interface{}) error {
	sub, ok := raw[name]
	if !ok {
		return nil
	}
	if err := mapstructure.Decode(sub, out); err != nil {
		return errors.Wrapf(err, "config: error decoding %q section", name)
	}
	return nil
}
