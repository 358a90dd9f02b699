// Copyright 2026 the content-copy-tool authors
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

package config

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🔧 JSONParser implements the Parser interface for JSON settings files.
// JSON is the primary settings format.
type JSONParser struct{}

func init() {
	Register(&JSONParser{})
}

func (p *JSONParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".json")
}

func (p *JSONParser) Parse(ctx context.Context, data []byte) (*Settings, error) {
	var cfg Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	return &cfg, nil
}

// 🔧 YAMLParser implements the Parser interface for YAML settings files
type YAMLParser struct{}

func init() {
	Register(&YAMLParser{})
}

func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Settings, error) {
	var cfg Settings
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

// 🔧 HCLParser implements the Parser interface for HCL settings files
type HCLParser struct{}

func init() {
	Register(&HCLParser{})
}

func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Settings, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "settings.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var cfg hclSettings
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	return cfg.settings(), nil
}

// hclSettings mirrors Settings for gohcl decoding; the users map comes in as
// a block of attributes rather than a native map value.
type hclSettings struct {
	Columns             *Columns  `hcl:"columns,block"`
	SourceServer        string    `hcl:"source_server,optional"`
	DestinationServer   string    `hcl:"destination_server,optional"`
	Credentials         string    `hcl:"destination_credentials,optional"`
	Creators            []string  `hcl:"creators,optional"`
	Maintainers         []string  `hcl:"maintainers,optional"`
	Rightsholders       []string  `hcl:"rightsholders,optional"`
	Users               *hclUsers `hcl:"users,block"`
	Logfile             string    `hcl:"logfile,optional"`
	PathToTool          string    `hcl:"path_to_tool,optional"`
	StripSectionNumbers string    `hcl:"strip_section_numbers,optional"`
}

// hclUsers captures the users block body so arbitrary attribute names can be
// walked with JustAttributes; gohcl block fields must be structs.
type hclUsers struct {
	Remain hcl.Body `hcl:",remain"`
}

func (h *hclSettings) settings() *Settings {
	cfg := &Settings{
		SourceServer:        h.SourceServer,
		DestinationServer:   h.DestinationServer,
		Credentials:         h.Credentials,
		Creators:            h.Creators,
		Maintainers:         h.Maintainers,
		Rightsholders:       h.Rightsholders,
		Logfile:             h.Logfile,
		PathToTool:          h.PathToTool,
		StripSectionNumbers: h.StripSectionNumbers,
	}
	if h.Columns != nil {
		cfg.Columns = *h.Columns
	}
	if h.Users != nil {
		attrs, diags := h.Users.Remain.JustAttributes()
		if !diags.HasErrors() {
			cfg.Users = make(map[string]string, len(attrs))
			for name, attr := range attrs {
				val, diags := attr.Expr.Value(nil)
				if !diags.HasErrors() && val.Type() == cty.String {
					cfg.Users[name] = val.AsString()
				}
			}
		}
	}
	return cfg
}
