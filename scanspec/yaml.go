package scanspec

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlSpec is the on-disk shape of a scan policy document.
type yamlSpec struct {
	Include struct {
		Packages []string `yaml:"packages"`
		Paths    []string `yaml:"paths"`
		Files    []string `yaml:"files"`
	} `yaml:"include"`
	Exclude struct {
		Packages []string `yaml:"packages"`
	} `yaml:"exclude"`
	Reject    []string `yaml:"reject"`
	ScanDirs  *bool    `yaml:"scanDirs"`
	ClassInfo *bool    `yaml:"classInfo"`
}

// LoadYAML builds a Spec from a YAML policy document, for example:
//
//	include:
//	  packages: [com/example]
//	  files: [com/other/Main.class]
//	exclude:
//	  packages: [com/example/internal]
//	scanDirs: true
//
// Omitted toggles keep their defaults (enabled). Unknown fields are rejected.
func LoadYAML(data []byte) (*Spec, error) {
	var doc yamlSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("scanspec: parse policy: %w", err)
	}

	opts := []Option{
		WithIncludePackages(doc.Include.Packages...),
		WithIncludePaths(doc.Include.Paths...),
		WithIncludeFiles(doc.Include.Files...),
		WithExcludePackages(doc.Exclude.Packages...),
		WithRejectResourcePaths(doc.Reject...),
	}
	if doc.ScanDirs != nil {
		opts = append(opts, WithDirScanning(*doc.ScanDirs))
	}
	if doc.ClassInfo != nil {
		opts = append(opts, WithClassInfo(*doc.ClassInfo))
	}
	return New(opts...), nil
}
