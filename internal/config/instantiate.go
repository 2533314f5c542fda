package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/abduss/pinstore/internal/bucket"
)

// Size is a byte count that may be written as a number, a decimal string
// or a humanized size such as "512 MiB".
type Size uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	n, err := parseSize(strings.TrimSpace(value.Value))
	if err != nil {
		return err
	}
	*s = Size(n)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Size) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	n, err := parseSize(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	*s = Size(n)
	return nil
}

func (s *Size) ptr() *uint64 {
	if s == nil {
		return nil
	}
	v := uint64(*s)
	return &v
}

// InstantiateDocument is the on-disk form of a bucket instantiation.
type InstantiateDocument struct {
	Bucket string `yaml:"bucket" json:"bucket"`
	Config struct {
		HashAlgorithm                 string   `yaml:"hash_algorithm" json:"hash_algorithm"`
		AcceptedCompressionAlgorithms []string `yaml:"accepted_compression_algorithms" json:"accepted_compression_algorithms"`
	} `yaml:"config" json:"config"`
	Limits struct {
		MaxTotalSize  *Size `yaml:"max_total_size" json:"max_total_size"`
		MaxObjects    *Size `yaml:"max_objects" json:"max_objects"`
		MaxObjectSize *Size `yaml:"max_object_size" json:"max_object_size"`
		MaxObjectPins *Size `yaml:"max_object_pins" json:"max_object_pins"`
	} `yaml:"limits" json:"limits"`
	Pagination struct {
		MaxPageSize     *uint32 `yaml:"max_page_size" json:"max_page_size"`
		DefaultPageSize *uint32 `yaml:"default_page_size" json:"default_page_size"`
	} `yaml:"pagination" json:"pagination"`
}

// Input converts the document into a bucket instantiation.
func (d InstantiateDocument) Input() bucket.InstantiateInput {
	return bucket.InstantiateInput{
		Name:                          d.Bucket,
		HashAlgorithm:                 d.Config.HashAlgorithm,
		AcceptedCompressionAlgorithms: d.Config.AcceptedCompressionAlgorithms,
		Limits: bucket.Limits{
			MaxTotalSize:  d.Limits.MaxTotalSize.ptr(),
			MaxObjects:    d.Limits.MaxObjects.ptr(),
			MaxObjectSize: d.Limits.MaxObjectSize.ptr(),
			MaxObjectPins: d.Limits.MaxObjectPins.ptr(),
		},
		MaxPageSize:     d.Pagination.MaxPageSize,
		DefaultPageSize: d.Pagination.DefaultPageSize,
	}
}

// LoadInstantiate reads an instantiate document. Files ending in .yaml or
// .yml are parsed as YAML, anything else as JSON with comments allowed.
func LoadInstantiate(path string) (InstantiateDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return InstantiateDocument{}, fmt.Errorf("read instantiate file: %w", err)
	}
	return ParseInstantiate(raw, filepath.Ext(path))
}

// ParseInstantiate decodes an instantiate document in the format implied by ext.
func ParseInstantiate(raw []byte, ext string) (InstantiateDocument, error) {
	var doc InstantiateDocument
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return InstantiateDocument{}, fmt.Errorf("parse instantiate yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(raw), &doc); err != nil {
			return InstantiateDocument{}, fmt.Errorf("parse instantiate json: %w", err)
		}
	}
	return doc, nil
}
