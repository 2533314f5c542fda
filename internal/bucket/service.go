package bucket

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/abduss/pinstore/internal/compression"
	"github.com/abduss/pinstore/internal/hashing"
	"github.com/abduss/pinstore/internal/pagination"
	"github.com/abduss/pinstore/internal/state"
)

// InstantiateInput carries the settings a bucket is created with. Unset
// optional values fall back to defaults.
type InstantiateInput struct {
	Name                          string
	HashAlgorithm                 string
	AcceptedCompressionAlgorithms []string
	Limits                        Limits
	MaxPageSize                   *uint32
	DefaultPageSize               *uint32
}

type repository interface {
	Get(ctx context.Context, rd state.Reader) (Bucket, error)
	Create(ctx context.Context, tx state.Tx, b Bucket) error
}

// Service orchestrates bucket operations.
type Service struct {
	repo repository
}

// NewService constructs a bucket service.
func NewService(repo repository) *Service {
	return &Service{repo: repo}
}

// Instantiate validates the input and creates the bucket.
func (s *Service) Instantiate(ctx context.Context, tx state.Tx, in InstantiateInput) (Bucket, error) {
	name := removeWhitespace(in.Name)
	if name == "" {
		return Bucket{}, ErrEmptyName
	}

	cfg, err := buildConfig(in.HashAlgorithm, in.AcceptedCompressionAlgorithms)
	if err != nil {
		return Bucket{}, err
	}

	if err := in.Limits.Validate(); err != nil {
		return Bucket{}, err
	}

	pages, err := pagination.NewConfig(in.MaxPageSize, in.DefaultPageSize)
	if err != nil {
		return Bucket{}, err
	}

	b := Bucket{
		Name:       name,
		Config:     cfg,
		Limits:     in.Limits,
		Pagination: pages,
	}
	if err := s.repo.Create(ctx, tx, b); err != nil {
		return Bucket{}, err
	}
	return b, nil
}

// GetBucket returns the bucket.
func (s *Service) GetBucket(ctx context.Context, rd state.Reader) (Bucket, error) {
	return s.repo.Get(ctx, rd)
}

func buildConfig(hash string, accepted []string) (Config, error) {
	hashAlgo, err := hashing.Parse(hash)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if accepted == nil {
		return Config{HashAlgorithm: hashAlgo, AcceptedCompressionAlgorithms: compression.All()}, nil
	}
	if len(accepted) == 0 {
		return Config{}, fmt.Errorf("%w: accepted_compression_algorithms cannot be empty", ErrInvalidConfig)
	}

	algos := make([]compression.Algorithm, 0, len(accepted))
	for _, code := range accepted {
		algo, err := compression.Parse(code)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if !slices.Contains(algos, algo) {
			algos = append(algos, algo)
		}
	}
	return Config{HashAlgorithm: hashAlgo, AcceptedCompressionAlgorithms: algos}, nil
}

func removeWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
