package core

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/smarty/repofiles/contracts"
)

// JoinAndConfine joins relative onto base and returns the absolute result,
// failing with contracts.ContainmentErr when the result does not lie
// inside base. Comparison is case-insensitive.
func JoinAndConfine(base, relative string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", fmt.Errorf("%w: base directory is required", contracts.ConfigurationErr)
	}
	if strings.TrimSpace(relative) == "" {
		return "", fmt.Errorf("%w: relative path is required", contracts.ConfigurationErr)
	}

	baseFull, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base directory %q: %w", base, err)
	}
	baseFull = strings.TrimRight(baseFull, `/\`) + string(filepath.Separator)

	combined := relative
	if !filepath.IsAbs(relative) {
		combined = filepath.Join(baseFull, relative)
	}
	combinedFull, err := filepath.Abs(combined)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", relative, err)
	}

	if !strings.HasPrefix(strings.ToLower(combinedFull), strings.ToLower(baseFull)) {
		return "", fmt.Errorf("%w: %q is not within %q", contracts.ContainmentErr, relative, baseFull)
	}
	return combinedFull, nil
}
