// Package symbols resolves the list of symbols the bot scans for entries.
package symbols

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"swingBot/internal/domain"
	"swingBot/internal/ports"
)

// AssetLister lists the instruments of a venue.
type AssetLister interface {
	ListAssets(ctx context.Context) ([]domain.Asset, error)
}

// Resolve returns explicit when set. Otherwise it reads path, building it from the venue's
// tradable assets first when the file does not exist.
func Resolve(ctx context.Context, explicit []string, path string, venue AssetLister, logger ports.Logger) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	symbols, err := Load(path)
	if err == nil {
		return symbols, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	logger.Info(ctx, "Symbols file missing, building it from the venue", map[string]interface{}{"path": path})
	return Build(ctx, path, venue)
}

// Load reads one symbol per line, skipping blanks and # comments.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbols file '%s': %w", path, err)
	}
	defer f.Close()

	var symbols []string
	seen := map[string]bool{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s := strings.ToUpper(line)
		if !seen[s] {
			seen[s] = true
			symbols = append(symbols, s)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read symbols file '%s': %w", path, err)
	}
	return symbols, nil
}

// Build writes the venue's tradable symbols to path and returns them.
func Build(ctx context.Context, path string, venue AssetLister) ([]string, error) {
	assets, err := venue.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	var symbols []string
	for _, a := range assets {
		if a.Tradable {
			symbols = append(symbols, a.Symbol)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for symbols file '%s': %w", path, err)
		}
	}
	var sb strings.Builder
	for _, s := range symbols {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return nil, fmt.Errorf("failed to write symbols file '%s': %w", path, err)
	}
	return symbols, nil
}
