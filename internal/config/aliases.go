package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Alias maps a window-title fragment to the application name reported for
// it.
type Alias struct {
	Pattern string
	App     string
}

// AppAliases holds the title-to-app mappings declared by the user, in file
// order.
type AppAliases struct {
	Aliases []Alias
}

// LoadAppAliases reads the aliases file at {dir}/apps and returns the parsed
// config. If the file does not exist, an empty config is returned without an
// error. Invalid or malformed lines are silently skipped.
//
//	# pattern=App Name
//	visual studio code=VS Code
//	- mozilla firefox=Firefox
func LoadAppAliases(dir string) (*AppAliases, error) {
	cfg := &AppAliases{}

	path := filepath.Join(dir, "apps")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Split on the last "=" so a pattern may contain one.
		idx := strings.LastIndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		pattern := strings.TrimSpace(line[:idx])
		app := strings.TrimSpace(line[idx+1:])
		if pattern == "" || app == "" {
			continue
		}

		cfg.Aliases = append(cfg.Aliases, Alias{Pattern: strings.ToLower(pattern), App: app})
	}

	if err := scanner.Err(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Resolve returns the app name for a window title. The first alias whose
// pattern occurs in the title (case-insensitively) wins; titles matching
// nothing are returned unchanged.
func (a *AppAliases) Resolve(title string) string {
	if a == nil || len(a.Aliases) == 0 {
		return title
	}
	lower := strings.ToLower(title)
	for _, alias := range a.Aliases {
		if strings.Contains(lower, alias.Pattern) {
			return alias.App
		}
	}
	return title
}
