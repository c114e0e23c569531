package output

/*
crt-subs — subdomain discovery via Certificate Transparency logs
Copyright (C) 2026  0xAshura

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/0xAshura/crt-subs/internal/util"
)

// Supported export formats.
const (
	FormatTxt  = "txt"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// jsonExport is the on-disk JSON shape. SetDigest lets consumers diff two
// exports of the same domain without comparing the full lists.
type jsonExport struct {
	Domain         string   `json:"domain"`
	Timestamp      string   `json:"timestamp"`
	SubdomainCount int      `json:"subdomain_count"`
	Subdomains     []string `json:"subdomains"`
	SetDigest      string   `json:"set_digest"`
}

// SetDigest returns a stable hex fingerprint of a subdomain set. The input is
// sorted before hashing so the digest only depends on membership.
func SetDigest(subdomains []string) string {
	sorted := make([]string, len(subdomains))
	copy(sorted, subdomains)
	sort.Strings(sorted)
	return fmt.Sprintf("%016x", xxh3.HashString(strings.Join(sorted, "\n")))
}

// Save writes subdomains to a timestamped file in dir, returning the path
// written. Format must be one of FormatTxt, FormatJSON or FormatCSV. The list
// is sorted on the way out regardless of input order.
func Save(dir, format, domain string, subdomains []string) (string, error) {
	sorted := make([]string, len(subdomains))
	copy(sorted, subdomains)
	sort.Strings(sorted)

	now := time.Now()
	path := filepath.Join(dir, util.ResultFilename(domain, format, now))

	var data []byte
	switch format {
	case FormatTxt:
		data = []byte(strings.Join(sorted, "\n"))

	case FormatJSON:
		export := jsonExport{
			Domain:         domain,
			Timestamp:      now.Format(time.RFC3339),
			SubdomainCount: len(sorted),
			Subdomains:     sorted,
			SetDigest:      SetDigest(sorted),
		}
		var err error
		data, err = json.MarshalIndent(export, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding results: %w", err)
		}

	case FormatCSV:
		var sb strings.Builder
		w := csv.NewWriter(&sb)
		if err := w.Write([]string{"Subdomain", "Domain", "Timestamp"}); err != nil {
			return "", fmt.Errorf("encoding results: %w", err)
		}
		ts := now.Format(time.RFC3339)
		for _, sub := range sorted {
			if err := w.Write([]string{sub, domain, ts}); err != nil {
				return "", fmt.Errorf("encoding results: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", fmt.Errorf("encoding results: %w", err)
		}
		data = []byte(sb.String())

	default:
		return "", fmt.Errorf("unsupported output format: %q", format)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
