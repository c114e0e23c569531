package crtsh

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
	"sort"
	"strings"

	"github.com/0xAshura/crt-subs/internal/output"
)

// Constants for the crt.sh aggregator.
const (
	// QueryURLTemplate requests a wildcard (%.domain) match with JSON output.
	// %%25 survives the Sprintf as the URL-encoded percent sign.
	QueryURLTemplate = "https://crt.sh/?q=%%25.%s&output=json"

	// UserAgent is a generic browser user-agent. crt.sh throttles obvious
	// bot agents more aggressively.
	UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

	// ReferenceDomain is a domain known to always have certificate records,
	// used by the proxy health check.
	ReferenceDomain = "google.com"

	maxLabelLen = 63
)

// Record is one entry of the crt.sh JSON response. NameValue is the raw
// newline-delimited name field and may bundle several hostnames (SAN-style).
type Record struct {
	ID             int64  `json:"id"`
	IssuerCAID     int64  `json:"issuer_ca_id"`
	IssuerName     string `json:"issuer_name"`
	CommonName     string `json:"common_name"`
	NameValue      string `json:"name_value"`
	EntryTimestamp string `json:"entry_timestamp"`
	NotBefore      string `json:"not_before"`
	NotAfter       string `json:"not_after"`
	SerialNumber   string `json:"serial_number"`
}

// IsValidDomain reports whether domain has at least two dot-separated labels,
// each non-empty and at most 63 characters.
func IsValidDomain(domain string) bool {
	if domain == "" {
		return false
	}
	parts := strings.Split(domain, ".")
	if len(parts) < 2 {
		return false
	}
	for _, part := range parts {
		if part == "" || len(part) > maxLabelLen {
			return false
		}
	}
	return true
}

// ExtractSubdomains pulls the deduplicated set of hostnames belonging to
// domain out of the fetched records. Each raw name field is split on
// newlines; candidates are trimmed and lowercased, kept when the lowercased
// target domain appears as a SUBSTRING (deliberately permissive — matches
// the upstream tool, at the cost of false positives like
// notexample.com.evil.org), and stripped of exactly one leading "*." marker.
//
// A problem with any single record logs a warning and never aborts the whole
// extraction; whatever accumulated so far is returned.
func ExtractSubdomains(records []Record, domain string, log output.Logger) map[string]struct{} {
	subdomains := make(map[string]struct{})
	target := strings.ToLower(domain)
	for _, rec := range records {
		if rec.NameValue == "" && rec.CommonName == "" {
			log.Logf(output.Warning, "Skipping certificate entry %d with no name data", rec.ID)
			continue
		}
		for _, name := range strings.Split(rec.NameValue, "\n") {
			cleaned := strings.ToLower(strings.TrimSpace(name))
			if cleaned == "" || !strings.Contains(cleaned, target) {
				continue
			}
			cleaned = strings.TrimPrefix(cleaned, "*.")
			subdomains[cleaned] = struct{}{}
		}
	}
	return subdomains
}

// FilterSubdomains keeps only hostnames containing keyword
// (case-insensitive). An empty keyword is the identity.
func FilterSubdomains(subdomains map[string]struct{}, keyword string) map[string]struct{} {
	if keyword == "" {
		return subdomains
	}
	keyword = strings.ToLower(keyword)
	filtered := make(map[string]struct{}, len(subdomains))
	for sub := range subdomains {
		if strings.Contains(sub, keyword) {
			filtered[sub] = struct{}{}
		}
	}
	return filtered
}

// SortedSubdomains flattens a subdomain set into an alphabetically sorted
// slice.
func SortedSubdomains(subdomains map[string]struct{}) []string {
	out := make([]string, 0, len(subdomains))
	for sub := range subdomains {
		out = append(out, sub)
	}
	sort.Strings(out)
	return out
}
