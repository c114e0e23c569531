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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

const separatorWidth = 60

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
)

func separator(w io.Writer) {
	cyan.Fprintln(w, strings.Repeat("=", separatorWidth))
}

// PrintBanner writes the startup banner to w.
func PrintBanner(w io.Writer) {
	banner := `
    ╔═══════════════════════════════════════╗
    ║   crt-subs Subdomain Finder           ║
    ║   Certificate Transparency Logs       ║
    ╚═══════════════════════════════════════╝
`
	cyan.Fprintln(w, banner)
}

// BatchEntry is one row of a batch summary display, in input order.
type BatchEntry struct {
	Domain string
	Count  int
	Proxy  string
}

// ProxyReport is the outcome of a proxy test run.
type ProxyReport struct {
	Working []string
	Failed  []string
}

// DisplayResult renders one scan's findings: a header block, totals, then the
// numbered subdomain list.
func DisplayResult(w io.Writer, domain string, subdomains []string, elapsed time.Duration, proxyName string) {
	fmt.Fprintln(w)
	separator(w)
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("Results for"), cyan.Sprint(domain))
	if proxyName != "" && proxyName != "direct" {
		fmt.Fprintf(w, "%s %s\n", bold.Sprint("Proxy:"), cyan.Sprint(proxyName))
	}
	separator(w)
	fmt.Fprintln(w)

	green.Fprintf(w, "[+] Total Subdomains: %d\n", len(subdomains))
	green.Fprintf(w, "[+] Response Time: %.2fs\n\n", elapsed.Seconds())

	if len(subdomains) > 0 {
		yellow.Fprintln(w, "Subdomains found:")
		fmt.Fprintln(w)
		for i, sub := range subdomains {
			cyan.Fprintf(w, "  %3d. %s\n", i+1, sub)
		}
	} else {
		yellow.Fprintln(w, "No subdomains found.")
	}

	fmt.Fprintln(w)
	separator(w)
	fmt.Fprintln(w)
}

// DisplayBatchSummary renders the per-domain rollup after a batch run.
func DisplayBatchSummary(w io.Writer, entries []BatchEntry, totalSubdomains, domainsScanned, proxiesUsed int) {
	fmt.Fprintln(w)
	separator(w)
	bold.Fprintln(w, "Batch Scan Summary")
	separator(w)
	fmt.Fprintln(w)

	green.Fprintf(w, "Domains scanned: %d\n", domainsScanned)
	green.Fprintf(w, "Proxies used: %d\n", proxiesUsed)
	green.Fprintf(w, "Total subdomains: %d\n\n", totalSubdomains)

	for _, e := range entries {
		status := green.Sprint("✓")
		if e.Count == 0 {
			status = yellow.Sprint("○")
		}
		fmt.Fprintf(w, "%s %s: %d subdomains (proxy: %s)\n", status, e.Domain, e.Count, e.Proxy)
	}

	fmt.Fprintln(w)
	separator(w)
	fmt.Fprintln(w)
}

// DisplayProxyTest renders the working/failed breakdown of a proxy test run.
// The failed section only appears when something failed.
func DisplayProxyTest(w io.Writer, report ProxyReport) {
	fmt.Fprintln(w)
	separator(w)
	bold.Fprintln(w, "Proxy Test Results")
	separator(w)
	fmt.Fprintln(w)

	green.Fprintf(w, "Working Proxies: %d\n", len(report.Working))
	for _, p := range report.Working {
		fmt.Fprintf(w, "  %s %s\n", green.Sprint("✓"), p)
	}

	if len(report.Failed) > 0 {
		fmt.Fprintln(w)
		red.Fprintf(w, "Failed Proxies: %d\n", len(report.Failed))
		for _, p := range report.Failed {
			fmt.Fprintf(w, "  %s %s\n", red.Sprint("✗"), p)
		}
	}

	fmt.Fprintln(w)
	separator(w)
	fmt.Fprintln(w)
}
