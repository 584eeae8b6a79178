// Package export writes the discovered accounts to a shareable file.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"hermes/pkg/models"
	"hermes/pkg/ui"
)

// Supported formats
const (
	FormatText     = "txt"
	FormatMarkdown = "markdown"
)

const title = "Hermes TikTok Username Monitor - Export"

// FileName returns hermes_export_YYYYMMDD_HHMMSS with the format's extension
func FileName(format string, t time.Time) string {
	ext := ".txt"
	if format == FormatMarkdown {
		ext = ".md"
	}
	return "hermes_export_" + t.Format("20060102_150405") + ext
}

// Rank returns a copy of accounts ordered by followers, highest first.
// Ties keep discovery order.
func Rank(accounts []models.UserAccount) []models.UserAccount {
	ranked := make([]models.UserAccount, len(accounts))
	copy(ranked, accounts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Followers > ranked[j].Followers
	})
	return ranked
}

// WriteText writes the plain export: a # header then one block per account
func WriteText(w io.Writer, accounts []models.UserAccount, now time.Time) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s\n", title)
	fmt.Fprintf(bw, "# Date: %s\n", now.Format(ui.TimestampLayout))
	fmt.Fprintf(bw, "# Total usernames: %d\n\n", len(accounts))

	for _, a := range Rank(accounts) {
		fmt.Fprintf(bw, "@%s\n", a.Username)
		fmt.Fprintf(bw, "Nickname: %s\n", a.Nickname)
		fmt.Fprintf(bw, "Followers: %d\n", a.Followers)
		fmt.Fprintf(bw, "Profile: %s\n", a.ProfileURL)
		fmt.Fprintf(bw, "Discovered: %s\n", a.DiscoveredAt.Format(ui.TimestampLayout))
		fmt.Fprintln(bw, ui.Separator)
	}

	return bw.Flush()
}

// WriteMarkdown writes the export as a markdown table
func WriteMarkdown(w io.Writer, accounts []models.UserAccount, now time.Time) error {
	md := markdown.NewMarkdown(w)

	md.H1(title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Date", now.Format(ui.TimestampLayout)},
			{"Total usernames", strconv.Itoa(len(accounts))},
		},
	})
	md.PlainText("")

	if len(accounts) == 0 {
		md.PlainText("No usernames found yet.")
		return md.Build()
	}

	rows := make([][]string, 0, len(accounts))
	for _, a := range Rank(accounts) {
		verified := ""
		if a.Verified {
			verified = "✓"
		}
		rows = append(rows, []string{
			"[@" + a.Username + "](" + a.ProfileURL + ")",
			escapeCell(a.Nickname),
			strconv.FormatInt(a.Followers, 10),
			verified,
			a.DiscoveredAt.Format(ui.TimestampLayout),
		})
	}

	md.H2("Usernames")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Username", "Nickname", "Followers", "Verified", "Discovered"},
		Rows:   rows,
	})

	return md.Build()
}

// Write dispatches on format
func Write(w io.Writer, format string, accounts []models.UserAccount, now time.Time) error {
	switch format {
	case FormatText, "text", "":
		return WriteText(w, accounts, now)
	case FormatMarkdown, "md":
		return WriteMarkdown(w, accounts, now)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ToFile writes the export into dir and returns the file path
func ToFile(dir, format string, accounts []models.UserAccount, now time.Time) (string, error) {
	if format == "md" {
		format = FormatMarkdown
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, FileName(format, now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}

	if err := Write(f, format, accounts, now); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}
	return path, nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
