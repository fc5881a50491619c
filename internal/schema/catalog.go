package schema

import (
	_ "embed"
	"sort"

	"github.com/BurntSushi/toml"
)

// DefaultIssueType is assigned to server records that arrive without an
// issue type code.
const DefaultIssueType = "GEN"

//go:embed issue_types.toml
var issueTypesTOML []byte

type issueCatalog struct {
	IssueTypes map[string]string `toml:"issue_types"`
}

var catalog issueCatalog

func init() {
	// The catalog ships with the binary; a decode failure is a build
	// defect, not a runtime condition.
	if err := toml.Unmarshal(issueTypesTOML, &catalog); err != nil {
		panic("schema: bad embedded issue type catalog: " + err.Error())
	}
}

// IssueTypeLabel resolves an issue type code to its human-readable label.
// Unknown codes fall through unchanged so server-introduced codes still
// display.
func IssueTypeLabel(code string) string {
	if label, ok := catalog.IssueTypes[code]; ok {
		return label
	}
	return code
}

// KnownIssueType reports whether the code exists in the catalog.
func KnownIssueType(code string) bool {
	_, ok := catalog.IssueTypes[code]
	return ok
}

// IssueTypeCodes returns all catalog codes in sorted order.
func IssueTypeCodes() []string {
	codes := make([]string, 0, len(catalog.IssueTypes))
	for code := range catalog.IssueTypes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
