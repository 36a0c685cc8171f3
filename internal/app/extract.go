package app

import (
	"regexp"
	"strings"

	"github.com/anmolpansara/ChatWithDB/internal/sqlguard"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:[A-Za-z0-9_-]*[ \t]*\r?\n)?(.*?)```")

	// A query at the start of a line, in any case.
	lineQuery = regexp.MustCompile(`(?im)^[ \t]*(?:SELECT\s|WITH\s+(?:RECURSIVE\s+)?\w+\s*(?:\([^)]*\)\s*)?AS\s*\()`)
	// An upper-case query anywhere in prose.
	inlineQuery = regexp.MustCompile(`\b(?:SELECT\s|WITH\s+(?:RECURSIVE\s+)?\w+\s*(?:\([^)]*\)\s*)?AS\s*\()`)

	blankLine = regexp.MustCompile(`\n[ \t]*\n`)
)

var sqlVerbs = map[string]bool{
	"SELECT": true, "WITH": true, "VALUES": true, "TABLE": true, "EXPLAIN": true, "SHOW": true,
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
	"CREATE": true, "ALTER": true, "DROP": true, "TRUNCATE": true, "GRANT": true, "REVOKE": true,
}

// ExtractSQL isolates the SQL in a completion. A fenced code block whose
// first keyword is a SQL verb wins and is returned whole, so a block holding
// several statements is still rejected downstream. Otherwise the first
// SELECT or WITH query is taken up to its terminating semicolon, a blank
// line or the end of the text.
func ExtractSQL(completion string) (string, error) {
	for _, m := range fencedBlock.FindAllStringSubmatch(completion, -1) {
		body := strings.TrimSpace(m[1])
		if sqlVerbs[sqlguard.FirstKeyword(body)] {
			return body, nil
		}
	}

	loc := lineQuery.FindStringIndex(completion)
	if loc == nil {
		loc = inlineQuery.FindStringIndex(completion)
	}
	if loc != nil {
		rest := strings.TrimLeft(completion[loc[0]:], " \t")
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		if i := sqlguard.FirstTerminator(rest); i >= 0 {
			rest = rest[:i+1]
		} else if b := blankLine.FindStringIndex(rest); b != nil {
			rest = rest[:b[0]]
		}
		if stmt := strings.TrimSpace(rest); stmt != "" {
			return stmt, nil
		}
	}

	return "", &ErrExtraction{
		Completion: completion,
		Refusal:    isRefusal(completion),
	}
}

func isRefusal(completion string) bool {
	sentence := strings.ToLower(strings.TrimSuffix(RefusalSentence, "."))
	return strings.Contains(strings.ToLower(completion), sentence)
}
