package sqlguard

import (
	"fmt"
	"strings"

	"github.com/anmolpansara/ChatWithDB/internal/database"
)

// DefaultDenylist holds the statement kinds rejected unless mutations are allowed.
var DefaultDenylist = []string{"DROP", "DELETE", "TRUNCATE", "ALTER", "UPDATE", "INSERT"}

// Policy decides which statements may reach the database.
type Policy struct {
	AllowMutations bool
	Denylist       []string
}

// DefaultPolicy rejects the default denylist.
func DefaultPolicy() Policy {
	return Policy{Denylist: DefaultDenylist}
}

// Check validates sqlText and returns the single statement to run.
// It fails with a KindMultiStatement or KindPolicyViolation *database.QueryError.
// Check never touches the database.
func (p Policy) Check(sqlText string) (string, error) {
	stmts := Split(sqlText)
	switch len(stmts) {
	case 0:
		return "", &database.QueryError{
			Kind:    database.KindSyntax,
			SQL:     sqlText,
			Message: "no SQL statement to run",
		}
	case 1:
	default:
		return "", &database.QueryError{
			Kind:    database.KindMultiStatement,
			SQL:     sqlText,
			Message: fmt.Sprintf("expected one statement, found %d", len(stmts)),
		}
	}

	stmt := stmts[0]
	if p.AllowMutations {
		return stmt, nil
	}
	keyword := FirstKeyword(stmt)
	for _, denied := range p.Denylist {
		if strings.EqualFold(keyword, denied) {
			return "", &database.QueryError{
				Kind:    database.KindPolicyViolation,
				SQL:     sqlText,
				Message: fmt.Sprintf("%s statements are not allowed", strings.ToUpper(denied)),
			}
		}
	}
	return stmt, nil
}
