// Package sqlxrepos implements the repositories on postgres with sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

// postgres error codes
const (
	foreignKeyViolation = "foreign_key_violation"
	uniqueViolation     = "unique_violation"
)

type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// constraintErr returns the error registered for the violated constraint, or nil if err is no such violation.
func constraintErr(err error, byConstraint map[string]error) error {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok {
		return nil
	}
	switch pqErr.Code.Name() {
	case uniqueViolation, foreignKeyViolation:
		return byConstraint[pqErr.Constraint]
	}
	return nil
}

// orderBy builds an ORDER BY clause of the allowed fields only. The id column always breaks ties.
func orderBy(ordering []core.DBOrdering, allowed []string, prefix, fallback string) string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		for _, field := range allowed {
			if ord.Field == field {
				ord.Field = prefix + field
				clauses = append(clauses, ord.String())
				break
			}
		}
	}
	if len(clauses) == 0 {
		clauses = append(clauses, fallback)
	}
	clauses = append(clauses, prefix+"id ASC")
	return " ORDER BY " + strings.Join(clauses, ", ")
}
