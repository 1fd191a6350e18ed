// Package dummydb keeps every repository in memory.
// Foreign keys, cascades and unique constraints of the postgres schema are reproduced explicitly.
package dummydb

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
)

type (
	DB struct {
		mu   sync.RWMutex
		txMu sync.Mutex // serializes transactions
		data tables
	}

	tables struct {
		accounts    map[account.Role]*table[account.Profile]
		courses     *table[course.Course]
		enrollments map[enrollmentKey]course.Enrollment
		quizzes     *table[quiz.Quiz]
		submissions *table[quiz.Submission]
	}

	enrollmentKey struct{ courseID, studentID int }

	table[T any] struct {
		pk   int
		rows map[int]T
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[int]T)}
}

func (t *table[T]) insert(setID func(id int) T) T {
	t.pk++
	row := setID(t.pk)
	t.rows[t.pk] = row
	return row
}

// sorted returns the rows ordered by id.
func (t *table[T]) sorted() []T {
	ids := make([]int, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	rows := make([]T, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, t.rows[id])
	}
	return rows
}

func Open() (*DB, error) {
	db := &DB{
		data: tables{
			accounts: map[account.Role]*table[account.Profile]{
				account.RoleAdmin:   newTable[account.Profile](),
				account.RoleTeacher: newTable[account.Profile](),
				account.RoleStudent: newTable[account.Profile](),
			},
			courses:     newTable[course.Course](),
			enrollments: make(map[enrollmentKey]course.Enrollment),
			quizzes:     newTable[quiz.Quiz](),
			submissions: newTable[quiz.Submission](),
		},
	}
	return db, nil
}

// tx is the executor handed to InTx callbacks.
// The repositories record how to undo each write made through it;
// writes made outside the transaction are never touched by a rollback.
type tx struct {
	// never called: the dummy repositories run no SQL
	core.DBExecutor

	undo []func(d tables)
}

// txOf returns the transaction among exec, or nil.
func txOf(exec []core.DBExecutor) *tx {
	if len(exec) > 0 {
		if t, ok := exec[0].(*tx); ok {
			return t
		}
	}
	return nil
}

// onRollback registers fn to run, under the write lock, if the transaction fails. No-op outside a transaction.
func (t *tx) onRollback(fn func(d tables)) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

// InTx runs fn and undoes the writes fn made through its executor if fn fails.
func (db *DB) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	t := &tx{}
	if err := fn(t); err != nil {
		db.mu.Lock()
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i](db.data)
		}
		db.mu.Unlock()
		return err
	}
	return nil
}

// Reset empties every table.
func (db *DB) Reset() {
	fresh, _ := Open()
	db.mu.Lock()
	db.data = fresh.data
	db.mu.Unlock()
}

// cascades

func (d tables) deleteCourse(id int) {
	for k := range d.enrollments {
		if k.courseID == id {
			delete(d.enrollments, k)
		}
	}
	for qid, q := range d.quizzes.rows {
		if q.CourseID == id {
			d.deleteQuiz(qid)
		}
	}
	delete(d.courses.rows, id)
}

func (d tables) deleteQuiz(id int) {
	for sid, s := range d.submissions.rows {
		if s.QuizID == id {
			delete(d.submissions.rows, sid)
		}
	}
	delete(d.quizzes.rows, id)
}

func (d tables) deleteTeacher(id int) {
	for cid, c := range d.courses.rows {
		if c.TeacherID.Valid && int(c.TeacherID.Int) == id {
			c.TeacherID.Valid = false
			c.TeacherID.Int = 0
			d.courses.rows[cid] = c
		}
	}
	delete(d.accounts[account.RoleTeacher].rows, id)
}

func (d tables) deleteStudent(id int) {
	for k := range d.enrollments {
		if k.studentID == id {
			delete(d.enrollments, k)
		}
	}
	for sid, s := range d.submissions.rows {
		if s.StudentID == id {
			delete(d.submissions.rows, sid)
		}
	}
	delete(d.accounts[account.RoleStudent].rows, id)
}
