package quiz_test

import (
	"math"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/quiz"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	return validate
}

func failedFields(t *testing.T, err error) []string {
	t.Helper()
	verrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok, "got %v", err)
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

func TestNewQuiz_Validate(t *testing.T) {
	validate := newValidator()

	tests := []struct {
		name        string
		totalPoints float64
		wantErr     bool
	}{
		{name: "zero", totalPoints: 0},
		{name: "largest", totalPoints: 9999999999999998},
		{name: "negative", totalPoints: -1, wantErr: true},
		{name: "too large", totalPoints: 1e16, wantErr: true},
		{name: "infinite", totalPoints: math.Inf(1), wantErr: true},
		{name: "not a number", totalPoints: math.NaN(), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nq := quiz.NewQuiz{CourseID: 1, Title: " Quiz 1 ", DueDate: "2030-01-02T15:04", TotalPoints: tt.totalPoints}
			err := nq.Validate(validate)
			if tt.wantErr {
				assert.Equal(t, []string{"totalPoints"}, failedFields(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Quiz 1", nq.Title)
			assert.Equal(t, 2030, nq.DueAt.Year())
		})
	}
}

func TestGrade_Validate(t *testing.T) {
	validate := newValidator()
	score := func(f float64) *float64 { return &f }

	tests := []struct {
		name    string
		score   *float64
		wantErr bool
	}{
		{name: "zero", score: score(0)},
		{name: "missing", wantErr: true},
		{name: "negative", score: score(-0.5), wantErr: true},
		{name: "too large", score: score(1e300), wantErr: true},
		{name: "infinite", score: score(math.Inf(1)), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := quiz.Grade{Score: tt.score}
			err := g.Validate(validate)
			if tt.wantErr {
				assert.Equal(t, []string{"score"}, failedFields(t, err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
