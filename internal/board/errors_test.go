package board

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"kanbanlive/internal/repository"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"missing task", repository.ErrTaskNotFound, ErrNotFound},
		{"wrapped missing list", fmt.Errorf("load: %w", repository.ErrListNotFound), ErrNotFound},
		{"cross board", repository.ErrCrossBoardMove, ErrInvalid},
		{"deadline", context.DeadlineExceeded, ErrTransient},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, ErrTransient},
		{"connection failure", &pgconn.PgError{Code: "08006"}, ErrTransient},
		{"already classified", ErrPermissionDenied, ErrPermissionDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tc.err), tc.want)
		})
	}
}

func TestClassify_UniqueViolationIsNotRetryable(t *testing.T) {
	err := classify(&pgconn.PgError{Code: "23505"})

	assert.False(t, IsRetryable(err))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestClassify_KeepsCause(t *testing.T) {
	err := classify(repository.ErrTaskNotFound)

	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.Nil(t, classify(nil))
}
