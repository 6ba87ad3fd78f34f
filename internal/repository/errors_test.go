package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate_DuplicateKinds(t *testing.T) {
	cases := map[string]error{
		"gorm":     gorm.ErrDuplicatedKey,
		"postgres": fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}),
		"mysql":    &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"},
		"sqlite":   errors.New("UNIQUE constraint failed: users.username"),
	}

	for name, err := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, translate(err), ErrDuplicate)
		})
	}
}

func TestTranslate_PassesOtherErrors(t *testing.T) {
	other := &pgconn.PgError{Code: "23503"}
	err := translate(other)
	assert.NotErrorIs(t, err, ErrDuplicate)
	assert.Same(t, other, err)
	assert.Nil(t, translate(nil))
}
