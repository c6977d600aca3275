package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "documents_number_key"}

	require.True(t, IsUniqueViolation(dup, ""))
	require.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", dup), "documents_number_key"))
	require.False(t, IsUniqueViolation(dup, "other_key"))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	require.False(t, IsUniqueViolation(errors.New("boom"), ""))
}

func TestIsSerializationFailure(t *testing.T) {
	require.True(t, IsSerializationFailure(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})))
	require.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
}
