package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Willamette-OR/microblog/internal/model"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// uniqueFields maps unique constraints to the field reported to callers.
var uniqueFields = map[string]string{
	"users_username_key": "username",
	"users_email_key":    "email",
}

// asValidation turns constraint violations into validation errors. Other
// errors are returned unchanged.
func asValidation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		if field, ok := uniqueFields[pgErr.ConstraintName]; ok {
			return &model.ValidationError{Field: field, Reason: "already taken"}
		}
	case codeCheckViolation:
		if pgErr.ConstraintName == "follows_no_self_loop" {
			return model.ErrSelfFollow
		}
	case codeForeignKeyViolation:
		return &model.NotFoundError{Entity: "referenced row", Key: pgErr.ConstraintName}
	}
	return err
}
