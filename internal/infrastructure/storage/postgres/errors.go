package postgres

import (
	"errors"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"cannapos/internal/core/apperror"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// duplicateLabels names the unique columns in client messages.
var duplicateLabels = map[string]string{
	"phone":            "Phone Number",
	"email":            "Email",
	"cannabis_license": "Cannabis License",
	"metrc_api_key":    "Metrc API Key",
	"driver_license":   "Driver License",
	"medical_license":  "Medical License",
	"business_license": "Business License",
	"sku":              "SKU",
	"upc":              "UPC",
	"organization_id":  "Organization",
	"dispensary_id":    "Dispensary",
	"state_of_usa":     "State",
	"apply_target":     "discount",
	"package_label":    "Package Label",
}

// keyDetail matches `Key (col)=(value) already exists.` and composite keys
// `Key (a, b)=(...)`.
var keyDetail = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapError converts constraint violations into AppErrors and leaves other
// errors untouched.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return apperror.NewDuplicate(duplicateLabel(pgErr)).WithCause(err)
	case pgForeignKeyViolation:
		return apperror.NewConstraint().WithCause(err)
	}
	return err
}

func duplicateLabel(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		if label, ok := duplicateLabels[pgErr.ColumnName]; ok {
			return label
		}
	}
	if m := keyDetail.FindStringSubmatch(pgErr.Detail); m != nil {
		// Composite keys report the last distinguishing column.
		cols := splitColumns(m[1])
		for i := len(cols) - 1; i >= 0; i-- {
			if label, ok := duplicateLabels[cols[i]]; ok {
				return label
			}
		}
	}
	return "Record"
}

func splitColumns(s string) []string {
	var cols []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			col := s[start:i]
			for len(col) > 0 && col[0] == ' ' {
				col = col[1:]
			}
			cols = append(cols, col)
			start = i + 1
		}
	}
	return cols
}

// IsNoRows reports whether err is pgx.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
