package finance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// notFound turns a repository miss into a NOT_FOUND naming the entity, and
// wraps anything else as an infrastructure failure.
func notFound(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainErrorf(shared.CodeNotFound, "%s not found", entity)
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return fmt.Errorf("load %s: %w", strings.ToLower(entity), err)
}

func parseOptionalUUID(field, s string) (*uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, shared.NewValidationError(field, "Invalid id")
	}
	return &id, nil
}

func parseOptionalDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := finance.ParseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseOptionalDecimal(field, s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, shared.NewValidationError(field, "Invalid decimal value")
	}
	return &d, nil
}

func baseFilter(page, pageSize int, orderBy, orderDir, search string) shared.Filter {
	f := shared.DefaultFilter()
	f.Page = page
	f.PageSize = pageSize
	if orderBy != "" {
		f.OrderBy = orderBy
	}
	if orderDir != "" {
		f.OrderDir = orderDir
	}
	f.Search = strings.TrimSpace(search)
	return f.Normalize()
}
