package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// SortSpec is one entry of a sort model.
type SortSpec struct {
	ColID string `json:"colId"`
	Sort  string `json:"sort"`
}

// Filters is the fetch request body shared by categories and transactions.
type Filters struct {
	FilterModel map[string]any `json:"filterModel"`
	SortModel   []SortSpec     `json:"sortModel"`
	Limit       int            `json:"limit"`
	Offset      int            `json:"offset"`
}

type colKind uint8

const (
	kindText colKind = iota
	kindInt
	kindTime
)

type tableSpec struct {
	name    string
	key     string
	columns map[string]colKind
	selects string
}

// resolve maps a client column id onto a whitelisted column. Meta fields are addressable both
// as "meta.created_at" and "created_at".
func (t tableSpec) resolve(colID string) (string, colKind, bool) {
	col := strings.TrimPrefix(strings.TrimSpace(colID), "meta.")
	kind, ok := t.columns[col]
	return col, kind, ok
}

func (f Filters) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	default:
		return f.Limit
	}
}

// buildFetch renders the owner-scoped SELECT for f. Unknown columns are skipped.
func buildFetch(t tableSpec, ownerID string, f Filters) (string, []any, error) {
	var b strings.Builder
	args := []any{ownerID}

	b.WriteString("SELECT ")
	b.WriteString(t.selects)
	b.WriteString(" FROM ")
	b.WriteString(t.name)
	b.WriteString(" WHERE owner_id = $1")

	keys := make([]string, 0, len(f.FilterModel))
	for k := range f.FilterModel {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		col, kind, ok := t.resolve(k)
		if !ok || col == "owner_id" {
			continue
		}
		raw := f.FilterModel[k]

		if s, isStr := raw.(string); isStr && kind == kindText && strings.Contains(s, "%") {
			args = append(args, s)
			fmt.Fprintf(&b, " AND %s LIKE $%d", col, len(args))
			continue
		}

		v, err := bindValue(kind, raw)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, k, err)
		}
		args = append(args, v)
		fmt.Fprintf(&b, " AND %s = $%d", col, len(args))
	}

	var order []string
	for _, s := range f.SortModel {
		col, _, ok := t.resolve(s.ColID)
		if !ok {
			continue
		}
		switch strings.ToLower(s.Sort) {
		case "asc":
			order = append(order, col+" ASC")
		case "desc":
			order = append(order, col+" DESC")
		}
	}
	order = append(order, t.key+" ASC")
	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(order, ", "))

	args = append(args, f.limit())
	fmt.Fprintf(&b, " LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	return b.String(), args, nil
}

func bindValue(kind colKind, raw any) (any, error) {
	switch kind {
	case kindText:
		switch v := raw.(type) {
		case string:
			return v, nil
		case float64, json.Number, bool:
			return fmt.Sprint(v), nil
		}
	case kindInt:
		switch v := raw.(type) {
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("not an integer")
			}
			return int64(v), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case json.Number:
			return v.Int64()
		case string:
			return strconv.ParseInt(v, 10, 64)
		}
	case kindTime:
		switch v := raw.(type) {
		case string:
			return time.Parse(time.RFC3339, v)
		case float64:
			return time.Unix(int64(v), 0).UTC(), nil
		case time.Time:
			return v, nil
		}
	}
	return nil, fmt.Errorf("unsupported value %T", raw)
}
