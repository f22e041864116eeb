package store

import (
	"fmt"
	"strings"

	"github.com/assetline/assetline/internal/model"
)

// Ordering whitelists map external attribute names to columns. Every list
// query MUST order by a whitelisted attribute plus an id tiebreaker so
// pagination is stable; values are always parameterized, and order columns
// only ever come from these maps, never from caller input.

var assetOrderColumns = map[string]string{
	"id":         "id",
	"uri":        "uri",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

var eventOrderColumns = map[string]string{
	"id":               "id",
	"asset_id":         "asset_id",
	"source_dag_id":    "source_dag_id",
	"source_task_id":   "source_task_id",
	"source_run_id":    "source_run_id",
	"source_map_index": "source_map_index",
	"timestamp":        "created_at",
	"created_at":       "created_at",
}

// compileOrderBy turns an external order_by attribute into an ORDER BY
// clause. A leading '-' selects descending order. Unknown attributes are
// rejected with a validation error naming the attribute, never silently
// defaulted. prefix qualifies the columns ("e." for joined queries, ""
// otherwise); it comes from call sites, never from caller input.
func compileOrderBy(orderBy, prefix string, columns map[string]string) (string, error) {
	attr := orderBy
	desc := false
	if strings.HasPrefix(attr, "-") {
		attr = attr[1:]
		desc = true
	}

	col, ok := columns[attr]
	if !ok {
		return "", model.ValidationErrorf("order_by",
			"Ordering with '%s' is disallowed or the attribute does not exist on the model", attr)
	}

	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	if col == "id" {
		return fmt.Sprintf(" ORDER BY %sid %s", prefix, dir), nil
	}
	// id tiebreaker keeps pagination deterministic for equal keys.
	return fmt.Sprintf(" ORDER BY %s%s %s, %sid ASC", prefix, col, dir, prefix), nil
}
