package bigquery

import (
	"fmt"
	"strings"
)

// Scheme is the URI prefix of BigQuery table sources.
const Scheme = "bigquery://"

// TableRef names a BigQuery table.
type TableRef struct {
	ProjectID string
	DatasetID string
	TableID   string
}

// ParseTableURI parses "bigquery://project/dataset.table". The project may
// be omitted ("bigquery://dataset.table"), in which case defaultProject is
// used.
func ParseTableURI(uri, defaultProject string) (TableRef, error) {
	if !strings.HasPrefix(uri, Scheme) {
		return TableRef{}, fmt.Errorf("invalid BigQuery URI: %s", uri)
	}
	rest := strings.TrimPrefix(uri, Scheme)

	ref := TableRef{ProjectID: defaultProject}
	if project, tbl, ok := strings.Cut(rest, "/"); ok {
		ref.ProjectID = project
		rest = tbl
	}

	dataset, tbl, ok := strings.Cut(rest, ".")
	if !ok || dataset == "" || tbl == "" || strings.ContainsAny(tbl, "./") {
		return TableRef{}, fmt.Errorf("invalid BigQuery URI (want bigquery://project/dataset.table): %s", uri)
	}
	ref.DatasetID = dataset
	ref.TableID = tbl

	if ref.ProjectID == "" {
		return TableRef{}, fmt.Errorf("invalid BigQuery URI (no project and no default project): %s", uri)
	}
	return ref, nil
}

// String returns the standard SQL path of the table.
func (r TableRef) String() string {
	return fmt.Sprintf("%s.%s.%s", r.ProjectID, r.DatasetID, r.TableID)
}

// quoted returns the table path quoted for standard SQL.
func (r TableRef) quoted() string {
	return "`" + r.String() + "`"
}
