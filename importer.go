package neosage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// Defaults of the neo4j-admin bulk import format the Importer reads.
const (
	DefaultDelimiter      = ';'
	DefaultArrayDelimiter = ","
	DefaultImportBatch    = 1000
	DefaultRelationType   = "RELATED_TO"
)

// Importer loads nodes and relationships from CSV files written in the neo4j-admin
// bulk import layout, e.g.
//
//	id:ID{id-type:long};label:int;features:float[];:LABEL
//	0;3;0.0,0.1,0.0;Paper,TRAIN
//
// and
//
//	:START_ID;:END_ID
//	0;633
//
// Unlike neo4j-admin it writes through Cypher into a live database, merging on the
// id property, so an import can be repeated without duplicating the graph.
type Importer struct {
	runner DBRunner

	// Delimiter separates fields, ArrayDelimiter separates array elements.
	Delimiter      rune
	ArrayDelimiter string
	// BatchSize is the number of rows sent per UNWIND query.
	BatchSize int
	// RelationType is used for relationship rows without a :TYPE column.
	RelationType string
	// MatchLabel, when set, restricts relationship endpoint lookups to nodes carrying it.
	MatchLabel string
	// IDProperty is the node property relationship endpoints are matched on.
	IDProperty string
}

// NewImporter returns an Importer writing through runner with the default format.
func NewImporter(runner DBRunner) *Importer {
	return &Importer{
		runner:         runner,
		Delimiter:      DefaultDelimiter,
		ArrayDelimiter: DefaultArrayDelimiter,
		BatchSize:      DefaultImportBatch,
		RelationType:   DefaultRelationType,
		IDProperty:     "id",
	}
}

// column is one parsed header field.
type column struct {
	// name is the property name; empty for :LABEL, :TYPE and the endpoint columns.
	name  string
	kind  string
	array bool
}

// parseHeader parses "name:type" header fields. Type parameters in braces are
// ignored, a missing type means string, and a trailing [] marks an array.
func parseHeader(fields []string) ([]column, error) {
	cols := make([]column, len(fields))
	for i, f := range fields {
		name, typ, _ := strings.Cut(strings.TrimSpace(f), ":")
		if j := strings.IndexByte(typ, '{'); j >= 0 {
			typ = typ[:j]
		}
		c := column{name: name, kind: strings.ToLower(typ)}
		if strings.HasSuffix(c.kind, "[]") {
			c.array = true
			c.kind = strings.TrimSuffix(c.kind, "[]")
		}
		switch c.kind {
		case "":
			c.kind = "string"
		case "id":
			if c.name == "" {
				c.name = "id"
			}
		case "label", "type", "start_id", "end_id", "ignore":
		case "string", "int", "long", "short", "byte", "float", "double", "boolean":
		default:
			return nil, fmt.Errorf("header field %q has unsupported type %q", f, typ)
		}
		if c.name == "" && !slices.Contains([]string{"label", "type", "start_id", "end_id", "ignore"}, c.kind) {
			return nil, fmt.Errorf("header field %q has no property name", f)
		}
		cols[i] = c
	}
	return cols, nil
}

// value converts a raw field according to the column type. ID columns keep the
// numeric form when the value parses as an integer, so ids match long properties.
func (c column) value(raw, arrayDelim string) (any, error) {
	if c.array {
		if raw == "" {
			return []any{}, nil
		}
		parts := strings.Split(raw, arrayDelim)
		out := make([]any, len(parts))
		for i, p := range parts {
			v, err := scalarValue(c.kind, p)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	return scalarValue(c.kind, raw)
}

func scalarValue(kind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case "int", "long", "short", "byte":
		return strconv.ParseInt(raw, 10, 64)
	case "float", "double":
		return strconv.ParseFloat(raw, 64)
	case "boolean":
		return strconv.ParseBool(raw)
	case "id", "start_id", "end_id":
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
		return raw, nil
	}
	return raw, nil
}

// ImportNodes reads a node file and merges every row on its id property. Rows are
// grouped by label set, since labels cannot be parameters of a Cypher query.
// It returns the number of rows written.
func (im *Importer) ImportNodes(ctx context.Context, r io.Reader) (int, error) {
	rows, cols, err := im.reader(r)
	if err != nil {
		return 0, err
	}
	idCol := slices.IndexFunc(cols, func(c column) bool { return c.kind == "id" })
	if idCol < 0 {
		return 0, errors.New("node header has no :ID column")
	}
	idProp := cols[idCol].name

	pending := make(map[string][]map[string]any)
	var order []string
	total := 0
	flush := func(key string) error {
		batch := pending[key]
		if len(batch) == 0 {
			return nil
		}
		query := fmt.Sprintf("UNWIND $rows AS row MERGE (n%s {%s: row.id}) SET n += row.props",
			labelPattern(strings.Split(key, "\x00")), quoteName(idProp))
		if _, err := im.runner.Run(ctx, query, map[string]any{"rows": batch}); err != nil {
			return fmt.Errorf("could not import nodes: %w", err)
		}
		total += len(batch)
		pending[key] = nil
		return nil
	}

	for line := 2; ; line++ {
		record, err := rows.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		props := make(map[string]any)
		var labels []string
		var id any
		for i, c := range cols {
			switch c.kind {
			case "ignore":
				continue
			case "label":
				for _, l := range strings.Split(record[i], im.ArrayDelimiter) {
					if l = strings.TrimSpace(l); l != "" {
						labels = append(labels, l)
					}
				}
				continue
			}
			v, err := c.value(record[i], im.ArrayDelimiter)
			if err != nil {
				return total, fmt.Errorf("line %d, column %s: %w", line, c.name, err)
			}
			if i == idCol {
				id = v
			}
			props[c.name] = v
		}
		if len(labels) == 0 {
			return total, fmt.Errorf("line %d: node has no label", line)
		}
		slices.Sort(labels)
		key := strings.Join(labels, "\x00")
		if _, ok := pending[key]; !ok {
			order = append(order, key)
		}
		pending[key] = append(pending[key], map[string]any{"id": id, "props": props})
		if len(pending[key]) >= im.batchSize() {
			if err := flush(key); err != nil {
				return total, err
			}
		}
	}
	for _, key := range order {
		if err := flush(key); err != nil {
			return total, err
		}
	}
	return total, nil
}

// ImportRelationships reads a relationship file and merges one relationship per row
// between the nodes whose id property equals :START_ID and :END_ID. Columns other
// than the endpoints and :TYPE become relationship properties.
func (im *Importer) ImportRelationships(ctx context.Context, r io.Reader) (int, error) {
	rows, cols, err := im.reader(r)
	if err != nil {
		return 0, err
	}
	start := slices.IndexFunc(cols, func(c column) bool { return c.kind == "start_id" })
	end := slices.IndexFunc(cols, func(c column) bool { return c.kind == "end_id" })
	if start < 0 || end < 0 {
		return 0, errors.New("relationship header needs :START_ID and :END_ID columns")
	}
	typeCol := slices.IndexFunc(cols, func(c column) bool { return c.kind == "type" })

	pending := make(map[string][]map[string]any)
	var order []string
	total := 0
	flush := func(relType string) error {
		batch := pending[relType]
		if len(batch) == 0 {
			return nil
		}
		endpoint := labelPattern(nil)
		if im.MatchLabel != "" {
			endpoint = labelPattern([]string{im.MatchLabel})
		}
		query := fmt.Sprintf("UNWIND $rows AS row MATCH (a%[1]s {%[3]s: row.start}) MATCH (b%[1]s {%[3]s: row.end}) "+
			"MERGE (a)-[r:%[2]s]->(b) SET r += row.props", endpoint, quoteName(relType), quoteName(im.IDProperty))
		if _, err := im.runner.Run(ctx, query, map[string]any{"rows": batch}); err != nil {
			return fmt.Errorf("could not import relationships: %w", err)
		}
		total += len(batch)
		pending[relType] = nil
		return nil
	}

	for line := 2; ; line++ {
		record, err := rows.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		relType := im.RelationType
		if typeCol >= 0 && strings.TrimSpace(record[typeCol]) != "" {
			relType = strings.TrimSpace(record[typeCol])
		}
		row := map[string]any{"props": map[string]any{}}
		for i, c := range cols {
			if c.kind == "ignore" || c.kind == "type" {
				continue
			}
			v, err := c.value(record[i], im.ArrayDelimiter)
			if err != nil {
				return total, fmt.Errorf("line %d, column %d: %w", line, i+1, err)
			}
			switch i {
			case start:
				row["start"] = v
			case end:
				row["end"] = v
			default:
				row["props"].(map[string]any)[c.name] = v
			}
		}
		if _, ok := pending[relType]; !ok {
			order = append(order, relType)
		}
		pending[relType] = append(pending[relType], row)
		if len(pending[relType]) >= im.batchSize() {
			if err := flush(relType); err != nil {
				return total, err
			}
		}
	}
	for _, relType := range order {
		if err := flush(relType); err != nil {
			return total, err
		}
	}
	return total, nil
}

// reader opens r as CSV and parses its header.
func (im *Importer) reader(r io.Reader) (*csv.Reader, []column, error) {
	rows := csv.NewReader(r)
	rows.Comma = im.Delimiter
	rows.ReuseRecord = true
	header, err := rows.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("could not read header: %w", err)
	}
	cols, err := parseHeader(header)
	if err != nil {
		return nil, nil, err
	}
	rows.FieldsPerRecord = len(cols)
	return rows, cols, nil
}

func (im *Importer) batchSize() int {
	if im.BatchSize <= 0 {
		return DefaultImportBatch
	}
	return im.BatchSize
}

// labelPattern renders labels as ":`A`:`B`".
func labelPattern(labels []string) string {
	var b strings.Builder
	for _, l := range labels {
		b.WriteString(":")
		b.WriteString(quoteName(l))
	}
	return b.String()
}

// quoteName escapes a label, type or property name for direct use in Cypher.
func quoteName(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
