package crud

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/victornedelchev/Games-Play/internal/store"
)

// DefaultPageSize applies when pageSize is present but not a positive number.
const DefaultPageSize = 10

type sortKey struct {
	prop string
	desc bool
}

// parseSortBy reads "prop [desc], prop [desc], ...".
func parseSortBy(src string) []sortKey {
	var keys []sortKey
	for _, part := range splitList(src) {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		keys = append(keys, sortKey{
			prop: fields[0],
			desc: len(fields) > 1 && strings.EqualFold(fields[1], "desc"),
		})
	}
	return keys
}

// sortRecords orders records by keys, first key taking priority. Numbers compare
// numerically, everything else by locale-aware string collation. Records missing
// the property sort last.
func sortRecords(records []store.Record, keys []sortKey) {
	if len(keys) == 0 {
		return
	}
	coll := collate.New(language.English)
	slices.SortStableFunc(records, func(a, b store.Record) int {
		for _, k := range keys {
			if c := compareField(coll, a[k.prop], b[k.prop], k.desc); c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareField(coll *collate.Collator, a, b any, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	var c int
	af, aNum := number(a)
	bf, bNum := number(b)
	if aNum && bNum {
		switch {
		case af < bf:
			c = -1
		case af > bf:
			c = 1
		}
	} else {
		c = coll.CompareString(jsString(a), jsString(b))
	}
	if desc {
		return -c
	}
	return c
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// paginate applies offset and pageSize. Empty parameters are ignored.
func paginate(records []store.Record, offset, pageSize string) []store.Record {
	if offset != "" {
		n := parseCount(offset, 0)
		if n > len(records) {
			n = len(records)
		}
		records = records[n:]
	}
	if pageSize != "" {
		n := parseCount(pageSize, DefaultPageSize)
		if n < len(records) {
			records = records[:n]
		}
	}
	return records
}

// parseCount reads a positive count, falling back to def.
func parseCount(s string, def int) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || f < 1 {
		return def
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// distinct keeps the first record of every combination of props.
func distinct(records []store.Record, props []string) []store.Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]store.Record, 0, len(records))
	for _, r := range records {
		parts := make([]string, len(props))
		for i, p := range props {
			parts[i] = jsString(r[p])
		}
		key := strings.Join(parts, "::")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// project keeps only props. Absent props are omitted.
func project(r store.Record, props []string) store.Record {
	out := make(store.Record, len(props))
	for _, p := range props {
		if v, ok := r[p]; ok {
			out[p] = v
		}
	}
	return out
}

// relation is a load directive: "prop=idSource:collection".
type relation struct {
	prop       string
	idSource   string
	collection string
}

func parseLoad(src string) ([]relation, error) {
	var out []relation
	for _, part := range splitList(src) {
		prop, target, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid load directive %q", part)
		}
		idSource, collection, ok := strings.Cut(target, ":")
		if !ok || prop == "" || idSource == "" || collection == "" {
			return nil, fmt.Errorf("invalid load directive %q", part)
		}
		out = append(out, relation{prop: prop, idSource: idSource, collection: collection})
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// jsString renders a value the way it appears when joined into a string key.
func jsString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
