package table

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/potential-cli/internal/summary"
)

// GeoJSON implements summary.Table over the feature properties of a GeoJSON
// FeatureCollection. A field exists when any feature carries the property.
type GeoJSON struct {
	path string
}

// NewGeoJSON returns a GeoJSON table for path.
func NewGeoJSON(path string) *GeoJSON {
	return &GeoJSON{path: path}
}

func (g *GeoJSON) Close() error { return nil }

func (g *GeoJSON) HasField(_ context.Context, name string) (bool, error) {
	fc, err := g.load()
	if err != nil {
		return false, err
	}
	_, ok := propertyKey(fc, name)
	return ok, nil
}

// AddTextField sets the property to null on every feature that lacks it.
func (g *GeoJSON) AddTextField(_ context.Context, field summary.TextField) error {
	fc, err := g.load()
	if err != nil {
		return err
	}
	key := field.Name
	if existing, ok := propertyKey(fc, field.Name); ok {
		key = existing
	}
	for _, f := range fc.Features {
		if f.Properties == nil {
			f.Properties = map[string]interface{}{}
		}
		if _, ok := f.Properties[key]; !ok {
			f.Properties[key] = nil
		}
	}
	return g.save(fc)
}

func (g *GeoJSON) ReadNumeric(_ context.Context, fields ...string) ([][]float64, error) {
	fc, err := g.load()
	if err != nil {
		return nil, err
	}
	return g.numeric(fc, fields)
}

// OpenUpdate works on the decoded collection; Close writes it back.
func (g *GeoJSON) OpenUpdate(_ context.Context, readFields []string, writeField string) (summary.UpdateCursor, error) {
	fc, err := g.load()
	if err != nil {
		return nil, err
	}
	key, ok := propertyKey(fc, writeField)
	if !ok {
		return nil, eris.Errorf("geojson: field %q not found in %s", writeField, g.path)
	}
	vals, err := g.numeric(fc, readFields)
	if err != nil {
		return nil, err
	}

	set := func(i int, text string) error {
		f := fc.Features[i]
		if f.Properties == nil {
			f.Properties = map[string]interface{}{}
		}
		f.Properties[key] = text
		return nil
	}
	done := func() error { return g.save(fc) }
	return newRowCursor(vals, set, done), nil
}

func (g *GeoJSON) numeric(fc *geojson.FeatureCollection, fields []string) ([][]float64, error) {
	keys := make([]string, len(fields))
	for i, name := range fields {
		key, ok := propertyKey(fc, name)
		if !ok {
			return nil, eris.Errorf("geojson: field %q not found in %s", name, g.path)
		}
		keys[i] = key
	}

	out := make([][]float64, 0, len(fc.Features))
	for r, f := range fc.Features {
		vals := make([]float64, len(fields))
		for i, name := range fields {
			v, err := propertyFloat(f.Properties[keys[i]])
			if err != nil {
				return nil, eris.Wrapf(err, "geojson: %s feature %d property %s", g.path, r, name)
			}
			vals[i] = v
		}
		out = append(out, vals)
	}
	return out, nil
}

func (g *GeoJSON) load() (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return nil, eris.Wrapf(err, "geojson: read %s", g.path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "geojson: decode %s", g.path)
	}
	return &fc, nil
}

func (g *GeoJSON) save(fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "geojson: encode")
	}
	return writeFileAtomic(g.path, data)
}

// propertyKey resolves name to the property key used in the collection. An
// exact match wins over a case-insensitive one.
func propertyKey(fc *geojson.FeatureCollection, name string) (string, bool) {
	folded := ""
	for _, f := range fc.Features {
		for k := range f.Properties {
			if k == name {
				return k, true
			}
			if folded == "" && strings.EqualFold(k, name) {
				folded = k
			}
		}
	}
	return folded, folded != ""
}

// propertyFloat converts a decoded JSON property to a float. Missing and null
// properties wrap summary.ErrNullValue.
func propertyFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, summary.ErrNullValue
	case float64:
		return n, nil
	case json.Number:
		f, err := n.Float64()
		return f, eris.Wrapf(err, "geojson: parse number %q", n.String())
	case string:
		return parseNumber(n)
	case bool:
		return 0, eris.Errorf("geojson: boolean %v is not numeric", n)
	default:
		if f, err := strconv.ParseFloat(fmt.Sprint(n), 64); err == nil {
			return f, nil
		}
		return 0, eris.Errorf("geojson: %T is not numeric", v)
	}
}
