package table

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/potential-cli/internal/summary"
)

const (
	// dBASE character fields hold at most 254 bytes.
	maxDBFTextLength = 254
	// dBASE field names hold at most 10 characters.
	maxDBFNameLength = 10
)

// Shapefile implements summary.Table over the dBASE attribute table of an
// ESRI shapefile. Geometry is carried through unchanged on every rewrite.
type Shapefile struct {
	path string // .shp path
}

// NewShapefile returns a shapefile table. A .dbf path is accepted and mapped
// to its .shp sibling.
func NewShapefile(path string) *Shapefile {
	if strings.EqualFold(filepath.Ext(path), ".dbf") {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".shp"
	}
	return &Shapefile{path: path}
}

func (s *Shapefile) Close() error { return nil }

// shapeData is a fully materialized shapefile.
type shapeData struct {
	geomType shp.ShapeType
	fields   []shp.Field
	shapes   []shp.Shape
	attrs    [][]string
}

func (d *shapeData) fieldNames() []string {
	names := make([]string, len(d.fields))
	for i, f := range d.fields {
		names[i] = fieldName(f)
	}
	return names
}

func (s *Shapefile) HasField(_ context.Context, name string) (bool, error) {
	reader, err := shp.Open(s.path)
	if err != nil {
		return false, eris.Wrapf(err, "shapefile: open %s", s.path)
	}
	defer func() { _ = reader.Close() }()

	for _, f := range reader.Fields() {
		if strings.EqualFold(fieldName(f), name) {
			return true, nil
		}
	}
	return false, nil
}

// AddTextField rewrites the shapefile with an extra character field. The
// length is capped at the dBASE limit; aliases are not representable.
func (s *Shapefile) AddTextField(_ context.Context, field summary.TextField) error {
	if len(field.Name) > maxDBFNameLength {
		return eris.Errorf("shapefile: field name %q exceeds %d characters", field.Name, maxDBFNameLength)
	}

	data, err := s.load()
	if err != nil {
		return err
	}

	length := field.Length
	if length > maxDBFTextLength {
		zap.L().Warn("shapefile: capping text field length",
			zap.String("field", field.Name),
			zap.Int("requested", field.Length),
			zap.Int("length", maxDBFTextLength),
		)
		length = maxDBFTextLength
	}

	data.fields = append(data.fields, shp.StringField(field.Name, uint8(length)))
	for i := range data.attrs {
		data.attrs[i] = append(data.attrs[i], "")
	}
	return s.save(data)
}

func (s *Shapefile) ReadNumeric(_ context.Context, fields ...string) ([][]float64, error) {
	data, err := s.load()
	if err != nil {
		return nil, err
	}
	return s.numeric(data, fields)
}

// OpenUpdate works on an in-memory copy of the shapefile; Close rewrites it.
// Text longer than the field width is truncated.
func (s *Shapefile) OpenUpdate(_ context.Context, readFields []string, writeField string) (summary.UpdateCursor, error) {
	data, err := s.load()
	if err != nil {
		return nil, err
	}
	w := indexOf(data.fieldNames(), writeField)
	if w < 0 {
		return nil, eris.Errorf("shapefile: field %q not found in %s", writeField, s.path)
	}
	if data.fields[w].Fieldtype != 'C' {
		return nil, eris.Errorf("shapefile: field %q is not a character field", writeField)
	}
	vals, err := s.numeric(data, readFields)
	if err != nil {
		return nil, err
	}

	width := int(data.fields[w].Size)
	var truncated int
	set := func(i int, text string) error {
		if len(text) > width {
			text = truncateUTF8(text, width)
			truncated++
		}
		data.attrs[i][w] = text
		return nil
	}
	done := func() error {
		if truncated > 0 {
			zap.L().Warn("shapefile: truncated summaries to field width",
				zap.String("field", writeField),
				zap.Int("width", width),
				zap.Int("rows", truncated),
			)
		}
		return s.save(data)
	}
	return newRowCursor(vals, set, done), nil
}

func (s *Shapefile) numeric(data *shapeData, fields []string) ([][]float64, error) {
	idx, err := indexesOf(data.fieldNames(), fields)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: %s", s.path)
	}
	out := make([][]float64, 0, len(data.attrs))
	for r, attrs := range data.attrs {
		vals, err := numericRow(attrs, idx, fields, r)
		if err != nil {
			return nil, eris.Wrapf(err, "shapefile: %s", s.path)
		}
		out = append(out, vals)
	}
	return out, nil
}

func (s *Shapefile) load() (*shapeData, error) {
	reader, err := shp.Open(s.path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", s.path)
	}
	defer func() { _ = reader.Close() }()

	data := &shapeData{
		geomType: reader.GeometryType,
		fields:   reader.Fields(),
	}
	for reader.Next() {
		_, shape := reader.Shape()
		attrs := make([]string, len(data.fields))
		for i := range data.fields {
			attrs[i] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}
		data.shapes = append(data.shapes, shape)
		data.attrs = append(data.attrs, attrs)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "shapefile: read %s", s.path)
	}
	return data, nil
}

// save writes data to sibling temp files and renames them over the
// .shp/.shx/.dbf set. Other sidecar files (.prj, .cpg) are left alone.
func (s *Shapefile) save(data *shapeData) error {
	base := strings.TrimSuffix(s.path, filepath.Ext(s.path))
	tmpBase := filepath.Join(filepath.Dir(base), "."+filepath.Base(base)+"."+uuid.New().String()[:8])

	writer, err := shp.Create(tmpBase+".shp", data.geomType)
	if err != nil {
		return eris.Wrapf(err, "shapefile: create %s", tmpBase)
	}
	if err := writer.SetFields(data.fields); err != nil {
		writer.Close()
		removeShapeSet(tmpBase)
		return eris.Wrap(err, "shapefile: set fields")
	}
	for i, shape := range data.shapes {
		if shape == nil {
			shape = &shp.Null{}
		}
		row := int(writer.Write(shape))
		for j, val := range data.attrs[i] {
			if err := writer.WriteAttribute(row, j, val); err != nil {
				writer.Close()
				removeShapeSet(tmpBase)
				return eris.Wrapf(err, "shapefile: write row %d field %s", i, fieldName(data.fields[j]))
			}
		}
	}
	writer.Close()

	for _, f := range writerFiles(tmpBase) {
		if err := os.Rename(f.written, base+f.ext); err != nil {
			removeShapeSet(tmpBase)
			return eris.Wrapf(err, "shapefile: replace %s", base+f.ext)
		}
	}
	return nil
}

type writtenFile struct {
	ext     string
	written string
}

// writerFiles lists the files shp.Create produces for base. go-shp names the
// attribute table base+"dbf", without the dot.
func writerFiles(base string) []writtenFile {
	return []writtenFile{
		{".shp", base + ".shp"},
		{".shx", base + ".shx"},
		{".dbf", base + "dbf"},
	}
}

func removeShapeSet(base string) {
	for _, f := range writerFiles(base) {
		_ = os.Remove(f.written)
	}
}

func fieldName(f shp.Field) string {
	return strings.TrimRight(f.String(), "\x00")
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
