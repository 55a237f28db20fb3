// Package stats computes per-cell statistics from detected contours through
// a fixed set of plugins.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Field names a single value in a cell record.
type Field string

// Record fields, named as they are exported.
const (
	FieldCategoryGFPDot Field = "category_GFP_dot"
	FieldBiorientation  Field = "biorientation"
	FieldRedDotDistance Field = "red_dot_distance"
	FieldGFPDotCount    Field = "gfp_dot_count"

	FieldDistance                Field = "distance"
	FieldLineGFPIntensity        Field = "line_gfp_intensity"
	FieldMCherryLineGFPIntensity Field = "mcherry_line_gfp_intensity"

	FieldNucleusIntensitySum  Field = "nucleus_intensity_sum"
	FieldCellularIntensitySum Field = "cellular_intensity_sum"
	FieldCytoplasmicIntensity Field = "cytoplasmic_intensity"
	FieldBlueContourSize      Field = "blue_contour_size"
	FieldNucleusTotalPoints   Field = "nucleus_total_points"
	FieldCellTotalPoints      Field = "cell_total_points"
	FieldNucleiCount          Field = "nuclei_count"

	FieldNucleusIntensitySumDAPI  Field = "nucleus_intensity_sum_DAPI"
	FieldCellularIntensitySumDAPI Field = "cellular_intensity_sum_DAPI"
	FieldCytoplasmicIntensityDAPI Field = "cytoplasmic_intensity_DAPI"
)

// Per-dot fields for red dot n, counting from 1.
func FieldRedContourSize(n int) Field { return Field(fmt.Sprintf("red_contour_%d_size", n)) }
func FieldRedIntensity(n int) Field { return Field(fmt.Sprintf("red_intensity_%d", n)) }
func FieldGreenIntensity(n int) Field { return Field(fmt.Sprintf("green_intensity_%d", n)) }
func FieldGreenRedIntensity(n int) Field { return Field(fmt.Sprintf("green_red_intensity_%d", n)) }
func FieldRedBlueIntensity(n int) Field { return Field(fmt.Sprintf("red_blue_intensity_%d", n)) }

// Patch is a set of field values produced by one plugin.
type Patch map[Field]float64

var (
	// ErrFieldNotOwned is returned when a plugin writes a field it did not
	// declare, or one declared by another plugin.
	ErrFieldNotOwned = errors.New("field not owned by plugin")
)

// Record holds the statistics computed for one cell. Unset fields read as zero;
// a zero CategoryGFPDot means no category was assigned.
type Record struct {
	CellID string

	values map[Field]float64
	owners map[Field]string
}

// NewRecord returns an empty record for cellID.
func NewRecord(cellID string) *Record {
	return &Record{
		CellID: cellID,
		values: map[Field]float64{},
		owners: map[Field]string{},
	}
}

// Get returns the value of f, or zero when unset.
func (r *Record) Get(f Field) float64 { return r.values[f] }

// Has reports whether f has been written.
func (r *Record) Has(f Field) bool {
	_, ok := r.values[f]
	return ok
}

// CategoryGFPDot returns the GFP dot category (1-4), or 0 when unset.
func (r *Record) CategoryGFPDot() int { return int(r.values[FieldCategoryGFPDot]) }

// Biorientation returns the biorientation status (0-2).
func (r *Record) Biorientation() int { return int(r.values[FieldBiorientation]) }

// Fields returns the written fields in sorted order.
func (r *Record) Fields() []Field {
	out := make([]Field, 0, len(r.values))
	for f := range r.values {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Apply writes p on behalf of the plugin owner, which declared the fields in
// declared. Nothing is written when any field is rejected.
func (r *Record) Apply(owner string, declared []Field, p Patch) error {
	allowed := make(map[Field]bool, len(declared))
	for _, f := range declared {
		allowed[f] = true
	}
	for f := range p {
		if !allowed[f] {
			return fmt.Errorf("%s writes %s: %w", owner, f, ErrFieldNotOwned)
		}
		if prev, ok := r.owners[f]; ok && prev != owner {
			return fmt.Errorf("%s writes %s owned by %s: %w", owner, f, prev, ErrFieldNotOwned)
		}
	}
	for f, v := range p {
		r.values[f] = v
		r.owners[f] = owner
	}
	return nil
}

// MarshalJSON renders the record as a flat object keyed by field name.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.values)+1)
	out["cell_id"] = r.CellID
	for f, v := range r.values {
		out[string(f)] = v
	}
	return json.Marshal(out)
}
