package excel

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"shop-dedup/internal/models"
)

const (
	ResultsSheet = "Results"
	AuditSheet   = "Suspicious Secured"
)

// Columns names the header cells that carry each field.
type Columns struct {
	ID           string
	Name         string
	Latitude     string
	Longitude    string
	ProspectCode string
}

func DefaultColumns() Columns {
	return Columns{
		ID:           "Customer ID",
		Name:         "New Shop Name",
		Latitude:     "Latitude",
		Longitude:    "Longitude",
		ProspectCode: "Prospect Code",
	}
}

var ErrMissingColumn = errors.New("missing column")

// ReadStats describes what ReadShops kept and dropped.
type ReadStats struct {
	Rows    int
	Skipped int
}

func parseCoord(val string) (float64, error) {
	// Accept a decimal comma
	val = strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
	if val == "" {
		return 0, fmt.Errorf("empty")
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite: %q", val)
	}
	return f, nil
}

func OpenFile(filename string) (*excelize.File, error) {
	return excelize.OpenFile(filename)
}

// ReadShops reads the shops of sheetName, or of the first sheet when
// sheetName is empty. Columns are located by header. Cells are read as
// stored, not as displayed, so a number format never rounds a coordinate.
// Rows whose coordinates are blank or not numeric are skipped.
func ReadShops(f *excelize.File, sheetName string, cols Columns) ([]models.Shop, ReadStats, error) {
	var stats ReadStats
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, stats, err
	}
	if len(rows) == 0 {
		return nil, stats, fmt.Errorf("sheet %q is empty", sheetName)
	}

	pos, err := locate(rows[0], cols)
	if err != nil {
		return nil, stats, fmt.Errorf("sheet %q: %w", sheetName, err)
	}

	var shops []models.Shop
	for i, row := range rows[1:] {
		stats.Rows++

		lat, err1 := parseCoord(cell(row, pos.lat))
		lon, err2 := parseCoord(cell(row, pos.lon))
		if err1 != nil || err2 != nil {
			stats.Skipped++
			continue
		}

		shops = append(shops, models.Shop{
			ID:           strings.TrimSpace(cell(row, pos.id)),
			Name:         cell(row, pos.name),
			ProspectCode: cell(row, pos.code),
			Loc:          models.Coordinate{Lat: lat, Lon: lon},
			Row:          i + 2,
		})
	}
	return shops, stats, nil
}

type positions struct {
	id, name, lat, lon, code int
}

func locate(header []string, cols Columns) (positions, error) {
	find := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
				return i
			}
		}
		return -1
	}

	p := positions{
		id:   find(cols.ID),
		name: find(cols.Name),
		lat:  find(cols.Latitude),
		lon:  find(cols.Longitude),
		code: find(cols.ProspectCode),
	}
	var missing []string
	for _, c := range []struct {
		name string
		pos  int
	}{
		{cols.ID, p.id}, {cols.Latitude, p.lat}, {cols.Longitude, p.lon}, {cols.ProspectCode, p.code},
	} {
		if c.pos < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return p, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return p, nil
}

// GetRows trims trailing empty cells, so short rows are common.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func WriteMatchResults(path string, data []models.MatchResult) error {
	headers := []interface{}{
		"Customer ID", "New Shop Name", "Latitude", "Longitude",
		"closest_secured_id", "closest_secured_name", "distance_to_secured_km",
		"recommendation",
		"nearest_unsec_id", "nearest_unsec_name", "distance_to_nearest_unsec_km",
		"is_unsec_duplicate",
	}
	return writeSheet(path, ResultsSheet, headers, len(data), func(i int) []interface{} {
		r := data[i]
		row := []interface{}{r.Shop.ID, r.Shop.Name, r.Shop.Loc.Lat, r.Shop.Loc.Lon}
		row = append(row, matchCells(r.ClosestSecured)...)
		row = append(row, string(r.Recommendation))
		row = append(row, matchCells(r.NearestUnsecured)...)
		return append(row, r.IsUnsecuredDuplicate)
	})
}

func matchCells(m *models.Match) []interface{} {
	if m == nil {
		return []interface{}{nil, nil, nil}
	}
	return []interface{}{m.Shop.ID, m.Shop.Name, m.DistanceKm}
}

func WriteDuplicatePairs(path string, data []models.DuplicatePair) error {
	headers := []interface{}{
		"Customer ID A", "Shop Name A", "Prospect Code A", "Latitude A", "Longitude A",
		"Customer ID B", "Shop Name B", "Prospect Code B", "Latitude B", "Longitude B",
		"Distance (km)", "Names Similar", "Suspicious Duplicate",
	}
	return writeSheet(path, AuditSheet, headers, len(data), func(i int) []interface{} {
		p := data[i]
		return []interface{}{
			p.A.ID, p.A.Name, p.A.ProspectCode, p.A.Loc.Lat, p.A.Loc.Lon,
			p.B.ID, p.B.Name, p.B.ProspectCode, p.B.Loc.Lat, p.B.Loc.Lon,
			p.DistanceKm, p.NamesSimilar, p.Suspicious,
		}
	})
}

func writeSheet(path, sheetName string, headers []interface{}, n int, rowAt func(int) []interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Use Stream Writer for performance
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cellName, rowAt(i)); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
