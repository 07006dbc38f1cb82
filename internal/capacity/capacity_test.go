package capacity

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/projection"
)

func utm30(t *testing.T) *projection.Converter {
	t.Helper()
	conv, err := projection.UTM(30, true)
	require.NoError(t, err)
	return conv
}

func fullHeader() []string {
	return []string{
		ColName, ColUTMX, ColUTMY, ColVoltage,
		ColAvailable, ColOccupied, ColProvince, ColMunicipality,
	}
}

func TestNormalizeSingleTable(t *testing.T) {
	t.Parallel()

	table := &RawTable{
		Label:  "capacidad_2025.csv",
		Header: fullHeader(),
		Rows: [][]string{
			{"Morata", "440290", "4474257", "400", "50", "50", "Madrid", "Morata de Tajuña"},
			{"Loeches", "452100", "4472900", "220", "0", "120", "Madrid", "Loeches"},
		},
	}

	result := Normalize(utm30(t), []*RawTable{table})
	require.Empty(t, result.TableErrors)
	require.Len(t, result.Points, 2)
	assert.Equal(t, 2, result.RowsTotal)

	p := result.Points[0]
	assert.Equal(t, "Morata", p.Name)
	assert.Equal(t, "Madrid", p.Province)
	assert.Equal(t, "Morata de Tajuña", p.Municipality)
	assert.Equal(t, "capacidad_2025.csv", p.SourceLabel)
	require.NotNil(t, p.VoltageKV)
	assert.InDelta(t, 400, *p.VoltageKV, 1e-9)
	assert.InDelta(t, 40.4168, p.Location.Lat, 1e-3)
	assert.InDelta(t, -3.7038, p.Location.Lon, 1e-3)
	assert.InDelta(t, 50.0, p.UtilizationPct, 1e-9)
	assert.False(t, p.NoCapacity)

	// Zero available capacity flags the point even though occupied is high.
	assert.True(t, result.Points[1].NoCapacity)
	assert.InDelta(t, 100.0, result.Points[1].UtilizationPct, 1e-9)
}

func TestNormalizeMergesTablesWithProvenance(t *testing.T) {
	t.Parallel()

	north := &RawTable{
		Label:  "norte.csv",
		Header: []string{ColUTMX, ColUTMY, ColName},
		Rows: [][]string{
			{"440290", "4474257", "A"},
			{"452100", "4472900", "B"},
		},
	}
	south := &RawTable{
		Label:  "sur.csv",
		Header: []string{ColUTMX, ColUTMY, ColName},
		Rows: [][]string{
			{"236000", "4142000", "C"},
		},
	}

	result := Normalize(utm30(t), []*RawTable{north, south})
	require.Empty(t, result.TableErrors)
	require.Len(t, result.Points, 3)

	labels := make([]string, 0, 3)
	for _, p := range result.Points {
		labels = append(labels, p.SourceLabel)
	}
	assert.Equal(t, []string{"norte.csv", "norte.csv", "sur.csv"}, labels)
}

func TestNormalizeSkipsTableMissingMandatoryColumn(t *testing.T) {
	t.Parallel()

	broken := &RawTable{
		Label:  "sin_coordenadas.csv",
		Header: []string{ColName, ColVoltage},
		Rows:   [][]string{{"Morata", "400"}},
	}
	good := &RawTable{
		Label:  "bien.csv",
		Header: []string{ColUTMX, ColUTMY},
		Rows:   [][]string{{"440290", "4474257"}},
	}

	result := Normalize(utm30(t), []*RawTable{broken, good})

	require.Len(t, result.TableErrors, 1)
	assert.Equal(t, "sin_coordenadas.csv", result.TableErrors[0].Label)
	assert.True(t, errors.IsCategory(result.TableErrors[0].Err, errors.CategoryMissingColumn))
	assert.Contains(t, result.TableErrors[0].Error(), "Coordenada UTM X")

	// The broken table does not stop the good one.
	require.Len(t, result.Points, 1)
	assert.Equal(t, "bien.csv", result.Points[0].SourceLabel)
}

func TestNormalizeResolvesHeadersTolerantly(t *testing.T) {
	t.Parallel()

	// Accents lost and casing changed, as portal re-exports do.
	table := &RawTable{
		Label:  "reexport.csv",
		Header: []string{"COORDENADA UTM X", "coordenada utm y", "Nombre Subestacion", "Nivel de tension (kV)"},
		Rows:   [][]string{{"440290", "4474257", "Morata", "400"}},
	}

	result := Normalize(utm30(t), []*RawTable{table})
	require.Empty(t, result.TableErrors)
	require.Len(t, result.Points, 1)

	p := result.Points[0]
	assert.Equal(t, "Morata", p.Name)
	require.NotNil(t, p.VoltageKV)
	assert.InDelta(t, 400, *p.VoltageKV, 1e-9)
}

func TestHeaderKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, headerKey("Nombre Subestación"), headerKey("  nombre   SUBESTACION "))
	assert.Equal(t, headerKey("Nivel de Tensión (kV)"), headerKey("Nivel de Tension (kV)"))
	assert.NotEqual(t, headerKey("Coordenada UTM X"), headerKey("Coordenada UTM Y"))
}

func TestNormalizeEmptyTableIsReported(t *testing.T) {
	t.Parallel()

	empty := &RawTable{
		Label:  "vacio.csv",
		Header: []string{ColUTMX, ColUTMY},
	}

	result := Normalize(utm30(t), []*RawTable{empty})
	require.Len(t, result.TableErrors, 1)
	assert.Empty(t, result.Points)
}

func TestNormalizeDropsBadCoordinateRows(t *testing.T) {
	t.Parallel()

	table := &RawTable{
		Label:  "mixto.csv",
		Header: []string{ColUTMX, ColUTMY, ColName},
		Rows: [][]string{
			{"440290", "4474257", "good"},
			{"no es numero", "4474257", "missing easting"},
			{"440290", "", "missing northing"},
			{"500000", "99999999", "beyond the pole"},
		},
	}

	result := Normalize(utm30(t), []*RawTable{table})
	require.Empty(t, result.TableErrors)
	require.Len(t, result.Points, 1)
	assert.Equal(t, "good", result.Points[0].Name)
	assert.Equal(t, 2, result.RowsMissing)
	assert.Equal(t, 1, result.RowsInvalid)
	assert.Equal(t, 4, result.RowsTotal)
}

func TestNormalizeOptionalColumnsDegrade(t *testing.T) {
	t.Parallel()

	// Only the mandatory columns are present: every optional field is
	// absent, not zero.
	table := &RawTable{
		Label:  "minimo.csv",
		Header: []string{ColUTMX, ColUTMY},
		Rows:   [][]string{{"440290", "4474257"}},
	}

	result := Normalize(utm30(t), []*RawTable{table})
	require.Len(t, result.Points, 1)

	p := result.Points[0]
	assert.Empty(t, p.Name)
	assert.Nil(t, p.VoltageKV)
	assert.Nil(t, p.AvailableMW)
	assert.Nil(t, p.OccupiedMW)
	assert.InDelta(t, 0.0, p.UtilizationPct, 1e-9)
	assert.True(t, p.NoCapacity, "absent capacity counts as none available")
}

func TestNormalizeUnparseableCapacityStaysMissing(t *testing.T) {
	t.Parallel()

	table := &RawTable{
		Label:  "sucio.csv",
		Header: []string{ColUTMX, ColUTMY, ColAvailable, ColOccupied},
		Rows:   [][]string{{"440290", "4474257", "N/A", "120"}},
	}

	result := Normalize(utm30(t), []*RawTable{table})
	require.Len(t, result.Points, 1)

	p := result.Points[0]
	assert.Nil(t, p.AvailableMW, "unparseable cell must stay missing, not zero")
	require.NotNil(t, p.OccupiedMW)
	assert.InDelta(t, 100.0, p.UtilizationPct, 1e-9)
	assert.True(t, p.NoCapacity)
}

func TestUtilization(t *testing.T) {
	t.Parallel()

	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name      string
		available *float64
		occupied  *float64
		wantPct   float64
		wantNoCap bool
	}{
		{"balanced", f(50), f(50), 50.0, false},
		{"all free", f(100), f(0), 0.0, false},
		{"all taken", f(0), f(100), 100.0, true},
		{"both zero", f(0), f(0), 0.0, true},
		{"both missing", nil, nil, 0.0, true},
		{"occupied missing", f(80), nil, 0.0, false},
		{"available missing", nil, f(30), 100.0, true},
		{"negative available", f(-10), f(30), 150.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pct, noCap := Utilization(tt.available, tt.occupied)
			assert.InDelta(t, tt.wantPct, pct, 1e-9)
			assert.Equal(t, tt.wantNoCap, noCap)
		})
	}
}

func TestParseNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  float64
	}{
		{"50", 50},
		{"50.5", 50.5},
		{" 50 ", 50},
		{"-12.75", -12.75},
		{"1e3", 1000},
		{"440290,42", 440290.42},
		{"1.234,56", 1234.56},
		{"4.474,257", 4474.257},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, ParseNumber(tt.input), 1e-9)
		})
	}

	for _, input := range []string{"", " ", "-", "N/A", "n/a", "abc", "12,34,56", "4.474.257"} {
		t.Run("missing "+input, func(t *testing.T) {
			t.Parallel()
			assert.True(t, math.IsNaN(ParseNumber(input)), "ParseNumber(%q) must be NaN", input)
		})
	}
}

func TestReadTable(t *testing.T) {
	t.Parallel()

	csvText := "Coordenada UTM X;Coordenada UTM Y;Nombre Subestación\n" +
		"440290;4474257;Morata\n" +
		"452100;4472900;\"Loeches; Este\"\n"

	table, err := ReadTable("export.csv", strings.NewReader(csvText))
	require.NoError(t, err)

	assert.Equal(t, "export.csv", table.Label)
	assert.Equal(t, "utf-8", table.Encoding)
	assert.Equal(t, []string{ColUTMX, ColUTMY, ColName}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Loeches; Este", table.Rows[1][2])
}

func TestReadTableCommaDelimited(t *testing.T) {
	t.Parallel()

	csvText := "Coordenada UTM X,Coordenada UTM Y\n440290,4474257\n"

	table, err := ReadTable("comma.csv", strings.NewReader(csvText))
	require.NoError(t, err)
	assert.Equal(t, []string{ColUTMX, ColUTMY}, table.Header)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "440290", table.Rows[0][0])
}

func TestReadTableLatin1Fallback(t *testing.T) {
	t.Parallel()

	// "Subestación" with the ó encoded as 0xF3 is not valid UTF-8.
	raw := []byte("Nombre Subestaci\xf3n;Coordenada UTM X;Coordenada UTM Y\nMorata;440290;4474257\n")

	table, err := ReadTable("latin1.csv", strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.NotEqual(t, "utf-8", table.Encoding)
	assert.Equal(t, ColName, table.Header[0])
}

func TestReadTableStripsBOM(t *testing.T) {
	t.Parallel()

	csvText := "﻿Coordenada UTM X;Coordenada UTM Y\n440290;4474257\n"

	table, err := ReadTable("bom.csv", strings.NewReader(csvText))
	require.NoError(t, err)
	assert.Equal(t, ColUTMX, table.Header[0])
}

func TestReadTableNamesUnnamedColumns(t *testing.T) {
	t.Parallel()

	// A split geometry export leaves the continuation column unnamed.
	csvText := "geometry;;transformer_id\nLINESTRING (0 0, 1 1);tail;T1\n"

	table, err := ReadTable("unnamed.csv", strings.NewReader(csvText))
	require.NoError(t, err)
	assert.Equal(t, []string{"geometry", "column_2", "transformer_id"}, table.Header)
}

func TestReadTableEmptyInput(t *testing.T) {
	t.Parallel()

	_, err := ReadTable("empty.csv", strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTableDecode))
}
