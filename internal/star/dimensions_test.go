package star

import (
	"testing"
	"time"

	"ventasdwh/internal/model"
)

func TestBuildDimTiempo(t *testing.T) {
	headers := []model.SaleHeader{
		// Saturday with a time-of-day component.
		{FechaOperacion: nt(time.Date(2024, time.March, 2, 14, 30, 0, 0, time.UTC))},
		// Same calendar date at midnight: must collapse into one row.
		{FechaOperacion: nt(date(2024, time.March, 2))},
		// Earlier date arriving later: ids must still follow the calendar.
		{FechaOperacion: nt(date(2024, time.January, 15))},
		// Null date: dropped.
		{},
	}

	dim := BuildDimTiempo(headers)

	if len(dim.Rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(dim.Rows))
	}

	first := dim.Rows[0]
	if first.TiempoID != 1 || !first.FechaCompleta.Equal(date(2024, time.January, 15)) {
		t.Fatalf("first row=%+v, want id=1 fecha=2024-01-15", first)
	}
	if first.Dia != 15 || first.Mes != 1 || first.Anio != 2024 || first.Trimestre != 1 {
		t.Fatalf("first row parts=%+v", first)
	}
	if first.NombreDia != "Lunes" || first.NombreMes != "Enero" {
		t.Fatalf("first row names=(%q,%q), want (Lunes,Enero)", first.NombreDia, first.NombreMes)
	}
	if first.EsFinDeSemana {
		t.Fatalf("2024-01-15 is a Monday, not a weekend")
	}

	second := dim.Rows[1]
	if second.TiempoID != 2 || second.NombreDia != "Sábado" || second.NombreMes != "Marzo" {
		t.Fatalf("second row=%+v, want id=2 Sábado Marzo", second)
	}
	if !second.EsFinDeSemana {
		t.Fatalf("2024-03-02 is a Saturday, want weekend")
	}
	if second.Trimestre != 1 {
		t.Fatalf("march trimestre=%d, want 1", second.Trimestre)
	}
}

func TestBuildDimTiempo_TrimestreBuckets(t *testing.T) {
	tests := []struct {
		mes  time.Month
		want int
	}{
		{time.January, 1}, {time.March, 1},
		{time.April, 2}, {time.June, 2},
		{time.July, 3}, {time.September, 3},
		{time.October, 4}, {time.December, 4},
	}

	for _, tc := range tests {
		dim := BuildDimTiempo([]model.SaleHeader{
			{FechaOperacion: nt(date(2024, tc.mes, 10))},
		})
		if got := dim.Rows[0].Trimestre; got != tc.want {
			t.Fatalf("month %d: trimestre=%d, want %d", tc.mes, got, tc.want)
		}
	}
}

func TestBuildDimTiempo_LookupNormalizesTime(t *testing.T) {
	dim := BuildDimTiempo([]model.SaleHeader{
		{FechaOperacion: nt(date(2024, time.May, 5))},
	})

	id, ok := dim.ByFecha(time.Date(2024, time.May, 5, 23, 59, 59, 0, time.UTC))
	if !ok || id != 1 {
		t.Fatalf("ByFecha(with time)=(%d,%v), want (1,true)", id, ok)
	}
	if _, ok := dim.ByFecha(date(2024, time.May, 6)); ok {
		t.Fatalf("ByFecha for absent date reported a hit")
	}
}

func TestBuildDimCliente(t *testing.T) {
	customers := []model.Customer{
		{CodigoCliente: ns("C001"), Nombre: ns("Ana")},
		{CodigoCliente: ns(" C001 "), Nombre: ns("Duplicada")},
		{CodigoCliente: ns("C002"), Nombre: ns("Luis")},
		{CodigoCliente: ns("")},
	}

	dim, st, err := BuildDimCliente(customers, false)
	if err != nil {
		t.Fatalf("BuildDimCliente() err=%v", err)
	}

	if len(dim.Rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(dim.Rows))
	}
	if dim.Rows[0].ClienteID != 1 || dim.Rows[0].CodigoCliente != "C001" {
		t.Fatalf("row[0]=%+v, want id=1 code=C001", dim.Rows[0])
	}
	if dim.Rows[0].Nombre.String != "Ana" {
		t.Fatalf("duplicate displaced the first occurrence: %+v", dim.Rows[0])
	}
	if dim.Rows[1].ClienteID != 2 || dim.Rows[1].CodigoCliente != "C002" {
		t.Fatalf("row[1]=%+v, want id=2 code=C002", dim.Rows[1])
	}
	if st.Duplicates != 1 || st.Malformed != 1 {
		t.Fatalf("stats=%+v, want duplicates=1 malformed=1", st)
	}

	if id, ok := dim.ByCodigo("C002"); !ok || id != 2 {
		t.Fatalf("ByCodigo(C002)=(%d,%v), want (2,true)", id, ok)
	}
}

func TestBuildDimBodega(t *testing.T) {
	warehouses := []model.Warehouse{
		{CodigoBodega: ns("B01"), Descripcion: ns("Central")},
		{CodigoBodega: ns("B02"), Descripcion: ns("Norte")},
		{CodigoBodega: ns("B01"), Descripcion: ns("Otra")},
	}

	dim, st, err := BuildDimBodega(warehouses, false)
	if err != nil {
		t.Fatalf("BuildDimBodega() err=%v", err)
	}
	if len(dim.Rows) != 2 || st.Duplicates != 1 {
		t.Fatalf("rows=%d duplicates=%d, want 2 and 1", len(dim.Rows), st.Duplicates)
	}
	if dim.Rows[0].Descripcion.String != "Central" {
		t.Fatalf("first occurrence lost: %+v", dim.Rows[0])
	}
}

func TestBuildDimProducto(t *testing.T) {
	products := []model.Product{
		{CodigoProducto: ns("P100"), Descripcion: ns("Camisa"), ValorCurva: nd("1.5")},
		{CodigoProducto: ns("P200")},
		{CodigoProducto: ns("P100"), Descripcion: ns("Camisa v2")},
		{CodigoProducto: ns("  ")},
	}

	dim, st, err := BuildDimProducto(products, false)
	if err != nil {
		t.Fatalf("BuildDimProducto() err=%v", err)
	}

	if len(dim.Rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(dim.Rows))
	}
	if dim.Rows[0].ProductoID != 1 || dim.Rows[0].Descripcion.String != "Camisa" {
		t.Fatalf("row[0]=%+v, want first P100 occurrence", dim.Rows[0])
	}
	if !dim.Rows[0].ValorCurva.Valid || !dim.Rows[0].ValorCurva.Decimal.Equal(nd("1.5").Decimal) {
		t.Fatalf("valor_curva=%v, want 1.5", dim.Rows[0].ValorCurva)
	}
	if st.Duplicates != 1 || st.Malformed != 1 {
		t.Fatalf("stats=%+v, want duplicates=1 malformed=1", st)
	}
}

func TestBuildDimProducto_StrictRejectsBlankCode(t *testing.T) {
	products := []model.Product{
		{CodigoProducto: ns("P100")},
		{CodigoProducto: ns("")},
	}

	if _, _, err := BuildDimProducto(products, true); err == nil {
		t.Fatalf("strict build accepted a blank product code")
	}
}

func TestBuildDimensions_Idempotent(t *testing.T) {
	customers := []model.Customer{
		{CodigoCliente: ns("C001")},
		{CodigoCliente: ns("C002")},
		{CodigoCliente: ns("C001")},
	}

	a, _, err := BuildDimCliente(customers, false)
	if err != nil {
		t.Fatalf("first build err=%v", err)
	}
	b, _, err := BuildDimCliente(customers, false)
	if err != nil {
		t.Fatalf("second build err=%v", err)
	}

	if len(a.Rows) != len(b.Rows) {
		t.Fatalf("row counts differ: %d vs %d", len(a.Rows), len(b.Rows))
	}
	for i := range a.Rows {
		if a.Rows[i] != b.Rows[i] {
			t.Fatalf("row %d differs: %+v vs %+v", i, a.Rows[i], b.Rows[i])
		}
	}
}
