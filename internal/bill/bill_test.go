package bill

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiffindesk/api/internal/model"
)

func sampleOrder() model.Order {
	o := model.Order{
		ID:           "o1",
		CustomerID:   "asha_rani_98480",
		CustomerName: "Asha Rani",
		Date:         "2024-05-01",
		MealType:     "lunch",
		Items: []model.LineItem{
			{Name: "Paneer Curry", LocalizedName: "పనీర్ కూర", UnitPrice: decimal.NewFromInt(80), Quantity: 2},
		},
		DeliveryCharge: decimal.NewFromInt(30),
	}
	o.Recompute()
	return o
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "010524_lunch_Asha_Rani.png", FileName(sampleOrder(), "png"))

	o := sampleOrder()
	o.CustomerName = "A/B"
	o.MealType = "Festival Special"
	assert.Equal(t, "010524_festival_special_AB.pdf", FileName(o, "pdf"))
}

func TestBillLines(t *testing.T) {
	rows := billLines(sampleOrder())
	require.Len(t, rows, 5)
	assert.Equal(t, "160.00", rows[1].amount)
	assert.Equal(t, "Rs. 190.00", rows[4].amount)
}

func TestPNGRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PNGRenderer{Title: "Home Food", Scale: 2}.Render(&buf, sampleOrder()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, pngWidth*2, img.Bounds().Dx())
}

func TestPDFRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDFRenderer{Title: "Home Food"}.Render(&buf, sampleOrder()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bills")
	loc, err := DirSink{Dir: dir}.Put(context.Background(), "x.png", []byte("data"), "image/png")
	require.NoError(t, err)

	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

type memorySink struct {
	names []string
	err   error
}

func (m *memorySink) Put(_ context.Context, name string, _ []byte, _ string) (string, error) {
	m.names = append(m.names, name)
	return "mem://" + name, m.err
}

type brokenRenderer struct{ PNGRenderer }

func (brokenRenderer) Render(io.Writer, model.Order) error { return errors.New("no font") }

func TestExporterIsBestEffort(t *testing.T) {
	ok := &memorySink{}
	failing := &memorySink{err: errors.New("bucket gone")}
	e := NewExporter([]Renderer{brokenRenderer{}, PDFRenderer{}, PNGRenderer{}}, []Sink{failing, ok}, nil)

	e.Export(context.Background(), sampleOrder())

	assert.Equal(t, []string{"010524_lunch_Asha_Rani.pdf", "010524_lunch_Asha_Rani.png"}, ok.names)
	assert.Len(t, failing.names, 2)
}

func TestNewS3SinkValidation(t *testing.T) {
	_, err := NewS3Sink(context.Background(), S3Config{Bucket: "bills"})
	assert.Error(t, err)
	_, err = NewS3Sink(context.Background(), S3Config{Endpoint: "minio:9000"})
	assert.Error(t, err)
}
