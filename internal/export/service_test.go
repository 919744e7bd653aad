package export

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/filings-tracker/internal/entity"
)

type listerFunc func(ctx context.Context) ([]entity.StoredRecord, error)

func (f listerFunc) List(ctx context.Context) ([]entity.StoredRecord, error) { return f(ctx) }

func TestWorkbookXLSX(t *testing.T) {
	recs := []entity.StoredRecord{
		{CombinedRecord: entity.CombinedRecord{FilerCode: "000980", FilingDate: "114/03/04", Category: "重大裁罰", FinedAmount: "新臺幣24萬元", UploadDate: "114年3月4日"}},
		{CombinedRecord: entity.CombinedRecord{FilerCode: "x.pdf", FilingDate: "無", Category: "無", FinedAmount: "無", UploadDate: "未知日期"}},
	}
	svc := NewService(listerFunc(func(context.Context) ([]entity.StoredRecord, error) { return recs, nil }), nil)

	b, err := svc.WorkbookXLSX(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, []string{"000980", "114/03/04", "重大裁罰", "新臺幣24萬元", "114年3月4日"}, rows[1])
	assert.Equal(t, []string{"x.pdf", "無", "無", "無", "未知日期"}, rows[2])
}

func TestWorkbookXLSXEmptyStoreHasHeaderOnly(t *testing.T) {
	svc := NewService(listerFunc(func(context.Context) ([]entity.StoredRecord, error) { return nil, nil }), nil)
	b, err := svc.WorkbookXLSX(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{Headers}, rows)
}

func TestWorkbookXLSXListError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(listerFunc(func(context.Context) ([]entity.StoredRecord, error) { return nil, boom }), nil)
	_, err := svc.WorkbookXLSX(context.Background())
	assert.ErrorIs(t, err, boom)
}
