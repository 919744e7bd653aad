package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	db, err := Open(context.Background(), Config{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, nil) })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(context.Background(), db.Driver))
	require.NoError(t, HealthCheck(context.Background(), db, time.Second, nil))
}

func TestSaveAndList(t *testing.T) {
	db := openTestDB(t)
	repo := NewRecordRepository(db, nil).(*recordRepository)

	clock := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	first := []entity.CombinedRecord{
		{DocumentID: "b.pdf", FilerCode: "b.pdf", FilingDate: "無", Category: "無", FinedAmount: "無", UploadDate: "未知日期"},
		{DocumentID: "c000980113011140304.pdf", FilerCode: "000980", FilingDate: "114/03/04", Category: "重大裁罰", FinedAmount: "新臺幣24萬元", UploadDate: "114年3月4日"},
	}
	require.NoError(t, repo.Save(context.Background(), "s1", first))

	clock = clock.Add(time.Minute)
	second := []entity.CombinedRecord{{DocumentID: "a.pdf", FilerCode: "a.pdf", FinedAmount: "無"}}
	require.NoError(t, repo.Save(context.Background(), "s2", second))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, first[0], got[0].CombinedRecord)
	assert.Equal(t, first[1], got[1].CombinedRecord)
	assert.Equal(t, second[0], got[2].CombinedRecord)
	assert.Equal(t, "s1", got[0].SessionID)
	assert.Equal(t, "s2", got[2].SessionID)
	assert.True(t, got[2].StoredAt.Equal(clock))
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestSaveRejectsEmpty(t *testing.T) {
	db := openTestDB(t)
	repo := NewRecordRepository(db, nil)
	assert.ErrorIs(t, repo.Save(context.Background(), "s1", nil), common.ErrStoreEmpty)

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"}, nil)
	assert.Error(t, err)
}
