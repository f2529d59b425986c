package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/gascustody/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gccRow struct {
	ID        int64 `gorm:"primaryKey"`
	Status    Status
	UpdatedAt time.Time
}

func (gccRow) TableName() string { return "gccs" }

func TestAdvanceComparesAndSets(t *testing.T) {
	db := dbtest.Open(t, &gccRow{})
	require.NoError(t, db.Create(&gccRow{ID: 1, Status: GccCreated}).Error)
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC)

	to, err := Advance(ctx, db, 1, GccCreated, now)
	require.NoError(t, err)
	assert.Equal(t, GccApprovedByAdmin, to)

	// a second caller still holding the old status loses
	_, err = Advance(ctx, db, 1, GccCreated, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Advance(ctx, db, 99, GccApprovedByAdmin, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Advance(ctx, db, 1, PaymentConfirmed, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var row gccRow
	require.NoError(t, db.First(&row, 1).Error)
	assert.Equal(t, GccApprovedByAdmin, row.Status)
	assert.True(t, now.Equal(row.UpdatedAt), "updated_at %s", row.UpdatedAt)
}
