package seed

import (
	"testing"

	lettertemplatedomain "github.com/smallbiznis/gascustody/internal/lettertemplate/domain"
	"github.com/smallbiznis/gascustody/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDefaultLetterIsIdempotent(t *testing.T) {
	db := dbtest.Open(t, &lettertemplatedomain.LetterTemplate{})

	require.NoError(t, EnsureDefaultLetter(db, 1))
	require.NoError(t, EnsureDefaultLetter(db, 1))

	var rows []lettertemplatedomain.LetterTemplate
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), int64(rows[0].ID))
	assert.Equal(t, defaultLetter, rows[0].Letter)
	assert.Equal(t, 1, rows[0].Status)
}

func TestEnsureDefaultLetterKeepsEditedTemplate(t *testing.T) {
	db := dbtest.Open(t, &lettertemplatedomain.LetterTemplate{})
	require.NoError(t, EnsureDefaultLetter(db, 3))
	require.NoError(t, db.Model(&lettertemplatedomain.LetterTemplate{}).Where("id = ?", 3).Update("letter", "custom").Error)

	require.NoError(t, EnsureDefaultLetter(db, 3))

	var tpl lettertemplatedomain.LetterTemplate
	require.NoError(t, db.First(&tpl, 3).Error)
	assert.Equal(t, "custom", tpl.Letter)
}

func TestEnsureDefaultLetterSkipsUnsetID(t *testing.T) {
	db := dbtest.Open(t, &lettertemplatedomain.LetterTemplate{})
	require.NoError(t, EnsureDefaultLetter(db, 0))

	var count int64
	require.NoError(t, db.Model(&lettertemplatedomain.LetterTemplate{}).Count(&count).Error)
	assert.Zero(t, count)
}
