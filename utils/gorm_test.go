package utils

import (
	"bytes"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type row struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{Logger: GormLogger(&buf)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))
	buf.Reset()

	var r row
	err = db.Where("name = ?", "missing").First(&r).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	err = db.Table("no_such_table").First(&r).Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "no_such_table")
}
