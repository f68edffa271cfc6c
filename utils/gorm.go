// utils/gorm.go
package utils

import (
	"io"
	"log"
	"time"

	"gorm.io/gorm/logger"
)

// GormLogger logs warnings and slow queries to out. A missing row is an
// expected lookup result, not an error, and is not logged.
func GormLogger(out io.Writer) logger.Interface {
	return logger.New(log.New(out, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
