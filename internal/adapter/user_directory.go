package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBirthdayDirectory reads birth dates from the storefront's users table.
// The user store is owned elsewhere; this adapter only queries it and
// implements application.BirthdayDirectory.
type GormBirthdayDirectory struct {
	db *gorm.DB
}

// NewGormBirthdayDirectory creates a read-only birthday directory.
func NewGormBirthdayDirectory(db *gorm.DB) *GormBirthdayDirectory {
	return &GormBirthdayDirectory{db: db}
}

// UsersBornOn returns ids of users whose birth date falls on the given
// month and day, comparing calendar month/day only, ignoring year.
func (d *GormBirthdayDirectory) UsersBornOn(ctx context.Context, month time.Month, day int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := d.db.WithContext(ctx).
		Raw(`SELECT id FROM users
		     WHERE birth_date IS NOT NULL
		       AND EXTRACT(MONTH FROM birth_date) = ?
		       AND EXTRACT(DAY FROM birth_date) = ?`,
			int(month), day).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
