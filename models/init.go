package models

import "gorm.io/gorm"

// SeedDefaultSchedule creates the default 15-day ramp plan on first boot.
// Existing days are left untouched so operator edits survive restarts.
func SeedDefaultSchedule(db *gorm.DB) error {
	defaultPlan := []WarmupSchedule{
		{Day: 1, TargetEmails: 5, Enabled: true},
		{Day: 2, TargetEmails: 10, Enabled: true},
		{Day: 3, TargetEmails: 15, Enabled: true},
		{Day: 4, TargetEmails: 20, Enabled: true},
		{Day: 5, TargetEmails: 25, Enabled: true},
		{Day: 6, TargetEmails: 30, Enabled: true},
		{Day: 7, TargetEmails: 35, Enabled: true},
		{Day: 8, TargetEmails: 40, Enabled: true},
		{Day: 9, TargetEmails: 45, Enabled: true},
		{Day: 10, TargetEmails: 50, Enabled: true},
		{Day: 11, TargetEmails: 60, Enabled: true},
		{Day: 12, TargetEmails: 70, Enabled: true},
		{Day: 13, TargetEmails: 80, Enabled: true},
		{Day: 14, TargetEmails: 90, Enabled: true},
		{Day: 15, TargetEmails: 100, Enabled: true},
	}
	for _, day := range defaultPlan {
		if err := db.FirstOrCreate(&day, "day = ?", day.Day).Error; err != nil {
			return err
		}
	}
	return nil
}
