package leasedb

import "gorm.io/gorm/clause"

// onConflictUpdateValue builds an upsert clause for accountAttributeRow's
// (owner_num, key) natural key, overwriting value on conflict.
func onConflictUpdateValue() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_num"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}
}
